package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/pflag"

	"github.com/jeffrom/gitlab-changelog/commit"
	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/runner"
	"github.com/jeffrom/gitlab-changelog/tracker"
	"github.com/jeffrom/gitlab-changelog/vcs/gitcli"
)

var (
	// these are overridden by go build -X
	Version string
)

// gitlabClient is the part of *tracker.Client that run needs.
type gitlabClient interface {
	runner.Resolver
	Project(ctx context.Context, path string) (string, error)
}

var newTracker = func(cfg config.Config, hostname, token string) (gitlabClient, error) {
	return tracker.New(cfg, hostname, token, userAgent())
}

func main() {
	if err := run(os.Args, &config.DefaultTermIO); err != nil {
		if !errors.As(err, &tracker.AuthError{}) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(rawArgs []string, termio *config.TerminalIO) error {
	cfg := config.NewWithTerminalIO(nil, termio)

	var help bool
	var version bool
	var cfgFile string
	var hostname string
	var token string
	flags := pflag.NewFlagSet("gitlab-changelog", pflag.ContinueOnError)
	flags.SetOutput(termio.Stderr)
	flags.BoolVarP(&help, "help", "h", false, "show help")
	flags.BoolVarP(&version, "version", "V", false, "print version and exit")
	flags.StringVarP(&cfg.Path, "directory", "C", cfg.Path, "repository to use (git searches parent directories)")
	flags.StringVarP(&hostname, "hostname", "H", "", "GitLab `url`, for example https://gitlab.gnome.org (default: load from the config file)")
	flags.StringVarP(&token, "token", "t", "", "GitLab access `token` (default: load from the config file)")
	flags.IntVarP(&cfg.WrapWidth, "wrap-width", "w", cfg.WrapWidth, "wrap width of listed lines")
	flags.IntVarP(&cfg.Jobs, "jobs", "j", cfg.Jobs, "number of concurrent GitLab requests")
	flags.StringVar(&cfg.PoDir, "po-dir", cfg.PoDir, "translations `dir`ectory")
	flags.BoolVar(&cfg.NoSave, "no-save", false, "don't write the hostname and token to the config file")
	flags.StringVarP(&cfgFile, "config", "c", "", "specify config `file`")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "print additional debugging info")
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", false, "print as little as necessary")

	if err := flags.Parse(rawArgs); err != nil {
		return err
	}
	args := flags.Args()[1:]

	if help {
		usage(cfg, flags)
		return nil
	}
	if version {
		fmt.Fprintln(termio.Stdout, versionString())
		return nil
	}

	switch len(args) {
	case 0:
		return errors.New("a GitLab project is required, for example GNOME/glib")
	case 1:
		cfg.Project = args[0]
	case 2:
		cfg.Project = args[0]
		cfg.Range = args[1]
	default:
		return fmt.Errorf("too many arguments: %q", args[2:])
	}

	credsPath := config.CredentialsPath(cfgFile)
	creds, err := config.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	if hostname == "" {
		hostname = creds.DefaultHostname
	}
	if hostname == "" {
		return fmt.Errorf("--hostname is required (no default_hostname in %s)", credsPath)
	}
	cfg.Hostname = config.NormalizeHostname(hostname)
	if token == "" {
		var ok bool
		token, ok = creds.Token(cfg.Hostname)
		if !ok {
			return config.MissingTokenError{Hostname: cfg.Hostname, Path: credsPath}
		}
	}
	cfg.Token = token

	if !cfg.Verbose && !termio.StderrIsTerminal() {
		cfg.Quiet = true
	}
	if cfg.Verbose {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		cfg.Debugf("config: %s", string(b))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// done setting up config

	ctx := context.Background()
	gl, err := newTracker(cfg, cfg.Hostname, cfg.Token)
	if err != nil {
		return err
	}
	projectPath, err := gl.Project(ctx, cfg.Project)
	if err != nil {
		printAuthError(cfg, err)
		return err
	}
	if projectPath != cfg.Project {
		cfg.Debugf("using canonical project path %s", projectPath)
	}

	if !cfg.NoSave && !creds.Complete(cfg.Hostname) && creds.Apply(cfg.Hostname, cfg.Token) {
		if err := creds.Save(); err != nil {
			cfg.Warnf("could not save credentials: %v", err)
		} else {
			cfg.Printf("saved credentials for %s to %s", cfg.Hostname, creds.Path())
		}
	}

	git := gitcli.New(cfg, cfg.Path)
	project := commit.NewProject(cfg.Hostname, projectPath)
	rnr := runner.New(cfg, git, project, gl)
	if err := rnr.Run(ctx, termio.Stdout); err != nil {
		printAuthError(cfg, err)
		return err
	}
	return nil
}

func printAuthError(cfg config.Config, err error) {
	authErr := tracker.AuthError{}
	if !errors.As(err, &authErr) {
		return
	}
	cfg.Errorf("Authentication error: %v", authErr.Err)
	cfg.Errorf("Your token may have expired. Check and refresh it at:")
	cfg.Errorf("%s", authErr.TokenURL())
	cfg.Errorf("It will need the read_api scope.")
}

func versionString() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func userAgent() string {
	return "gitlab-changelog/" + versionString()
}

func usage(cfg config.Config, flags *pflag.FlagSet) {
	fmt.Fprintf(cfg.Term.Stdout, heredoc.Doc(`
		%s [flags] <gitlab project> [<revision range>]

		Generate a NEWS/ChangeLog entry for a project which uses GitLab. The entry
		is written to stdout.

		The revision range defaults to the commits since the last annotated tag.

		FLAGS
		%s
		The hostname and token are saved to %s after the first successful run,
		unless --no-save is given.

		EXAMPLES

		# summarize the commits since the last release
		$ gitlab-changelog -H https://gitlab.gnome.org -t $TOKEN GNOME/glib

		# summarize an explicit range in another checkout
		$ gitlab-changelog -C ~/src/glib GNOME/glib 2.58.2..2.58.3
	`), "gitlab-changelog", flags.FlagUsages(), config.CredentialsPath(""))
}
