package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/model"
	"github.com/jeffrom/gitlab-changelog/tracker"
)

type fakeGitLab struct {
	hostname   string
	token      string
	project    string
	projectErr error
	res        *tracker.Result
	resolveErr error
}

func (f *fakeGitLab) Project(ctx context.Context, path string) (string, error) {
	if f.projectErr != nil {
		return "", f.projectErr
	}
	if f.project != "" {
		return f.project, nil
	}
	return path, nil
}

func (f *fakeGitLab) Resolve(ctx context.Context, project string, issues []model.IssueRef, mrs []int, jobs int) (*tracker.Result, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.res == nil {
		return &tracker.Result{}, nil
	}
	return f.res, nil
}

func withFakeGitLab(t *testing.T, f *fakeGitLab) {
	t.Helper()
	orig := newTracker
	newTracker = func(cfg config.Config, hostname, token string) (gitlabClient, error) {
		f.hostname = hostname
		f.token = token
		return f, nil
	}
	t.Cleanup(func() { newTracker = orig })
}

func mockTermIO() (*config.TerminalIO, *bytes.Buffer, *bytes.Buffer) {
	ob := &bytes.Buffer{}
	eb := &bytes.Buffer{}
	return &config.TerminalIO{Stdin: &bytes.Buffer{}, Stdout: ob, Stderr: eb}, ob, eb
}

func TestRunArgs(t *testing.T) {
	tcs := []struct {
		name   string
		args   []string
		expect string
	}{
		{
			name:   "no project",
			args:   []string{"-H", "https://gitlab.example.com", "-t", "tok"},
			expect: "a GitLab project is required",
		},
		{
			name:   "too many args",
			args:   []string{"-H", "https://gitlab.example.com", "-t", "tok", "GNOME/glib", "1.0..", "extra"},
			expect: "too many arguments",
		},
		{
			name:   "no hostname",
			args:   []string{"GNOME/glib"},
			expect: "--hostname is required",
		},
		{
			name:   "bad project",
			args:   []string{"-H", "https://gitlab.example.com", "-t", "tok", "glib"},
			expect: "NAMESPACE/PROJECT",
		},
		{
			name:   "bad hostname",
			args:   []string{"-H", "gitlab.example.com", "-t", "tok", "GNOME/glib"},
			expect: "must start with http:// or https://",
		},
		{
			name:   "zero wrap width",
			args:   []string{"-H", "https://gitlab.example.com", "-t", "tok", "-w", "0", "GNOME/glib"},
			expect: "wrap width must be positive",
		},
		{
			name:   "no jobs",
			args:   []string{"-H", "https://gitlab.example.com", "-t", "tok", "-j", "0", "GNOME/glib"},
			expect: "jobs must be at least 1",
		},
		{
			name:   "unknown flag",
			args:   []string{"--nope", "GNOME/glib"},
			expect: "unknown flag: --nope",
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			withFakeGitLab(t, &fakeGitLab{})
			tio, _, _ := mockTermIO()
			cfgPath := filepath.Join(t.TempDir(), "gitlab-changelog.yml")

			args := append([]string{"gitlab-changelog", "-c", cfgPath}, tc.args...)
			err := run(args, tio)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected error containing %q, got %v", tc.expect, err)
			}
		})
	}
}

func TestRunMissingToken(t *testing.T) {
	withFakeGitLab(t, &fakeGitLab{})
	tio, _, _ := mockTermIO()
	cfgPath := filepath.Join(t.TempDir(), "gitlab-changelog.yml")

	err := run([]string{"gitlab-changelog", "-c", cfgPath, "-H", "https://gitlab.example.com/", "GNOME/glib"}, tio)
	mte := config.MissingTokenError{}
	if !errors.As(err, &mte) {
		t.Fatalf("expected MissingTokenError, got %v", err)
	}
	if mte.Hostname != "https://gitlab.example.com" {
		t.Errorf("unexpected hostname %q", mte.Hostname)
	}
	if mte.Path != cfgPath {
		t.Errorf("unexpected path %q", mte.Path)
	}
}

func TestRunHelp(t *testing.T) {
	tio, ob, _ := mockTermIO()
	if err := run([]string{"gitlab-changelog", "--help"}, tio); err != nil {
		t.Fatal(err)
	}
	out := ob.String()
	for _, expect := range []string{"<gitlab project> [<revision range>]", "--wrap-width", "--no-save", "EXAMPLES"} {
		if !strings.Contains(out, expect) {
			t.Errorf("expected usage to contain %q, got:\n%s", expect, out)
		}
	}
}

func TestRunVersion(t *testing.T) {
	tio, ob, _ := mockTermIO()
	if err := run([]string{"gitlab-changelog", "-V"}, tio); err != nil {
		t.Fatal(err)
	}
	if ob.String() != "dev\n" {
		t.Errorf("expected dev version, got %q", ob.String())
	}
}

func TestRunAuthError(t *testing.T) {
	withFakeGitLab(t, &fakeGitLab{projectErr: tracker.AuthError{
		Hostname: "https://gitlab.example.com",
		Err:      errors.New("401 Unauthorized"),
	}})
	tio, ob, eb := mockTermIO()
	cfgPath := filepath.Join(t.TempDir(), "gitlab-changelog.yml")

	err := run([]string{"gitlab-changelog", "-c", cfgPath, "-H", "https://gitlab.example.com", "-t", "expired", "GNOME/glib"}, tio)
	if !errors.As(err, &tracker.AuthError{}) {
		t.Fatalf("expected AuthError, got %v", err)
	}

	expect := `Authentication error: 401 Unauthorized
Your token may have expired. Check and refresh it at:
https://gitlab.example.com/-/profile/personal_access_tokens
It will need the read_api scope.
`
	if eb.String() != expect {
		t.Errorf("unexpected stderr:\n%s\nexpected:\n%s", eb.String(), expect)
	}
	if ob.Len() != 0 {
		t.Errorf("expected no stdout, got %q", ob.String())
	}
	if _, err := os.Stat(cfgPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no credentials file after failed authentication, got %v", err)
	}
}

func TestRunSavesCredentials(t *testing.T) {
	fake := &fakeGitLab{}
	withFakeGitLab(t, fake)
	tio, _, _ := mockTermIO()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config", "gitlab-changelog.yml")
	missingRepo := filepath.Join(dir, "missing")

	// the repository does not exist, so run fails after authenticating
	err := run([]string{"gitlab-changelog", "-c", cfgPath, "-C", missingRepo, "-H", "https://gitlab.example.com/", "-t", "secret", "GNOME/glib", "HEAD~1.."}, tio)
	if err == nil {
		t.Fatal("expected error for missing repository")
	}
	if fake.hostname != "https://gitlab.example.com" || fake.token != "secret" {
		t.Errorf("unexpected client credentials %q %q", fake.hostname, fake.token)
	}

	creds, err := config.LoadCredentials(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if creds.DefaultHostname != "https://gitlab.example.com" {
		t.Errorf("unexpected default hostname %q", creds.DefaultHostname)
	}
	if tok, ok := creds.Token("https://gitlab.example.com"); !ok || tok != "secret" {
		t.Errorf("unexpected token %q", tok)
	}

	// the saved hostname and token are used when no flags are given
	fake.hostname, fake.token = "", ""
	_ = run([]string{"gitlab-changelog", "-c", cfgPath, "-C", missingRepo, "GNOME/glib", "HEAD~1.."}, tio)
	if fake.hostname != "https://gitlab.example.com" || fake.token != "secret" {
		t.Errorf("expected saved credentials to be used, got %q %q", fake.hostname, fake.token)
	}
}

func TestRunNoSave(t *testing.T) {
	withFakeGitLab(t, &fakeGitLab{})
	tio, _, _ := mockTermIO()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gitlab-changelog.yml")

	_ = run([]string{"gitlab-changelog", "--no-save", "-c", cfgPath, "-C", filepath.Join(dir, "missing"), "-H", "https://gitlab.example.com", "-t", "secret", "GNOME/glib", "HEAD~1.."}, tio)
	if _, err := os.Stat(cfgPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no credentials file with --no-save, got %v", err)
	}
}

func TestRunGitRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("-short")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found")
	}
	ctx := context.Background()
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	die(os.MkdirAll(filepath.Join(repo, "po"), 0o755))

	call(ctx, t, repo, "init")
	call(ctx, t, repo, "commit", "--allow-empty", "-m", "initial commit")
	call(ctx, t, repo, "tag", "-a", "2.58.2", "-m", "2.58.2")
	die(os.WriteFile(filepath.Join(repo, "po", "de.po"), []byte("msgid \"\"\n"), 0o644))
	call(ctx, t, repo, "add", "po/de.po")
	call(ctx, t, repo, "commit", "-m", "Update German translation")
	call(ctx, t, repo, "commit", "--allow-empty", "-m", "gmain: Fix crash", "-m", "Closes #3")

	withFakeGitLab(t, &fakeGitLab{
		project: "GNOME/glib",
		res: &tracker.Result{
			ClosedIssues: []tracker.Issue{{Ref: model.IssueRef{Project: "GNOME/glib", IID: 3}, Title: "Crash in main loop", Closed: true}},
		},
	})
	tio, ob, _ := mockTermIO()
	args := []string{"gitlab-changelog", "--no-save", "-c", filepath.Join(dir, "gitlab-changelog.yml"), "-C", repo, "-H", "https://gitlab.gnome.org", "-t", "secret", "gnome/GLib"}
	if err := run(args, tio); err != nil {
		t.Fatal(err)
	}

	expect := `2 commits in range 2.58.2.., referencing 1 issues and 0 MRs
1 translation updates.
---

* TODO Major news items

* TODO One bullet point each

* Bugs fixed:
  - #3 Crash in main loop (changelog-test)

* Translation updates:
  - German (changelog-test)
`
	if ob.String() != expect {
		t.Errorf("unexpected output:\n%s\nexpected:\n%s", ob.String(), expect)
	}
}

func call(ctx context.Context, t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=changelog-test",
		"GIT_AUTHOR_EMAIL=changelog-test@example.com",
		"GIT_COMMITTER_NAME=changelog-test",
		"GIT_COMMITTER_EMAIL=changelog-test@example.com",
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	b := &bytes.Buffer{}
	cmd.Stdout = b
	cmd.Stderr = b
	if err := cmd.Run(); err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, b.String())
	}
}

func die(err error) {
	if err != nil {
		panic(err)
	}
}
