package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/imdario/mergo"
)

type Config struct {
	Hostname  string     `json:"hostname,omitempty"`
	Token     string     `json:"-"`
	Project   string     `json:"project,omitempty"`
	Range     string     `json:"range,omitempty"`
	Path      string     `json:"path,omitempty"`
	PoDir     string     `json:"po_dir,omitempty"`
	WrapWidth int        `json:"wrap_width,omitempty"`
	Jobs      int        `json:"jobs,omitempty"`
	NoSave    bool       `json:"no_save,omitempty"`
	Verbose   bool       `json:"verbose,omitempty"`
	Quiet     bool       `json:"quiet,omitempty"`
	Term      TerminalIO `json:"-"`
}

func New(overrides *Config) Config {
	return NewWithTerminalIO(overrides, nil)
}

func NewWithTerminalIO(overrides *Config, termio *TerminalIO) Config {
	cfg := GetDefault()
	if termio == nil {
		termio = &DefaultTermIO
	}
	cfg.Term = *termio

	if overrides != nil {
		if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
			panic(err)
		}
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Project == "" {
		return errors.New("config: gitlab project is required")
	}
	if strings.Trim(c.Project, "/") == "" || !strings.Contains(strings.Trim(c.Project, "/"), "/") {
		return fmt.Errorf("config: gitlab project %q must be of the form NAMESPACE/PROJECT", c.Project)
	}
	if c.Hostname == "" {
		return errors.New("config: gitlab hostname is required")
	}
	u, err := url.Parse(c.Hostname)
	if err != nil {
		return fmt.Errorf("config: invalid hostname %q: %w", c.Hostname, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: hostname %q must start with http:// or https://", c.Hostname)
	}
	if c.WrapWidth < 1 {
		return fmt.Errorf("config: wrap width must be positive, got %d", c.WrapWidth)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("config: jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

// NormalizeHostname trims whitespace and trailing slashes so that
// "https://gitlab.gnome.org/" and "https://gitlab.gnome.org" are the same
// credentials key.
func NormalizeHostname(h string) string {
	return strings.TrimRight(strings.TrimSpace(h), "/")
}

func (c Config) Printf(msg string, args ...interface{}) {
	if c.Quiet {
		return
	}
	fmt.Fprintf(c.Term.Stderr, msg+"\n", args...)
}

func (c Config) Warnf(msg string, args ...interface{}) {
	fmt.Fprintf(c.Term.Stderr, "warning: "+msg+"\n", args...)
}

func (c Config) Errorf(msg string, args ...interface{}) {
	fmt.Fprintf(c.Term.Stderr, msg+"\n", args...)
}

func (c Config) Debugf(msg string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	c.Printf(msg, args...)
}
