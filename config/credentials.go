package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/ghodss/yaml"
	"github.com/google/renameio/v2"
)

// CredentialsEnv overrides the credentials file location.
const CredentialsEnv = "GITLAB_CHANGELOG_CONFIG"

const credentialsFilename = "gitlab-changelog.yml"

// Credentials is the on-disk store of GitLab hostnames and their access
// tokens. It is the only file gitlab-changelog ever writes.
type Credentials struct {
	DefaultHostname string                     `json:"default_hostname,omitempty"`
	Hosts           map[string]HostCredentials `json:"hosts,omitempty"`

	path string
}

type HostCredentials struct {
	Token string `json:"token"`
}

type MissingTokenError struct {
	Hostname string
	Path     string
}

func (e MissingTokenError) Error() string {
	return fmt.Sprintf("config: key hosts.%s.token not found in %s (pass --token)", e.Hostname, e.Path)
}

// CredentialsPath returns p if set, then $GITLAB_CHANGELOG_CONFIG, then the
// file in the XDG config home.
func CredentialsPath(p string) string {
	if p != "" {
		return p
	}
	if env := os.Getenv(CredentialsEnv); env != "" {
		return env
	}
	return filepath.Join(xdg.ConfigHome, credentialsFilename)
}

// LoadCredentials reads the credentials file at p. A missing file is not an
// error; an empty store bound to p is returned instead.
func LoadCredentials(p string) (*Credentials, error) {
	creds := &Credentials{path: p}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, creds); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", p, err)
	}
	creds.DefaultHostname = NormalizeHostname(creds.DefaultHostname)
	if len(creds.Hosts) > 0 {
		hosts := make(map[string]HostCredentials, len(creds.Hosts))
		for h, hc := range creds.Hosts {
			hosts[NormalizeHostname(h)] = hc
		}
		creds.Hosts = hosts
	}
	return creds, nil
}

func (c *Credentials) Path() string { return c.path }

func (c *Credentials) Token(hostname string) (string, bool) {
	hc, ok := c.Hosts[NormalizeHostname(hostname)]
	if !ok || hc.Token == "" {
		return "", false
	}
	return hc.Token, true
}

// Complete reports whether the store already has a default hostname and a
// token for hostname.
func (c *Credentials) Complete(hostname string) bool {
	if c.DefaultHostname == "" {
		return false
	}
	_, ok := c.Token(hostname)
	return ok
}

// Apply records hostname as the default (unless one is already set) and
// stores token for it. It returns true if anything changed.
func (c *Credentials) Apply(hostname, token string) bool {
	hostname = NormalizeHostname(hostname)
	changed := false
	if c.DefaultHostname == "" {
		c.DefaultHostname = hostname
		changed = true
	}
	if c.Hosts == nil {
		c.Hosts = make(map[string]HostCredentials)
	}
	if c.Hosts[hostname].Token != token {
		c.Hosts[hostname] = HostCredentials{Token: token}
		changed = true
	}
	return changed
}

// Save atomically writes the store with owner-only permissions.
func (c *Credentials) Save() error {
	if c.path == "" {
		return errors.New("config: credentials have no path")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("config: failed to create config directory: %w", err)
	}
	if err := renameio.WriteFile(c.path, b, 0o600); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", c.path, err)
	}
	return nil
}
