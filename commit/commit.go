// Package commit extracts issue, merge request and translation references
// from commits and aggregates them into a changelog summary.
package commit

import (
	"strings"

	"github.com/jeffrom/gitlab-changelog/config"
)

// Project is the GitLab project commits are read against. References to it
// are recorded with its canonical Path.
type Project struct {
	Hostname string
	Path     string
}

func NewProject(hostname, path string) Project {
	return Project{
		Hostname: config.NormalizeHostname(hostname),
		Path:     strings.Trim(path, "/"),
	}
}

// Namespace returns the first path segment, e.g. GNOME for GNOME/glib.
func (p Project) Namespace() string {
	ns, _, _ := strings.Cut(p.Path, "/")
	return ns
}

// Name returns the last path segment, e.g. glib for GNOME/glib.
func (p Project) Name() string {
	if i := strings.LastIndexByte(p.Path, '/'); i >= 0 {
		return p.Path[i+1:]
	}
	return p.Path
}

// URL returns the web URL of the project without a trailing slash.
func (p Project) URL() string {
	return p.Hostname + "/" + p.Path
}

// IsProject reports whether path names this project. GitLab paths are case
// insensitive.
func (p Project) IsProject(path string) bool {
	return strings.EqualFold(strings.Trim(path, "/"), p.Path)
}
