// Package vcs abstracts version control systems. Currently just git.
package vcs

import (
	"context"
	"fmt"

	"github.com/jeffrom/gitlab-changelog/model"
)

type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("vcs: ref %q not found", e.Ref)
}

type Interface interface {
	// ReadCommits returns the commits in revs, newest first, with the files
	// each one changed relative to its first parent.
	ReadCommits(ctx context.Context, revs string) ([]*model.Commit, error)

	// Describe returns the most recent annotated tag reachable from HEAD.
	// It returns NotFoundError if there is none.
	Describe(ctx context.Context) (string, error)

	// ReadTags lists every tag, annotated or not.
	ReadTags(ctx context.Context) ([]string, error)
}
