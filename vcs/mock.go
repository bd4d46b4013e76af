package vcs

import (
	"context"
	"time"

	"github.com/jeffrom/gitlab-changelog/model"
)

type Mock struct {
	t         time.Time
	tags      []string
	annotated string
	commits   []*model.Commit
	queries   []string
}

func NewMock() *Mock {
	return &Mock{
		t: time.Now(),
	}
}

func (m *Mock) SetTags(tags ...string) *Mock {
	m.tags = tags
	return m
}

// SetDescribe sets the tag returned by Describe.
func (m *Mock) SetDescribe(tag string) *Mock {
	m.annotated = tag
	return m
}

func (m *Mock) SetCommits(commits ...*model.Commit) *Mock {
	finalCommits := make([]*model.Commit, len(commits))
	for i, commit := range commits {
		c := *commit
		if c.CommitterDate.IsZero() {
			c.CommitterDate = m.t
			m.t = m.t.Add(-time.Minute)
		}
		if c.AuthorDate.IsZero() {
			c.AuthorDate = c.CommitterDate
		}
		finalCommits[i] = &c
	}
	m.commits = finalCommits
	return m
}

// Queries returns the revision ranges passed to ReadCommits.
func (m *Mock) Queries() []string {
	return m.queries
}

func (m *Mock) Describe(ctx context.Context) (string, error) {
	if m.annotated == "" {
		return "", NotFoundError{Ref: "HEAD"}
	}
	return m.annotated, nil
}

func (m *Mock) ReadTags(ctx context.Context) ([]string, error) {
	return m.tags, nil
}

func (m *Mock) ReadCommits(ctx context.Context, revs string) ([]*model.Commit, error) {
	m.queries = append(m.queries, revs)
	return m.commits, nil
}
