// Package runner ties the commit analysis and the GitLab lookups together and
// renders the changelog draft.
package runner

import (
	"context"
	"io"

	"github.com/jeffrom/gitlab-changelog/commit"
	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/locale"
	"github.com/jeffrom/gitlab-changelog/model"
	"github.com/jeffrom/gitlab-changelog/tracker"
	"github.com/jeffrom/gitlab-changelog/vcs"
)

// Resolver looks up the state and titles of issues and merge requests.
// *tracker.Client implements it.
type Resolver interface {
	Resolve(ctx context.Context, project string, issues []model.IssueRef, mrs []int, jobs int) (*tracker.Result, error)
}

type Runner struct {
	cfg      config.Config
	vcs      vcs.Interface
	project  commit.Project
	analyzer *commit.Analyzer
	resolver Resolver
}

func New(cfg config.Config, vcs vcs.Interface, project commit.Project, resolver Resolver) *Runner {
	return &Runner{
		cfg:      cfg,
		vcs:      vcs,
		project:  project,
		analyzer: commit.NewAnalyzer(cfg, vcs, project),
		resolver: resolver,
	}
}

func (r *Runner) Analyze(ctx context.Context) (*commit.Summary, error) {
	return r.analyzer.Analyze(ctx, r.cfg.Range)
}

// Run analyzes the configured range and writes the draft to w.
func (r *Runner) Run(ctx context.Context, w io.Writer) error {
	summary, err := r.Analyze(ctx)
	if err != nil {
		return err
	}

	r.cfg.Printf("querying %d issues and %d merge requests on %s...",
		len(summary.Issues), len(summary.MergeRequests), r.project.URL())
	res, err := r.resolver.Resolve(ctx, r.project.Path, summary.Issues, summary.MergeRequests, r.cfg.Jobs)
	if err != nil {
		return err
	}

	rep := &Report{
		Project: r.project.Path,
		Width:   r.cfg.WrapWidth,
		Summary: summary,
		Result:  res,
		Locales: locale.Map(summary.Locales, summary.LocaleAuthors),
	}
	return rep.Write(w)
}
