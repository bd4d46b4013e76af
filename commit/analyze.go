package commit

import (
	"context"
	"errors"
	"sort"

	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/model"
	"github.com/jeffrom/gitlab-changelog/vcs"
)

// Summary is the aggregated view of a commit range.
type Summary struct {
	Range       string
	CommitCount int

	Issues         []model.IssueRef
	ExternalIssues []string
	MergeRequests  []int
	Locales        []string

	// Authors of the non-merge commits referencing each item, sorted.
	IssueAuthors  map[model.IssueRef][]string
	MRAuthors     map[int][]string
	LocaleAuthors map[string][]string
}

type Analyzer struct {
	cfg    config.Config
	vcs    vcs.Interface
	parser *Parser
}

func NewAnalyzer(cfg config.Config, vcs vcs.Interface, project Project) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		vcs:    vcs,
		parser: NewParser(project),
	}
}

// Analyze reads the commits in revs and summarizes them. If revs is empty,
// the commits since the latest release tag are used.
func (a *Analyzer) Analyze(ctx context.Context, revs string) (*Summary, error) {
	if revs == "" {
		var err error
		revs, err = a.DefaultRange(ctx)
		if err != nil {
			return nil, err
		}
	}
	commits, err := a.vcs.ReadCommits(ctx, revs)
	if err != nil {
		return nil, err
	}
	a.cfg.Debugf("read %d commits in range %s", len(commits), revs)
	return a.Summarize(revs, commits), nil
}

// DefaultRange returns "<tag>.." for the most recent annotated tag, falling
// back to the highest semver tag when there are no annotated tags.
func (a *Analyzer) DefaultRange(ctx context.Context) (string, error) {
	tag, err := a.vcs.Describe(ctx)
	if err == nil {
		return tag + "..", nil
	}
	nfe := vcs.NotFoundError{}
	if !errors.As(err, &nfe) {
		return "", err
	}

	a.cfg.Debugf("no annotated tags, looking for the latest version tag")
	tags, err := a.vcs.ReadTags(ctx)
	if err != nil {
		return "", err
	}
	latest, err := LatestTag(tags)
	if err != nil {
		return "", err
	}
	return latest + "..", nil
}

type authorSet map[string]bool

// Summarize merges per-commit references into a Summary. Merge requests are
// only collected from commits that reference no issues, and merge commits
// never contribute authors.
func (a *Analyzer) Summarize(revs string, commits []*model.Commit) *Summary {
	all := NewRefs()
	locales := make(map[string]bool)
	issueAuthors := make(map[model.IssueRef]authorSet)
	mrAuthors := make(map[int]authorSet)
	localeAuthors := make(map[string]authorSet)

	for _, c := range commits {
		commitLocales := Locales(c.Files, a.cfg.PoDir)
		for _, l := range commitLocales {
			locales[l] = true
		}

		refs := a.parser.ParseMessage(c.Message())
		for ref := range refs.Issues {
			all.Issues[ref] = true
		}
		for u := range refs.ExternalIssues {
			all.ExternalIssues[u] = true
		}
		if len(refs.Issues) == 0 {
			for mr := range refs.MergeRequests {
				all.MergeRequests[mr] = true
			}
		}
		if !refs.Empty() || len(commitLocales) > 0 {
			a.cfg.Debugf("%s: %d issues, %d external issues, %d merge requests, %d locales",
				c.ShortID(), len(refs.Issues), len(refs.ExternalIssues), len(refs.MergeRequests), len(commitLocales))
		}

		if c.IsMerge() {
			continue
		}
		for ref := range refs.Issues {
			addAuthor(issueAuthors, ref, c.Author)
		}
		for mr := range refs.MergeRequests {
			addAuthor(mrAuthors, mr, c.Author)
		}
		for _, l := range commitLocales {
			addAuthor(localeAuthors, l, c.Author)
		}
	}

	return &Summary{
		Range:          revs,
		CommitCount:    len(commits),
		Issues:         all.SortedIssues(),
		ExternalIssues: all.SortedExternalIssues(),
		MergeRequests:  all.SortedMergeRequests(),
		Locales:        sortedKeys(locales),
		IssueAuthors:   flattenAuthors(issueAuthors),
		MRAuthors:      flattenAuthors(mrAuthors),
		LocaleAuthors:  flattenAuthors(localeAuthors),
	}
}

func addAuthor[K comparable](m map[K]authorSet, key K, author string) {
	if author == "" {
		return
	}
	set, ok := m[key]
	if !ok {
		set = make(authorSet)
		m[key] = set
	}
	set[author] = true
}

func flattenAuthors[K comparable](m map[K]authorSet) map[K][]string {
	res := make(map[K][]string, len(m))
	for k, set := range m {
		authors := make([]string, 0, len(set))
		for a := range set {
			authors = append(authors, a)
		}
		sort.Strings(authors)
		res[k] = authors
	}
	return res
}
