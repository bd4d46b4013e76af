// Package tracker looks up issues and merge requests on a GitLab instance.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/sync/errgroup"

	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/model"
)

// AuthError is returned when GitLab rejects the access token.
type AuthError struct {
	Hostname string
	Err      error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("tracker: authentication to %s failed: %v", e.Hostname, e.Err)
}

func (e AuthError) Unwrap() error { return e.Err }

// TokenURL is where a new personal access token can be created.
func (e AuthError) TokenURL() string {
	return e.Hostname + "/-/profile/personal_access_tokens"
}

type Issue struct {
	Ref    model.IssueRef
	Title  string
	Closed bool
}

type MergeRequest struct {
	IID    int
	Title  string
	Merged bool
}

// Result partitions looked up issues and merge requests by state. Items that
// could not be found are left out.
type Result struct {
	ClosedIssues []Issue
	OpenIssues   []Issue
	MergedMRs    []MergeRequest
	UnmergedMRs  []MergeRequest
}

type Client struct {
	cfg      config.Config
	gl       *gitlab.Client
	hostname string

	logMu sync.Mutex
}

// New returns a client for the GitLab instance at hostname, e.g.
// https://gitlab.gnome.org.
func New(cfg config.Config, hostname, token, userAgent string, opts ...gitlab.ClientOptionFunc) (*Client, error) {
	hostname = config.NormalizeHostname(hostname)
	opts = append([]gitlab.ClientOptionFunc{gitlab.WithBaseURL(hostname + "/api/v4")}, opts...)
	gl, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracker: failed to initialize GitLab client: %w", err)
	}
	if userAgent != "" {
		gl.UserAgent = userAgent
	}
	return NewFromClient(cfg, hostname, gl), nil
}

func NewFromClient(cfg config.Config, hostname string, gl *gitlab.Client) *Client {
	return &Client{
		cfg:      cfg,
		gl:       gl,
		hostname: config.NormalizeHostname(hostname),
	}
}

// Project checks access to the project at path and returns its canonical
// path, e.g. "gnome/GLib" becomes "GNOME/glib".
func (c *Client) Project(ctx context.Context, path string) (string, error) {
	p, _, err := c.gl.Projects.GetProject(path, &gitlab.GetProjectOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			return "", AuthError{Hostname: c.hostname, Err: err}
		}
		return "", fmt.Errorf("tracker: failed to get project %s: %w", path, err)
	}
	return p.PathWithNamespace, nil
}

// Resolve looks up issues and merge requests (of project) concurrently,
// running at most jobs requests at once.
func (c *Client) Resolve(ctx context.Context, project string, issues []model.IssueRef, mrs []int, jobs int) (*Result, error) {
	if jobs < 1 {
		jobs = 1
	}
	res := &Result{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, ref := range issues {
		ref := ref
		g.Go(func() error {
			issue, err := c.issue(gctx, ref)
			if err != nil || issue == nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if issue.Closed {
				res.ClosedIssues = append(res.ClosedIssues, *issue)
			} else {
				res.OpenIssues = append(res.OpenIssues, *issue)
			}
			return nil
		})
	}
	for _, iid := range mrs {
		iid := iid
		g.Go(func() error {
			mr, err := c.mergeRequest(gctx, project, iid)
			if err != nil || mr == nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if mr.Merged {
				res.MergedMRs = append(res.MergedMRs, *mr)
			} else {
				res.UnmergedMRs = append(res.UnmergedMRs, *mr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortIssues(res.ClosedIssues)
	sortIssues(res.OpenIssues)
	sortMergeRequests(res.MergedMRs)
	sortMergeRequests(res.UnmergedMRs)
	return res, nil
}

func (c *Client) issue(ctx context.Context, ref model.IssueRef) (*Issue, error) {
	gi, _, err := c.gl.Issues.GetIssue(ref.Project, int64(ref.IID), gitlab.WithContext(ctx))
	if err != nil {
		return nil, c.skippable(err, "issue "+ref.String())
	}
	return &Issue{
		Ref:    ref,
		Title:  gi.Title,
		Closed: gi.ClosedAt != nil,
	}, nil
}

func (c *Client) mergeRequest(ctx context.Context, project string, iid int) (*MergeRequest, error) {
	gmr, _, err := c.gl.MergeRequests.GetMergeRequest(project, int64(iid), nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, c.skippable(err, fmt.Sprintf("merge request %s!%d", project, iid))
	}
	return &MergeRequest{
		IID:    iid,
		Title:  gmr.Title,
		Merged: gmr.MergedAt != nil, //nolint:staticcheck
	}, nil
}

// skippable returns nil for API errors about a single item (it does not
// exist, or is not visible to us), which are logged and skipped. Bad tokens
// and transport errors are returned.
func (c *Client) skippable(err error, what string) error {
	if isStatus(err, http.StatusUnauthorized) {
		return AuthError{Hostname: c.hostname, Err: err}
	}
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) {
		c.logMu.Lock()
		c.cfg.Debugf("skipping %s: %v", what, err)
		c.logMu.Unlock()
		return nil
	}
	return fmt.Errorf("tracker: failed to get %s: %w", what, err)
}

func isStatus(err error, code int) bool {
	var errResp *gitlab.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == code
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Ref.Less(issues[j].Ref)
	})
}

func sortMergeRequests(mrs []MergeRequest) {
	sort.Slice(mrs, func(i, j int) bool {
		return mrs[i].IID < mrs[j].IID
	})
}
