// Package gitcli implements vcs.Interface using the git commandline tool.
package gitcli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeffrom/gitlab-changelog/config"
	"github.com/jeffrom/gitlab-changelog/model"
	"github.com/jeffrom/gitlab-changelog/vcs"
)

// Git implements vcs.Interface using the git commandline tool.
type Git struct {
	cfg config.Config
	wd  string
}

func New(cfg config.Config, wd string) *Git {
	return &Git{
		cfg: cfg,
		wd:  wd,
	}
}

const (
	logStart = "_START_"
	logSep   = "_SEP_"
	logEnd   = "_END_"

	EXPECTED_LOG_PARTS = 10
)

// gitISO8601 is the date format of %ai and %ci, e.g. 2020-08-17 16:26:10 -0700
const gitISO8601 = "2006-01-02 15:04:05 -0700"

func ParseGitISO8601(s string) (time.Time, error) {
	return time.Parse(gitISO8601, s)
}

var logFormat = "--pretty=tformat:" + logStart + strings.Join([]string{
	"%H", "%P", "%aN", "%ae", "%ai", "%cN", "%ce", "%ci", "%s", "%b",
}, logSep) + logEnd

func (g *Git) ReadCommits(ctx context.Context, revs string) ([]*model.Commit, error) {
	args := []string{
		"-c", "core.quotePath=false",
		"log", logFormat, "--name-only", "--diff-merges=first-parent", revs, "--",
	}
	b, err := g.call(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseLog(b)
}

func parseLog(b []byte) ([]*model.Commit, error) {
	out := string(b)
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	if !strings.HasPrefix(out, logStart) {
		return nil, fmt.Errorf("gitcli: unexpected git log output: %q", firstLine(out))
	}

	var commits []*model.Commit
	for _, record := range strings.Split(out, logStart)[1:] {
		end := strings.LastIndex(record, logEnd)
		if end < 0 {
			return nil, fmt.Errorf("gitcli: unterminated git log record: %q", firstLine(record))
		}
		header, rest := record[:end], record[end+len(logEnd):]

		parts := strings.Split(header, logSep)
		if len(parts) != EXPECTED_LOG_PARTS {
			return nil, fmt.Errorf("gitcli: expected %d parts from git log, got %d", EXPECTED_LOG_PARTS, len(parts))
		}

		authorDate, err := ParseGitISO8601(parts[4])
		if err != nil {
			return nil, err
		}
		committerDate, err := ParseGitISO8601(parts[7])
		if err != nil {
			return nil, err
		}

		var files []string
		scanner := bufio.NewScanner(strings.NewReader(rest))
		for scanner.Scan() {
			if f := strings.TrimSpace(scanner.Text()); f != "" {
				files = append(files, f)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		commits = append(commits, &model.Commit{
			ID:             parts[0],
			Parents:        strings.Fields(parts[1]),
			Author:         parts[2],
			AuthorEmail:    parts[3],
			AuthorDate:     authorDate,
			Committer:      parts[5],
			CommitterEmail: parts[6],
			CommitterDate:  committerDate,
			Subject:        parts[8],
			Body:           strings.TrimRight(parts[9], "\n"),
			Files:          files,
		})
	}
	return commits, nil
}

func (g *Git) Describe(ctx context.Context) (string, error) {
	b, err := g.call(ctx, []string{"describe", "--abbrev=0"})
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "No names found") || strings.Contains(msg, "cannot describe") || strings.Contains(msg, "No tags can describe") ||
			strings.Contains(msg, "No annotated tags can describe") {
			return "", vcs.NotFoundError{Ref: "HEAD"}
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (g *Git) ReadTags(ctx context.Context) ([]string, error) {
	b, err := g.call(ctx, []string{"tag", "-l"})
	if err != nil {
		return nil, err
	}
	var tags []string
	scanner := bufio.NewScanner(bytes.NewBuffer(b))
	for scanner.Scan() {
		s := scanner.Text()
		tags = append(tags, s)
	}
	return tags, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
