// Package model contains abstract data models.
package model

import (
	"fmt"
	"time"
)

type Commit struct {
	ID             string `json:"commit"`
	Parents        []string
	Author         string
	AuthorEmail    string
	AuthorDate     time.Time
	Committer      string
	CommitterEmail string
	CommitterDate  time.Time
	Subject        string
	Body           string
	// Files changed relative to the first parent.
	Files []string
}

func (c *Commit) ShortID() string {
	if len(c.ID) < 8 {
		return c.ID
	}
	return c.ID[:8]
}

// Message returns the full commit message.
func (c *Commit) Message() string {
	if c.Body == "" {
		return c.Subject
	}
	return c.Subject + "\n\n" + c.Body
}

func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// IssueRef identifies an issue by its project path and project-local number.
type IssueRef struct {
	Project string
	IID     int
}

func (r IssueRef) String() string {
	return fmt.Sprintf("%s#%d", r.Project, r.IID)
}

// Less orders refs by number first, then project.
func (r IssueRef) Less(other IssueRef) bool {
	if r.IID != other.IID {
		return r.IID < other.IID
	}
	return r.Project < other.Project
}
