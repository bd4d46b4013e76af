package runner

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/jeffrom/gitlab-changelog/commit"
	"github.com/jeffrom/gitlab-changelog/locale"
	"github.com/jeffrom/gitlab-changelog/tracker"
)

const (
	itemIndent           = "  - "
	itemSubsequentIndent = "    "
)

// Report is the changelog draft for one commit range.
type Report struct {
	// Project is the path of the main project. Its issues are written as
	// "#N" instead of "path#N".
	Project string
	Width   int
	Summary *commit.Summary
	Result  *tracker.Result
	Locales *locale.Mapped
}

func (rep *Report) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	res := rep.Result
	sum := rep.Summary

	rep.text(bw, fmt.Sprintf("%d commits in range %s, referencing %d issues and %d MRs",
		sum.CommitCount, sum.Range, len(res.ClosedIssues)+len(res.OpenIssues), len(sum.MergeRequests)))
	rep.text(bw, fmt.Sprintf("%d translation updates.", len(rep.Locales.Names)))

	if len(res.OpenIssues) > 0 {
		bw.WriteString("\n")
		rep.text(bw, fmt.Sprintf("The following %d issues were unclosed, and have not been included in the output:", len(res.OpenIssues)))
		rep.items(bw, rep.issueLines(res.OpenIssues))
	}
	if len(res.UnmergedMRs) > 0 {
		bw.WriteString("\n")
		rep.text(bw, fmt.Sprintf("The following %d merge requests were not merged, and have not been included in the output:", len(res.UnmergedMRs)))
		rep.items(bw, rep.mergeRequestLines(res.UnmergedMRs))
	}
	if len(rep.Locales.Unmapped) > 0 {
		bw.WriteString("\n")
		rep.text(bw, fmt.Sprintf("The following %d locales could not be named:", len(rep.Locales.Unmapped)))
		rep.items(bw, rep.localeLines(rep.Locales.Unmapped))
	}

	bw.WriteString("---\n\n")
	bw.WriteString("* TODO Major news items\n\n")
	bw.WriteString("* TODO One bullet point each\n")

	if len(res.ClosedIssues) > 0 || len(sum.ExternalIssues) > 0 || len(res.MergedMRs) > 0 {
		bw.WriteString("\n* Bugs fixed:\n")
		lines := rep.issueLines(res.ClosedIssues)
		lines = append(lines, sum.ExternalIssues...)
		lines = append(lines, rep.mergeRequestLines(res.MergedMRs)...)
		rep.items(bw, lines)
	}

	if len(rep.Locales.Names) > 0 {
		bw.WriteString("\n* Translation updates:\n")
		rep.items(bw, rep.localeLines(rep.Locales.Names))
	}

	return bw.Flush()
}

func (rep *Report) text(bw *bufio.Writer, s string) {
	bw.WriteString(wordwrap.String(s, rep.Width))
	bw.WriteString("\n")
}

// items writes each line as a list item, wrapped so that continuation lines
// line up with the text after the bullet.
func (rep *Report) items(bw *bufio.Writer, lines []string) {
	width := rep.Width - len(itemIndent)
	for _, line := range lines {
		wrapped := strings.Split(wordwrap.String(line, width), "\n")
		for i, l := range wrapped {
			if i == 0 {
				bw.WriteString(itemIndent)
			} else {
				bw.WriteString(itemSubsequentIndent)
			}
			bw.WriteString(l)
			bw.WriteString("\n")
		}
	}
}

func (rep *Report) issueLines(issues []tracker.Issue) []string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		prefix := issue.Ref.Project
		if strings.EqualFold(prefix, rep.Project) {
			prefix = ""
		}
		lines[i] = withAuthors(fmt.Sprintf("%s#%d %s", prefix, issue.Ref.IID, issue.Title),
			rep.Summary.IssueAuthors[issue.Ref])
	}
	return lines
}

func (rep *Report) mergeRequestLines(mrs []tracker.MergeRequest) []string {
	lines := make([]string, len(mrs))
	for i, mr := range mrs {
		lines[i] = withAuthors(fmt.Sprintf("!%d %s", mr.IID, mr.Title), rep.Summary.MRAuthors[mr.IID])
	}
	return lines
}

func (rep *Report) localeLines(names []string) []string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	lines := make([]string, len(sorted))
	for i, name := range sorted {
		lines[i] = withAuthors(name, rep.Locales.Authors[name])
	}
	return lines
}

func withAuthors(line string, authors []string) string {
	if len(authors) == 0 {
		return line
	}
	return line + " (" + strings.Join(authors, ", ") + ")"
}
