package commit

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jeffrom/gitlab-changelog/model"
)

// Refs is a de-duplicated set of references found in commit messages.
type Refs struct {
	Issues         map[model.IssueRef]bool
	ExternalIssues map[string]bool
	MergeRequests  map[int]bool
}

func NewRefs() *Refs {
	return &Refs{
		Issues:         make(map[model.IssueRef]bool),
		ExternalIssues: make(map[string]bool),
		MergeRequests:  make(map[int]bool),
	}
}

func (r *Refs) Empty() bool {
	return len(r.Issues) == 0 && len(r.ExternalIssues) == 0 && len(r.MergeRequests) == 0
}

func (r *Refs) SortedIssues() []model.IssueRef {
	issues := make([]model.IssueRef, 0, len(r.Issues))
	for ref := range r.Issues {
		issues = append(issues, ref)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Less(issues[j]) })
	return issues
}

func (r *Refs) SortedExternalIssues() []string {
	return sortedKeys(r.ExternalIssues)
}

func (r *Refs) SortedMergeRequests() []int {
	mrs := make([]int, 0, len(r.MergeRequests))
	for mr := range r.MergeRequests {
		mrs = append(mrs, mr)
	}
	sort.Ints(mrs)
	return mrs
}

// closingRE matches GitLab's default issue closing pattern, e.g.
// "Closes #542, #456", "Fixes: #542" or "Implements GNOME/glib#3".
var closingRE = regexp.MustCompile(`^(?:Closes|Fixes|Resolves|Implements)(:?\s+|:)`)

var closingSplitRE = regexp.MustCompile(`[,\s]`)

// issueTokenRE matches a single closing reference. The issue number must
// end the token. Groups: 1 prefix, 2 short project path, 3 number.
var issueTokenRE = regexp.MustCompile(`([^\s]+/issues/|([\w.-]+(?:/[\w.-]+)*)#|#)(\d+)$`)

var issueURLPathRE = regexp.MustCompile(`^/?(.*?)(?:/-)?/issues/`)

// Parser extracts references to a single project's issues and merge requests
// from commit messages.
type Parser struct {
	project  Project
	partOfRE *regexp.Regexp

	issuePrefixes []string
	mrPrefixes    []string
}

func NewParser(project Project) *Parser {
	projectURL := project.URL()
	return &Parser{
		project:  project,
		partOfRE: regexp.MustCompile(`^Part-of: <` + regexp.QuoteMeta(projectURL) + `(?:/-)?/merge_requests/(\d+)>$`),
		issuePrefixes: []string{
			projectURL + "/issues/",
			projectURL + "/-/issues/",
			"See issue " + project.Path + "#",
		},
		mrPrefixes: []string{
			projectURL + "/merge_requests/",
			projectURL + "/-/merge_requests/",
			"See merge request " + project.Path + "!",
		},
	}
}

func (p *Parser) Project() Project { return p.project }

// ParseMessage returns every reference found in msg, one line at a time.
func (p *Parser) ParseMessage(msg string) *Refs {
	refs := NewRefs()
	for _, line := range strings.Split(msg, "\n") {
		p.ParseLine(line, refs)
	}
	return refs
}

// ParseLine adds the references found in a single message line to refs.
func (p *Parser) ParseLine(line string, refs *Refs) {
	line = strings.TrimRight(line, "\r")

	p.parseClosingLine(line, refs)

	// Part-of: <https://gitlab.gnome.org/GNOME/gnome-initial-setup/-/merge_requests/119>
	if m := p.partOfRE.FindStringSubmatch(line); m != nil {
		if n, ok := parseIID(m[1]); ok {
			refs.MergeRequests[n] = true
		}
	}

	// https://gitlab.gnome.org/GNOME/glib/issues/1620
	// See issue GNOME/glib#1601
	for _, prefix := range p.issuePrefixes {
		if n, ok := intLineEnding(line, prefix); ok {
			refs.Issues[model.IssueRef{Project: p.project.Path, IID: n}] = true
		}
	}
	// https://gitlab.gnome.org/GNOME/glib/merge_requests/554
	// See merge request GNOME/glib!554
	for _, prefix := range p.mrPrefixes {
		if n, ok := intLineEnding(line, prefix); ok {
			refs.MergeRequests[n] = true
		}
	}
}

func (p *Parser) parseClosingLine(line string, refs *Refs) {
	loc := closingRE.FindStringSubmatchIndex(line)
	if loc == nil {
		return
	}

	for _, tok := range closingSplitRE.Split(line[loc[3]:], -1) {
		if tok == "" {
			continue
		}
		m := issueTokenRE.FindStringSubmatchIndex(tok)
		if m == nil {
			continue
		}
		n, ok := parseIID(tok[m[6]:m[7]])
		if !ok {
			continue
		}
		prefix := tok[m[2]:m[3]]
		var short string
		if m[4] >= 0 {
			short = tok[m[4]:m[5]]
			if strings.Contains(tok[:m[4]], "://") {
				// https://gitlab.gnome.org/GNOME/glib#1234 only names the
				// project by its last path segment.
				short = short[strings.LastIndex(short, "/")+1:]
			}
		}

		switch {
		case prefix == "#":
			// #1234
			refs.Issues[model.IssueRef{Project: p.project.Path, IID: n}] = true
		case strings.HasPrefix(prefix, "http"):
			p.addIssueURL(prefix, n, refs)
		case short != "":
			refs.Issues[model.IssueRef{Project: p.resolveShortPath(short), IID: n}] = true
		}
	}
}

// addIssueURL classifies an issue URL. prefix ends with "/issues/".
func (p *Parser) addIssueURL(prefix string, n int, refs *Refs) {
	projectURL := strings.ToLower(p.project.URL())
	lower := strings.ToLower(prefix)
	if lower == projectURL+"/issues/" || lower == projectURL+"/-/issues/" {
		// https://gitlab.gnome.org/NAMESPACE/PROJECT/-/issues/1234
		refs.Issues[model.IssueRef{Project: p.project.Path, IID: n}] = true
		return
	}

	u, err := url.Parse(prefix)
	if err == nil && p.sameHost(u) && hasPathPrefixFold(u.Path, "/"+p.project.Namespace()+"/") {
		// https://gitlab.gnome.org/NAMESPACE/OTHER_PROJECT/issues/1234 is
		// recorded as NAMESPACE/OTHER_PROJECT#1234
		if m := issueURLPathRE.FindStringSubmatch(u.Path); m != nil && m[1] != "" {
			path := m[1]
			if p.project.IsProject(path) {
				path = p.project.Path
			}
			refs.Issues[model.IssueRef{Project: path, IID: n}] = true
			return
		}
	}

	refs.ExternalIssues[prefix+strconv.Itoa(n)] = true
}

// resolveShortPath maps the project part of a PROJECT#1234 reference to a
// full project path.
func (p *Parser) resolveShortPath(short string) string {
	if p.project.IsProject(short) || strings.EqualFold(short, p.project.Name()) {
		return p.project.Path
	}
	if !strings.Contains(short, "/") {
		// OTHER_PROJECT#1234
		return p.project.Namespace() + "/" + short
	}
	// NAMESPACE/OTHER_PROJECT#1234 or OTHER_NAMESPACE/OTHER_PROJECT#1234
	return short
}

func (p *Parser) sameHost(u *url.URL) bool {
	pu, err := url.Parse(p.project.Hostname)
	if err != nil {
		return false
	}
	return strings.EqualFold(pu.Host, u.Host)
}

// intLineEnding returns the number following prefix if line starts with
// prefix and the rest of the line is an integer.
func intLineEnding(line, prefix string) (int, bool) {
	if !strings.HasPrefix(line, prefix) {
		return 0, false
	}
	return parseIID(strings.TrimSpace(line[len(prefix):]))
}

func parseIID(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func hasPathPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
