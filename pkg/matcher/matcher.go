// Package matcher finds where an error starts in a block of terminal text.
package matcher

import (
	"regexp"
	"strings"
)

// DefaultWindow is the number of lines kept on each side of the anchor line.
const DefaultWindow = 5

// DefaultSignatures are checked in order against every line. All of them are
// case-insensitive.
var DefaultSignatures = []string{
	`traceback \(most recent call last\)`,
	`[\w.$]*error:`,
	`\b[\w.$]*exception:`,
	`\bexception in thread\b`,
	`\buncaught\b`,
	`^\s*panic:`,
	`\berror\[e\d+\]`,
	`\berror (?:cs|ts|c)\d+\b`,
	`\b(?:compilation|build) failed\b`,
	`\bsegmentation fault\b`,
	`\bfatal error\b`,
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*(?:\x07|\x1b\\)`)

// Match is a detected error signature and its excerpt.
type Match struct {
	// Excerpt is the window of lines around the anchor, newline separated.
	Excerpt string
	// Line is the 0-based index of the anchor line.
	Line int
	// StartLine and EndLine bound the excerpt, inclusive.
	StartLine int
	EndLine   int
	// Signature is the pattern that matched the anchor line.
	Signature string
}

// Matcher is a stateless classifier and safe for concurrent use.
type Matcher struct {
	signatures []*regexp.Regexp
	window     int
}

type Option func(*Matcher)

// WithWindow sets how many lines before and after the anchor are kept.
func WithWindow(n int) Option {
	return func(m *Matcher) {
		if n >= 0 {
			m.window = n
		}
	}
}

// WithSignatures replaces the default signatures. Patterns are compiled
// case-insensitively; invalid patterns are skipped.
func WithSignatures(patterns ...string) Option {
	return func(m *Matcher) {
		m.signatures = compile(patterns)
	}
}

func New(opts ...Option) *Matcher {
	m := &Matcher{
		signatures: compile(DefaultSignatures),
		window:     DefaultWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func compile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// Window returns the configured excerpt half-width.
func (m *Matcher) Window() int {
	return m.window
}

// Detect returns the first error signature in text and the excerpt around it.
func (m *Matcher) Detect(text string) (Match, bool) {
	lines := SplitLines(text)
	i, sig, ok := m.anchor(lines)
	if !ok {
		return Match{}, false
	}
	return m.excerpt(lines, i, sig), true
}

func (m *Matcher) anchor(lines []string) (int, string, bool) {
	for i, line := range lines {
		if sig, ok := m.matchLine(line); ok {
			return i, sig, true
		}
	}
	return 0, "", false
}

func (m *Matcher) matchLine(line string) (string, bool) {
	for _, re := range m.signatures {
		if re.MatchString(line) {
			return re.String(), true
		}
	}
	return "", false
}

func (m *Matcher) excerpt(lines []string, i int, sig string) Match {
	start := max(0, i-m.window)
	end := min(len(lines)-1, i+m.window)
	return Match{
		Excerpt:   strings.Join(lines[start:end+1], "\n"),
		Line:      i,
		StartLine: start,
		EndLine:   end,
		Signature: sig,
	}
}

// SplitLines strips ANSI escapes and carriage returns and splits text into
// lines. A single trailing newline does not produce an empty last line.
func SplitLines(text string) []string {
	text = ansiEscape.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		// progress bars redraw with a bare \r; keep what was drawn last
		if j := strings.LastIndexByte(l, '\r'); j >= 0 {
			lines[i] = l[j+1:]
		}
	}
	return lines
}
