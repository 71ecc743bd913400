package matcher

import (
	"strings"
	"sync"
)

// maxPartialLine bounds an unterminated line held between pushes.
const maxPartialLine = 64 * 1024

// Capture feeds a stream of raw terminal output through a Matcher. A match is
// reported once the anchor line has a full window of trailing lines, or on
// Flush. Every anchor is reported once. Line numbers in the returned matches
// count from the start of the stream.
type Capture struct {
	mu      sync.Mutex
	m       *Matcher
	lines   []string
	partial string
	next    int // first buffered line not yet scanned
	offset  int // lines dropped from the front of the buffer
}

func NewCapture(m *Matcher) *Capture {
	if m == nil {
		m = New()
	}
	return &Capture{m: m}
}

// Push appends a chunk of output and returns any completed matches.
func (c *Capture) Push(chunk string) []Match {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.partial + chunk
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		c.partial = data
		if len(c.partial) > maxPartialLine {
			c.lines = append(c.lines, SplitLines(c.partial)...)
			c.partial = ""
			return c.scan(false)
		}
		return nil
	}
	c.partial = data[idx+1:]
	c.lines = append(c.lines, SplitLines(data[:idx+1])...)
	return c.scan(false)
}

// Flush reports pending matches with whatever trailing context is available
// and resets the capture.
func (c *Capture) Flush() []Match {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.partial != "" {
		c.lines = append(c.lines, SplitLines(c.partial)...)
		c.partial = ""
	}
	out := c.scan(true)
	c.lines = nil
	c.next = 0
	return out
}

func (c *Capture) scan(final bool) []Match {
	var out []Match
	for c.next < len(c.lines) {
		i, sig, ok := c.m.anchor(c.lines[c.next:])
		if !ok {
			c.next = len(c.lines)
			break
		}
		i += c.next
		if !final && i+c.m.window >= len(c.lines) {
			c.next = i
			break
		}

		match := c.m.excerpt(c.lines, i, sig)
		consumed := match.EndLine + 1
		match.Line += c.offset
		match.StartLine += c.offset
		match.EndLine += c.offset
		out = append(out, match)

		c.lines = c.lines[consumed:]
		c.offset += consumed
		c.next = 0
	}
	c.trim()
	return out
}

// trim keeps only the lines that can still appear in a future excerpt.
func (c *Capture) trim() {
	cut := c.next - c.m.window
	if cut <= 0 {
		return
	}
	c.lines = append([]string(nil), c.lines[cut:]...)
	c.next -= cut
	c.offset += cut
}
