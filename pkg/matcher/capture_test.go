package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_WaitsForTrailingContext(t *testing.T) {
	c := NewCapture(New(WithWindow(2)))

	assert.Empty(t, c.Push("one\ntwo\nKeyError: 'x'\n"))
	assert.Empty(t, c.Push("three\n"))

	matches := c.Push("four\nfive\n")
	require.Len(t, matches, 1)
	assert.Equal(t, "one\ntwo\nKeyError: 'x'\nthree\nfour", matches[0].Excerpt)
	assert.Equal(t, 2, matches[0].Line)

	assert.Empty(t, c.Flush())
}

func TestCapture_SplitChunks(t *testing.T) {
	c := NewCapture(New(WithWindow(1)))

	assert.Empty(t, c.Push("before\nType"))
	assert.Empty(t, c.Push("Error: bo"))
	matches := c.Push("om\nafter\n")
	require.Len(t, matches, 1)
	assert.Equal(t, "before\nTypeError: boom\nafter", matches[0].Excerpt)
}

func TestCapture_FlushReportsPending(t *testing.T) {
	c := NewCapture(New())

	assert.Empty(t, c.Push("compiling\npanic: boom"))
	matches := c.Flush()
	require.Len(t, matches, 1)
	assert.Equal(t, "compiling\npanic: boom", matches[0].Excerpt)
	assert.Equal(t, 1, matches[0].Line)
}

func TestCapture_EachAnchorOnce(t *testing.T) {
	c := NewCapture(New(WithWindow(1)))

	var all []Match
	all = append(all, c.Push("a\nKeyError: 1\nb\nc\n")...)
	all = append(all, c.Push("d\nValueError: 2\ne\n")...)
	all = append(all, c.Flush()...)

	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Line)
	assert.Equal(t, 5, all[1].Line)
	assert.Equal(t, "d\nValueError: 2\ne", all[1].Excerpt)
}

func TestCapture_BoundedBuffer(t *testing.T) {
	c := NewCapture(New(WithWindow(3)))
	for i := 0; i < 1000; i++ {
		c.Push(strings.Repeat("x", 10) + "\n")
	}
	assert.LessOrEqual(t, len(c.lines), 3)
}
