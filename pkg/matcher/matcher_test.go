package matcher

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d ok", i)
	}
	return lines
}

func TestDetect_NoSignature(t *testing.T) {
	m := New()
	inputs := []string{
		"",
		"all good\nnothing to see",
		strings.Join(numbered(40), "\n"),
		"build succeeded in 2.3s\n",
	}
	for _, in := range inputs {
		_, ok := m.Detect(in)
		assert.False(t, ok, "unexpected match in %q", in)
	}
}

func TestDetect_ExcerptBounds(t *testing.T) {
	m := New()
	for _, total := range []int{1, 3, 11, 20} {
		for i := 0; i < total; i++ {
			lines := numbered(total)
			lines[i] = "TypeError: Cannot read property 'map' of undefined"

			match, ok := m.Detect(strings.Join(lines, "\n"))
			require.True(t, ok)

			start := max(0, i-5)
			end := min(total-1, i+5)
			assert.Equal(t, i, match.Line)
			assert.Equal(t, start, match.StartLine)
			assert.Equal(t, end, match.EndLine)
			assert.Equal(t, strings.Join(lines[start:end+1], "\n"), match.Excerpt)
		}
	}
}

func TestDetect_FirstMatchWins(t *testing.T) {
	text := "starting\nKeyError: 'user'\nmore\nValueError: bad value\n"
	match, ok := New().Detect(text)
	require.True(t, ok)
	assert.Equal(t, 1, match.Line)
}

func TestDetect_Signatures(t *testing.T) {
	m := New()
	cases := []string{
		"Traceback (most recent call last):",
		"typeerror: x is not a function",
		"KeyError: 'id'",
		"java.lang.NullPointerException: boom",
		"Exception in thread \"main\" java.lang.RuntimeException",
		"panic: runtime error: index out of range [3] with length 2",
		"error[E0308]: mismatched types",
		"Program.cs(3,5): error CS1002: ; expected",
		"src/app.ts(1,7): error TS2322: Type 'string' is not assignable",
		"main.c:3:5: error: expected ';'",
		"Error: Cannot find module 'express'",
		"Segmentation fault (core dumped)",
	}
	for _, c := range cases {
		_, ok := m.Detect(c)
		assert.True(t, ok, c)
	}
}

func TestDetect_QualifiedErrorNames(t *testing.T) {
	m := New()
	cases := []string{
		"json.decoder.JSONDecodeError: Expecting value: line 1 column 1 (char 0)",
		"requests.exceptions.HTTPError: 404 Client Error: Not Found",
		"ValidationError: email is required",
		"sqlite3.OperationalError: no such table: users",
		"MyCustomError: quota exceeded",
	}
	for _, c := range cases {
		match, ok := m.Detect("starting up\n" + c + "\n")
		require.True(t, ok, c)
		assert.Equal(t, 1, match.Line, c)
	}
}

func TestDetect_StripsANSI(t *testing.T) {
	text := "ok\n\x1b[31mTypeError\x1b[0m: boom\n"
	match, ok := New().Detect(text)
	require.True(t, ok)
	assert.Equal(t, "ok\nTypeError: boom", match.Excerpt)
}

func TestDetect_CustomSignaturesAndWindow(t *testing.T) {
	m := New(WithSignatures(`^FAIL\b`), WithWindow(1))
	text := "a\nb\nFAIL pkg/foo\nc\nd"
	match, ok := m.Detect(text)
	require.True(t, ok)
	assert.Equal(t, "b\nFAIL pkg/foo\nc", match.Excerpt)

	_, ok = m.Detect("TypeError: not configured here")
	assert.False(t, ok)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"done 100%"}, SplitLines("done 10%\rdone 100%"))
}
