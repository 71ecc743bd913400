package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLines_Equal(t *testing.T) {
	assert.Equal(t, "", Lines("a\nb\n", "a\nb\n", 2))
}

func TestLines_SingleChange(t *testing.T) {
	oldText := "a\nb\nc\nd\ne\n"
	newText := "a\nb\nC\nd\ne\n"

	want := "@@ -2,3 +2,3 @@\n b\n-c\n+C\n d\n"
	assert.Equal(t, want, Lines(oldText, newText, 1))
}

func TestLines_Insertion(t *testing.T) {
	got := Lines("x\ny\n", "x\nnew\ny\n", 0)
	assert.Equal(t, "@@ -2,0 +2,1 @@\n+new\n", got)
}

func TestLines_SeparateHunks(t *testing.T) {
	oldText := "1\n2\n3\n4\n5\n6\n7\n8\n9\n"
	newText := "one\n2\n3\n4\n5\n6\n7\n8\nnine\n"
	got := Lines(oldText, newText, 1)
	assert.Equal(t, "@@ -1,2 +1,2 @@\n-1\n+one\n 2\n@@ -8,2 +8,2 @@\n 8\n-9\n+nine\n", got)
}
