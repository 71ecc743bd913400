package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	d := New("", "a\nb\nc\n")
	assert.Equal(t, 3, d.LineCount())
	line, ok := d.Line(1)
	assert.True(t, ok)
	assert.Equal(t, "b", line)
	_, ok = d.Line(3)
	assert.False(t, ok)
	assert.Equal(t, "a\nb\nc\n", d.Text())

	empty := New("", "")
	assert.Equal(t, 1, empty.LineCount())
	assert.Equal(t, "", empty.Text())
}

func TestSetSelection_Validates(t *testing.T) {
	d := New("", "héllo\nworld")
	require.NoError(t, d.SetSelection(Range{Start: Position{0, 1}, End: Position{0, 5}}))
	assert.Equal(t, Position{0, 5}, d.Cursor())

	assert.ErrorIs(t, d.SetCursor(Position{0, 6}), ErrOutOfBounds)
	assert.ErrorIs(t, d.SetCursor(Position{2, 0}), ErrOutOfBounds)
	assert.ErrorIs(t, d.SetCursor(Position{-1, 0}), ErrOutOfBounds)
}

func TestEdit_ReplaceAndInsert(t *testing.T) {
	d := New("", "const a = 1;\nconst b = a.map(x);\n")

	err := d.Edit(func(b *EditBuilder) error {
		b.Replace(Range{Start: Position{1, 10}, End: Position{1, 18}}, "a && a.map(x)")
		b.Insert(Position{0, 0}, "// fixed\n")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "// fixed\nconst a = 1;\nconst b = a && a.map(x);\n", d.Text())
	assert.Equal(t, 1, d.Version())
}

func TestEdit_ReplaceLine(t *testing.T) {
	d := New("", "one\r\ntwo\r\nthree\r\n")
	require.NoError(t, d.Edit(func(b *EditBuilder) error {
		return b.ReplaceLine(1, "TWO")
	}))
	assert.Equal(t, "one\r\nTWO\r\nthree\r\n", d.Text())
	assert.Equal(t, Position{1, 3}, d.Cursor())
}

func TestEdit_AtomicOnInvalidEdit(t *testing.T) {
	d := New("", "one\ntwo\n")
	err := d.Edit(func(b *EditBuilder) error {
		b.Insert(Position{0, 0}, "zero\n")
		b.Insert(Position{5, 0}, "nope")
		return nil
	})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, "one\ntwo\n", d.Text())
	assert.Equal(t, 0, d.Version())
}

func TestEdit_RejectsOverlap(t *testing.T) {
	d := New("", "abcdef")
	err := d.Edit(func(b *EditBuilder) error {
		b.Replace(Range{Start: Position{0, 0}, End: Position{0, 4}}, "x")
		b.Replace(Range{Start: Position{0, 2}, End: Position{0, 6}}, "y")
		return nil
	})
	assert.ErrorIs(t, err, ErrOverlappingEdits)
	assert.Equal(t, "abcdef", d.Text())
}

func TestEdit_ReplaceLineOutOfRange(t *testing.T) {
	d := New("", "only")
	err := d.Edit(func(b *EditBuilder) error {
		return b.ReplaceLine(3, "x")
	})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, "only", d.Text())
}

func TestOpenAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print(x)\n"), 0600))

	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Edit(func(b *EditBuilder) error {
		return b.ReplaceLine(0, "print(1)")
	}))
	require.NoError(t, d.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestOpen_RejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0644))
	_, err := Open(path)
	assert.Error(t, err)
}
