// Package document is a minimal text document with editor semantics:
// 0-based positions, a selection and atomic multi-edit transactions.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

var ErrOutOfBounds = errors.New("position outside the document")

// Position is a 0-based line and character (rune) offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (p Position) Before(q Position) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Character < q.Character)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is a half-open span [Start, End).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Normalized returns r with Start not after End.
func (r Range) Normalized() Range {
	if r.End.Before(r.Start) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

type Document struct {
	mu           sync.RWMutex
	path         string
	languageID   string
	lines        []string
	eol          string
	finalNewline bool
	selection    Range
	version      int
}

// New creates an in-memory document. path may be empty.
func New(path, text string) *Document {
	d := &Document{path: path}
	d.setText(text)
	return d
}

// Open reads the file at path into a document.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read %s: not a UTF-8 text file", path)
	}
	return New(path, string(data)), nil
}

func (d *Document) setText(text string) {
	d.eol = "\n"
	if strings.Contains(text, "\r\n") {
		d.eol = "\r\n"
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	d.finalNewline = strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	d.lines = strings.Split(text, "\n")
}

func (d *Document) FilePath() string {
	return d.path
}

func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

func (d *Document) SetLanguageID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.languageID = id
}

// Version increments on every successful edit.
func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// Line returns the text of line i without its terminator.
func (d *Document) Line(i int) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.lines) {
		return "", false
	}
	return d.lines[i], true
}

// Text returns the full content using the document's line endings.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text()
}

func (d *Document) text() string {
	s := strings.Join(d.lines, d.eol)
	if d.finalNewline {
		s += d.eol
	}
	return s
}

func (d *Document) Selection() Range {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selection
}

// Cursor is the active end of the selection.
func (d *Document) Cursor() Position {
	return d.Selection().End
}

func (d *Document) SetSelection(r Range) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.validate(r.Start); err != nil {
		return err
	}
	if err := d.validate(r.End); err != nil {
		return err
	}
	d.selection = r
	return nil
}

func (d *Document) SetCursor(p Position) error {
	return d.SetSelection(Range{Start: p, End: p})
}

func (d *Document) validate(p Position) error {
	if p.Line < 0 || p.Line >= len(d.lines) {
		return fmt.Errorf("%w: line %d of %d", ErrOutOfBounds, p.Line+1, len(d.lines))
	}
	if n := utf8.RuneCountInString(d.lines[p.Line]); p.Character < 0 || p.Character > n {
		return fmt.Errorf("%w: character %d of line %d (length %d)", ErrOutOfBounds, p.Character+1, p.Line+1, n)
	}
	return nil
}

// offset converts a validated position into a byte offset of the "\n"
// joined content.
func (d *Document) offset(p Position) int {
	off := 0
	for i := 0; i < p.Line; i++ {
		off += len(d.lines[i]) + 1
	}
	line := d.lines[p.Line]
	chars := 0
	for idx := range line {
		if chars == p.Character {
			return off + idx
		}
		chars++
	}
	return off + len(line)
}

// Save writes the document back to its path through a temporary file.
func (d *Document) Save() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.path == "" {
		return errors.New("document has no path")
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(d.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(d.text()); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	return nil
}
