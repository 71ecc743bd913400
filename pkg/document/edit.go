package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var ErrOverlappingEdits = errors.New("edits overlap")

// TextEdit replaces Range with NewText. An empty range is an insertion.
type TextEdit struct {
	Range   Range
	NewText string
}

// EditBuilder collects the edits of one transaction. It reads the document
// as it was when the transaction started.
type EditBuilder struct {
	doc   *Document
	edits []TextEdit
}

func (b *EditBuilder) Replace(r Range, text string) {
	b.edits = append(b.edits, TextEdit{Range: r.Normalized(), NewText: text})
}

func (b *EditBuilder) Insert(p Position, text string) {
	b.edits = append(b.edits, TextEdit{Range: Range{Start: p, End: p}, NewText: text})
}

// ReplaceLine replaces the text of a 0-based line, keeping its terminator.
func (b *EditBuilder) ReplaceLine(line int, text string) error {
	if line < 0 || line >= len(b.doc.lines) {
		return fmt.Errorf("%w: line %d of %d", ErrOutOfBounds, line+1, len(b.doc.lines))
	}
	end := Position{Line: line, Character: utf8.RuneCountInString(b.doc.lines[line])}
	b.Replace(Range{Start: Position{Line: line}, End: end}, text)
	return nil
}

// LineCount is the line count at the start of the transaction.
func (b *EditBuilder) LineCount() int {
	return len(b.doc.lines)
}

// Edit runs fn and applies the collected edits as one transaction. If fn
// fails or any edit is invalid, the document is left unchanged.
func (d *Document) Edit(fn func(*EditBuilder) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := &EditBuilder{doc: d}
	if err := fn(b); err != nil {
		return err
	}
	if len(b.edits) == 0 {
		return nil
	}

	type span struct {
		start, end int
		text       string
		edit       TextEdit
	}
	spans := make([]span, 0, len(b.edits))
	for _, e := range b.edits {
		if err := d.validate(e.Range.Start); err != nil {
			return err
		}
		if err := d.validate(e.Range.End); err != nil {
			return err
		}
		spans = append(spans, span{
			start: d.offset(e.Range.Start),
			end:   d.offset(e.Range.End),
			text:  strings.ReplaceAll(e.NewText, "\r\n", "\n"),
			edit:  e,
		})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return fmt.Errorf("%w: %s and %s", ErrOverlappingEdits, spans[i-1].edit.Range, spans[i].edit.Range)
		}
	}

	content := strings.Join(d.lines, "\n")
	var sb strings.Builder
	prev := 0
	cursor := 0
	for _, s := range spans {
		sb.WriteString(content[prev:s.start])
		sb.WriteString(s.text)
		prev = s.end
		cursor = sb.Len()
	}
	sb.WriteString(content[prev:])

	newContent := sb.String()
	d.lines = strings.Split(newContent, "\n")
	d.version++
	d.selection = Range{Start: d.position(newContent[:cursor]), End: d.position(newContent[:cursor])}
	return nil
}

// position converts the prefix of the "\n" joined content into the position
// at its end.
func (d *Document) position(prefix string) Position {
	line := strings.Count(prefix, "\n")
	last := prefix[strings.LastIndexByte(prefix, '\n')+1:]
	return Position{Line: line, Character: utf8.RuneCountInString(last)}
}
