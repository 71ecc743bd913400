// Package applier writes a solution's code into a document.
package applier

import (
	"errors"
	"fmt"

	"github.com/helmcode/error-translator/pkg/document"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
	"github.com/helmcode/error-translator/pkg/textdiff"
)

// Strategy is how the code was placed.
type Strategy string

const (
	StrategyLine      Strategy = "line"
	StrategySelection Strategy = "selection"
	StrategyCursor    Strategy = "cursor"
)

// Applied describes a successful application.
type Applied struct {
	Strategy Strategy
	// Line is the 1-based line that was replaced, for StrategyLine.
	Line int
	// Range is the replaced selection or the insertion point. For
	// StrategyLine it is the start of the replaced line.
	Range   document.Range
	Version int
}

var errNoCode = errors.New("solution has no code")

// Apply places the solution's code into doc. Placement priority:
//  1. replace the solution's LineNumber (1-based) when set
//  2. replace sel when it is not empty
//  3. insert at the cursor (sel.End)
//
// A LineNumber outside the document fails with ApplyFailed rather than
// falling through to another strategy. On any failure doc is unchanged.
func Apply(sol *model.Solution, doc *document.Document, sel document.Range) (*Applied, error) {
	if !sol.HasCode() {
		return nil, errs.Wrap(errs.KindApplyFailed, errNoCode, "%q is explanation-only", title(sol))
	}
	if doc == nil {
		return nil, errs.New(errs.KindApplyFailed, "no target document")
	}

	var applied *Applied
	err := doc.Edit(func(b *document.EditBuilder) error {
		a, err := place(b, sol, sel)
		applied = a
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindApplyFailed, err, "cannot apply %q", sol.Title)
	}
	applied.Version = doc.Version()
	return applied, nil
}

// Preview renders the change Apply would make as a unified diff without
// touching doc.
func Preview(sol *model.Solution, doc *document.Document, sel document.Range) (string, error) {
	if !sol.HasCode() {
		return "", errs.Wrap(errs.KindApplyFailed, errNoCode, "%q is explanation-only", title(sol))
	}
	before := doc.Text()
	scratch := document.New(doc.FilePath(), before)
	if err := scratch.Edit(func(b *document.EditBuilder) error {
		_, err := place(b, sol, sel)
		return err
	}); err != nil {
		return "", errs.Wrap(errs.KindApplyFailed, err, "cannot apply %q", sol.Title)
	}
	return textdiff.Lines(before, scratch.Text(), 2), nil
}

func place(b *document.EditBuilder, sol *model.Solution, sel document.Range) (*Applied, error) {
	code := *sol.Code
	if sol.LineNumber != nil {
		line := *sol.LineNumber
		if line < 1 || line > b.LineCount() {
			return nil, fmt.Errorf("line %d is outside the document (%d lines)", line, b.LineCount())
		}
		if err := b.ReplaceLine(line-1, code); err != nil {
			return nil, err
		}
		return &Applied{
			Strategy: StrategyLine,
			Line:     line,
			Range:    document.Range{Start: document.Position{Line: line - 1}, End: document.Position{Line: line - 1}},
		}, nil
	}

	if !sel.IsEmpty() {
		r := sel.Normalized()
		b.Replace(r, code)
		return &Applied{Strategy: StrategySelection, Range: r}, nil
	}

	b.Insert(sel.End, code)
	return &Applied{Strategy: StrategyCursor, Range: document.Range{Start: sel.End, End: sel.End}}, nil
}

func title(sol *model.Solution) string {
	if sol == nil {
		return "solution"
	}
	return sol.Title
}
