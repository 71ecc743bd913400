// Package actions routes user choices on a translation to the applier or
// the clipboard.
package actions

import (
	"context"
	"fmt"

	"github.com/helmcode/error-translator/pkg/applier"
	"github.com/helmcode/error-translator/pkg/document"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
	"go.uber.org/zap"
)

type Kind string

const (
	KindApply Kind = "apply"
	KindCopy  Kind = "copy"
)

// Action is a user decision about one solution.
type Action struct {
	Kind     Kind
	Solution *model.Solution
}

// Clipboard receives copied code.
type Clipboard interface {
	Copy(text string) error
}

// Outcome reports what a dispatched action did.
type Outcome struct {
	Action  Action
	Applied *applier.Applied
	Err     error
}

// Dispatcher forwards actions. Apply needs a target document; without one
// apply actions fail with ApplyFailed.
type Dispatcher struct {
	doc       *document.Document
	clipboard Clipboard
	save      bool
	logger    *zap.Logger
}

type Option func(*Dispatcher)

// WithDocument sets the apply target. When save is true the document is
// written back after every successful apply.
func WithDocument(doc *document.Document, save bool) Option {
	return func(d *Dispatcher) {
		d.doc = doc
		d.save = save
	}
}

func WithClipboard(c Clipboard) Option {
	return func(d *Dispatcher) { d.clipboard = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one action.
func (d *Dispatcher) Dispatch(a Action) Outcome {
	out := Outcome{Action: a}
	switch a.Kind {
	case KindApply:
		out.Applied, out.Err = d.apply(a.Solution)
	case KindCopy:
		out.Err = d.copy(a.Solution)
	default:
		out.Err = fmt.Errorf("unknown action %q", a.Kind)
	}
	if out.Err != nil {
		d.logger.Debug("action failed", zap.String("action", string(a.Kind)), zap.Stringer("kind", errs.KindOf(out.Err)))
	}
	return out
}

// Serve dispatches actions until the channel is closed or ctx is done.
// Each outcome is passed to report.
func (d *Dispatcher) Serve(ctx context.Context, in <-chan Action, report func(Outcome)) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-in:
			if !ok {
				return
			}
			out := d.Dispatch(a)
			if report != nil {
				report(out)
			}
		}
	}
}

func (d *Dispatcher) apply(sol *model.Solution) (*applier.Applied, error) {
	if d.doc == nil {
		return nil, errs.New(errs.KindApplyFailed, "no file is open to apply the solution to")
	}
	applied, err := applier.Apply(sol, d.doc, d.doc.Selection())
	if err != nil {
		return nil, err
	}
	if d.save {
		if err := d.doc.Save(); err != nil {
			return applied, errs.Wrap(errs.KindApplyFailed, err, "applied but could not save %s", d.doc.FilePath())
		}
	}
	return applied, nil
}

func (d *Dispatcher) copy(sol *model.Solution) error {
	if d.clipboard == nil {
		return fmt.Errorf("no clipboard available")
	}
	if sol == nil {
		return fmt.Errorf("no solution to copy")
	}
	text := sol.Description
	if sol.HasCode() {
		text = *sol.Code
	}
	return d.clipboard.Copy(text)
}
