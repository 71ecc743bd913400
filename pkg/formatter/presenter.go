package formatter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/helmcode/error-translator/pkg/actions"
	"github.com/helmcode/error-translator/pkg/model"
	"github.com/manifoldco/promptui"
)

// Chooser asks the user what to do with the solutions. It returns done=true
// when the user is finished.
type Chooser interface {
	Choose(solutions []model.Solution) (a actions.Action, done bool, err error)
}

// Presenter renders a response and, when a Chooser is set, forwards the
// user's choices to Actions.
type Presenter struct {
	Out     io.Writer
	Format  string
	Chooser Chooser
	Actions chan<- actions.Action
}

// Present implements orchestrator.Presenter.
func (p *Presenter) Present(ctx context.Context, resp *model.TranslationResponse) error {
	if err := DisplayResults(p.Out, resp, p.Format); err != nil {
		return err
	}
	if p.Chooser == nil || p.Actions == nil || len(resp.Solutions) == 0 {
		return nil
	}

	solutions := resp.SortedSolutions()
	for {
		a, done, err := p.Chooser.Choose(solutions)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case p.Actions <- a:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

const doneItem = "Done"

// PromptChooser asks with promptui selects.
type PromptChooser struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (c *PromptChooser) Choose(solutions []model.Solution) (actions.Action, bool, error) {
	items := make([]string, 0, len(solutions)+1)
	for i, s := range solutions {
		label := fmt.Sprintf("%d. %s (%s)", i+1, s.Title, percent(s.Confidence))
		if !s.HasCode() {
			label += " - explanation only"
		}
		items = append(items, label)
	}
	items = append(items, doneItem)

	solutionPrompt := promptui.Select{
		Label:  "Select a solution",
		Items:  items,
		Size:   min(len(items), 8),
		Stdin:  c.Stdin,
		Stdout: c.Stdout,
	}
	idx, _, err := solutionPrompt.Run()
	if err != nil {
		return c.stop(err)
	}
	if idx == len(solutions) {
		return actions.Action{}, true, nil
	}
	sol := solutions[idx]

	choices := []string{"Copy to clipboard", "Back"}
	kinds := []actions.Kind{actions.KindCopy, ""}
	if sol.HasCode() {
		choices = append([]string{"Apply to file"}, choices...)
		kinds = append([]actions.Kind{actions.KindApply}, kinds...)
	}
	actionPrompt := promptui.Select{
		Label:  sol.Title,
		Items:  choices,
		Stdin:  c.Stdin,
		Stdout: c.Stdout,
	}
	ai, _, err := actionPrompt.Run()
	if err != nil {
		return c.stop(err)
	}
	if kinds[ai] == "" {
		return c.Choose(solutions)
	}
	return actions.Action{Kind: kinds[ai], Solution: &sol}, false, nil
}

// stop turns Ctrl-C and Ctrl-D into a normal finish.
func (c *PromptChooser) stop(err error) (actions.Action, bool, error) {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return actions.Action{}, true, nil
	}
	return actions.Action{}, true, fmt.Errorf("solution selection: %w", err)
}
