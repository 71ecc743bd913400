// Package progress renders orchestrator checkpoints in the terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/helmcode/error-translator/pkg/orchestrator"
	"github.com/schollz/progressbar/v3"
)

// Reporter provides feedback while a translation runs.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

const (
	StyleSpinner = "spinner"
	StyleBar     = "bar"
	StylePlain   = "plain"
)

// NewReporter picks a reporter for style. Non-interactive output and CI
// always get the plain reporter.
func NewReporter(w io.Writer, style string, interactive bool) Reporter {
	if !interactive || os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &PlainReporter{w: w}
	}
	switch style {
	case StyleBar:
		return &BarReporter{w: w}
	case StylePlain:
		return &PlainReporter{w: w}
	default:
		return &SpinnerReporter{w: w}
	}
}

// Follow drives r from the orchestrator's progress channel. It finishes r and
// returns once results are about to be presented, a terminal state is
// reached or the channel closes.
func Follow(r Reporter, ch <-chan orchestrator.Progress) {
	r.Start(100)
	defer r.Finish()
	for p := range ch {
		r.Update(p.Percent, p.Message)
		if p.State == orchestrator.Delivering || p.State.Terminal() {
			return
		}
	}
}

// SpinnerReporter shows the current phase next to a spinner.
type SpinnerReporter struct {
	w io.Writer
	s *spinner.Spinner
}

func (r *SpinnerReporter) Start(int) {
	r.s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(r.w))
	r.s.Suffix = " Starting..."
	r.s.Start()
}

func (r *SpinnerReporter) Update(_ int, message string) {
	if r.s == nil {
		return
	}
	r.s.Lock()
	r.s.Suffix = " " + message + "..."
	r.s.Unlock()
}

func (r *SpinnerReporter) Finish() {
	if r.s != nil {
		r.s.Stop()
	}
}

// BarReporter displays a progress bar in the terminal.
type BarReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (r *BarReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("Translating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *BarReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *BarReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// PlainReporter prints one line per checkpoint, suitable for logs and CI.
type PlainReporter struct {
	w io.Writer
}

func NewPlainReporter(w io.Writer) *PlainReporter {
	return &PlainReporter{w: w}
}

func (r *PlainReporter) Start(int) {}

func (r *PlainReporter) Update(current int, message string) {
	fmt.Fprintf(r.w, "[%3d%%] %s\n", current, message)
}

func (r *PlainReporter) Finish() {}
