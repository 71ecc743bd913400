package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/helmcode/error-translator/pkg/formatter"
	"github.com/helmcode/error-translator/pkg/logtail"
	"github.com/helmcode/error-translator/pkg/matcher"
	"github.com/helmcode/error-translator/pkg/progress"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	watchFromStart bool
	watchYes       bool
	watchTarget    string
	watchProgress  string
)

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [FILE]",
		Short: "Watch a log or a stream for errors and translate them",
		Long: `Follow a log file, or read stdin, and offer to translate every error
that appears in it.

Examples:
  # Follow a development server log
  error-translator watch logs/dev.log

  # Watch the output of a test runner
  npm test 2>&1 | error-translator watch

  # Translate every error without asking
  error-translator watch logs/dev.log --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().BoolVar(&watchFromStart, "from-start", false, "Read FILE from the beginning instead of the end")
	cmd.Flags().BoolVarP(&watchYes, "yes", "y", false, "Translate detected errors without asking")
	cmd.Flags().StringVarP(&watchTarget, "file", "f", "", "Source file solutions are applied to")
	cmd.Flags().StringVar(&watchProgress, "progress", progress.StylePlain, "Progress style (spinner, bar, plain)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := cancelOnInterrupt(cmd.Context())
	defer stop()

	h := &detectionHandler{
		rt:      rt,
		auto:    rt.cfg.Capture.Auto || watchYes,
		limiter: rate.NewLimiter(rate.Every(rt.cfg.Capture.PromptInterval), 1),
		opts: pipelineOptions{
			target:        watchTarget,
			format:        formatter.FormatHuman,
			save:          true,
			progressStyle: watchProgress,
		},
	}
	capture := matcher.NewCapture(matcher.New(matcher.WithWindow(rt.cfg.Capture.Window)))

	if len(args) == 1 {
		t, err := logtail.Open(args[0], watchFromStart, logtail.WithLogger(rt.logger.Named("logtail")))
		if err != nil {
			return err
		}
		defer t.Close()

		if isTerminal(os.Stdin) {
			h.promptIn = os.Stdin
		}
		printHeader(os.Stderr, "Watching "+t.Path(), "Press Ctrl+C to stop")
		err = t.Run(ctx, func(chunk []byte) {
			h.handle(ctx, capture.Push(string(chunk)))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	// stdin carries the watched stream, so prompts read from the terminal.
	if tty, err := os.Open("/dev/tty"); err == nil {
		defer tty.Close()
		h.promptIn = tty
	} else {
		rt.logger.Debug("no controlling terminal", zap.Error(err))
	}
	printHeader(os.Stderr, "Watching stdin", "Press Ctrl+C to stop")
	return watchReader(ctx, cmd.InOrStdin(), capture, h)
}

// watchReader feeds r into capture until EOF or cancellation. Pending
// matches are reported at EOF.
func watchReader(ctx context.Context, r io.Reader, capture *matcher.Capture, h *detectionHandler) error {
	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case chunks <- append([]byte(nil), buf[:n]...):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk := <-chunks:
			h.handle(ctx, capture.Push(string(chunk)))
		case err := <-readErr:
			h.handle(ctx, capture.Flush())
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
}

// detectionHandler decides what happens to each detected error.
type detectionHandler struct {
	rt       *runtime
	auto     bool
	limiter  *rate.Limiter
	promptIn io.ReadCloser
	opts     pipelineOptions
	// confirm replaces the terminal prompt in tests.
	confirm func(label string) (bool, error)
}

func (h *detectionHandler) handle(ctx context.Context, matches []matcher.Match) {
	for _, m := range matches {
		if ctx.Err() != nil {
			return
		}
		anchor := anchorLine(m)
		if !h.limiter.Allow() {
			h.rt.logger.Info("error detected, prompt suppressed",
				zap.Int("line", m.Line+1),
				zap.String("signature", m.Signature),
			)
			continue
		}
		printWarning(fmt.Sprintf("Error detected at line %d: %s", m.Line+1, firstLine(anchor, 100)))

		if !h.auto {
			ok, err := h.ask("Translate this error")
			if err != nil {
				h.rt.logger.Warn("confirmation prompt failed", zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
		}

		opts := h.opts
		opts.promptIn = h.promptIn
		opts.interactive = h.promptIn != nil
		if _, err := runPipeline(ctx, h.rt, m.Excerpt, opts); err != nil {
			h.rt.logger.Debug("translation of detected error failed", zap.Error(err))
		}
	}
}

func (h *detectionHandler) ask(label string) (bool, error) {
	if h.confirm != nil {
		return h.confirm(label)
	}
	if h.promptIn == nil {
		printWarning("No terminal to ask on; rerun with --yes to translate automatically")
		return false, nil
	}
	p := promptui.Prompt{Label: label, IsConfirm: true, Stdin: h.promptIn}
	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	}
	return false, err
}

func anchorLine(m matcher.Match) string {
	lines := strings.Split(m.Excerpt, "\n")
	if i := m.Line - m.StartLine; i >= 0 && i < len(lines) {
		return lines[i]
	}
	return m.Excerpt
}
