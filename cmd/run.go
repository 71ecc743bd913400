package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/helmcode/error-translator/pkg/formatter"
	"github.com/helmcode/error-translator/pkg/matcher"
	"github.com/helmcode/error-translator/pkg/progress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

var (
	runCapture bool
	runYes     bool
	runTarget  string
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Run a command and translate the error it prints",
		Long: `Run a command in a pseudo-terminal, mirroring its output unchanged. When it
prints an error, offer to translate the last one after the command exits.

Capturing is enabled by --capture or by capture.auto in the configuration.

Examples:
  # Run the test suite and translate a failure
  error-translator run --capture -- go test ./...

  # Always translate without asking
  error-translator run --capture --yes -- npm run build`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().BoolVar(&runCapture, "capture", false, "Scan the command output for errors")
	cmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Translate the detected error without asking")
	cmd.Flags().StringVarP(&runTarget, "file", "f", "", "Source file solutions are applied to")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	capturing := runCapture || rt.cfg.Capture.Auto
	var capture *matcher.Capture
	if capturing {
		capture = matcher.NewCapture(matcher.New(matcher.WithWindow(rt.cfg.Capture.Window)))
	}

	c := exec.Command(args[0], args[1:]...)
	var relay *stdinRelay
	if isTerminal(os.Stdin) {
		relay = newStdinRelay(os.Stdin)
	}
	var matches []matcher.Match
	exitErr := runInPTY(c, os.Stdin, relay, os.Stdout, func(chunk []byte) {
		if capture != nil {
			matches = append(matches, capture.Push(string(chunk))...)
		}
	}, rt.logger)
	if capture != nil {
		matches = append(matches, capture.Flush()...)
	}

	var exit *exec.ExitError
	if exitErr != nil && !errors.As(exitErr, &exit) {
		return fmt.Errorf("failed to run %s: %w", args[0], exitErr)
	}
	if capturing && len(matches) > 0 {
		ctx, stop := cancelOnInterrupt(cmd.Context())
		defer stop()

		h := &detectionHandler{
			rt:      rt,
			auto:    rt.cfg.Capture.Auto || runYes,
			limiter: rate.NewLimiter(rate.Inf, 1),
			opts: pipelineOptions{
				target:        runTarget,
				format:        formatter.FormatHuman,
				save:          true,
				progressStyle: progress.StyleSpinner,
			},
		}
		if relay != nil {
			h.promptIn = relay
		}
		h.handle(ctx, matches[len(matches)-1:])
	}

	if exit != nil {
		// Keep the wrapped command's exit status.
		rt.Close()
		os.Exit(exit.ExitCode())
	}
	return nil
}

// runInPTY runs c attached to a pseudo-terminal, copying its output to out
// and onOutput. Input comes from relay when in is a terminal, else from in.
// It returns the command's Wait error.
func runInPTY(c *exec.Cmd, in *os.File, relay *stdinRelay, out io.Writer, onOutput func([]byte), logger *zap.Logger) error {
	ptmx, err := pty.Start(c)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	if term.IsTerminal(int(in.Fd())) {
		resize := make(chan os.Signal, 1)
		signal.Notify(resize, syscall.SIGWINCH)
		defer func() {
			signal.Stop(resize)
			close(resize)
		}()
		go func() {
			for range resize {
				if err := pty.InheritSize(in, ptmx); err != nil {
					logger.Debug("resizing pty", zap.Error(err))
				}
			}
		}()
		resize <- syscall.SIGWINCH

		oldState, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return fmt.Errorf("setting terminal raw mode: %w", err)
		}
		defer term.Restore(int(in.Fd()), oldState)
	}

	if relay != nil {
		done := make(chan struct{})
		defer close(done)
		go relay.forward(ptmx, done)
	} else {
		// Ends with the process; not waited on.
		go func() { _, _ = io.Copy(ptmx, in) }()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 32*1024)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				_, _ = out.Write(buf[:n])
				onOutput(append([]byte(nil), buf[:n]...))
			}
			if err != nil {
				// Linux reports EIO once the child side closes.
				return
			}
		}
	}()

	waitErr := c.Wait()
	wg.Wait()
	return waitErr
}

// stdinRelay owns the only reader of a terminal stdin, so input typed after
// the command exits reaches the prompts instead of a stale copy loop.
type stdinRelay struct {
	ch      chan []byte
	pending []byte
}

func newStdinRelay(in io.Reader) *stdinRelay {
	r := &stdinRelay{ch: make(chan []byte)}
	go func() {
		defer close(r.ch)
		buf := make([]byte, 4096)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				r.ch <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

// forward writes input to w until done is closed.
func (r *stdinRelay) forward(w io.Writer, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case b, ok := <-r.ch:
			if !ok {
				return
			}
			if _, err := w.Write(b); err != nil {
				return
			}
		}
	}
}

func (r *stdinRelay) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		b, ok := <-r.ch
		if !ok {
			return 0, io.EOF
		}
		r.pending = b
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *stdinRelay) Close() error { return nil }
