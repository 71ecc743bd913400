package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/helmcode/error-translator/pkg/client"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/formatter"
	"github.com/helmcode/error-translator/pkg/matcher"
	"github.com/helmcode/error-translator/pkg/progress"
	"github.com/spf13/cobra"
)

// maxInput bounds error text read from stdin or --from.
const maxInput = 1 << 20

var (
	fromFile      string
	targetFile    string
	targetLine    int
	userNote      string
	outputFormat  string
	interactive   bool
	noSave        bool
	showPreview   bool
	progressStyle string
	detectError   bool
	imageFile     string
)

func NewTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [ERROR_TEXT]",
		Short: "Explain an error message and suggest fixes",
		Long: `Send an error message, together with context from the current project,
to the translation service and show the explanation and suggested solutions.

The error text is taken from the argument, from --from FILE, or from stdin.
With --image the service reads the error from a screenshot instead.

Examples:
  # Translate an error message
  error-translator translate "TypeError: Cannot read properties of undefined (reading 'map')"

  # Pipe a failing build into the translator and keep only the error
  npm run build 2>&1 | error-translator translate --detect

  # Apply a fix to the file the error points at
  error-translator translate --from err.log --file src/App.jsx --line 12

  # Translate a screenshot of an error
  error-translator translate --image crash.png --note "after upgrading react"

  # Machine readable output
  error-translator translate "panic: runtime error" -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTranslate,
	}

	cmd.Flags().StringVar(&fromFile, "from", "", "Read the error text from a file")
	cmd.Flags().StringVarP(&targetFile, "file", "f", "", "Source file the error refers to")
	cmd.Flags().IntVarP(&targetLine, "line", "l", 0, "1-based line of the error in --file")
	cmd.Flags().StringVar(&userNote, "note", "", "Extra context to send with the error")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", isTerminal(os.Stdout), "Offer to apply or copy solutions")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Apply solutions without writing the file")
	cmd.Flags().BoolVar(&showPreview, "preview", false, "Show a diff of the best solution before choosing")
	cmd.Flags().StringVar(&progressStyle, "progress", progress.StyleSpinner, "Progress style (spinner, bar, plain)")
	cmd.Flags().BoolVar(&detectError, "detect", false, "Send only the lines around the first detected error")
	cmd.Flags().StringVar(&imageFile, "image", "", "Translate the error shown in an image file")
	cmd.MarkFlagsMutuallyExclusive("image", "from")
	cmd.MarkFlagsMutuallyExclusive("image", "detect")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	var text string
	if imageFile != "" {
		if len(args) > 0 {
			return fmt.Errorf("--image cannot be combined with error text")
		}
		if _, _, err := client.ReadImage(imageFile); err != nil {
			return err
		}
		text = "image: " + filepath.Base(imageFile)
	} else {
		t, err := readErrorText(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = t
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if detectError {
		m := matcher.New(matcher.WithWindow(rt.cfg.Capture.Window))
		match, ok := m.Detect(text)
		if !ok {
			printWarning(errs.UserMessage(errs.NoErrorDetected))
			return nil
		}
		text = match.Excerpt
	}

	if outputFormat == formatter.FormatHuman {
		printHeader(os.Stderr, firstLine(text, 80))
	}

	ctx, stop := cancelOnInterrupt(cmd.Context())
	defer stop()

	// Prompts need a terminal on stdin.
	res, err := runPipeline(ctx, rt, text, pipelineOptions{
		target:        targetFile,
		line:          targetLine,
		note:          userNote,
		image:         imageFile,
		format:        outputFormat,
		interactive:   interactive && outputFormat == formatter.FormatHuman && isTerminal(os.Stdin),
		save:          !noSave,
		preview:       showPreview,
		progressStyle: progressStyle,
	})
	if err != nil {
		if res != nil {
			return fmt.Errorf("translation failed: %s", res.Kind)
		}
		return err
	}
	return nil
}

// readErrorText resolves the error text from the argument, --from or stdin.
func readErrorText(args []string, stdin io.Reader) (string, error) {
	switch {
	case fromFile != "":
		f, err := os.Open(fromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", fromFile, err)
		}
		defer f.Close()
		return readAll(f)
	case len(args) == 1 && args[0] != "-":
		return args[0], nil
	case len(args) == 1 || !isTerminalReader(stdin):
		return readAll(stdin)
	}
	return "", fmt.Errorf("no error text: pass it as an argument, with --from, or on stdin")
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxInput))
	if err != nil {
		return "", fmt.Errorf("failed to read error text: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("error text is empty")
	}
	return string(b), nil
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminal(f)
}

// cancelOnInterrupt is shared by the long running commands.
func cancelOnInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
