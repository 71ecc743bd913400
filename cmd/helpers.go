package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/helmcode/error-translator/pkg/config"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Version is reported in the User-Agent header. main overrides it.
var Version = "dev"

var (
	configPath string
	logLevel   string
)

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/error-translator/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	close  func() error
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, closeFn, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("endpoint", cfg.Service.Endpoint),
		logging.Secret("api_key", cfg.Service.APIKey),
		zap.Duration("timeout", cfg.Service.Timeout),
	)
	return &runtime{cfg: cfg, logger: logger, close: closeFn}, nil
}

func (rt *runtime) Close() {
	_ = rt.close()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func printHeader(w io.Writer, title string, details ...string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(w)
	cyan.Fprintf(w, "🔍 %s\n", title)
	for _, d := range details {
		fmt.Fprintf(w, "   %s\n", d)
	}
	fmt.Fprintln(w)
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}

func printError(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printWarning(msg string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(os.Stderr, "! %s\n", msg)
}

// userMessage prefers the taxonomy summary and falls back to the error text
// for local failures outside it.
func userMessage(err error) string {
	if errs.KindOf(err) == errs.KindUnknown {
		return err.Error()
	}
	return errs.UserMessage(err)
}

// firstLine shortens error text for headers.
func firstLine(s string, max int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
