package main

import (
	"fmt"
	"os"

	"github.com/helmcode/error-translator/cmd"
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "error-translator",
		Short: "Plain-language explanations for programming errors",
		Long: `error-translator sends an error message, together with context from your
project, to a translation service and shows what went wrong and how to fix it.
Suggested fixes can be applied to the source file or copied to the clipboard.`,
		SilenceUsage: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cmd.Version = version
	cmd.AddGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(
		cmd.NewTranslateCmd(),
		cmd.NewWatchCmd(),
		cmd.NewRunCmd(),
		cmd.NewHealthCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("error-translator version %s\n", version)
		},
	}
}
