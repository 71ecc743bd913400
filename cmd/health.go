package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/helmcode/error-translator/pkg/client"
	"github.com/helmcode/error-translator/pkg/formatter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var healthOutputFormat string

func NewHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the translation service is reachable",
		Long: `Call the health endpoint of the configured translation service and report
its status, the state of its dependencies and the languages it supports.

Examples:
  # Check the default endpoint
  error-translator health

  # Check another endpoint
  ERRTRANS_SERVICE_ENDPOINT=https://errors.example.com error-translator health`,
		Args: cobra.NoArgs,
		RunE: runHealth,
	}

	cmd.Flags().StringVarP(&healthOutputFormat, "output", "o", "human", "Output format (human, json, yaml)")

	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := cancelOnInterrupt(cmd.Context())
	defer stop()

	c := client.New(rt.cfg.Service,
		client.WithLogger(rt.logger.Named("client")),
		client.WithUserAgent("error-translator/"+Version),
	)

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Contacting " + rt.cfg.Service.Endpoint + "..."
	if isTerminal(os.Stderr) {
		s.Start()
	}
	status, err := c.Health(ctx)
	s.Stop()
	if err != nil {
		printError(userMessage(err))
		return fmt.Errorf("health check failed")
	}

	languages, langErr := c.SupportedLanguages(ctx)
	if langErr != nil {
		rt.logger.Debug("listing supported languages", zap.Error(langErr))
	}

	switch healthOutputFormat {
	case formatter.FormatJSON, formatter.FormatYAML:
		return formatter.Encode(os.Stdout, healthReport{Status: status.Status, Services: status.Services, Languages: languages}, healthOutputFormat)
	}

	printSuccess(fmt.Sprintf("%s is %s", rt.cfg.Service.Endpoint, status.Status))
	names := make([]string, 0, len(status.Services))
	for name := range status.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "   %-20s %v\n", name, status.Services[name])
	}
	if langErr != nil {
		printWarning("Could not list supported languages: " + userMessage(langErr))
		return nil
	}
	fmt.Fprintf(os.Stdout, "   %-20s %s\n", "languages", strings.Join(languages, ", "))
	return nil
}

type healthReport struct {
	Status    string         `json:"status" yaml:"status"`
	Services  map[string]any `json:"services,omitempty" yaml:"services,omitempty"`
	Languages []string       `json:"languages,omitempty" yaml:"languages,omitempty"`
}
