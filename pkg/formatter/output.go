package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/helmcode/error-translator/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DisplayResults formats and displays the translation
func DisplayResults(w io.Writer, resp *model.TranslationResponse, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		return Encode(w, resp, format)
	case FormatHuman, "":
		displayHuman(w, resp)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use human, json or yaml)", format)
	}
}

// Encode writes v as indented JSON or as YAML.
func Encode(w io.Writer, v any, format string) error {
	var (
		output []byte
		err    error
	)
	if format == FormatYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
		output = append(output, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

func displayHuman(w io.Writer, resp *model.TranslationResponse) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)

	red.Fprintf(w, "💡 %s\n", strings.ToUpper(orDefault(resp.ErrorType, "error")))
	fmt.Fprintln(w, wrapText(resp.Explanation, 80, "   "))
	fmt.Fprintln(w)

	meta := []string{fmt.Sprintf("confidence %s", percent(resp.Confidence))}
	if resp.Language != "" {
		meta = append(meta, resp.Language)
	}
	if resp.EstimatedFixTime != "" {
		meta = append(meta, "fix time "+resp.EstimatedFixTime)
	}
	if resp.Severity != "" {
		getSeverityColor(resp.Severity).Fprintf(w, "📊 SEVERITY: %s", strings.ToUpper(resp.Severity))
		fmt.Fprintf(w, "  %s\n\n", color.HiBlackString("(%s)", strings.Join(meta, ", ")))
	} else {
		fmt.Fprintf(w, "%s\n\n", color.HiBlackString("(%s)", strings.Join(meta, ", ")))
	}

	solutions := resp.SortedSolutions()
	if len(solutions) == 0 {
		yellow.Fprintln(w, "⚠️  No solutions were suggested.")
		fmt.Fprintln(w)
	} else {
		green.Fprintln(w, "🚀 SOLUTIONS:")
		for i, s := range solutions {
			fmt.Fprintf(w, "   %d. %s %s %s\n", i+1, getConfidenceIcon(s.Confidence), s.Title, color.HiBlackString("(%s)", percent(s.Confidence)))
			if s.Description != "" {
				fmt.Fprintln(w, wrapText(s.Description, 80, "      "))
			}
			for j, step := range s.Steps {
				fmt.Fprintf(w, "      %d) %s\n", j+1, step)
			}
			if s.HasCode() {
				loc := ""
				switch {
				case s.FilePath != nil && s.LineNumber != nil:
					loc = fmt.Sprintf("%s:%d", *s.FilePath, *s.LineNumber)
				case s.FilePath != nil:
					loc = *s.FilePath
				case s.LineNumber != nil:
					loc = fmt.Sprintf("line %d", *s.LineNumber)
				}
				if loc != "" {
					fmt.Fprintf(w, "      Location: %s\n", loc)
				}
				fmt.Fprintln(w, "      Code:")
				for _, line := range strings.Split(strings.TrimRight(*s.Code, "\n"), "\n") {
					fmt.Fprintf(w, "        %s\n", color.CyanString(line))
				}
			}
			for _, doc := range s.RelatedDocs {
				fmt.Fprintf(w, "      Docs: %s\n", doc)
			}
			fmt.Fprintln(w)
		}
	}

	if len(resp.PreventionTips) > 0 {
		cyan.Fprintln(w, "🛡️  PREVENTION:")
		for _, tip := range resp.PreventionTips {
			fmt.Fprintf(w, "   • %s\n", tip)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func getSeverityColor(severity string) *color.Color {
	switch strings.ToLower(severity) {
	case "critical":
		return color.New(color.FgRed, color.Bold)
	case "high":
		return color.New(color.FgRed)
	case "medium":
		return color.New(color.FgYellow)
	case "low":
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func getConfidenceIcon(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "🟢"
	case confidence >= 0.5:
		return "🟡"
	default:
		return "🟠"
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if currentLine != indent && len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
