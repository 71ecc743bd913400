// Package textdiff renders compact line diffs.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type op struct {
	kind diffmatchpatch.Operation
	line string
}

// Lines returns a unified-style diff of old and new with the given number of
// context lines around each change. Equal inputs produce "".
func Lines(oldText, newText string, context int) string {
	if oldText == newText {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var ops []op
	for _, d := range diffs {
		for _, l := range splitKeep(d.Text) {
			ops = append(ops, op{kind: d.Type, line: l})
		}
	}

	var sb strings.Builder
	oldLine, newLine := 1, 1
	for i := 0; i < len(ops); {
		if ops[i].kind == diffmatchpatch.DiffEqual {
			oldLine++
			newLine++
			i++
			continue
		}

		// hunk: back up for leading context, then extend until a run of
		// more than 2*context equal lines
		start := max(0, i-context)
		for k := start; k < i; k++ {
			oldLine--
			newLine--
		}
		end := i
		for end < len(ops) {
			if ops[end].kind != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(ops) && ops[run].kind == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(ops) || run-end > 2*context {
				end = min(end+context, len(ops))
				break
			}
			end = run
		}

		oldCount, newCount := 0, 0
		var body strings.Builder
		for _, o := range ops[start:end] {
			switch o.kind {
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + o.line + "\n")
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + o.line + "\n")
				oldCount++
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + o.line + "\n")
				newCount++
			}
		}
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldLine, oldCount, newLine, newCount)
		sb.WriteString(body.String())

		oldLine += oldCount
		newLine += newCount
		i = end
	}
	return sb.String()
}

// splitKeep splits diff text into lines without the trailing newline.
func splitKeep(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
