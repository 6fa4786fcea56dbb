package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jenian/envguard/internal/engine"
)

// maxMarkdownLocations is how many call sites a markdown row lists
const maxMarkdownLocations = 3

// WriteMarkdownFile saves the markdown report of outcome to path
func WriteMarkdownFile(path string, outcome *engine.Outcome) error {
	var sb strings.Builder
	if err := FormatMarkdown(&sb, outcome); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// FormatMarkdown writes outcome as a markdown report
func FormatMarkdown(w io.Writer, outcome *engine.Outcome) error {
	result := outcome.Result
	bw := &errWriter{w: w}

	envFile := "not found"
	if len(outcome.EnvFiles) > 0 {
		envFile = strings.Join(outcome.EnvFiles, ", ")
	}

	bw.printf("# envguard Report\n\n")
	bw.printf("**Source directory:** `%s`\n", outcome.Root)
	bw.printf("**Mode:** %s\n", outcome.Mode)
	if outcome.Mode != engine.ModeActions {
		bw.printf("**Env file:** `%s`\n", envFile)
	}
	if outcome.Mode != engine.ModeCode {
		bw.printf("**Workflow files:** %d\n", len(outcome.WorkflowFiles))
	}
	bw.printf("**Files scanned:** %d\n", outcome.FilesScanned)
	bw.printf("**Declared variables:** %d\n\n", outcome.Declarations)

	if len(result.Missing) == 0 && len(result.Orphaned) == 0 {
		bw.printf("All clear! No issues found.\n")
		return bw.err
	}

	if len(result.Missing) > 0 {
		bw.printf("## Missing (%d)\n\n", len(result.Missing))
		bw.printf("| Variable | Used at |\n")
		bw.printf("|----------|---------|\n")
		for _, missing := range result.Missing {
			locations := make([]string, 0, maxMarkdownLocations)
			for i, occ := range missing.Occurrences {
				if i == maxMarkdownLocations {
					break
				}
				locations = append(locations, fmt.Sprintf("`%s:%d`", occ.File, occ.Line))
			}
			cell := strings.Join(locations, ", ")
			if extra := len(missing.Occurrences) - maxMarkdownLocations; extra > 0 {
				cell += fmt.Sprintf(" (+%d more)", extra)
			}
			bw.printf("| `%s` | %s |\n", missing.Name, cell)
		}
		bw.printf("\n")
	}

	if len(result.Orphaned) > 0 {
		bw.printf("## Orphaned (%d)\n\n", len(result.Orphaned))
		bw.printf("| Variable | Declared in |\n")
		bw.printf("|----------|-------------|\n")
		for _, decl := range result.Orphaned {
			bw.printf("| `%s` | `%s` |\n", decl.Name, location(decl))
		}
		bw.printf("\n")
	}

	return bw.err
}
