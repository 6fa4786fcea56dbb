package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/engine"
)

// Exit codes
const (
	ExitOK     = 0
	ExitIssues = 1
	ExitFatal  = 2
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// maxSnippetLen is the snippet width after which snippets are truncated
const maxSnippetLen = 80

// Options controls what the report shows
type Options struct {
	JSON        bool
	Color       bool
	SkipDefined bool
	// ConfigPath is named in notes about ignored variables
	ConfigPath string
}

// ColorSupported reports whether f is a terminal that renders ANSI colors.
// NO_COLOR disables colors regardless of the terminal.
func ColorSupported(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}
	// On Windows, ANSI escape sequences have to be enabled (formatter_windows.go)
	return enableANSI(f)
}

// palette returns color codes when colors are enabled, empty strings otherwise
type palette bool

func (p palette) c(code string) string {
	if p {
		return code
	}
	return ""
}

// ExitCode maps a result to the process exit code. Orphans only fail the
// run in strict mode.
func ExitCode(result analyzer.Result, strict bool) int {
	if len(result.Missing) > 0 {
		return ExitIssues
	}
	if strict && len(result.Orphaned) > 0 {
		return ExitIssues
	}
	return ExitOK
}

// Format writes the report of outcome to w
func Format(w io.Writer, outcome *engine.Outcome, opts Options) error {
	if opts.JSON {
		return formatJSON(w, outcome, opts)
	}
	return formatHumanReadable(w, outcome, opts)
}

// JSONOutput represents the JSON output format
type JSONOutput struct {
	Root               string                 `json:"root"`
	Mode               engine.Mode            `json:"mode"`
	FilesScanned       int                    `json:"files_scanned"`
	Declarations       int                    `json:"declarations"`
	EnvFiles           []string               `json:"env_files"`
	WorkflowFiles      []string               `json:"workflow_files"`
	Missing            []analyzer.MissingVar  `json:"missing"`
	Orphaned           []analyzer.Declaration `json:"orphaned"`
	Defined            []string               `json:"defined"`
	IgnoredMissing     int                    `json:"ignored_missing"`
	IgnoredOrphaned    int                    `json:"ignored_orphaned"`
	IgnoredFromFolders int                    `json:"ignored_from_folders"`
	Diagnostics        engine.Diagnostics     `json:"diagnostics"`
}

// formatJSON outputs results in JSON format
func formatJSON(w io.Writer, outcome *engine.Outcome, opts Options) error {
	result := outcome.Result
	output := JSONOutput{
		Root:               outcome.Root,
		Mode:               outcome.Mode,
		FilesScanned:       outcome.FilesScanned,
		Declarations:       outcome.Declarations,
		EnvFiles:           outcome.EnvFiles,
		WorkflowFiles:      outcome.WorkflowFiles,
		Missing:            result.Missing,
		Orphaned:           result.Orphaned,
		Defined:            result.Defined,
		IgnoredMissing:     result.IgnoredMissing,
		IgnoredOrphaned:    result.IgnoredOrphaned,
		IgnoredFromFolders: result.IgnoredFromFolders,
		Diagnostics:        outcome.Diagnostics,
	}
	if opts.SkipDefined || output.Defined == nil {
		output.Defined = []string{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// formatHumanReadable outputs results in human-readable format
func formatHumanReadable(w io.Writer, outcome *engine.Outcome, opts Options) error {
	p := palette(opts.Color)
	result := outcome.Result
	bw := &errWriter{w: w}

	bw.printf("%sScanning:%s %s%s%s (%d files)\n", p.c(colorGray), p.c(colorReset), p.c(colorBold), outcome.Root, p.c(colorReset), outcome.FilesScanned)
	if len(outcome.EnvFiles) > 0 {
		bw.printf("%sEnv file:%s %s\n", p.c(colorGray), p.c(colorReset), strings.Join(outcome.EnvFiles, ", "))
	}
	if len(outcome.WorkflowFiles) > 0 {
		bw.printf("%sWorkflows:%s %d file(s)\n", p.c(colorGray), p.c(colorReset), len(outcome.WorkflowFiles))
	}
	bw.printf("%sDeclared:%s %d variable(s)\n\n", p.c(colorGray), p.c(colorReset), outcome.Declarations)

	// Defined variables
	if !opts.SkipDefined && len(result.Defined) > 0 {
		bw.printf("%s%sDefined variables (%d):%s\n\n", p.c(colorBold), p.c(colorGreen), len(result.Defined), p.c(colorReset))
		for _, name := range result.Defined {
			bw.printf("  %s%s%s\n", p.c(colorGreen), name, p.c(colorReset))
		}
		bw.printf("\n")
	}

	// Missing variables
	if len(result.Missing) > 0 {
		bw.printf("%s%sMissing environment variables (%d):%s\n\n", p.c(colorBold), p.c(colorRed), len(result.Missing), p.c(colorReset))
		for _, missing := range result.Missing {
			bw.printf("  %s%s%s\n", p.c(colorRed), missing.Name, p.c(colorReset))
			for _, occ := range missing.Occurrences {
				bw.printf("    %sused in:%s %s%s%s:%s%d%s", p.c(colorGray), p.c(colorReset), p.c(colorCyan), occ.File, p.c(colorReset), p.c(colorYellow), occ.Line, p.c(colorReset))
				if occ.Snippet != "" {
					bw.printf(" %s%s%s", p.c(colorGray), truncate(occ.Snippet), p.c(colorReset))
				}
				bw.printf("\n")
			}
			bw.printf("\n")
		}
	}

	// Orphaned variables
	if len(result.Orphaned) > 0 {
		bw.printf("%s%sOrphaned variables (%d):%s\n\n", p.c(colorBold), p.c(colorYellow), len(result.Orphaned), p.c(colorReset))
		for _, decl := range result.Orphaned {
			bw.printf("  %s%s%s %s(declared in %s)%s\n", p.c(colorYellow), decl.Name, p.c(colorReset), p.c(colorGray), location(decl), p.c(colorReset))
		}
		bw.printf("\n")
	}

	// Notes
	configName := opts.ConfigPath
	if configName == "" {
		configName = "config"
	}
	if result.IgnoredMissing > 0 {
		bw.printf("%s%sNote:%s %d missing variable(s) were ignored (configured in %s)\n", p.c(colorGray), p.c(colorBold), p.c(colorReset), result.IgnoredMissing, configName)
	}
	if result.IgnoredOrphaned > 0 {
		bw.printf("%s%sNote:%s %d orphaned variable(s) were ignored (configured in %s)\n", p.c(colorGray), p.c(colorBold), p.c(colorReset), result.IgnoredOrphaned, configName)
	}
	if result.IgnoredFromFolders > 0 {
		bw.printf("%s%sNote:%s %d variable(s) found only in ignored folders were excluded\n", p.c(colorGray), p.c(colorBold), p.c(colorReset), result.IgnoredFromFolders)
	}
	for _, warning := range outcome.Diagnostics.Warnings {
		bw.printf("%s%sWarning:%s %s\n", p.c(colorYellow), p.c(colorBold), p.c(colorReset), warning)
	}

	// Summary
	diag := outcome.Diagnostics
	bw.printf("%sSummary: %d file(s) scanned, %d skipped, %d malformed declaration line(s)%s\n",
		p.c(colorGray), outcome.FilesScanned, len(diag.Skipped), diag.MalformedLines, p.c(colorReset))

	issues := len(result.Missing) + len(result.Orphaned)
	if issues == 0 {
		bw.printf("%s%s✓ No issues found. All environment variables are properly configured.%s\n", p.c(colorGreen), p.c(colorBold), p.c(colorReset))
	} else {
		bw.printf("%s%s✗ %d issue(s) found (%d missing, %d orphaned).%s\n", p.c(colorRed), p.c(colorBold), issues, len(result.Missing), len(result.Orphaned), p.c(colorReset))
	}

	return bw.err
}

// location formats where a declaration lives
func location(decl analyzer.Declaration) string {
	if decl.Line > 0 {
		return fmt.Sprintf("%s:%d", decl.DeclaredIn, decl.Line)
	}
	return decl.DeclaredIn
}

// truncate shortens long snippets
func truncate(snippet string) string {
	runes := []rune(snippet)
	if len(runes) > maxSnippetLen {
		return string(runes[:maxSnippetLen-3]) + "..."
	}
	return snippet
}

// errWriter keeps the first write error so the report can be written
// without checking every call
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// FormatError formats an error message
func FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err)
}
