package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jenian/envguard/internal/config"
	"github.com/jenian/envguard/internal/output"
	"github.com/jenian/envguard/internal/parser"
	"github.com/jenian/envguard/internal/watcher"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "envguard",
		Short: "Check environment variable usages against their declarations",
		Long: "A CLI tool that scans code and GitHub Actions workflows for environment variable usages " +
			"and reconciles them with .env files and CI secrets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	scanCmd = &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a codebase for environment variable usages",
		Long: "Recursively scan a directory for environment variable usages and report variables that are " +
			"used but never declared (missing) and declared but never used (orphaned).",
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-run the scan whenever files change",
		Long:  "Run a scan, then watch the directory and scan again after every batch of changes until interrupted.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Create a .envguard.yml file in the current directory",
		Long:  "Creates a .envguard.yml file with the default configuration in the current directory.",
		Args:  cobra.NoArgs,
		RunE:  runInitConfig,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "Print the version number of envguard",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}

	// Flags
	scanPath     string
	envFiles     []string
	actionsMode  bool
	allMode      bool
	strict       bool
	workflowsDir string
	jsonOutput   bool
	outputFile   string
	includeGlobs []string
	excludeGlobs []string
	workers      int
	debug        bool
	logJSON      bool
	silent       bool
	noHeader     bool
	noColor      bool
	skipDefined  bool
	debounce     time.Duration
)

func init() {
	addScanFlags(scanCmd)
	addScanFlags(watchCmd)
	watchCmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "Quiet period after a change before rescanning")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

// addScanFlags registers the flags shared by scan and watch
func addScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&scanPath, "path", "p", ".", "Path to scan (default: current directory)")
	flags.StringArrayVarP(&envFiles, "env-file", "e", nil, "Env file to compare against instead of auto-detection (repeatable)")
	flags.BoolVar(&actionsMode, "actions", false, "Compare code and workflow usages with GitHub Actions secrets, vars and env blocks")
	flags.BoolVar(&allMode, "all", false, "Compare code and workflow usages with env files and GitHub Actions declarations together")
	flags.BoolVar(&strict, "strict", false, "Exit with code 1 when orphaned variables are found")
	flags.StringVar(&workflowsDir, "workflows-dir", "", "Workflow directory relative to the scan root (default: .github/workflows)")
	flags.BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	flags.StringVarP(&outputFile, "output", "o", "", "Also write a markdown report to this file")
	flags.StringSliceVar(&includeGlobs, "include", []string{}, "Glob patterns to include")
	flags.StringSliceVar(&excludeGlobs, "exclude", []string{}, "Glob patterns to exclude")
	flags.IntVar(&workers, "workers", parser.DefaultWorkers, "Number of files parsed concurrently")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	flags.BoolVar(&silent, "silent", false, "Silent mode (exit code only)")
	flags.BoolVar(&noHeader, "no-header", false, "Skip printing the header")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&skipDefined, "skip-defined", false, "Skip listing defined variables")
	cmd.MarkFlagsMutuallyExclusive("actions", "all")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	for _, name := range config.FileNames {
		if _, err := os.Stat(name); err == nil {
			return fmt.Errorf("%s already exists in the current directory", name)
		}
	}

	configPath := config.FileNames[0]
	if err := os.WriteFile(configPath, []byte(config.DefaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", configPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s in the current directory\n", configPath)
	return nil
}

func printHeader(w io.Writer) {
	header := `                                         _
  ___ _ ____   ____ _ _   _  __ _ _ __ __| |
 / _ \ '_ \ \ / / _' | | | |/ _' | '__/ _' |
|  __/ | | \ V / (_| | |_| | (_| | | | (_| |
 \___|_| |_|\_/ \__, |\__,_|\__,_|_|  \__,_|
                |___/
`
	fmt.Fprint(w, header)
	fmt.Fprintf(w, "Version: %s\n\n", Version)
}

// exitError carries a non-zero exit code out of a command that already
// reported its outcome
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode maps a command error to the process exit code. Anything that is
// not a reported outcome is a setup failure.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return output.ExitFatal
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			fmt.Fprint(os.Stderr, output.FormatError(err))
		}
		os.Exit(exitCode(err))
	}
}
