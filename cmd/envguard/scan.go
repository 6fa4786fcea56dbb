package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/config"
	"github.com/jenian/envguard/internal/engine"
	"github.com/jenian/envguard/internal/logging"
	"github.com/jenian/envguard/internal/output"
)

// invocation is one fully resolved scan: flags merged over the config file
type invocation struct {
	opts   engine.Options
	cfg    *config.Config
	format output.Options
	logger *slog.Logger
}

func runScan(cmd *cobra.Command, args []string) error {
	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showHeader() {
		printHeader(out)
	}

	code, err := scanOnce(cmd.Context(), inv, out)
	if err != nil {
		return err
	}
	if code != output.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// prepare resolves the scan root, loads its config and applies the flags
// that were set explicitly on top of it
func prepare(cmd *cobra.Command, args []string) (*invocation, error) {
	path := scanPath
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	logger := logging.New(cmd.ErrOrStderr(), logging.Options{Debug: debug, Silent: silent, JSON: logJSON})

	cfg, err := config.LoadConfig(absPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}

	flags := cmd.Flags()
	if flags.Changed("strict") {
		cfg.Strict = strict
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("workflows-dir") {
		cfg.WorkflowsDir = workflowsDir
	}
	if flags.Changed("include") {
		cfg.Include = includeGlobs
	}
	if flags.Changed("exclude") {
		cfg.Exclude = excludeGlobs
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	files := envFiles
	if !flags.Changed("env-file") && cfg.EnvFile != "" {
		files = []string{cfg.EnvFile}
	}

	configName := ""
	if cfg.Path != "" {
		configName = filepath.Base(cfg.Path)
	}

	return &invocation{
		opts: engine.Options{
			Root:                 absPath,
			Mode:                 selectedMode(),
			EnvFiles:             files,
			WorkflowsDir:         cfg.WorkflowsDir,
			WorkflowsDirExplicit: flags.Changed("workflows-dir"),
			Include:              cfg.Include,
			Exclude:              cfg.Exclude,
			IgnoreFolders:        cfg.Ignores.Folders,
			Ignores: analyzer.Ignores{
				Missing:  cfg.Ignores.Missing,
				Orphaned: cfg.Ignores.Orphaned,
			},
			Workers:     cfg.Workers,
			MaxFileSize: cfg.MaxFileSize,
		},
		cfg: cfg,
		format: output.Options{
			JSON:        jsonOutput,
			Color:       !noColor && !jsonOutput && output.ColorSupported(os.Stdout),
			SkipDefined: skipDefined,
			ConfigPath:  configName,
		},
		logger: logger,
	}, nil
}

func selectedMode() engine.Mode {
	switch {
	case allMode:
		return engine.ModeAll
	case actionsMode:
		return engine.ModeActions
	default:
		return engine.ModeCode
	}
}

func showHeader() bool {
	return !noHeader && !jsonOutput && !silent
}

// scanOnce runs the engine, writes the reports and returns the exit code
// the outcome calls for
func scanOnce(ctx context.Context, inv *invocation, w io.Writer) (int, error) {
	outcome, err := engine.Run(ctx, inv.opts, inv.logger)
	if err != nil {
		return output.ExitFatal, err
	}

	if outputFile != "" {
		if err := output.WriteMarkdownFile(outputFile, outcome); err != nil {
			return output.ExitFatal, fmt.Errorf("failed to write report: %w", err)
		}
		inv.logger.Debug("wrote markdown report", "path", outputFile)
	}

	if !silent {
		if err := output.Format(w, outcome, inv.format); err != nil {
			return output.ExitFatal, fmt.Errorf("failed to format output: %w", err)
		}
	}

	return output.ExitCode(outcome.Result, inv.cfg.Strict), nil
}
