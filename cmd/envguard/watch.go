package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jenian/envguard/internal/languages"
	"github.com/jenian/envguard/internal/output"
	"github.com/jenian/envguard/internal/scanner"
	"github.com/jenian/envguard/internal/watcher"
)

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	inv, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	if showHeader() {
		printHeader(out)
	}
	if _, err := scanOnce(ctx, inv, out); err != nil {
		return err
	}

	reportPath := ""
	if outputFile != "" {
		if abs, err := filepath.Abs(outputFile); err == nil {
			reportPath = abs
		}
	}

	// Every batch reloads the config so edits to it take effect
	rescan := func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		if !silent {
			if len(paths) > 0 {
				fmt.Fprintf(errOut, "\n%d file(s) changed, rescanning...\n\n", len(paths))
			} else {
				fmt.Fprint(errOut, "\nChanges detected, rescanning...\n\n")
			}
		}
		inv, err := prepare(cmd, args)
		if err == nil {
			_, err = scanOnce(ctx, inv, out)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprint(errOut, output.FormatError(err))
		}
	}

	w, err := watcher.New(watcher.Options{
		Debounce: debounce,
		SkipDirs: scanner.DefaultExcludeDirs,
		Filter:   relevantChange(reportPath),
		Logger:   inv.logger,
	}, rescan)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if err := w.Add(inv.opts.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inv.opts.Root, err)
	}

	if !silent {
		fmt.Fprintf(errOut, "Watching %s for changes (Ctrl+C to stop)\n", inv.opts.Root)
	}
	return w.Run(ctx)
}

// relevantChange accepts files that can change a scan result: sources,
// env files, config files and the YAML/TOML/systemd declaration formats.
// The markdown report is never relevant, otherwise writing it would start
// another scan.
func relevantChange(reportPath string) func(string) bool {
	return func(path string) bool {
		if reportPath != "" && path == reportPath {
			return false
		}
		if languages.Detect(path) != languages.Unknown {
			return true
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".env") {
			return true
		}
		switch strings.ToLower(filepath.Ext(base)) {
		case ".yml", ".yaml", ".toml", ".service":
			return true
		}
		return false
	}
}
