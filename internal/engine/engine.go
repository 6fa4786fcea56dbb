// Package engine runs one scan: locate sources, extract occurrences, load
// declarations and reconcile them. Every run builds its own components from
// Options, so runs share no state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jenian/envguard/internal/actions"
	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/envfile"
	"github.com/jenian/envguard/internal/parser"
	"github.com/jenian/envguard/internal/scanner"
)

// Mode selects which occurrences are compared with which declarations
type Mode string

const (
	// ModeCode compares code occurrences with env file declarations
	ModeCode Mode = "code"
	// ModeActions compares code and workflow occurrences with CI secrets
	ModeActions Mode = "actions"
	// ModeAll compares code and workflow occurrences with env file and CI
	// declarations taken as one set
	ModeAll Mode = "all"
)

// Options configures a run
type Options struct {
	Root     string
	Mode     Mode
	EnvFiles []string
	// WorkDir is searched for an env file after Root; empty means the
	// process working directory
	WorkDir string
	// WorkflowsDir defaults to .github/workflows under Root. When
	// WorkflowsDirExplicit is set a missing directory is an error.
	WorkflowsDir         string
	WorkflowsDirExplicit bool

	Include       []string
	Exclude       []string
	IgnoreFolders []string
	Ignores       analyzer.Ignores

	Workers     int
	MaxFileSize int64
}

// Diagnostics collects the per-item problems of a run. None of them stop it.
type Diagnostics struct {
	Skipped        []parser.SkippedFile `json:"skipped_files"`
	MalformedLines int                  `json:"malformed_lines"`
	Warnings       []string             `json:"warnings"`
}

// Outcome is everything a report needs about one run
type Outcome struct {
	Root          string          `json:"root"`
	Mode          Mode            `json:"mode"`
	Result        analyzer.Result `json:"result"`
	FilesScanned  int             `json:"files_scanned"`
	Declarations  int             `json:"declarations"` // Distinct declared names
	EnvFiles      []string        `json:"env_files"`
	WorkflowFiles []string        `json:"workflow_files"`
	Diagnostics   Diagnostics     `json:"diagnostics"`
}

// Run performs one scan. Setup failures (missing root, missing explicit
// declaration source, invalid globs) are returned as errors; everything
// else ends up in the Outcome.
func Run(ctx context.Context, opts Options, logger *slog.Logger) (*Outcome, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Mode == "" {
		opts.Mode = ModeCode
	}

	outcome := &Outcome{
		Root:          opts.Root,
		Mode:          opts.Mode,
		EnvFiles:      []string{},
		WorkflowFiles: []string{},
		Diagnostics: Diagnostics{
			Skipped:  []parser.SkippedFile{},
			Warnings: []string{},
		},
	}

	files, err := locateCode(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("located code files", "root", opts.Root, "count", len(files))

	var workflows []scanner.FileInfo
	if opts.Mode != ModeCode {
		workflows, err = actions.Locate(workflowsDir(opts), opts.WorkflowsDirExplicit)
		if err != nil {
			return nil, err
		}
		logger.Debug("located workflow files", "count", len(workflows))
	}

	declarations, err := loadDeclarations(opts, workflows, outcome, logger)
	if err != nil {
		return nil, err
	}

	unique := make(map[string]bool, len(declarations))
	for _, decl := range declarations {
		unique[decl.Name] = true
	}
	outcome.Declarations = len(unique)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := parser.NewParser(logger)
	defer p.Close()
	p.SetMaxFileSize(opts.MaxFileSize)

	batch := p.ParseAll(append(files, workflows...), opts.Root, opts.Workers)
	outcome.FilesScanned = len(files) + len(workflows) - len(batch.Skipped)
	outcome.Diagnostics.Skipped = append(outcome.Diagnostics.Skipped, batch.Skipped...)

	outcome.Result = analyzer.Reconcile(batch.Occurrences, declarations).ApplyIgnores(opts.Ignores)

	logger.Debug("scan complete",
		"occurrences", len(batch.Occurrences),
		"declarations", len(declarations),
		"missing", len(outcome.Result.Missing),
		"orphaned", len(outcome.Result.Orphaned),
	)
	return outcome, nil
}

// locateCode walks the root with a scanner configured from opts
func locateCode(ctx context.Context, opts Options) ([]scanner.FileInfo, error) {
	s := scanner.NewScanner()
	if err := s.SetIncludeGlobs(opts.Include); err != nil {
		return nil, err
	}
	if err := s.SetExcludeGlobs(opts.Exclude); err != nil {
		return nil, err
	}
	s.AddExcludeDirs(opts.IgnoreFolders)

	files := []scanner.FileInfo{}
	for file, err := range s.Files(opts.Root) {
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// loadDeclarations reads the declaration sources the mode compares against
func loadDeclarations(opts Options, workflows []scanner.FileInfo, outcome *Outcome, logger *slog.Logger) ([]analyzer.Declaration, error) {
	declarations := []analyzer.Declaration{}

	if opts.Mode == ModeCode || opts.Mode == ModeAll {
		loader := envfile.NewLoader(logger)
		loader.SetEnvFiles(opts.EnvFiles)
		if opts.WorkDir != "" {
			loader.SetWorkDir(opts.WorkDir)
		}
		loaded, err := loader.Load(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
		if len(loaded.Sources) == 0 {
			outcome.Diagnostics.Warnings = append(outcome.Diagnostics.Warnings, "no env file found")
		}
		outcome.EnvFiles = append(outcome.EnvFiles, loaded.Sources...)
		outcome.Diagnostics.MalformedLines += loaded.Skipped
		declarations = append(declarations, loaded.Declarations...)
	}

	if opts.Mode == ModeActions || opts.Mode == ModeAll {
		loaded, err := actions.LoadDeclarations(workflows, opts.Root, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow declarations: %w", err)
		}
		if len(loaded.Sources) == 0 {
			outcome.Diagnostics.Warnings = append(outcome.Diagnostics.Warnings, "no workflow files found")
		}
		outcome.WorkflowFiles = append(outcome.WorkflowFiles, loaded.Sources...)
		outcome.Diagnostics.MalformedLines += loaded.Skipped
		declarations = append(declarations, loaded.Declarations...)
	}

	return declarations, nil
}

func workflowsDir(opts Options) string {
	dir := opts.WorkflowsDir
	if dir == "" {
		dir = filepath.FromSlash(actions.DefaultDir)
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(opts.Root, dir)
}
