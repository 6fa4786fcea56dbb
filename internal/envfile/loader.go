package envfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jenian/envguard/internal/analyzer"
)

// ErrDeclarationSourceNotFound is returned when an explicitly requested
// declaration source does not exist
var ErrDeclarationSourceNotFound = errors.New("declaration source not found")

// DefaultCandidates are the file names tried, in order, when no env file is given
var DefaultCandidates = []string{
	".env.example",
	".env.sample",
	".env.template",
	".env.defaults",
	".env",
}

// LoadResult holds the declarations read from env files
type LoadResult struct {
	Declarations []analyzer.Declaration
	// Sources are the files that were read, as displayed in reports
	Sources []string
	// Skipped counts malformed lines and unreadable documents
	Skipped int
}

// Loader handles finding and parsing environment files
type Loader struct {
	envFiles   []string
	candidates []string
	workDir    string
	logger     *slog.Logger
}

// NewLoader creates a new env file loader. Without explicit files it
// auto-detects one of DefaultCandidates.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		candidates: DefaultCandidates,
		logger:     logger,
	}
}

// SetEnvFiles sets the files to load, disabling auto-detection.
// Every file must exist.
func (l *Loader) SetEnvFiles(files []string) {
	l.envFiles = files
}

// SetWorkDir sets the fallback directory searched after the scan root.
// It defaults to the process working directory.
func (l *Loader) SetWorkDir(dir string) {
	l.workDir = dir
}

// Find returns the files Load would read for rootPath. An explicit file that
// does not exist yields ErrDeclarationSourceNotFound; a failed
// auto-detection yields no files and no error.
func (l *Loader) Find(rootPath string) ([]string, error) {
	if len(l.envFiles) > 0 {
		var files []string
		for _, envFile := range l.envFiles {
			path, err := resolveExplicit(envFile, rootPath)
			if err != nil {
				return nil, err
			}
			files = append(files, path)
		}
		return files, nil
	}

	dirs := []string{rootPath}
	workDir := l.workDir
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	if workDir != "" && !sameDir(workDir, rootPath) {
		dirs = append(dirs, workDir)
	}

	for _, dir := range dirs {
		for _, name := range l.candidates {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return []string{path}, nil
			}
		}
	}
	return nil, nil
}

// Load reads the env files for rootPath and returns their declarations.
// A name declared in several files keeps its first declaration.
func (l *Loader) Load(rootPath string) (*LoadResult, error) {
	files, err := l.Find(rootPath)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Declarations: []analyzer.Declaration{}}
	if len(files) == 0 {
		l.logger.Warn("no env file found", "root", rootPath, "candidates", l.candidates)
		return result, nil
	}

	seen := make(map[string]bool)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}

		source := displayPath(path, rootPath)
		parsed := parseEnvFile(source, content)
		for _, line := range parsed.malformed {
			l.logger.Warn("malformed declaration line", "file", source, "line", line)
		}
		l.logger.Debug("loaded env file", "file", source, "format", parsed.format, "declarations", len(parsed.declarations))

		result.Sources = append(result.Sources, source)
		result.Skipped += len(parsed.malformed)
		for _, decl := range parsed.declarations {
			if seen[decl.Name] {
				continue
			}
			seen[decl.Name] = true
			result.Declarations = append(result.Declarations, decl)
		}
	}

	return result, nil
}

// resolveExplicit finds a user supplied env file, first as given and then
// relative to the scan root
func resolveExplicit(envFile, rootPath string) (string, error) {
	candidates := []string{envFile}
	if !filepath.IsAbs(envFile) {
		candidates = append(candidates, filepath.Join(rootPath, envFile))
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDeclarationSourceNotFound, envFile)
}

// displayPath reports path relative to rootPath when it lives inside it
func displayPath(path, rootPath string) string {
	absRoot, err1 := filepath.Abs(rootPath)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func sameDir(a, b string) bool {
	absA, err1 := filepath.Abs(a)
	absB, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && absA == absB
}
