package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/jenian/envguard/internal/languages"
)

// ErrPathNotFound is returned when the scan root does not exist
var ErrPathNotFound = errors.New("path not found")

// FileInfo contains information about a file to be scanned
type FileInfo struct {
	Path          string
	Language      languages.Language
	InIgnoredPath bool // True if this file is in a folder that should be ignored
}

// Scanner handles file discovery and filtering
type Scanner struct {
	excludeDirs  map[string]bool // Directory names to exclude (e.g., "node_modules")
	excludePaths []string        // Root-relative paths whose files are scanned but marked ignored
	excludeGlobs []glob.Glob
	includeGlobs []glob.Glob
	languages    map[languages.Language]bool
}

// DefaultExcludeDirs are directory names never descended into
var DefaultExcludeDirs = []string{
	"node_modules", "vendor", ".git", "build", "dist", "bin", "out",
	".next", ".cache", "__pycache__", ".venv", "venv", "target",
}

// NewScanner creates a new scanner with default exclusions that accepts
// every code language of the catalogue
func NewScanner() *Scanner {
	s := &Scanner{excludeDirs: make(map[string]bool, len(DefaultExcludeDirs))}
	for _, dir := range DefaultExcludeDirs {
		s.excludeDirs[dir] = true
	}
	s.SetLanguages(languages.CodeLanguages())
	return s
}

// SetLanguages restricts the scan to the given languages
func (s *Scanner) SetLanguages(langs []languages.Language) {
	s.languages = make(map[languages.Language]bool, len(langs))
	for _, lang := range langs {
		s.languages[lang] = true
	}
}

// SetExcludeGlobs sets glob patterns to exclude
func (s *Scanner) SetExcludeGlobs(patterns []string) error {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern: %w", err)
	}
	s.excludeGlobs = globs
	return nil
}

// SetIncludeGlobs sets glob patterns to include (overrides excludes)
func (s *Scanner) SetIncludeGlobs(patterns []string) error {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return fmt.Errorf("invalid include pattern: %w", err)
	}
	s.includeGlobs = globs
	return nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// AddExcludeDirs adds additional directories to exclude from scanning.
// Plain names (e.g., "config") skip the directory entirely; paths
// (e.g., "src/config") are still scanned but their files are marked as ignored.
func (s *Scanner) AddExcludeDirs(dirs []string) {
	for _, dir := range dirs {
		if strings.ContainsAny(dir, `/\`) {
			s.excludePaths = append(s.excludePaths, strings.TrimSuffix(filepath.ToSlash(dir), "/"))
		} else {
			s.excludeDirs[dir] = true
		}
	}
}

// isBinaryFile checks if a file is likely binary
func isBinaryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".pdf": true, ".zip": true, ".tar": true, ".gz": true,
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
		".ico": true, ".svg": true, ".mp4": true, ".mp3": true,
	}
	return binaryExts[ext]
}

// matchesGlob checks the root-relative path and the base name against globs
func matchesGlob(relPath string, globs []glob.Glob) bool {
	base := filepath.Base(relPath)
	for _, g := range globs {
		if g.Match(base) || g.Match(relPath) {
			return true
		}
	}
	return false
}

// shouldInclude checks if a file should be included based on include/exclude globs
func (s *Scanner) shouldInclude(relPath string) bool {
	if len(s.includeGlobs) > 0 {
		return matchesGlob(relPath, s.includeGlobs)
	}
	if len(s.excludeGlobs) > 0 {
		return !matchesGlob(relPath, s.excludeGlobs)
	}
	return true
}

// isInIgnoredPath checks if a root-relative path is within an ignored folder
func (s *Scanner) isInIgnoredPath(relPath string) bool {
	for _, excludePath := range s.excludePaths {
		prefix := strings.TrimSuffix(excludePath, "/*")
		if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return true
		}
	}
	return false
}

// Files lazily walks rootPath and yields the files to parse.
// A missing root yields a single ErrPathNotFound.
func (s *Scanner) Files(rootPath string) iter.Seq2[FileInfo, error] {
	return func(yield func(FileInfo, error) bool) {
		info, err := os.Stat(rootPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("%w: %s", ErrPathNotFound, rootPath)
			}
			yield(FileInfo{}, err)
			return
		}
		if !info.IsDir() {
			yield(FileInfo{}, fmt.Errorf("%w: %s is not a directory", ErrPathNotFound, rootPath))
			return
		}

		stopped := false
		walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != rootPath && s.excludeDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}

			if isBinaryFile(path) {
				return nil
			}

			relPath, err := filepath.Rel(rootPath, path)
			if err != nil {
				relPath = path
			}
			relPath = filepath.ToSlash(relPath)

			if !s.shouldInclude(relPath) {
				return nil
			}

			lang := languages.Detect(path)
			if !s.languages[lang] {
				return nil
			}

			if !yield(FileInfo{Path: path, Language: lang, InIgnoredPath: s.isInIgnoredPath(relPath)}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil && !stopped {
			yield(FileInfo{}, walkErr)
		}
	}
}

// Scan recursively walks a directory and returns all files to parse
func (s *Scanner) Scan(rootPath string) ([]FileInfo, error) {
	var files []FileInfo
	for file, err := range s.Files(rootPath) {
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
