package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/languages"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrSkipped marks a file that could not be treated as source text.
// It is a per-file condition and never aborts a scan.
var ErrSkipped = errors.New("file skipped")

// DefaultMaxFileSize is the size above which files are skipped
const DefaultMaxFileSize int64 = 1 << 20

// binarySniffLen is how many leading bytes are checked for NUL bytes
const binarySniffLen = 8000

// compiledQuery is a grammar with its compiled query. Queries are immutable
// once created and can be shared by cursors on different goroutines.
type compiledQuery struct {
	language *sitter.Language
	query    *sitter.Query
}

// Parser extracts environment variable occurrences from source files
type Parser struct {
	mu          sync.RWMutex
	compiled    map[languages.Language]*compiledQuery
	maxFileSize int64
	logger      *slog.Logger
}

// NewParser creates a new parser instance
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{
		compiled:    make(map[languages.Language]*compiledQuery),
		maxFileSize: DefaultMaxFileSize,
		logger:      logger,
	}
}

// SetMaxFileSize sets the size cap; zero or less restores the default
func (p *Parser) SetMaxFileSize(size int64) {
	if size <= 0 {
		size = DefaultMaxFileSize
	}
	p.maxFileSize = size
}

// Close releases the compiled queries
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for lang, cq := range p.compiled {
		cq.query.Close()
		delete(p.compiled, lang)
	}
}

// getQuery returns the compiled query for a language, compiling it on first use
func (p *Parser) getQuery(lang languages.Language, info *languages.Info) (*compiledQuery, error) {
	p.mu.RLock()
	if cq, ok := p.compiled[lang]; ok {
		p.mu.RUnlock()
		return cq, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if cq, ok := p.compiled[lang]; ok {
		return cq, nil
	}

	language, err := loadGrammar(lang)
	if err != nil {
		return nil, err
	}
	query, queryErr := sitter.NewQuery(language, strings.TrimSpace(info.Query))
	if queryErr != nil {
		return nil, fmt.Errorf("invalid %s query: %s", lang, queryErr.Message)
	}

	cq := &compiledQuery{language: language, query: query}
	p.compiled[lang] = cq
	return cq, nil
}

// ParseFile reads a file and extracts its environment variable occurrences.
// scanRoot is used to report paths relative to the scanned directory.
func (p *Parser) ParseFile(filePath string, lang languages.Language, scanRoot string) ([]analyzer.Occurrence, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}
	if info.Size() > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrSkipped, info.Size(), p.maxFileSize)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.ParseContent(relativePath(filePath, scanRoot), content, lang)
}

// ParseContent extracts occurrences from content already in memory.
// Unsupported languages yield no occurrences; binary content yields ErrSkipped.
func (p *Parser) ParseContent(path string, content []byte, lang languages.Language) ([]analyzer.Occurrence, error) {
	info := languages.GetLanguageInfo(lang)
	if info == nil {
		return []analyzer.Occurrence{}, nil
	}

	sniff := content[:min(len(content), binarySniffLen)]
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content", ErrSkipped)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrSkipped)
	}

	var found []match
	if info.UsesTreeSitter() {
		matches, err := p.matchTree(lang, info, content)
		if err != nil {
			return nil, err
		}
		found = matches
	} else {
		found = matchTemplates(info, content)
	}

	lines := strings.Split(string(content), "\n")
	occurrences := make([]analyzer.Occurrence, 0, len(found))
	seen := make(map[string]bool)
	for _, m := range found {
		usageKey := fmt.Sprintf("%s:%d", m.name, m.line)
		if seen[usageKey] {
			continue
		}
		seen[usageKey] = true

		snippet := ""
		if m.line-1 < len(lines) {
			snippet = strings.TrimSpace(lines[m.line-1])
		}
		p.logger.Debug("match", "file", path, "line", m.line, "name", m.name)

		occurrences = append(occurrences, analyzer.Occurrence{
			Name:    m.name,
			File:    path,
			Line:    m.line,
			Kind:    info.Kind,
			Snippet: snippet,
		})
	}

	return occurrences, nil
}

// match is a variable name found at a 1-indexed line
type match struct {
	name string
	line int
}

// matchTree runs the language query over the syntax tree
func (p *Parser) matchTree(lang languages.Language, info *languages.Info, content []byte) ([]match, error) {
	cq, err := p.getQuery(lang, info)
	if err != nil {
		return nil, err
	}

	// Tree-sitter parsers are not safe for concurrent use, so each file gets its own
	tsParser := sitter.NewParser()
	defer tsParser.Close()
	if err := tsParser.SetLanguage(cq.language); err != nil {
		return nil, fmt.Errorf("failed to set %s grammar: %w", lang, err)
	}

	tree := tsParser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s parser returned no tree", ErrSkipped, lang)
	}
	defer tree.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := cq.query.CaptureNames()
	matches := cursor.Matches(cq.query, tree.RootNode(), content)

	var found []match
	for {
		qm := matches.Next()
		if qm == nil {
			break
		}

		// The match starts at its earliest capture (the accessor receiver)
		captures := make(map[string]string, len(qm.Captures))
		startLine := 0
		for _, capture := range qm.Captures {
			if int(capture.Index) >= len(captureNames) {
				continue
			}
			node := capture.Node
			captures[captureNames[capture.Index]] = string(content[node.StartByte():node.EndByte()])
			if row := int(node.StartPosition().Row) + 1; startLine == 0 || row < startLine {
				startLine = row
			}
		}

		if varName, ok := info.MatchCaptures(captures); ok {
			found = append(found, match{name: varName, line: startLine})
		}
	}

	return found, nil
}

// matchTemplates applies the line-oriented templates of a language
func matchTemplates(info *languages.Info, content []byte) []match {
	var found []match
	for i, line := range strings.Split(string(content), "\n") {
		for _, name := range info.MatchLine(strings.TrimSuffix(line, "\r")) {
			found = append(found, match{name: name, line: i + 1})
		}
	}
	return found
}

// relativePath returns filePath relative to scanRoot with forward slashes,
// or filePath itself when that is not possible
func relativePath(filePath, scanRoot string) string {
	if scanRoot == "" {
		return filepath.ToSlash(filePath)
	}
	absScanRoot, err1 := filepath.Abs(scanRoot)
	absFilePath, err2 := filepath.Abs(filePath)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(filePath)
	}
	rel, err := filepath.Rel(absScanRoot, absFilePath)
	if err != nil || rel == "" {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}
