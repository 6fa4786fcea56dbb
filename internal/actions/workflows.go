// Package actions reads GitHub Actions workflow files. Their ${{ env.KEY }}
// references are usages handled by the parser; the names the CI system
// provides (secrets, vars and env: blocks) are declarations read here.
package actions

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/envfile"
	"github.com/jenian/envguard/internal/languages"
	"github.com/jenian/envguard/internal/scanner"
)

// DefaultDir is the workflows directory relative to the scan root
const DefaultDir = ".github/workflows"

// Locate lists the *.yml and *.yaml files directly inside dir, sorted by
// name. A missing directory is an empty result unless explicit is set, in
// which case it is envfile.ErrDeclarationSourceNotFound.
func Locate(dir string, explicit bool) ([]scanner.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return []scanner.FileInfo{}, nil
		}
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: workflows directory %s", envfile.ErrDeclarationSourceNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read workflows directory %s: %w", dir, err)
	}

	files := []scanner.FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		files = append(files, scanner.FileInfo{
			Path:     filepath.Join(dir, entry.Name()),
			Language: languages.Workflow,
		})
	}
	slices.SortFunc(files, func(a, b scanner.FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}

// LoadDeclarations reads the ci_secret declarations of the workflow files.
// A file whose YAML does not parse keeps its textual secrets./vars.
// references and is counted in Skipped. A name declared in several places
// keeps its first declaration in file then line order.
func LoadDeclarations(files []scanner.FileInfo, root string, logger *slog.Logger) (*envfile.LoadResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	result := &envfile.LoadResult{Declarations: []analyzer.Declaration{}}
	seen := make(map[string]bool)

	for _, file := range files {
		content, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow %s: %w", file.Path, err)
		}

		source := relativePath(file.Path, root)
		decls := expressionDeclarations(source, content)

		envKeys, err := envBlockDeclarations(source, content)
		if err != nil {
			logger.Warn("workflow is not valid YAML, using expression references only", "file", source, "error", err)
			result.Skipped++
		}
		decls = append(decls, envKeys...)

		slices.SortStableFunc(decls, func(a, b analyzer.Declaration) int {
			return a.Line - b.Line
		})

		result.Sources = append(result.Sources, source)
		for _, decl := range decls {
			if seen[decl.Name] {
				continue
			}
			seen[decl.Name] = true
			result.Declarations = append(result.Declarations, decl)
		}
		logger.Debug("loaded workflow", "file", source, "declarations", len(decls))
	}

	return result, nil
}

// expressionDeclarations finds secrets.KEY and vars.KEY inside ${{ }} expressions
func expressionDeclarations(source string, content []byte) []analyzer.Declaration {
	var decls []analyzer.Declaration
	for i, line := range strings.Split(string(content), "\n") {
		for _, body := range languages.ExpressionBodies(line) {
			for _, pattern := range []*regexp.Regexp{languages.SecretPattern, languages.VarsPattern} {
				for _, m := range pattern.FindAllStringSubmatch(body, -1) {
					decls = append(decls, declaration(m[1], source, i+1))
				}
			}
		}
	}
	return decls
}

// envBlockDeclarations finds the keys of every env: mapping, at workflow,
// job or step level
func envBlockDeclarations(source string, content []byte) ([]analyzer.Declaration, error) {
	var doc yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	if err := decoder.Decode(&doc); err != nil {
		if len(bytes.TrimSpace(content)) == 0 {
			return nil, nil
		}
		return nil, err
	}

	var decls []analyzer.Declaration
	var walk func(node *yaml.Node)
	walk = func(node *yaml.Node) {
		if node.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(node.Content); i += 2 {
				key, value := node.Content[i], node.Content[i+1]
				if key.Value == "env" && value.Kind == yaml.MappingNode {
					for j := 0; j+1 < len(value.Content); j += 2 {
						name := value.Content[j]
						if analyzer.IsVariableName(name.Value) {
							decls = append(decls, declaration(name.Value, source, name.Line))
						}
					}
				}
			}
		}
		for _, child := range node.Content {
			walk(child)
		}
	}
	walk(&doc)
	return decls, nil
}

func declaration(name, source string, line int) analyzer.Declaration {
	return analyzer.Declaration{
		Name:       name,
		DeclaredIn: source,
		Line:       line,
		Kind:       analyzer.DeclCISecret,
	}
}

func relativePath(path, root string) string {
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
