package parser

import (
	"fmt"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/jenian/envguard/internal/languages"
)

// grammars maps each tree-sitter language to its grammar constructor
var grammars = map[languages.Language]func() unsafe.Pointer{
	languages.JavaScript: tree_sitter_javascript.Language,
	languages.TypeScript: tree_sitter_typescript.LanguageTypescript,
	languages.TSX:        tree_sitter_typescript.LanguageTSX,
	languages.Go:         tree_sitter_go.Language,
	languages.Python:     tree_sitter_python.Language,
	languages.Rust:       tree_sitter_rust.Language,
	languages.Java:       tree_sitter_java.Language,
}

// loadGrammar loads the tree-sitter grammar for the given language
func loadGrammar(lang languages.Language) (*sitter.Language, error) {
	load, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("no grammar for language: %s", lang)
	}
	ptr := load()
	if ptr == nil {
		return nil, fmt.Errorf("failed to load %s language grammar", lang)
	}
	return sitter.NewLanguage(ptr), nil
}
