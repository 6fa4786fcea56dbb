package languages

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jenian/envguard/internal/analyzer"
)

// Language is the tag used to pick an access-pattern catalogue entry
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Go         Language = "go"
	Python     Language = "python"
	Rust       Language = "rust"
	Java       Language = "java"
	Ruby       Language = "ruby"
	Workflow   Language = "workflow"
	Unknown    Language = "unknown"
)

// Accessor is an environment accessor symbol, e.g. process.env or os.getenv.
// Call is set for chained calls such as os.environ.get or Deno.env.get.
type Accessor struct {
	Receiver string
	Member   string
	Call     string
}

// Template is a line-oriented pattern with exactly one capture group holding
// the variable name
type Template struct {
	Pattern *regexp.Regexp
}

// Info describes how variable references are found for one language.
// Tree-sitter languages set Query and Accessors; the others set Templates.
type Info struct {
	Query     string
	Accessors []Accessor
	Templates []Template
	// InExpressions limits templates to ${{ ... }} expression bodies
	InExpressions bool
	Kind          analyzer.SourceKind
}

// UsesTreeSitter reports whether the language is matched on the syntax tree
func (i *Info) UsesTreeSitter() bool {
	return i.Query != ""
}

var catalogue = map[Language]*Info{
	JavaScript: {Query: JavaScriptQuery, Accessors: javaScriptAccessors, Kind: analyzer.SourceCode},
	TypeScript: {Query: JavaScriptQuery, Accessors: javaScriptAccessors, Kind: analyzer.SourceCode},
	TSX:        {Query: JavaScriptQuery, Accessors: javaScriptAccessors, Kind: analyzer.SourceCode},
	Go:         {Query: GoQuery, Accessors: goAccessors, Kind: analyzer.SourceCode},
	Python:     {Query: PythonQuery, Accessors: pythonAccessors, Kind: analyzer.SourceCode},
	Rust:       {Query: RustQuery, Accessors: rustAccessors, Kind: analyzer.SourceCode},
	Java:       {Query: JavaQuery, Accessors: javaAccessors, Kind: analyzer.SourceCode},
	Ruby:       {Templates: rubyTemplates, Kind: analyzer.SourceCode},
	Workflow:   {Templates: workflowTemplates, InExpressions: true, Kind: analyzer.SourceWorkflow},
}

// GetLanguageInfo returns the catalogue entry for a language, or nil
func GetLanguageInfo(lang Language) *Info {
	return catalogue[lang]
}

// CodeLanguages lists the source code languages the scanner picks up by default
func CodeLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX, Go, Python, Rust, Java, Ruby}
}

// Detect determines the language from the file extension.
// Workflow files are not detected here: they are tagged by the actions locator.
func Detect(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	case ".go":
		return Go
	case ".py":
		return Python
	case ".rs":
		return Rust
	case ".java":
		return Java
	case ".rb":
		return Ruby
	default:
		return Unknown
	}
}

// MatchCaptures turns the captures of one tree-sitter match into a variable
// name. It returns false when the accessor is not an environment accessor or
// the key is not a plain variable name.
func (i *Info) MatchCaptures(captures map[string]string) (string, bool) {
	key, ok := captures["key"]
	if !ok {
		return "", false
	}
	accessor := Accessor{
		Receiver: captures["recv"],
		Member:   captures["member"],
		Call:     captures["call"],
	}
	for _, known := range i.Accessors {
		if known == accessor {
			name := trimQuotes(key)
			if analyzer.IsVariableName(name) {
				return name, true
			}
			return "", false
		}
	}
	return "", false
}

// MatchLine applies every template to one line and returns the names found
func (i *Info) MatchLine(line string) []string {
	if !i.InExpressions {
		return matchTemplates(i.Templates, line)
	}
	var names []string
	for _, body := range ExpressionBodies(line) {
		names = append(names, matchTemplates(i.Templates, body)...)
	}
	return names
}

func matchTemplates(templates []Template, text string) []string {
	var names []string
	for _, tmpl := range templates {
		for _, m := range tmpl.Pattern.FindAllStringSubmatch(text, -1) {
			if len(m) == 2 && analyzer.IsVariableName(m[1]) {
				names = append(names, m[1])
			}
		}
	}
	return names
}

// trimQuotes removes surrounding quotes from a string literal
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '`' && s[len(s)-1] == '`') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
