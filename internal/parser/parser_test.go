package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/languages"
	"github.com/jenian/envguard/internal/scanner"
)

// parseSource writes code to a temp file and parses it
func parseSource(t *testing.T, fileName, code string, lang languages.Language) []analyzer.Occurrence {
	t.Helper()
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, fileName)
	if err := os.WriteFile(filePath, []byte(code), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	p := NewParser(nil)
	defer p.Close()
	occurrences, err := p.ParseFile(filePath, lang, tmpDir)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return occurrences
}

func occurrenceNames(occurrences []analyzer.Occurrence) []string {
	var out []string
	for _, occ := range occurrences {
		out = append(out, occ.Name)
	}
	sort.Strings(out)
	return out
}

func expectNames(t *testing.T, occurrences []analyzer.Occurrence, expected ...string) {
	t.Helper()
	sort.Strings(expected)
	if got := occurrenceNames(occurrences); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected names %v, got %v", expected, got)
	}
}

func TestParser_JavaScript(t *testing.T) {
	code := `
const apiKey = process.env.API_KEY;
const dbUrl = process.env["DATABASE_URL"];
const secret = process.env['SECRET_KEY'];
const token = Deno.env.get("DENO_TOKEN");
const bun = Bun.env.BUN_PORT;
const other = config.env.NOT_ENV;
const dynamic = process.env[name];
`
	expectNames(t, parseSource(t, "test.js", code, languages.JavaScript),
		"API_KEY", "DATABASE_URL", "SECRET_KEY", "DENO_TOKEN", "BUN_PORT")
}

func TestParser_TypeScript(t *testing.T) {
	code := `
const apiKey: string = process.env.API_KEY || "";
const port = Number(process.env["PORT"]);
export const url = process.env.SERVICE_URL!;
`
	expectNames(t, parseSource(t, "test.ts", code, languages.TypeScript),
		"API_KEY", "PORT", "SERVICE_URL")
}

func TestParser_TSX(t *testing.T) {
	code := `import React from "react";

export const App = () => <div title={process.env.TITLE}>{process.env.TSX_KEY}</div>;
const after = process.env.AFTER_JSX;
`
	expectNames(t, parseSource(t, "App.tsx", code, languages.TSX),
		"TITLE", "TSX_KEY", "AFTER_JSX")
}

func TestParser_JavaScriptTemplateKeys(t *testing.T) {
	code := "const a = process.env[`TPL_KEY`];\n" +
		"const b = Deno.env.get(`DENO_TPL`);\n" +
		"const c = process.env[`${prefix}_KEY`];\n"
	expectNames(t, parseSource(t, "tpl.js", code, languages.JavaScript), "TPL_KEY", "DENO_TPL")
}

func TestParser_Go(t *testing.T) {
	code := "package main\n\nimport \"os\"\n\nfunc main() {\n" +
		"\tapiKey := os.Getenv(\"API_KEY\")\n" +
		"\tdbURL, ok := os.LookupEnv(`DATABASE_URL`)\n" +
		"\tname := strings.ToUpper(\"not_env\")\n" +
		"\tdyn := os.Getenv(prefix + \"_KEY\")\n" +
		"\t_ = apiKey; _ = dbURL; _ = ok; _ = name; _ = dyn\n}\n"
	expectNames(t, parseSource(t, "main.go", code, languages.Go), "API_KEY", "DATABASE_URL")
}

func TestParser_Python(t *testing.T) {
	code := `
import os

api_key = os.environ["API_KEY"]
db_url = os.getenv("DATABASE_URL", "sqlite://")
secret = os.environ.get('SECRET_KEY')
debug = os.environ.get("DEBUG", "false")
dynamic = os.getenv(name)
`
	expectNames(t, parseSource(t, "app.py", code, languages.Python),
		"API_KEY", "DATABASE_URL", "SECRET_KEY", "DEBUG")
}

func TestParser_Rust(t *testing.T) {
	code := `
use std::env;

fn main() {
    let key = env::var("API_KEY").unwrap();
    let url = std::env::var("DATABASE_URL").unwrap_or_default();
    let os = env::var_os("HOME_DIR");
    let other = fs::read("config.toml");
}
`
	expectNames(t, parseSource(t, "main.rs", code, languages.Rust), "API_KEY", "DATABASE_URL", "HOME_DIR")
}

func TestParser_Java(t *testing.T) {
	code := `
public class App {
    public static void main(String[] args) {
        String key = System.getenv("API_KEY");
        String url = System.getenv().get("DATABASE_URL");
        String port = System.getenv().getOrDefault("PORT", "8080");
        String prop = System.getProperty("user.home");
    }
}
`
	expectNames(t, parseSource(t, "App.java", code, languages.Java), "API_KEY", "DATABASE_URL", "PORT")
}

func TestParser_Ruby(t *testing.T) {
	code := "key = ENV['API_KEY']\nurl = ENV.fetch(\"DATABASE_URL\")\n"
	occurrences := parseSource(t, "app.rb", code, languages.Ruby)
	expectNames(t, occurrences, "API_KEY", "DATABASE_URL")
	for _, occ := range occurrences {
		if occ.Kind != analyzer.SourceCode {
			t.Errorf("Expected code kind, got %v", occ.Kind)
		}
	}
}

func TestParser_Workflow(t *testing.T) {
	code := `name: CD
on: [push]
jobs:
  deploy:
    runs-on: ubuntu-latest
    steps:
      - name: Deploy
        run: ./deploy.sh
        env:
          AWS_REGION: ${{ env.AWS_REGION }}
          S3_BUCKET_NAME: ${{env.S3_BUCKET_NAME}}
          TOKEN: ${{ secrets.DEPLOY_TOKEN }}
`
	occurrences := parseSource(t, "cd.yml", code, languages.Workflow)
	expectNames(t, occurrences, "AWS_REGION", "S3_BUCKET_NAME")

	lines := map[string]int{}
	for _, occ := range occurrences {
		lines[occ.Name] = occ.Line
		if occ.Kind != analyzer.SourceWorkflow {
			t.Errorf("Expected workflow kind, got %v", occ.Kind)
		}
	}
	if lines["AWS_REGION"] != 10 || lines["S3_BUCKET_NAME"] != 11 {
		t.Errorf("Unexpected line numbers: %v", lines)
	}
}

func TestParser_LineNumbers(t *testing.T) {
	code := `// line 1
const a = process.env.FIRST;

const b = process.env.SECOND;
const c = process.env.FIRST;
`
	occurrences := parseSource(t, "lines.js", code, languages.JavaScript)

	var got []string
	for _, occ := range occurrences {
		got = append(got, fmt.Sprintf("%s:%d", occ.Name, occ.Line))
	}
	sort.Strings(got)
	want := []string{"FIRST:2", "FIRST:5", "SECOND:4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParser_MultiLineCallReportsStartLine(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		code     string
		lang     languages.Language
		want     string
	}{
		{"python call", "multi.py", "import os\nvalue = os.getenv(\n    \"MULTI\"\n)\n", languages.Python, "MULTI:2"},
		{"javascript chain", "multi.js", "// start\nconst a = process\n  .env\n  .SPLIT;\n", languages.JavaScript, "SPLIT:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occurrences := parseSource(t, tt.fileName, tt.code, tt.lang)
			if len(occurrences) != 1 {
				t.Fatalf("Expected 1 occurrence, got %d", len(occurrences))
			}
			if got := fmt.Sprintf("%s:%d", occurrences[0].Name, occurrences[0].Line); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParser_CodeSnippets(t *testing.T) {
	code := "import os\n\ndef load():\n    value = os.getenv(\"SNIPPET_KEY\")   \n    return value\n"
	occurrences := parseSource(t, "snip.py", code, languages.Python)
	if len(occurrences) != 1 {
		t.Fatalf("Expected 1 occurrence, got %d", len(occurrences))
	}
	if occurrences[0].Snippet != `value = os.getenv("SNIPPET_KEY")` {
		t.Errorf("Unexpected snippet %q", occurrences[0].Snippet)
	}
}

func TestParser_RelativePaths(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "src", "lib")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(subDir, "conf.js")
	if err := os.WriteFile(filePath, []byte("process.env.REL_KEY"), 0644); err != nil {
		t.Fatal(err)
	}

	occurrences, err := NewParser(nil).ParseFile(filePath, languages.JavaScript, tmpDir)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(occurrences) != 1 || occurrences[0].File != "src/lib/conf.js" {
		t.Errorf("Expected relative path src/lib/conf.js, got %+v", occurrences)
	}
}

func TestParser_UnsupportedLanguage(t *testing.T) {
	occurrences, err := NewParser(nil).ParseContent("notes.txt", []byte(`process.env.API_KEY`), languages.Unknown)
	if err != nil {
		t.Fatalf("Unsupported language should not be an error: %v", err)
	}
	if len(occurrences) != 0 {
		t.Errorf("Expected no occurrences, got %d", len(occurrences))
	}
}

func TestParser_BinaryContent(t *testing.T) {
	content := []byte("process.env.API_KEY\x00\x01\x02")
	_, err := NewParser(nil).ParseContent("blob.js", content, languages.JavaScript)
	if !errors.Is(err, ErrSkipped) {
		t.Errorf("Expected ErrSkipped for binary content, got %v", err)
	}

	_, err = NewParser(nil).ParseContent("latin1.rb", []byte("ENV['K'] \xff\xfe"), languages.Ruby)
	if !errors.Is(err, ErrSkipped) {
		t.Errorf("Expected ErrSkipped for invalid UTF-8, got %v", err)
	}
}

func TestParser_MaxFileSize(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "big.js")
	content := "const a = process.env.BIG_KEY;\n" + strings.Repeat("// padding\n", 100)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewParser(nil)
	p.SetMaxFileSize(64)
	_, err := p.ParseFile(filePath, languages.JavaScript, tmpDir)
	if !errors.Is(err, ErrSkipped) {
		t.Errorf("Expected ErrSkipped for oversized file, got %v", err)
	}
}

func TestParser_ParseAll(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	files := []scanner.FileInfo{
		{Path: write("b.js", "process.env.SHARED\nprocess.env.B_ONLY"), Language: languages.JavaScript},
		{Path: write("a.py", "import os\nos.getenv('SHARED')"), Language: languages.Python},
		{Path: write("blob.rb", "ENV['X']\x00"), Language: languages.Ruby},
		{Path: write("ops/tool.go", "package ops\nvar _ = os.Getenv(\"OPS_ONLY\")"), Language: languages.Go, InIgnoredPath: true},
	}

	p := NewParser(nil)
	defer p.Close()
	batch := p.ParseAll(files, tmpDir, 2)

	var got []string
	for _, occ := range batch.Occurrences {
		got = append(got, occ.File+":"+occ.Name)
	}
	want := []string{"a.py:SHARED", "b.js:SHARED", "b.js:B_ONLY", "ops/tool.go:OPS_ONLY"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected sorted occurrences %v, got %v", want, got)
	}

	for _, occ := range batch.Occurrences {
		if occ.InIgnoredPath != (occ.File == "ops/tool.go") {
			t.Errorf("Unexpected InIgnoredPath=%v for %s", occ.InIgnoredPath, occ.File)
		}
	}

	if len(batch.Skipped) != 1 || batch.Skipped[0].Path != "blob.rb" {
		t.Errorf("Expected blob.rb to be skipped, got %+v", batch.Skipped)
	}
}
