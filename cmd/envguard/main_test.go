package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jenian/envguard/internal/config"
	"github.com/jenian/envguard/internal/output"
	"github.com/jenian/envguard/internal/scanner"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"issues", &exitError{code: output.ExitIssues}, output.ExitIssues},
		{"missing root", fmt.Errorf("failed to scan directory: %w", scanner.ErrPathNotFound), output.ExitFatal},
		{"bad config", fmt.Errorf("%w: bad", config.ErrInvalidConfig), output.ExitFatal},
		{"other", errors.New("unknown flag: --nope"), output.ExitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRelevantChange(t *testing.T) {
	report := filepath.Join("repo", "out", "report.md")
	relevant := relevantChange(report)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join("repo", "app.js"), true},
		{filepath.Join("repo", "svc", "main.go"), true},
		{filepath.Join("repo", ".env.example"), true},
		{filepath.Join("repo", ".envguard.yml"), true},
		{filepath.Join("repo", ".github", "workflows", "ci.yml"), true},
		{filepath.Join("repo", "deploy", "app.service"), true},
		{filepath.Join("repo", "README.md"), false},
		{filepath.Join("repo", "notes.txt"), false},
		{report, false},
	}

	for _, tt := range tests {
		if got := relevant(tt.path); got != tt.want {
			t.Errorf("relevantChange(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
