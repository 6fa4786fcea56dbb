package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenian/envguard/internal/analyzer"
	"github.com/jenian/envguard/internal/envfile"
	"github.com/jenian/envguard/internal/scanner"
)

// repo writes files under a fresh root and returns it
func repo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func run(t *testing.T, opts Options) *Outcome {
	t.Helper()
	if opts.WorkDir == "" {
		opts.WorkDir = t.TempDir()
	}
	outcome, err := Run(context.Background(), opts, nil)
	require.NoError(t, err)
	return outcome
}

func missingNames(r analyzer.Result) []string {
	names := []string{}
	for _, m := range r.Missing {
		names = append(names, m.Name)
	}
	return names
}

func orphanNames(r analyzer.Result) []string {
	names := []string{}
	for _, d := range r.Orphaned {
		names = append(names, d.Name)
	}
	return names
}

func TestRun_CodeMode(t *testing.T) {
	root := repo(t, map[string]string{
		"payment.js":   "const key = process.env.STRIPE_KEY;\nconst url = process.env.API_URL;\n",
		"app/main.py":  "import os\nos.getenv('API_URL')\n",
		".env.example": "API_URL=\nOLD_WEBHOOK_URL=\n",
	})

	outcome := run(t, Options{Root: root})

	assert.Equal(t, []string{"STRIPE_KEY"}, missingNames(outcome.Result))
	assert.Equal(t, []string{"OLD_WEBHOOK_URL"}, orphanNames(outcome.Result))
	assert.Equal(t, []string{"API_URL"}, outcome.Result.Defined)
	assert.Equal(t, []string{".env.example"}, outcome.EnvFiles)
	assert.Equal(t, 2, outcome.FilesScanned)

	stripe := outcome.Result.Missing[0].Occurrences
	require.Len(t, stripe, 1)
	assert.Equal(t, "payment.js", stripe[0].File)
	assert.Equal(t, 1, stripe[0].Line)
}

func TestRun_EmptyRootReportsEveryDeclarationOrphaned(t *testing.T) {
	root := repo(t, map[string]string{".env.example": "A=1\nB=2\n"})

	outcome := run(t, Options{Root: root})

	assert.Empty(t, outcome.Result.Missing)
	assert.Equal(t, []string{"A", "B"}, orphanNames(outcome.Result))
	assert.Zero(t, outcome.FilesScanned)
}

func TestRun_UnsupportedExtensionIgnored(t *testing.T) {
	root := repo(t, map[string]string{
		"notes.txt": "process.env.API_KEY\nos.getenv('API_KEY')\n",
	})

	outcome := run(t, Options{Root: root})

	assert.Empty(t, outcome.Result.Missing)
	assert.Zero(t, outcome.FilesScanned)
	assert.Contains(t, outcome.Diagnostics.Warnings, "no env file found")
}

func TestRun_ActionsMode(t *testing.T) {
	root := repo(t, map[string]string{
		"deploy.go": "package main\n\nimport \"os\"\n\nvar token = os.Getenv(\"DEPLOY_TOKEN\")\nvar region = os.Getenv(\"AWS_REGION\")\n",
		".github/workflows/cd.yml": "jobs:\n  deploy:\n    steps:\n      - run: ./deploy ${{ env.BUCKET }}\n        env:\n          DEPLOY_TOKEN: ${{ secrets.DEPLOY_TOKEN }}\n          UNUSED: x\n",
		".env.example":             "AWS_REGION=\n",
	})

	outcome := run(t, Options{Root: root, Mode: ModeActions})

	assert.Equal(t, []string{"AWS_REGION", "BUCKET"}, missingNames(outcome.Result))
	assert.Equal(t, []string{"UNUSED"}, orphanNames(outcome.Result))
	assert.Equal(t, []string{"DEPLOY_TOKEN"}, outcome.Result.Defined)
	assert.Empty(t, outcome.EnvFiles)
	assert.Equal(t, []string{".github/workflows/cd.yml"}, outcome.WorkflowFiles)

	bucket := outcome.Result.Missing[1].Occurrences
	require.Len(t, bucket, 1)
	assert.Equal(t, analyzer.SourceWorkflow, bucket[0].Kind)
	assert.Equal(t, 4, bucket[0].Line)
}

func TestRun_AllModeUsesOneDeclarationSet(t *testing.T) {
	root := repo(t, map[string]string{
		"deploy.go":                "package main\n\nimport \"os\"\n\nvar a = os.Getenv(\"FROM_ENV\")\nvar b = os.Getenv(\"FROM_CI\")\n",
		".github/workflows/ci.yml": "env:\n  FROM_CI: ${{ secrets.FROM_CI }}\n",
		".env.example":             "FROM_ENV=\nFROM_CI=\n",
	})

	outcome := run(t, Options{Root: root, Mode: ModeAll})

	assert.Empty(t, outcome.Result.Missing)
	assert.Empty(t, outcome.Result.Orphaned)
	assert.Equal(t, []string{"FROM_CI", "FROM_ENV"}, outcome.Result.Defined)
	assert.Equal(t, []string{".env.example"}, outcome.EnvFiles)
	assert.Equal(t, []string{".github/workflows/ci.yml"}, outcome.WorkflowFiles)
}

func TestRun_CodeModeIgnoresWorkflows(t *testing.T) {
	root := repo(t, map[string]string{
		".github/workflows/ci.yml": "run: echo ${{ env.ONLY_IN_CI }}\n",
		".env.example":             "",
	})

	outcome := run(t, Options{Root: root})
	assert.Empty(t, outcome.Result.Missing)
	assert.Empty(t, outcome.WorkflowFiles)
}

func TestRun_Ignores(t *testing.T) {
	root := repo(t, map[string]string{
		"src/app.js":      "process.env.HOME\nprocess.env.SHARED\n",
		"tools/dev/x.js":  "process.env.DEV_ONLY\nprocess.env.SHARED\n",
		"scripts/seed.js": "process.env.SEED_ONLY\n",
		".env.example":    "LEGACY=\n",
	})

	outcome := run(t, Options{
		Root:          root,
		IgnoreFolders: []string{"scripts", "tools/dev"},
		Ignores:       analyzer.Ignores{Missing: []string{"HOME"}, Orphaned: []string{"LEGACY"}},
	})

	assert.Equal(t, []string{"SHARED"}, missingNames(outcome.Result))
	assert.Len(t, outcome.Result.Missing[0].Occurrences, 1)
	assert.Empty(t, outcome.Result.Orphaned)
	assert.Equal(t, 1, outcome.Result.IgnoredMissing)
	assert.Equal(t, 1, outcome.Result.IgnoredOrphaned)
	assert.Equal(t, 1, outcome.Result.IgnoredFromFolders)
}

func TestRun_Diagnostics(t *testing.T) {
	root := repo(t, map[string]string{
		"blob.js":      "process.env.X\x00",
		"ok.js":        "process.env.Y\n",
		".env.example": "Y=\nnot valid\n",
	})

	outcome := run(t, Options{Root: root})

	require.Len(t, outcome.Diagnostics.Skipped, 1)
	assert.Equal(t, "blob.js", outcome.Diagnostics.Skipped[0].Path)
	assert.Equal(t, 1, outcome.Diagnostics.MalformedLines)
	assert.Equal(t, 1, outcome.FilesScanned)
	assert.Empty(t, outcome.Result.Missing)
}

func TestRun_SetupErrors(t *testing.T) {
	root := repo(t, map[string]string{"app.js": "process.env.A\n"})

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{name: "missing root", opts: Options{Root: filepath.Join(root, "nope")}, want: scanner.ErrPathNotFound},
		{name: "missing env file", opts: Options{Root: root, EnvFiles: []string{"missing.env"}}, want: envfile.ErrDeclarationSourceNotFound},
		{
			name: "missing explicit workflows dir",
			opts: Options{Root: root, Mode: ModeActions, WorkflowsDir: "ci", WorkflowsDirExplicit: true},
			want: envfile.ErrDeclarationSourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.opts, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Run(context.Background(), Options{Root: root, Exclude: []string{"[bad"}}, nil)
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	root := repo(t, map[string]string{"app.js": "process.env.A\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Root: root}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
