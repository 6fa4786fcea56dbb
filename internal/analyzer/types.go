package analyzer

import "regexp"

// SourceKind tells where an occurrence was found
type SourceKind string

const (
	SourceCode     SourceKind = "code"
	SourceWorkflow SourceKind = "workflow"
)

// DeclarationKind tells which kind of source declared a variable
type DeclarationKind string

const (
	DeclEnvFile  DeclarationKind = "env_file"
	DeclCISecret DeclarationKind = "ci_secret"
)

var variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsVariableName reports whether s is a valid environment variable name
// (letters, digits and underscore, not starting with a digit)
func IsVariableName(s string) bool {
	return variableNamePattern.MatchString(s)
}

// Occurrence is a single textual reference to an environment variable
type Occurrence struct {
	Name          string     `json:"name"`
	File          string     `json:"file"` // Relative to the scan root
	Line          int        `json:"line"` // 1-indexed
	Kind          SourceKind `json:"kind"`
	Snippet       string     `json:"snippet,omitempty"`
	InIgnoredPath bool       `json:"-"` // True if the file lives in an ignored folder
}

// Declaration records that a variable exists in a declaration source
type Declaration struct {
	Name       string          `json:"name"`
	DeclaredIn string          `json:"declared_in"`
	Line       int             `json:"line,omitempty"`
	Kind       DeclarationKind `json:"kind"`
}

// MissingVar is a variable used but not declared, with every call site
type MissingVar struct {
	Name        string       `json:"name"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Result is the outcome of one reconciliation.
// Missing, Orphaned and Defined are sorted by variable name and are
// mutually exclusive.
type Result struct {
	Missing  []MissingVar  `json:"missing"`
	Orphaned []Declaration `json:"orphaned"`
	Defined  []string      `json:"defined"`

	IgnoredMissing     int `json:"ignored_missing"`      // Missing names silenced via config
	IgnoredOrphaned    int `json:"ignored_orphaned"`     // Orphaned names silenced via config
	IgnoredFromFolders int `json:"ignored_from_folders"` // Missing names only used in ignored folders
}

// Ignores lists variable names that should not be reported
type Ignores struct {
	Missing  []string
	Orphaned []string
}
