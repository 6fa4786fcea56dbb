package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jenian/envguard/internal/analyzer"
)

// ErrInvalidConfig is returned when a config file cannot be parsed or fails validation
var ErrInvalidConfig = errors.New("invalid config")

// FileNames are the config files looked up in the scan root, in order
var FileNames = []string{".envguard.yml", ".envguard.yaml", ".envguard.toml"}

// Config represents the envguard configuration file
type Config struct {
	EnvFile      string        `yaml:"env_file" toml:"env_file"`
	WorkflowsDir string        `yaml:"workflows_dir" toml:"workflows_dir"`
	Strict       bool          `yaml:"strict" toml:"strict"`
	Workers      int           `yaml:"workers" toml:"workers" validate:"gte=0,lte=256"`
	MaxFileSize  int64         `yaml:"max_file_size" toml:"max_file_size" validate:"gte=0"`
	Include      []string      `yaml:"include" toml:"include" validate:"dive,required"`
	Exclude      []string      `yaml:"exclude" toml:"exclude" validate:"dive,required"`
	Ignores      IgnoresConfig `yaml:"ignores" toml:"ignores"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-" toml:"-"`
}

// IgnoresConfig contains ignore rules for environment variables
type IgnoresConfig struct {
	Missing  []string `yaml:"missing" toml:"missing" validate:"dive,varname"`   // Variables to ignore when reporting as missing
	Orphaned []string `yaml:"orphaned" toml:"orphaned" validate:"dive,varname"` // Variables to ignore when reporting as orphaned
	Folders  []string `yaml:"folders" toml:"folders" validate:"dive,required"`  // Folders to ignore when scanning (e.g., config directories)
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		Include: []string{},
		Exclude: []string{},
		Ignores: IgnoresConfig{
			Missing:  []string{},
			Orphaned: []string{},
			Folders:  []string{},
		},
	}
}

// Find returns the path of the first config file present in rootPath, or ""
func Find(rootPath string) string {
	for _, name := range FileNames {
		path := filepath.Join(rootPath, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadConfig loads the config file from the specified directory.
// A directory without a config file yields Default().
func LoadConfig(rootPath string) (*Config, error) {
	path := Find(rootPath)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads, decodes and validates one config file. The format follows
// the extension: .toml is TOML, anything else YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s: unknown key %q", ErrInvalidConfig, path, undecoded[0].String())
		}
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return analyzer.IsVariableName(fl.Field().String())
	})
	return v
}

// Validate checks field ranges and ignore list entries
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ShouldIgnoreMissing checks if a variable should be ignored when reporting as missing
func (c *Config) ShouldIgnoreMissing(varName string) bool {
	return slices.Contains(c.Ignores.Missing, varName)
}

// ShouldIgnoreOrphaned checks if a variable should be ignored when reporting as orphaned
func (c *Config) ShouldIgnoreOrphaned(varName string) bool {
	return slices.Contains(c.Ignores.Orphaned, varName)
}

// DefaultConfigContent is written by init-config
const DefaultConfigContent = `# envguard configuration
#
# Env file to compare against. Auto-detected when empty
# (.env.example, .env.sample, .env.template, .env.defaults, .env).
env_file: ""

# Directory holding GitHub Actions workflows, relative to the scan root.
workflows_dir: .github/workflows

# Exit with code 1 when orphaned variables are found.
strict: false

# Number of files parsed concurrently.
workers: 10

# Files larger than this many bytes are skipped (0 means 1 MiB).
max_file_size: 0

# Glob patterns, relative to the scan root. Include wins over exclude.
include: []
exclude: []

ignores:
  # Variables never reported as missing, e.g. provided by the platform.
  missing:
    - HOME
    - PATH
  # Variables never reported as orphaned.
  orphaned: []
  # Folders whose usages are not reported as missing. A bare name such as
  # "scripts" skips the folder everywhere; a path such as "tools/dev" keeps
  # scanning it but drops usages found only there.
  folders: []
`
