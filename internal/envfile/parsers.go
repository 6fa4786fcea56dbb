package envfile

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jenian/envguard/internal/analyzer"
)

// Format is the syntax of an env file, detected from its name
type Format string

const (
	FormatDotEnv        Format = "dotenv"
	FormatDockerCompose Format = "docker-compose"
	FormatK8s           Format = "k8s"
	FormatSystemd       Format = "systemd"
)

// parsed is the outcome of reading one env file
type parsed struct {
	format       Format
	declarations []analyzer.Declaration
	// malformed holds the 1-indexed lines that could not be read
	malformed []int
}

func (p *parsed) declare(name, source string, line int) {
	if !analyzer.IsVariableName(name) {
		p.malformed = append(p.malformed, line)
		return
	}
	for _, existing := range p.declarations {
		if existing.Name == name {
			return
		}
	}
	p.declarations = append(p.declarations, analyzer.Declaration{
		Name:       name,
		DeclaredIn: source,
		Line:       line,
		Kind:       analyzer.DeclEnvFile,
	})
}

// DetectFormat determines the env file format based on filename
func DetectFormat(path string) Format {
	filename := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(filename)
	isYAML := ext == ".yml" || ext == ".yaml"

	switch {
	case strings.HasPrefix(filename, ".env"):
		return FormatDotEnv
	case isYAML && (strings.HasPrefix(filename, "docker-compose") || strings.HasPrefix(filename, "compose")):
		return FormatDockerCompose
	case isYAML && (strings.Contains(filename, "configmap") || strings.Contains(filename, "secret")):
		return FormatK8s
	case ext == ".service":
		return FormatSystemd
	default:
		return FormatDotEnv
	}
}

// parseEnvFile parses content using the parser for its detected format
func parseEnvFile(source string, content []byte) *parsed {
	switch format := DetectFormat(source); format {
	case FormatDockerCompose:
		return parseDockerCompose(source, content)
	case FormatK8s:
		return parseK8s(source, content)
	case FormatSystemd:
		return parseSystemd(source, content)
	default:
		return parseDotEnv(source, content)
	}
}

var dotEnvLine = regexp.MustCompile(`^(?:export\s+)?([^=\s]+)\s*=(.*)$`)

// parseDotEnv parses a .env style file. Names are recorded, values are not:
// they are only read far enough to find where a multi-line quoted value ends.
// A line without "=" is malformed. A quoted value that never closes makes
// its own line malformed and the lines after it are parsed as usual.
func parseDotEnv(source string, content []byte) *parsed {
	result := &parsed{format: FormatDotEnv}
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		lineNum := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		matches := dotEnvLine.FindStringSubmatch(line)
		if matches == nil {
			result.malformed = append(result.malformed, lineNum)
			continue
		}

		if quote := unterminatedQuote(strings.TrimSpace(matches[2])); quote != 0 {
			closing := closingLine(lines, i+1, quote)
			if closing < 0 {
				result.malformed = append(result.malformed, lineNum)
				continue
			}
			i = closing
		}
		result.declare(matches[1], source, lineNum)
	}

	return result
}

// closingLine returns the index of the first line at or after from that
// contains quote, or -1
func closingLine(lines []string, from int, quote byte) int {
	for j := from; j < len(lines); j++ {
		if strings.IndexByte(lines[j], quote) >= 0 {
			return j
		}
	}
	return -1
}

// unterminatedQuote returns the quote character of a value that opens a
// quoted string without closing it on the same line
func unterminatedQuote(value string) byte {
	if value == "" {
		return 0
	}
	quote := value[0]
	if quote != '"' && quote != '\'' && quote != '`' {
		return 0
	}
	if strings.IndexByte(value[1:], quote) >= 0 {
		return 0
	}
	return quote
}

// decodeDocuments decodes every YAML document in content. A document that
// fails to decode stops decoding and is reported as malformed at line 1.
func decodeDocuments(content []byte, result *parsed) []*yaml.Node {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	var docs []*yaml.Node
	for {
		var doc yaml.Node
		if err := decoder.Decode(&doc); err != nil {
			if !errors.Is(err, io.EOF) {
				result.malformed = append(result.malformed, 1)
			}
			return docs
		}
		if len(doc.Content) > 0 {
			docs = append(docs, doc.Content[0])
		}
	}
}

// mappingValue returns the value node for key in a mapping node
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// declareMappingKeys declares every key of a mapping node
func declareMappingKeys(node *yaml.Node, source string, result *parsed) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		result.declare(key.Value, source, key.Line)
	}
}

// parseDockerCompose reads service environment blocks in map or list form
func parseDockerCompose(source string, content []byte) *parsed {
	result := &parsed{format: FormatDockerCompose}

	for _, doc := range decodeDocuments(content, result) {
		services := mappingValue(doc, "services")
		if services == nil || services.Kind != yaml.MappingNode {
			continue
		}
		for i := 1; i < len(services.Content); i += 2 {
			env := mappingValue(services.Content[i], "environment")
			if env == nil {
				continue
			}
			switch env.Kind {
			case yaml.MappingNode:
				declareMappingKeys(env, source, result)
			case yaml.SequenceNode:
				for _, item := range env.Content {
					name, _, _ := strings.Cut(item.Value, "=")
					result.declare(strings.TrimSpace(name), source, item.Line)
				}
			}
		}
	}

	return result
}

// parseK8s reads data and stringData keys of ConfigMap and Secret objects
func parseK8s(source string, content []byte) *parsed {
	result := &parsed{format: FormatK8s}

	for _, doc := range decodeDocuments(content, result) {
		kind := mappingValue(doc, "kind")
		if kind == nil || (kind.Value != "ConfigMap" && kind.Value != "Secret") {
			continue
		}
		declareMappingKeys(mappingValue(doc, "data"), source, result)
		declareMappingKeys(mappingValue(doc, "stringData"), source, result)
	}

	return result
}

var systemdAssignment = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// parseSystemd reads Environment= directives of a unit file. One directive
// may hold several space separated, optionally quoted, assignments.
func parseSystemd(source string, content []byte) *parsed {
	result := &parsed{format: FormatSystemd}

	for i, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		directive, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(directive) != "Environment" {
			continue
		}

		for _, m := range systemdAssignment.FindAllStringSubmatch(value, -1) {
			assignment := m[1]
			if assignment == "" {
				assignment = m[2]
			}
			name, _, hasValue := strings.Cut(assignment, "=")
			if !hasValue {
				result.malformed = append(result.malformed, i+1)
				continue
			}
			result.declare(name, source, i+1)
		}
	}

	return result
}
