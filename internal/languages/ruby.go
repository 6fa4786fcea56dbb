package languages

import "regexp"

// Ruby has no bundled grammar, so ENV["KEY"] and ENV.fetch("KEY") are
// matched textually
var rubyTemplates = []Template{
	{Pattern: regexp.MustCompile(`\bENV\[\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*\]`)},
	{Pattern: regexp.MustCompile(`\bENV\.fetch\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]`)},
	{Pattern: regexp.MustCompile(`\bENV\.key\?\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]`)},
}
