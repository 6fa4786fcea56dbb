package languages

import "regexp"

// ExpressionPattern matches one ${{ ... }} expression of a GitHub Actions
// workflow; group 1 is the expression body
var ExpressionPattern = regexp.MustCompile(`\$\{\{(.*?)\}\}`)

// workflowTemplates find env.KEY references. Templates only see expression
// bodies, so env.KEY in plain text is not reported.
var workflowTemplates = []Template{
	{Pattern: regexp.MustCompile(`(?:^|[^\w.])env\.([A-Za-z_][A-Za-z0-9_]*)`)},
}

// SecretPattern and VarsPattern find names provided by the CI secret and
// variable stores, secrets.KEY and vars.KEY
var (
	SecretPattern = regexp.MustCompile(`(?:^|[^\w.])secrets\.([A-Za-z_][A-Za-z0-9_]*)`)
	VarsPattern   = regexp.MustCompile(`(?:^|[^\w.])vars\.([A-Za-z_][A-Za-z0-9_]*)`)
)

// ExpressionBodies returns the bodies of the ${{ ... }} expressions on a line
func ExpressionBodies(line string) []string {
	var bodies []string
	for _, m := range ExpressionPattern.FindAllStringSubmatch(line, -1) {
		bodies = append(bodies, m[1])
	}
	return bodies
}
