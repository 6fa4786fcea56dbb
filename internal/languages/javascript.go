package languages

// JavaScriptQuery finds process.env.KEY, process.env["KEY"] and
// Deno.env.get("KEY") style references. It is shared by TypeScript and TSX.
// Template literal keys are matched too; those with substitutions fail the
// variable name check.
// Accessor filtering happens in MatchCaptures, not with query predicates.
const JavaScriptQuery = `
[
  (member_expression
    object: (member_expression
      object: (identifier) @recv
      property: (property_identifier) @member
    )
    property: (property_identifier) @key
  )
  (subscript_expression
    object: (member_expression
      object: (identifier) @recv
      property: (property_identifier) @member
    )
    index: [(string) (template_string)] @key
  )
  (call_expression
    function: (member_expression
      object: (member_expression
        object: (identifier) @recv
        property: (property_identifier) @member
      )
      property: (property_identifier) @call
    )
    arguments: (arguments . [(string) (template_string)] @key)
  )
]
`

var javaScriptAccessors = []Accessor{
	{Receiver: "process", Member: "env"},
	{Receiver: "Bun", Member: "env"},
	{Receiver: "Deno", Member: "env", Call: "get"},
}
