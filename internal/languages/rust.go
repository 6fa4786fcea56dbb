package languages

// RustQuery finds env::var("KEY") and std::env::var_os("KEY").
// The std segment of the fully qualified form is captured as @root and ignored.
const RustQuery = `
[
  (call_expression
    function: (scoped_identifier
      path: (identifier) @recv
      name: (identifier) @member
    )
    arguments: (arguments . (string_literal) @key)
  )
  (call_expression
    function: (scoped_identifier
      path: (scoped_identifier
        path: (identifier) @root
        name: (identifier) @recv
      )
      name: (identifier) @member
    )
    arguments: (arguments . (string_literal) @key)
  )
]
`

var rustAccessors = []Accessor{
	{Receiver: "env", Member: "var"},
	{Receiver: "env", Member: "var_os"},
}
