package languages

// GoQuery finds os.Getenv("KEY") and os.LookupEnv(`KEY`) calls
const GoQuery = `
[
  (call_expression
    function: (selector_expression
      operand: (identifier) @recv
      field: (field_identifier) @member
    )
    arguments: (argument_list . (interpreted_string_literal) @key)
  )
  (call_expression
    function: (selector_expression
      operand: (identifier) @recv
      field: (field_identifier) @member
    )
    arguments: (argument_list . (raw_string_literal) @key)
  )
]
`

var goAccessors = []Accessor{
	{Receiver: "os", Member: "Getenv"},
	{Receiver: "os", Member: "LookupEnv"},
	{Receiver: "syscall", Member: "Getenv"},
}
