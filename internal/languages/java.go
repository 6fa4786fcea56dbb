package languages

// JavaQuery finds System.getenv("KEY") and System.getenv().get("KEY")
const JavaQuery = `
[
  (method_invocation
    object: (identifier) @recv
    name: (identifier) @member
    arguments: (argument_list . (string_literal) @key)
  )
  (method_invocation
    object: (method_invocation
      object: (identifier) @recv
      name: (identifier) @member
    )
    name: (identifier) @call
    arguments: (argument_list . (string_literal) @key)
  )
]
`

var javaAccessors = []Accessor{
	{Receiver: "System", Member: "getenv"},
	{Receiver: "System", Member: "getenv", Call: "get"},
	{Receiver: "System", Member: "getenv", Call: "getOrDefault"},
}
