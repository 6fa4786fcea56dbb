package languages

// PythonQuery finds os.environ["KEY"], os.getenv("KEY") and
// os.environ.get("KEY"). Only the first argument is captured so that
// defaults such as os.getenv("KEY", "fallback") are not reported.
const PythonQuery = `
[
  (subscript
    value: (attribute
      object: (identifier) @recv
      attribute: (identifier) @member
    )
    subscript: (string) @key
  )
  (call
    function: (attribute
      object: (identifier) @recv
      attribute: (identifier) @member
    )
    arguments: (argument_list . (string) @key)
  )
  (call
    function: (attribute
      object: (attribute
        object: (identifier) @recv
        attribute: (identifier) @member
      )
      attribute: (identifier) @call
    )
    arguments: (argument_list . (string) @key)
  )
]
`

var pythonAccessors = []Accessor{
	{Receiver: "os", Member: "environ"},
	{Receiver: "os", Member: "getenv"},
	{Receiver: "os", Member: "environ", Call: "get"},
	{Receiver: "os", Member: "environ", Call: "setdefault"},
}
