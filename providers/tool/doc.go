// Package tool defines the side actions a model may ask for during the
// tool-call round trip of an agent node.
//
// A [Tool] binds a typed Go function to a function definition whose JSON
// schema is derived from the input type. [Tool.Call] decodes the model's
// argument string tolerantly, validates it against that schema and renders
// the result as text ready to be spliced into a prompt. A [Catalog] holds the
// tools an engine offers, addressed case-insensitively by name.
package tool
