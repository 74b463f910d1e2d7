// Package expressions compiles and caches the two expression languages nodes
// accept: jq (gojq) for reshaping JSON and expr for boolean predicates.
// Compiled programs are reused across goroutines.
package expressions
