// Package parse recovers structured values from model-produced text.
//
// Models wrap JSON in code fences, emit single-quoted keys, or stop mid-object.
// Every entry point first tries a strict decode, then runs the text through
// jsonrepair and unwraps schema-style {"type": ..., "value": ...} envelopes
// before giving up.
package parse
