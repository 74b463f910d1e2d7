// Package stream decodes server-sent token streams into text deltas.
//
// The wire format is a sequence of newline-terminated `data: <json>` lines,
// ended by a `data: [DONE]` line or by end of input. Each JSON object is
// expected to carry choices[0].delta.content and choices[0].delta.thinking.
//
// The [Decoder] is push-based: callers feed raw network chunks and receive the
// frames completed by that chunk. Lines split across chunks are held in a
// carry-over buffer, and JSON objects that a provider split across lines are
// first balance-completed and, failing that, held until the next line.
// A frame that cannot be decoded is logged and skipped; it never aborts the
// stream.
//
// [Deltas] and [Frames] wrap a Decoder around an io.Reader and expose the
// result as a single-pass iterator.
package stream
