package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// readChunkSize is the size of each read from the underlying transport.
const readChunkSize = 4 * 1024

// Frames reads reader to the end (or to the [DONE] sentinel) and yields each
// non-empty frame in arrival order. A transport error or context cancellation
// is yielded once as the final element. The sequence is single-pass.
func Frames(ctx context.Context, reader io.Reader, opts ...Option) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		decoder := NewDecoder(opts...)
		buffer := make([]byte, readChunkSize)

		for {
			if err := ctx.Err(); err != nil {
				yield(Frame{}, err)
				return
			}

			readCount, readErr := reader.Read(buffer)
			if readCount > 0 {
				for _, frame := range decoder.Feed(buffer[:readCount]) {
					if !yield(frame, nil) {
						return
					}
				}
				if decoder.Done() {
					return
				}
			}

			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield(Frame{}, fmt.Errorf("stream read failed: %w", readErr))
					return
				}
				for _, frame := range decoder.Flush() {
					if !yield(frame, nil) {
						return
					}
				}
				return
			}
		}
	}
}

// Deltas is Frames reduced to text: each element is content followed by
// thinking for one frame.
func Deltas(ctx context.Context, reader io.Reader, opts ...Option) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for frame, err := range Frames(ctx, reader, opts...) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(frame.Text(), nil) {
				return
			}
		}
	}
}

// Collect drains a delta sequence into one string. It returns the text
// gathered before the first error together with that error.
func Collect(deltas iter.Seq2[string, error]) (string, error) {
	var collected []byte
	for delta, err := range deltas {
		if err != nil {
			return string(collected), err
		}
		collected = append(collected, delta...)
	}
	return string(collected), nil
}
