package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

const (
	// DoneSentinel is the payload that terminates an OpenAI-style stream.
	DoneSentinel = "[DONE]"

	// DefaultMaxPendingSize bounds the partial JSON payload held between lines (1 MiB).
	DefaultMaxPendingSize = 1 * 1024 * 1024

	dataPrefix = "data:"
)

// errIncompleteJSON marks a payload that is not (yet) syntactically valid JSON.
var errIncompleteJSON = errors.New("incomplete JSON payload")

// Frame is the text carried by one decoded stream event.
type Frame struct {
	Content  string
	Thinking string
}

// Text joins the content and thinking channels, content first.
func (frame Frame) Text() string {
	return frame.Content + frame.Thinking
}

// IsEmpty reports whether the frame carries no text on either channel.
func (frame Frame) IsEmpty() bool {
	return frame.Content == "" && frame.Thinking == ""
}

// chunkPayload is the subset of a chat completion chunk the decoder reads.
// reasoning and reasoning_content are provider aliases of thinking.
type chunkPayload struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			Thinking         string `json:"thinking"`
			Reasoning        string `json:"reasoning"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder turns raw stream chunks into frames. A Decoder is single-pass and
// not safe for concurrent use.
type Decoder struct {
	logger         *slog.Logger
	maxPendingSize int

	// carry holds the bytes after the last newline seen so far.
	carry []byte

	// pending holds a JSON payload that did not parse yet and is waiting for
	// the next line.
	pending string

	done bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used to report skipped frames.
func WithLogger(logger *slog.Logger) Option {
	return func(decoder *Decoder) {
		if logger != nil {
			decoder.logger = logger
		}
	}
}

// WithMaxPendingSize bounds how many bytes of partial JSON are held between
// lines before the partial frame is discarded.
func WithMaxPendingSize(size int) Option {
	return func(decoder *Decoder) {
		if size > 0 {
			decoder.maxPendingSize = size
		}
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	decoder := &Decoder{
		logger:         slog.Default(),
		maxPendingSize: DefaultMaxPendingSize,
	}
	for _, opt := range opts {
		opt(decoder)
	}
	return decoder
}

// Done reports whether the [DONE] sentinel has been seen. Input fed after
// that is ignored.
func (decoder *Decoder) Done() bool {
	return decoder.done
}

// Feed consumes one network chunk and returns the non-empty frames completed
// by it, in arrival order. Bytes after the last newline are kept for the next
// call.
func (decoder *Decoder) Feed(chunk []byte) []Frame {
	if decoder.done || len(chunk) == 0 {
		return nil
	}

	decoder.carry = append(decoder.carry, chunk...)

	var frames []Frame
	for !decoder.done {
		newline := bytes.IndexByte(decoder.carry, '\n')
		if newline < 0 {
			break
		}
		line := string(decoder.carry[:newline])
		decoder.carry = decoder.carry[newline+1:]

		if frame, ok := decoder.processLine(line); ok {
			frames = append(frames, frame)
		}
	}

	if len(decoder.carry) == 0 {
		decoder.carry = nil
	}
	return frames
}

// Flush treats any buffered bytes as a final line and makes a last attempt
// at a held partial payload. Call it once at end of input.
func (decoder *Decoder) Flush() []Frame {
	var frames []Frame

	if !decoder.done && len(decoder.carry) > 0 {
		line := string(decoder.carry)
		decoder.carry = nil
		if frame, ok := decoder.processLine(line); ok {
			frames = append(frames, frame)
		}
	}

	if !decoder.done && decoder.pending != "" {
		pending := decoder.pending
		decoder.pending = ""
		if completed, balanced := balanceJSON(pending); balanced {
			if frame, err := parseFrame(completed); err == nil {
				if !frame.IsEmpty() {
					frames = append(frames, frame)
				}
				return frames
			}
		}
		decoder.logger.Warn("dropping incomplete stream frame at end of input",
			slog.Int("bytes", len(pending)),
		)
	}

	return frames
}

// processLine handles one complete line.
func (decoder *Decoder) processLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Frame{}, false
	}

	// SSE comment, e.g. ": keep-alive".
	if strings.HasPrefix(line, ":") {
		return Frame{}, false
	}

	var payload string
	switch {
	case strings.HasPrefix(line, dataPrefix):
		payload = strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	case isSSEField(line):
		return Frame{}, false
	case decoder.pending != "":
		// Continuation of an object split across lines without a data prefix.
		payload = strings.TrimSpace(line)
	default:
		return Frame{}, false
	}

	if payload == DoneSentinel {
		decoder.done = true
		if decoder.pending != "" {
			decoder.logger.Warn("stream ended with an incomplete frame",
				slog.Int("bytes", len(decoder.pending)),
			)
			decoder.pending = ""
		}
		return Frame{}, false
	}

	return decoder.decodePayload(payload)
}

// decodePayload parses payload, joined with any held partial payload.
func (decoder *Decoder) decodePayload(payload string) (Frame, bool) {
	if payload == "" {
		return Frame{}, false
	}

	candidate := decoder.pending + payload
	frame, err := parseRepaired(candidate)
	if err == nil {
		decoder.pending = ""
		return frame, !frame.IsEmpty()
	}

	if decoder.pending != "" {
		// The held fragment never completed; a self-contained payload wins.
		if standalone, standaloneErr := parseFrame(payload); standaloneErr == nil {
			decoder.logger.Warn("discarding incomplete stream frame",
				slog.Int("bytes", len(decoder.pending)),
			)
			decoder.pending = ""
			return standalone, !standalone.IsEmpty()
		}
	}

	if !errors.Is(err, errIncompleteJSON) || !startsJSONContainer(candidate) {
		decoder.logger.Warn("skipping undecodable stream frame",
			slog.String("error", err.Error()),
			slog.String("payload", truncate(candidate, 200)),
		)
		decoder.pending = ""
		return Frame{}, false
	}

	if len(candidate) > decoder.maxPendingSize {
		decoder.logger.Warn("dropping oversized incomplete stream frame",
			slog.Int("bytes", len(candidate)),
			slog.Int("limit", decoder.maxPendingSize),
		)
		decoder.pending = ""
		return Frame{}, false
	}

	decoder.pending = candidate
	return Frame{}, false
}

// parseRepaired parses payload as is, then with missing closers appended.
func parseRepaired(payload string) (Frame, error) {
	frame, err := parseFrame(payload)
	if err == nil || !errors.Is(err, errIncompleteJSON) {
		return frame, err
	}
	if completed, balanced := balanceJSON(payload); balanced {
		if repairedFrame, repairErr := parseFrame(completed); repairErr == nil {
			return repairedFrame, nil
		}
	}
	return Frame{}, err
}

// parseFrame decodes a complete JSON payload. Syntactically invalid input
// yields errIncompleteJSON; valid JSON of the wrong shape yields a plain error.
func parseFrame(payload string) (Frame, error) {
	raw := []byte(payload)
	if !json.Valid(raw) {
		return Frame{}, errIncompleteJSON
	}

	var chunk chunkPayload
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return Frame{}, err
	}
	if len(chunk.Choices) == 0 {
		return Frame{}, nil
	}

	delta := chunk.Choices[0].Delta
	thinking := delta.Thinking
	if thinking == "" {
		thinking = delta.Reasoning
	}
	if thinking == "" {
		thinking = delta.ReasoningContent
	}
	return Frame{Content: delta.Content, Thinking: thinking}, nil
}

// balanceJSON appends the closers missing from payload, tracking string
// literals so that braces inside strings are ignored. It reports false when
// nothing is missing, when a closer does not match its opener, or when the
// payload ends inside a string.
func balanceJSON(payload string) (string, bool) {
	var expected []byte
	inString := false
	escaped := false

	for index := 0; index < len(payload); index++ {
		character := payload[index]
		if inString {
			switch {
			case escaped:
				escaped = false
			case character == '\\':
				escaped = true
			case character == '"':
				inString = false
			}
			continue
		}

		switch character {
		case '"':
			inString = true
		case '{':
			expected = append(expected, '}')
		case '[':
			expected = append(expected, ']')
		case '}', ']':
			if len(expected) == 0 || expected[len(expected)-1] != character {
				return "", false
			}
			expected = expected[:len(expected)-1]
		}
	}

	if inString || len(expected) == 0 {
		return "", false
	}

	var builder strings.Builder
	builder.Grow(len(payload) + len(expected))
	builder.WriteString(payload)
	for index := len(expected) - 1; index >= 0; index-- {
		builder.WriteByte(expected[index])
	}
	return builder.String(), true
}

func startsJSONContainer(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func isSSEField(line string) bool {
	for _, field := range []string{"event:", "id:", "retry:"} {
		if strings.HasPrefix(line, field) {
			return true
		}
	}
	return false
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
