package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/nodeflow/core/stream"
	"github.com/leofalp/nodeflow/internal/utils"
)

func TestComplete_SendsRequestAndParsesResponse(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret")
	response, err := client.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-test",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", Content(response))
	assert.Equal(t, "gpt-test", received["model"])
	assert.NotContains(t, received, "stream")
}

func TestComplete_Non2xx_ReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(server.URL, "").Complete(context.Background(), goopenai.ChatCompletionRequest{Model: "m"})
	var httpError *utils.HTTPError
	require.True(t, errors.As(err, &httpError))
	assert.Equal(t, http.StatusTooManyRequests, httpError.StatusCode)
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Complete(context.Background(), goopenai.ChatCompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrNoChoices)
}

// TestStream_YieldsDeltasInOrder verifies that content and thinking channels
// are concatenated and the stream ends at [DONE].
func TestStream_YieldsDeltasInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n",
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\",\"thinking\":\"!\"}}]}\n\n",
			"data: [DONE]\n\n",
			"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n",
		} {
			_, _ = w.Write([]byte(frame))
			flusher.Flush()
		}
	}))
	defer server.Close()

	deltas, err := New(server.URL, "").Stream(context.Background(), goopenai.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)

	var collected []string
	for delta, err := range deltas {
		require.NoError(t, err)
		collected = append(collected, delta)
	}
	assert.Equal(t, []string{"Hel", "lo!"}, collected)
}

func TestStream_Non2xx_FailsBeforeIteration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	deltas, err := New(server.URL, "").Stream(context.Background(), goopenai.ChatCompletionRequest{Model: "m"})
	assert.Nil(t, deltas)
	var httpError *utils.HTTPError
	require.True(t, errors.As(err, &httpError))
	assert.Equal(t, http.StatusBadGateway, httpError.StatusCode)
}

func TestStream_Collect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"))
	}))
	defer server.Close()

	deltas, err := New(server.URL, "").Stream(context.Background(), goopenai.ChatCompletionRequest{Model: "m"})
	require.NoError(t, err)
	text, err := stream.Collect(deltas)
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestFunctionCall(t *testing.T) {
	tests := []struct {
		name     string
		message  goopenai.ChatCompletionMessage
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{
			name: "tool calls",
			message: goopenai.ChatCompletionMessage{ToolCalls: []goopenai.ToolCall{{
				Type:     goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{Name: "retrieval", Arguments: `{"query":"go"}`},
			}}},
			wantName: "retrieval", wantArgs: `{"query":"go"}`, wantOK: true,
		},
		{
			name:     "legacy function call",
			message:  goopenai.ChatCompletionMessage{FunctionCall: &goopenai.FunctionCall{Name: "retrieval"}},
			wantName: "retrieval", wantOK: true,
		},
		{
			name:    "plain answer",
			message: goopenai.ChatCompletionMessage{Content: "no tools needed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := &goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{{Message: tt.message}}}
			name, args, ok := FunctionCall(response)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, ok := FunctionCall(nil)
	assert.False(t, ok)
}

func TestEmbed_OrdersVectorsByIndex(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"object":"list","data":[` +
			`{"object":"embedding","index":1,"embedding":[0.5,0.25]},` +
			`{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	response, err := New(server.URL, "").Embed(context.Background(), goopenai.EmbeddingRequest{
		Input:          []string{"first", "second"},
		Model:          "embed-test",
		EncodingFormat: goopenai.EmbeddingEncodingFormatFloat,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0.5, 0.25}}, Vectors(response))
	assert.Equal(t, []any{"first", "second"}, received["input"])
	assert.Equal(t, "embed-test", received["model"])
	assert.Equal(t, "float", received["encoding_format"])
}

func TestEmbed_EmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "").Embed(context.Background(), goopenai.EmbeddingRequest{Input: []string{"x"}})
	assert.ErrorIs(t, err, ErrNoEmbeddings)
}
