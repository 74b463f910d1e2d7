package node

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leofalp/nodeflow/core/graph"
)

// buildGraph adds nodes then edges, failing the test on any error.
func buildGraph(t *testing.T, nodes []graph.Node, edges ...graph.Edge) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, graphNode := range nodes {
		require.NoError(t, g.AddNode(graphNode))
	}
	for _, edge := range edges {
		require.NoError(t, g.AddEdge(edge.Source, edge.Target))
	}
	return g
}

func edge(source, target string) graph.Edge {
	return graph.Edge{Source: source, Target: target}
}

// fakeLLM is an OpenAI-compatible endpoint. Requests declaring functions are
// answered with selectReply; streaming requests get deltas as SSE frames.
type fakeLLM struct {
	mu       sync.Mutex
	requests []map[string]any

	status      int
	selectStatus int
	selectReply  string
	deltas      []string
	reply       string
}

func newFakeLLM(t *testing.T, llm *fakeLLM) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(llm)
	t.Cleanup(server.Close)
	return server
}

func (llm *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	llm.mu.Lock()
	llm.requests = append(llm.requests, body)
	llm.mu.Unlock()

	if llm.status != 0 {
		http.Error(w, "unavailable", llm.status)
		return
	}

	if _, declaresFunctions := body["functions"]; declaresFunctions {
		if llm.selectStatus != 0 {
			http.Error(w, "selection unavailable", llm.selectStatus)
			return
		}
		reply := llm.selectReply
		if reply == "" {
			reply = `{"choices":[{"message":{"role":"assistant","content":"no tool"},"finish_reason":"stop"}]}`
		}
		_, _ = w.Write([]byte(reply))
		return
	}

	if body["stream"] == true {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range llm.deltas {
			chunk, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": delta}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}

	reply, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{
			"message":       map[string]any{"role": "assistant", "content": llm.reply},
			"finish_reason": "stop",
		}},
	})
	_, _ = w.Write(reply)
}

// userPrompt returns the user message content of the request at index.
func (llm *fakeLLM) userPrompt(t *testing.T, index int) string {
	t.Helper()
	llm.mu.Lock()
	defer llm.mu.Unlock()
	require.Greater(t, len(llm.requests), index)

	messages := llm.requests[index]["messages"].([]any)
	last := messages[len(messages)-1].(map[string]any)
	return last["content"].(string)
}

func (llm *fakeLLM) requestCount() int {
	llm.mu.Lock()
	defer llm.mu.Unlock()
	return len(llm.requests)
}

// eventLog records events delivered through a context listener.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (log *eventLog) listen(event Event) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.events = append(log.events, event)
}

func (log *eventLog) deltas() []string {
	log.mu.Lock()
	defer log.mu.Unlock()
	var deltas []string
	for _, event := range log.events {
		if event.Type == EventNodeDelta {
			deltas = append(deltas, event.NodeID+":"+event.Delta)
		}
	}
	return deltas
}
