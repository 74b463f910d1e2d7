package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/internal/utils"
)

// fakeEmbedder answers every input with the vector [len(text), index] and
// records the request bodies.
type fakeEmbedder struct {
	mu       sync.Mutex
	requests []map[string]any
	status   int
}

func newFakeEmbedder(t *testing.T, embedder *fakeEmbedder) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(embedder)
	t.Cleanup(server.Close)
	return server
}

func (embedder *fakeEmbedder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	embedder.mu.Lock()
	embedder.requests = append(embedder.requests, body)
	embedder.mu.Unlock()

	if embedder.status != 0 {
		http.Error(w, "unavailable", embedder.status)
		return
	}

	inputs, _ := body["input"].([]any)
	data := make([]map[string]any, len(inputs))
	for index, input := range inputs {
		text, _ := input.(string)
		// Reverse order to check the client sorts by index.
		data[len(inputs)-1-index] = map[string]any{
			"object":    "embedding",
			"index":     index,
			"embedding": []float64{float64(len(text)), float64(index)},
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": body["model"]})
}

func (embedder *fakeEmbedder) request(t *testing.T, index int) map[string]any {
	t.Helper()
	embedder.mu.Lock()
	defer embedder.mu.Unlock()
	require.Greater(t, len(embedder.requests), index)
	return embedder.requests[index]
}

func TestEmbeddings_ChunksFromUpstream(t *testing.T) {
	embedder := &fakeEmbedder{}
	server := newFakeEmbedder(t, embedder)

	g := buildGraph(t, []graph.Node{
		{ID: "split", Kind: graph.KindSplitText, Config: map[string]any{"text": "abcdefg", "chunk_size": 4}},
		{ID: "embed", Kind: graph.KindEmbeddings},
	}, edge("split", "embed"))
	engine := newTestEngine(
		WithHTTPClient(server.Client()),
		WithDefaults(Defaults{EmbeddingsEndpoint: server.URL, EmbeddingsModel: "embed-test", APIKey: "secret"}),
	)

	status, err := executeAll(t, engine, g, "split", "embed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)

	output := g.Output("embed")
	assert.Equal(t, graph.OutputJSON, output.Kind)
	assert.Equal(t, []any{
		[]any{float64(4), float64(0)},
		[]any{float64(3), float64(1)},
	}, output.Raw())
	assert.Equal(t, "[[4,0],[3,1]]", output.Text())

	request := embedder.request(t, 0)
	assert.Equal(t, []any{"abcd", "efg"}, request["input"])
	assert.Equal(t, "embed-test", request["model"])
	assert.Equal(t, "float", request["encoding_format"])
}

func TestEmbeddings_ConfiguredInput(t *testing.T) {
	cases := []struct {
		name   string
		config map[string]any
		inputs map[string]any
		want   []any
	}{
		{"string", map[string]any{"input": "hello"}, nil, []any{"hello"}},
		{"list drops blanks", map[string]any{"input": []any{"one", " ", "three"}}, nil, []any{"one", "three"}},
		{"declared input", nil, map[string]any{"input": "from inputs", "dimensions": 8}, []any{"from inputs"}},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			embedder := &fakeEmbedder{}
			server := newFakeEmbedder(t, embedder)

			config := map[string]any{"endpoint": server.URL}
			for key, value := range testCase.config {
				config[key] = value
			}
			g := buildGraph(t, []graph.Node{
				{ID: "upstream", Kind: graph.KindText, Config: map[string]any{"text": "ignored"}},
				{ID: "embed", Kind: graph.KindEmbeddings, Config: config, Inputs: testCase.inputs},
			}, edge("upstream", "embed"))

			_, err := executeAll(t, newTestEngine(WithHTTPClient(server.Client())), g, "upstream", "embed")
			require.NoError(t, err)
			assert.Equal(t, testCase.want, embedder.request(t, 0)["input"])
		})
	}
}

func TestEmbeddings_UpstreamText(t *testing.T) {
	embedder := &fakeEmbedder{}
	server := newFakeEmbedder(t, embedder)

	g := buildGraph(t, []graph.Node{
		{ID: "a", Kind: graph.KindText, Config: map[string]any{"text": "first"}},
		{ID: "b", Kind: graph.KindText, Config: map[string]any{"text": "second"}},
		{ID: "embed", Kind: graph.KindEmbeddings, Config: map[string]any{"endpoint": server.URL}},
	}, edge("a", "embed"), edge("b", "embed"))

	_, err := executeAll(t, newTestEngine(WithHTTPClient(server.Client())), g, "a", "b", "embed")
	require.NoError(t, err)
	assert.Equal(t, []any{"first\n\nsecond"}, embedder.request(t, 0)["input"])
}

func TestEmbeddings_Failures(t *testing.T) {
	t.Run("no endpoint", func(t *testing.T) {
		g := buildGraph(t, []graph.Node{
			{ID: "embed", Kind: graph.KindEmbeddings, Config: map[string]any{"input": "x"}},
		})
		status, err := executeAll(t, newTestEngine(), g, "embed")
		assert.Equal(t, StatusFailed, status)
		assert.ErrorIs(t, err, ErrNoEndpoint)
	})

	t.Run("nothing to embed", func(t *testing.T) {
		server := newFakeEmbedder(t, &fakeEmbedder{})
		g := buildGraph(t, []graph.Node{
			{ID: "embed", Kind: graph.KindEmbeddings, Config: map[string]any{"endpoint": server.URL}},
		})
		status, err := executeAll(t, newTestEngine(WithHTTPClient(server.Client())), g, "embed")
		assert.Equal(t, StatusFailed, status)
		assert.ErrorIs(t, err, ErrNothingToEmbed)
	})

	t.Run("non-2xx", func(t *testing.T) {
		server := newFakeEmbedder(t, &fakeEmbedder{status: http.StatusTooManyRequests})
		g := buildGraph(t, []graph.Node{
			{ID: "embed", Kind: graph.KindEmbeddings, Config: map[string]any{"endpoint": server.URL, "input": "x"}},
		})
		status, err := executeAll(t, newTestEngine(WithHTTPClient(server.Client())), g, "embed")
		assert.Equal(t, StatusFailed, status)
		var httpError *utils.HTTPError
		require.ErrorAs(t, err, &httpError)
		assert.Equal(t, http.StatusTooManyRequests, httpError.StatusCode)
		assert.True(t, g.Output("embed").IsZero())
	})
}

func TestEmbeddings_ContextCancelled(t *testing.T) {
	server := newFakeEmbedder(t, &fakeEmbedder{})
	g := buildGraph(t, []graph.Node{
		{ID: "embed", Kind: graph.KindEmbeddings, Config: map[string]any{"endpoint": server.URL, "input": "x"}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := newTestEngine(WithHTTPClient(server.Client())).Execute(ctx, g, "embed")
	assert.Equal(t, StatusFailed, status)
	assert.Error(t, err)
}
