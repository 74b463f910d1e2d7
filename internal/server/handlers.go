package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/core/node"
	"github.com/leofalp/nodeflow/core/runner"
	"github.com/leofalp/nodeflow/internal/graphfile"
)

// runResponse is the body of POST /v1/runs.
type runResponse struct {
	*runner.Report
	Outputs map[string]graph.Output `json:"outputs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type publishResponse struct {
	Topic string `json:"topic"`
	Queue int    `json:"queue"`
}

// pinger is implemented by buses backed by a remote store.
type pinger interface {
	Ping(ctx context.Context) error
}

func (server *Server) health(w http.ResponseWriter, r *http.Request) {
	if remote, ok := server.bus.(pinger); ok {
		if err := remote.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "bus": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (server *Server) createRun(w http.ResponseWriter, r *http.Request) {
	g, ok := server.readGraph(w, r)
	if !ok {
		return
	}

	report, err := server.runner.Run(r.Context(), g)
	if err != nil {
		status := http.StatusInternalServerError
		if runner.IsStructural(err) {
			status = http.StatusBadRequest
		}
		server.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Report: report, Outputs: runner.Outputs(g, report)})
}

// streamRun writes every run event as an SSE data frame and ends with
// "data: [DONE]". Structural errors are reported before the stream starts.
func (server *Server) streamRun(w http.ResponseWriter, r *http.Request) {
	g, ok := server.readGraph(w, r)
	if !ok {
		return
	}
	if _, err := g.Levels(); err != nil {
		server.writeError(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		server.writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	writeFrame := func(payload string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	ctx := node.ContextWithListener(r.Context(), func(event node.Event) {
		encoded, err := json.Marshal(event)
		if err != nil {
			server.logger.Warn("encode event failed", "error", err.Error())
			return
		}
		writeFrame(string(encoded))
	})

	if _, err := server.runner.Run(ctx, g); err != nil {
		encoded, _ := json.Marshal(errorResponse{Error: err.Error()})
		writeFrame(string(encoded))
	}
	writeFrame("[DONE]")
}

func (server *Server) publish(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, server.maxBodySize))
	if err != nil {
		server.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	payload := string(body)
	if strings.TrimSpace(payload) == "" {
		server.writeError(w, http.StatusBadRequest, errors.New("empty payload"))
		return
	}

	if err = server.bus.Publish(r.Context(), topic, payload); err != nil {
		server.writeError(w, http.StatusInternalServerError, err)
		return
	}
	size, err := server.bus.Len(r.Context(), topic)
	if err != nil {
		server.logger.Warn("queue length unavailable", "topic", topic, "error", err.Error())
	}
	writeJSON(w, http.StatusAccepted, publishResponse{Topic: topic, Queue: size})
}

func (server *Server) consume(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	payload, received, err := server.bus.Consume(r.Context(), topic)
	if err != nil {
		server.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !received {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, payload)
}

// readGraph decodes the request body as a graph document. YAML is selected
// by a Content-Type containing "yaml"; anything else is read as JSON.
func (server *Server) readGraph(w http.ResponseWriter, r *http.Request) (*graph.Graph, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, server.maxBodySize))
	if err != nil {
		server.writeError(w, http.StatusRequestEntityTooLarge, err)
		return nil, false
	}

	format := graphfile.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = graphfile.FormatYAML
	}
	g, err := graphfile.Decode(body, format)
	if err != nil {
		server.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return g, true
}

func (server *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		server.logger.Error("request failed", "status", status, "error", err.Error())
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
