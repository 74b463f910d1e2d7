// Package openai is the chat completion adapter for OpenAI-compatible
// endpoints. Request and response bodies use the go-openai wire types; the
// transport is the shared HTTP helpers and streamed bodies are decoded with
// core/stream.
package openai
