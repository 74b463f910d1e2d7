package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAttributeConstructors(t *testing.T) {
	cases := []struct {
		attr     Attribute
		key      string
		expected any
	}{
		{String("k", "v"), "k", "v"},
		{Int("k", 3), "k", 3},
		{Bool("k", true), "k", true},
		{Duration("k", time.Second), "k", time.Second},
		{Error(errors.New("boom")), "error", "boom"},
		{Error(nil), "error", ""},
	}

	for _, testCase := range cases {
		if testCase.attr.Key != testCase.key || testCase.attr.Value != testCase.expected {
			t.Errorf("expected %s=%v, got %s=%v", testCase.key, testCase.expected, testCase.attr.Key, testCase.attr.Value)
		}
	}
}

// TestStringSlice_CopiesInput verifies that later mutation of the source slice
// does not change the recorded attribute.
func TestStringSlice_CopiesInput(t *testing.T) {
	values := []string{"a", "b"}
	attr := StringSlice("nodes", values)
	values[0] = "changed"

	recorded := attr.Value.([]string)
	if recorded[0] != "a" {
		t.Errorf("expected copy, got %v", recorded)
	}
}

type stubSpan struct{}

func (stubSpan) End()                          {}
func (stubSpan) SetAttributes(...Attribute)    {}
func (stubSpan) SetStatus(StatusCode, string)  {}
func (stubSpan) RecordError(error)             {}
func (stubSpan) AddEvent(string, ...Attribute) {}

func TestContextWithSpan_RoundTrip(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatal("expected no span in empty context")
	}
	//nolint:staticcheck // nil context handling is part of the contract
	ctx := ContextWithSpan(nil, stubSpan{})
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected span after ContextWithSpan")
	}
}

func TestContextWithObserver_MissingKey(t *testing.T) {
	if ObserverFromContext(context.Background()) != nil {
		t.Fatal("expected nil provider")
	}
}
