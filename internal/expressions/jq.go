package expressions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

// ErrEmptyExpression is returned when an expression is blank.
var ErrEmptyExpression = errors.New("expressions: empty expression")

// JQ evaluates jq programs. The only variable in scope is $config.
type JQ struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewJQ creates a JQ evaluator with an empty cache.
func NewJQ() *JQ {
	return &JQ{cache: make(map[string]*gojq.Code)}
}

// Evaluate runs expression against input. One result is returned as-is,
// several are returned as []any, none as nil.
func (jq *JQ) Evaluate(ctx context.Context, expression string, input any, config map[string]any) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	code, err := jq.compile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, Normalize(input), Normalize(config))
	var results []any
	for {
		value, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := value.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq evaluation failed for %q: %w", expression, err)
		}
		results = append(results, value)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (jq *JQ) compile(expression string) (*gojq.Code, error) {
	jq.mu.RLock()
	code, cached := jq.cache[expression]
	jq.mu.RUnlock()
	if cached {
		return code, nil
	}

	jq.mu.Lock()
	defer jq.mu.Unlock()
	if code, cached = jq.cache[expression]; cached {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("jq parse error in %q: %w", expression, err)
	}
	code, err = gojq.Compile(query,
		gojq.WithVariables([]string{"$config"}),
		// no $ENV access
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, fmt.Errorf("jq compile error in %q: %w", expression, err)
	}
	jq.cache[expression] = code
	return code, nil
}

// Normalize converts Go values into the plain JSON shapes jq understands:
// integers become float64, []string becomes []any, nil maps become empty.
func Normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for index, item := range typed {
			out[index] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for index, item := range typed {
			out[index] = item
		}
		return out
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case int32:
		return float64(typed)
	case float32:
		return float64(typed)
	default:
		return value
	}
}
