package expressions

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Predicate evaluates boolean expr programs. Variables are resolved from the
// environment at run time, so one compiled program serves any value types.
type Predicate struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewPredicate creates a Predicate evaluator with an empty cache.
func NewPredicate() *Predicate {
	return &Predicate{cache: make(map[string]*vm.Program)}
}

// Evaluate runs expression against env. The program must yield a bool.
func (predicate *Predicate) Evaluate(expression string, env map[string]any) (bool, error) {
	if expression == "" {
		return false, ErrEmptyExpression
	}
	program, err := predicate.compile(expression)
	if err != nil {
		return false, err
	}
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("expr evaluation failed for %q: %w", expression, err)
	}
	result, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("expr %q returned %T, want bool", expression, out)
	}
	return result, nil
}

func (predicate *Predicate) compile(expression string) (*vm.Program, error) {
	predicate.mu.RLock()
	program, cached := predicate.cache[expression]
	predicate.mu.RUnlock()
	if cached {
		return program, nil
	}

	predicate.mu.Lock()
	defer predicate.mu.Unlock()
	if program, cached = predicate.cache[expression]; cached {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("expr compile error in %q: %w", expression, err)
	}
	predicate.cache[expression] = program
	return program, nil
}
