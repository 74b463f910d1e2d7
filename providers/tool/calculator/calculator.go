package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/leofalp/nodeflow/providers/tool"
)

// ToolName is the function name the calculator is declared under.
const ToolName = "calculator"

// ErrNotNumeric is returned when an expression evaluates to a non-number.
var ErrNotNumeric = errors.New("calculator: expression did not produce a number")

// Input is the calculator's argument schema.
type Input struct {
	Expression string `json:"expression" description:"Arithmetic expression, e.g. (3 + 4) * 2 or max(2, 5) / 3"`
}

// NewTool returns the calculator as a tool for the engine catalog.
func NewTool() (*tool.Tool[Input, float64], error) {
	return tool.New(ToolName, Calc,
		tool.WithDescription[Input, float64]("Evaluates an arithmetic expression and returns the numeric result. Use it instead of computing by hand."),
		tool.WithRender[Input, float64](func(result float64) string {
			return "Result: " + strconv.FormatFloat(result, 'f', -1, 64)
		}),
	)
}

// Calc evaluates input.Expression. Division by zero follows IEEE 754 and
// yields an infinity, which is reported as an error.
//
//	result, err := calculator.Calc(ctx, calculator.Input{Expression: "10 / 4"})
//	// result == 2.5
func Calc(ctx context.Context, input Input) (float64, error) {
	expression := strings.TrimSpace(input.Expression)
	if expression == "" {
		return 0, errors.New("calculator: expression is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	program, err := expr.Compile(expression)
	if err != nil {
		return 0, fmt.Errorf("calculator: compile %q: %w", expression, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, fmt.Errorf("calculator: evaluate %q: %w", expression, err)
	}

	result, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("%w: got %T", ErrNotNumeric, out)
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("calculator: %q is not finite", expression)
	}
	return result, nil
}

func toFloat(value any) (float64, bool) {
	switch number := value.(type) {
	case int:
		return float64(number), true
	case int64:
		return float64(number), true
	case float64:
		return number, true
	case float32:
		return float64(number), true
	default:
		return 0, false
	}
}
