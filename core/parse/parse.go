package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNotObject is returned by Arguments when the text decodes to a non-object.
var ErrNotObject = errors.New("parse: arguments are not a JSON object")

// As decodes content into T. When strict decoding fails the content is
// repaired and, as a last step, schema-wrapped values are unwrapped.
//
//	person, err := parse.As[Person](`{name: 'John', age: 30}`)
func As[T any](content string) (T, error) {
	var result T

	content = stripFence(content)
	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("decode %T: %w (repair: %v)", result, err, repairErr)
	}
	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}

	unwrapped, unwrapErr := unwrapSchemaValues(repaired)
	if unwrapErr == nil {
		var retry T
		if json.Unmarshal([]byte(unwrapped), &retry) == nil {
			return retry, nil
		}
	}
	return result, fmt.Errorf("decode repaired %T: %w", result, err)
}

// Value decodes content into a generic JSON value (map, slice or scalar).
func Value(content string) (any, error) {
	return As[any](content)
}

// Arguments decodes a tool-call argument string. Empty input yields an empty
// object, since models commonly send "" for functions without parameters.
func Arguments(content string) (map[string]any, error) {
	if strings.TrimSpace(content) == "" {
		return map[string]any{}, nil
	}
	value, err := Value(content)
	if err != nil {
		return nil, err
	}
	object, isObject := value.(map[string]any)
	if !isObject {
		return nil, ErrNotObject
	}
	return object, nil
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

// unwrapSchemaValues replaces {"type": ..., "value": v} objects with v.
//
//	{"name": {"type": "string", "value": "John"}} -> {"name": "John"}
func unwrapSchemaValues(content string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(unwrap(data))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unwrap(data any) any {
	switch typed := data.(type) {
	case map[string]any:
		if _, hasType := typed["type"]; hasType && len(typed) == 2 {
			if value, hasValue := typed["value"]; hasValue {
				return unwrap(value)
			}
		}
		result := make(map[string]any, len(typed))
		for key, value := range typed {
			result[key] = unwrap(value)
		}
		return result
	case []any:
		result := make([]any, len(typed))
		for index, value := range typed {
			result[index] = unwrap(value)
		}
		return result
	default:
		return data
	}
}
