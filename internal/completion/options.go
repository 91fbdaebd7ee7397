package completion

import (
	"fmt"
	"math"
	"sort"
)

const defaultMaxTokens = 4096

// maxTokensKeys are the option names accepted for the output token limit.
var maxTokensKeys = []string{"max_tokens", "max_output_tokens", "max_completion_tokens"}

// splitMaxTokens removes the token-limit option from opts and returns it
// together with the remaining options. fallback is used when no limit is set.
func splitMaxTokens(opts map[string]any, fallback int64) (int64, map[string]any, error) {
	rest := make(map[string]any, len(opts))
	for k, v := range opts {
		rest[k] = v
	}

	maxTokens := fallback
	for _, key := range maxTokensKeys {
		v, ok := rest[key]
		if !ok {
			continue
		}
		delete(rest, key)
		n, err := toInt64(v)
		if err != nil {
			return 0, nil, fmt.Errorf("option %s: %w", key, err)
		}
		maxTokens = n
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return maxTokens, rest, nil
}

// sortedKeys returns the keys of m in lexical order so request bodies are
// built deterministically.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		if float32(math.Trunc(float64(n))) != n {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case float64:
		if math.Trunc(n) != n {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func toFloat32(v any) (float32, error) {
	switch n := v.(type) {
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func toStrings(v any) ([]string, error) {
	switch s := v.(type) {
	case string:
		return []string{s}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings, got element %T", e)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
	}
}
