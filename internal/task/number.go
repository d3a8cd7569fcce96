package task

import (
	"encoding/json"
	"math"
	"reflect"
)

// DecodeJSON reads a value decoded with json.Decoder.UseNumber: integral
// numbers become int64 and the rest float64, so a task read back and sent
// unchanged compares equal to what is stored.
func DecodeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = DecodeJSON(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = DecodeJSON(e)
		}
		return t
	default:
		return v
	}
}

// sameValue reports whether a $set of b over a would leave the field as it
// is. Numbers compare by value whatever their Go type.
func sameValue(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) == toFloat(b)
	}
	switch x := a.(type) {
	case map[string]any:
		y, ok := asMap(b)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !sameValue(v, w) {
				return false
			}
		}
		return true
	case Document:
		return sameValue(map[string]any(x), b)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !sameValue(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

func isNumber(v any) bool {
	return rank(v) == 1
}

// bsonValue narrows integers to int32 when they fit, the width other
// MongoDB clients use for small integers.
func bsonValue(v any) any {
	switch t := v.(type) {
	case int64:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return int32(t)
		}
		return t
	case int:
		return bsonValue(int64(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = bsonValue(e)
		}
		return out
	case Document:
		return Document(bsonValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = bsonValue(e)
		}
		return out
	default:
		return v
	}
}
