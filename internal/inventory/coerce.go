package inventory

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric product fields are coerced, not rejected: unparseable or negative
// input silently becomes the field's default. This permissive-write policy
// is inherited from the original data model and is kept deliberately.
const (
	DefaultQuantity  = 0
	DefaultThreshold = 2
)

// CoerceQuantity interprets arbitrary input as a quantity, falling back to 0.
func CoerceQuantity(v any) int {
	return coerceInt(v, DefaultQuantity)
}

// CoerceThreshold interprets arbitrary input as a purchase threshold,
// falling back to 2.
func CoerceThreshold(v any) int {
	return coerceInt(v, DefaultThreshold)
}

func coerceInt(v any, fallback int) int {
	n, ok := toInt(v)
	if !ok || n < 0 {
		return fallback
	}
	return n
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		// JSON numbers decode as float64; accept only integral values.
		if math.Trunc(x) != x {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		return 0, false
	default:
		return 0, false
	}
}
