package conditions

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/enrollhq/admitflow/pkg/models"
)

// compareFunc is a pure comparison between a resolved field value and the
// condition's configured value. Incompatible operands yield false, never an
// error; partially populated applications must not abort evaluation.
type compareFunc func(left, right any) bool

var operatorTable = map[models.Operator]compareFunc{
	models.OperatorEquals:       equals,
	models.OperatorNotEquals:    func(l, r any) bool { return !equals(l, r) },
	models.OperatorGreater:      ordered(func(c int) bool { return c > 0 }),
	models.OperatorGreaterEqual: ordered(func(c int) bool { return c >= 0 }),
	models.OperatorLess:         ordered(func(c int) bool { return c < 0 }),
	models.OperatorLessEqual:    ordered(func(c int) bool { return c <= 0 }),
	models.OperatorContains:     contains,
	models.OperatorIn:           in,
	models.OperatorNotIn:        func(l, r any) bool { return !in(l, r) },
}

func equals(left, right any) bool {
	if ln, lok := asNumber(left); lok {
		rn, rok := asNumber(right)

		return rok && ln == rn
	}

	switch l := left.(type) {
	case string:
		r, ok := right.(string)

		return ok && l == r
	case bool:
		r, ok := right.(bool)

		return ok && l == r
	case nil:
		return right == nil
	default:
		return false
	}
}

// ordered builds a comparison over numeric or date-comparable operands.
// Anything else evaluates to false.
func ordered(accept func(cmp int) bool) compareFunc {
	return func(left, right any) bool {
		if ln, ok := asNumber(left); ok {
			rn, rok := asNumber(right)
			if !rok {
				return false
			}

			return accept(compareFloats(ln, rn))
		}

		if lt, ok := asTime(left); ok {
			rt, rok := asTime(right)
			if !rok {
				return false
			}

			return accept(lt.Compare(rt))
		}

		return false
	}
}

func contains(left, right any) bool {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)

		return ok && strings.Contains(l, r)
	case []any:
		for _, item := range l {
			if equals(item, right) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

// in tests scalar membership of the field value against an array-valued
// condition value.
func in(left, right any) bool {
	items, ok := right.([]any)
	if !ok {
		return false
	}

	for _, item := range items {
		if equals(left, item) {
			return true
		}
	}

	return false
}

func compareFloats(left, right float64) int {
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	default:
		return 0
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// asTime accepts time.Time values and RFC 3339 (or date-only) strings, which
// is how application snapshots carry dates over JSON.
func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}

		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, true
		}

		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
