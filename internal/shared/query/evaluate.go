package query

import (
	"strings"
	"time"
)

// Match evaluates a predicate against a record field value. Used by the
// fixture store, which filters entirely in memory.
func Match(p Predicate, value any) bool {
	switch p.Op {
	case OpEq:
		return equal(value, p.Value)
	case OpContains:
		needle, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(toString(value)), strings.ToLower(needle))
	case OpPrefix:
		needle, _ := p.Value.(string)
		return strings.HasPrefix(strings.ToLower(toString(value)), strings.ToLower(needle))
	case OpGTE:
		c, ok := compare(value, p.Value)
		return ok && c >= 0
	case OpLTE:
		c, ok := compare(value, p.Value)
		return ok && c <= 0
	case OpIn:
		for _, v := range p.Values {
			if equal(value, v) {
				return true
			}
		}
		return false
	}
	return false
}

// Less reports whether a sorts before b, for in-memory ordering.
func Less(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c < 0
	}
	return toString(a) < toString(b)
}

// equal matches SQL equality semantics: a nil field equals nothing but nil,
// and values compare cannot relate are not equal.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, ok := compare(a, b)
	return ok && c == 0
}

func compare(a, b any) (int, bool) {
	if at, aok := asTime(a); aok {
		bt, bok := asTime(b)
		if !bok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}

	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		if ab == bb {
			return 0, true
		}
		if !ab {
			return -1, true
		}
		return 1, true
	}

	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	case time.Time:
		return s.Format(time.RFC3339Nano)
	}
	return ""
}
