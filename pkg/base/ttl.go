package base

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ResolveTTL computes the absolute expiry, in Unix epoch seconds, for the
// supplied relative (expireIn) or absolute (expireAt) option. ok is false when
// neither is set.
//
// expireIn accepts any Go numeric type or json.Number (seconds) and
// time.Duration. expireAt accepts numeric epoch seconds and time.Time.
func ResolveTTL(expireIn, expireAt any, now time.Time) (ttl int64, ok bool, err error) {
	if expireIn == nil && expireAt == nil {
		return 0, false, nil
	}
	if expireIn != nil && expireAt != nil {
		return 0, false, ErrConflictingOptions
	}

	if expireIn != nil {
		var seconds float64
		if d, isDuration := expireIn.(time.Duration); isDuration {
			seconds = d.Seconds()
		} else if seconds, ok = toFloat(expireIn); !ok {
			return 0, false, fmt.Errorf("%w: expireIn should be a number or time.Duration, got %T", ErrInvalidOptionType, expireIn)
		}
		ms := now.UnixMilli() + int64(seconds*1000)
		return floorDiv(ms, 1000), true, nil
	}

	switch at := expireAt.(type) {
	case time.Time:
		return floorDiv(at.UnixMilli(), 1000), true, nil
	case *time.Time:
		if at != nil {
			return floorDiv(at.UnixMilli(), 1000), true, nil
		}
	default:
		if epoch, isInt, inRange := toInt64(expireAt); isInt {
			if !inRange {
				return 0, false, fmt.Errorf("%w: expireAt %v overflows int64", ErrInvalidOptionType, expireAt)
			}
			return epoch, true, nil
		}
		if seconds, isNumber := toFloat(expireAt); isNumber {
			return int64(math.Floor(seconds)), true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: expireAt should be a number or time.Time, got %T", ErrInvalidOptionType, expireAt)
}

// toInt64 converts integer kinds exactly. isInt is false for every other
// type, including json.Number values that are not integers.
func toInt64(v any) (n int64, isInt, inRange bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true, true
	case int8:
		return int64(i), true, true
	case int16:
		return int64(i), true, true
	case int32:
		return int64(i), true, true
	case int64:
		return i, true, true
	case uint:
		return int64(i), true, uint64(i) <= math.MaxInt64
	case uint8:
		return int64(i), true, true
	case uint16:
		return int64(i), true, true
	case uint32:
		return int64(i), true, true
	case uint64:
		return int64(i), true, i <= math.MaxInt64
	case json.Number:
		if parsed, err := i.Int64(); err == nil {
			return parsed, true, true
		}
	}
	return 0, false, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
