package base

import (
	"fmt"
	"maps"
	"slices"
)

// Updates maps field names to plain values (set) or Actions.
type Updates map[string]any

// UpdatePayload is the PATCH /items/<key> body.
type UpdatePayload struct {
	Set       map[string]any     `json:"set"`
	Increment map[string]float64 `json:"increment"`
	Append    map[string]any     `json:"append"`
	Prepend   map[string]any     `json:"prepend"`
	Delete    []string           `json:"delete"`
}

// NewUpdatePayload returns a payload with all five buckets empty.
func NewUpdatePayload() UpdatePayload {
	return UpdatePayload{
		Set:       map[string]any{},
		Increment: map[string]float64{},
		Append:    map[string]any{},
		Prepend:   map[string]any{},
		Delete:    []string{},
	}
}

// EncodeUpdates partitions updates into the five payload buckets. Every field
// lands in exactly one bucket. Fields are visited in sorted order so the
// delete list is deterministic.
func EncodeUpdates(updates Updates) UpdatePayload {
	payload := NewUpdatePayload()
	for _, field := range slices.Sorted(maps.Keys(updates)) {
		value := updates[field]
		action, ok := asAction(value)
		if !ok {
			payload.Set[field] = value
			continue
		}
		switch a := action.(type) {
		case IncrementAction:
			payload.Increment[field] = a.By
		case AppendAction:
			payload.Append[field] = a.Values
		case PrependAction:
			payload.Prepend[field] = a.Values
		case TrimAction:
			payload.Delete = append(payload.Delete, field)
		default:
			panic(fmt.Sprintf("base: unhandled update action %T", action))
		}
	}
	return payload
}

// Fields reports how many fields the payload touches across all buckets.
func (p UpdatePayload) Fields() int {
	return len(p.Set) + len(p.Increment) + len(p.Append) + len(p.Prepend) + len(p.Delete)
}

// asAction unwraps pointer actions. Nil pointers are treated as plain values.
func asAction(v any) (Action, bool) {
	switch a := v.(type) {
	case IncrementAction, AppendAction, PrependAction, TrimAction:
		return a.(Action), true
	case *IncrementAction:
		if a != nil {
			return *a, true
		}
	case *AppendAction:
		if a != nil {
			return *a, true
		}
	case *PrependAction:
		if a != nil {
			return *a, true
		}
	case *TrimAction:
		if a != nil {
			return *a, true
		}
	}
	return nil, false
}
