package mock

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Ratio1/detabase_sdk_go/pkg/base"
)

// applyUpdate mutates doc in place. The caller discards doc on error.
func applyUpdate(doc base.Item, p base.UpdatePayload) error {
	for _, field := range touched(p) {
		if field == base.KeyField {
			return base.NewRemoteError(http.StatusBadRequest, "Cannot update the key")
		}
	}

	for field, value := range p.Set {
		if err := setPath(doc, field, value); err != nil {
			return err
		}
	}
	for field, by := range p.Increment {
		current, _ := getPath(doc, field)
		var n float64
		switch v := current.(type) {
		case nil:
		case float64:
			n = v
		default:
			return base.NewRemoteError(http.StatusBadRequest, fmt.Sprintf("Cannot increment non-number field '%s'", field))
		}
		if err := setPath(doc, field, n+by); err != nil {
			return err
		}
	}
	for field, values := range p.Append {
		current, err := listAt(doc, field)
		if err != nil {
			return err
		}
		if err := setPath(doc, field, append(current, asList(values)...)); err != nil {
			return err
		}
	}
	for field, values := range p.Prepend {
		current, err := listAt(doc, field)
		if err != nil {
			return err
		}
		if err := setPath(doc, field, append(asList(values), current...)); err != nil {
			return err
		}
	}
	for _, field := range p.Delete {
		deletePath(doc, field)
	}
	return nil
}

func touched(p base.UpdatePayload) []string {
	fields := make([]string, 0, p.Fields())
	for f := range p.Set {
		fields = append(fields, f)
	}
	for f := range p.Increment {
		fields = append(fields, f)
	}
	for f := range p.Append {
		fields = append(fields, f)
	}
	for f := range p.Prepend {
		fields = append(fields, f)
	}
	return append(fields, p.Delete...)
}

func listAt(doc base.Item, field string) ([]any, error) {
	current, _ := getPath(doc, field)
	switch v := current.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return append([]any(nil), v...), nil
	}
	return nil, base.NewRemoteError(http.StatusBadRequest, fmt.Sprintf("Cannot append to non-list field '%s'", field))
}

func asList(values any) []any {
	if list, ok := values.([]any); ok {
		return list
	}
	return []any{values}
}

func getPath(doc map[string]any, field string) (any, bool) {
	parts := strings.Split(field, ".")
	cur := doc
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func setPath(doc map[string]any, field string, value any) error {
	parts := strings.Split(field, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		switch next := cur[part].(type) {
		case map[string]any:
			cur = next
		case nil:
			child := map[string]any{}
			cur[part] = child
			cur = child
		default:
			return base.NewRemoteError(http.StatusBadRequest, fmt.Sprintf("Field '%s' is not an object", part))
		}
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

func deletePath(doc map[string]any, field string) {
	parts := strings.Split(field, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
