package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestExpression(t *testing.T) {
	expr, err := Expression(nil)
	require.NoError(t, err)
	assert.Equal(t, "true", expr)

	expr, err = Expression([]map[string]any{{}})
	require.NoError(t, err)
	assert.Equal(t, "true", expr)

	expr, err = Expression([]map[string]any{
		{"age?gte": 18, "name": "alex"},
		{"profile.city?pfx": "Ber"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`(item["age"] >= 18.0 && item["name"] == "alex") || (item["profile"]["city"].startsWith("Ber"))`,
		expr)
}

func TestCompileRejectsBadFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]any
	}{
		{name: "unknown operator", filter: map[string]any{"age?between": 1}},
		{name: "prefix needs string", filter: map[string]any{"name?pfx": 1}},
		{name: "range needs two bounds", filter: map[string]any{"age?r": []any{1.0}}},
		{name: "empty field", filter: map[string]any{"?gt": 1}},
		{name: "unsupported value", filter: map[string]any{"age": struct{}{}}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile([]map[string]any{tc.filter})
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestMatch(t *testing.T) {
	alex := decode(t, `{"key":"1","name":"alex","age":30,"tags":["admin","dev"],"bio":"likes go","profile":{"city":"Berlin"}}`)
	sam := decode(t, `{"key":"2","name":"sam","age":17,"tags":["dev"],"bio":"likes rust"}`)

	tests := []struct {
		name    string
		filters []map[string]any
		alex    bool
		sam     bool
	}{
		{name: "match all", filters: nil, alex: true, sam: true},
		{name: "equal", filters: []map[string]any{{"name": "sam"}}, sam: true},
		{name: "not equal", filters: []map[string]any{{"name?ne": "sam"}}, alex: true},
		{name: "greater", filters: []map[string]any{{"age?gt": 18}}, alex: true},
		{name: "less or equal", filters: []map[string]any{{"age?lte": 17}}, sam: true},
		{name: "range", filters: []map[string]any{{"age?r": []any{10.0, 20.0}}}, sam: true},
		{name: "prefix", filters: []map[string]any{{"name?pfx": "al"}}, alex: true},
		{name: "list contains", filters: []map[string]any{{"tags?contains": "admin"}}, alex: true},
		{name: "string contains", filters: []map[string]any{{"bio?contains": "rust"}}, sam: true},
		{name: "not contains", filters: []map[string]any{{"tags?not_contains": "admin"}}, sam: true},
		{name: "nested field", filters: []map[string]any{{"profile.city": "Berlin"}}, alex: true},
		{name: "missing field never matches", filters: []map[string]any{{"profile.city?ne": "Paris"}}, alex: true},
		{name: "and within filter", filters: []map[string]any{{"age?gt": 10, "name": "alex"}}, alex: true},
		{name: "or across filters", filters: []map[string]any{{"name": "alex"}, {"name": "sam"}}, alex: true, sam: true},
		{name: "type mismatch", filters: []map[string]any{{"name?gt": 3}}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m, err := Compile(tc.filters)
			require.NoError(t, err)
			assert.Equal(t, tc.alex, m.Match(alex), "alex: %s", m)
			assert.Equal(t, tc.sam, m.Match(sam), "sam: %s", m)
		})
	}
}
