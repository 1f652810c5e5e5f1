// Package query compiles Base query filters into CEL programs evaluated over
// decoded items.
//
// A filter is a JSON object whose keys take the form "field" or
// "field?op". Dotted field names address nested objects. Conditions inside
// a filter are AND-ed, filters in a list are OR-ed.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
)

// Operators understood by Compile.
const (
	OpEqual       = "eq"
	OpNotEqual    = "ne"
	OpLess        = "lt"
	OpGreater     = "gt"
	OpLessOrEq    = "lte"
	OpGreaterOrEq = "gte"
	OpPrefix      = "pfx"
	OpRange       = "r"
	OpContains    = "contains"
	OpNotContains = "not_contains"
)

// ErrInvalidQuery wraps every compile failure.
var ErrInvalidQuery = errors.New("query: invalid query")

const itemVar = "item"

// Matcher evaluates a compiled filter list against items.
type Matcher struct {
	program    cel.Program
}

var env *cel.Env

func init() {
	var err error
	env, err = cel.NewEnv(
		cel.Variable(itemVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("query: create CEL environment: %v", err))
	}
}

// Compile builds a Matcher for filters. An empty list, or a list holding
// only empty filters, matches every item.
func Compile(filters []map[string]any) (*Matcher, error) {
	expr, err := Expression(filters)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", ErrInvalidQuery, expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: program %q: %v", ErrInvalidQuery, expr, err)
	}
	return &Matcher{program: prg}, nil
}

// Expression renders filters as a CEL expression over the item variable.
func Expression(filters []map[string]any) (string, error) {
	if len(filters) == 0 {
		return "true", nil
	}
	clauses := make([]string, 0, len(filters))
	for _, filter := range filters {
		clause, err := filterExpression(filter)
		if err != nil {
			return "", err
		}
		if clause == "true" {
			return "true", nil
		}
		clauses = append(clauses, "("+clause+")")
	}
	return strings.Join(clauses, " || "), nil
}

// Match reports whether item satisfies the filters. Evaluation errors, such
// as a missing field or mismatched types, count as no match.
func (m *Matcher) Match(item map[string]any) bool {
	out, _, err := m.program.Eval(map[string]any{itemVar: item})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}

func filterExpression(filter map[string]any) (string, error) {
	if len(filter) == 0 {
		return "true", nil
	}
	conds := make([]string, 0, len(filter))
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		field, op := splitKey(key)
		if field == "" {
			return "", fmt.Errorf("%w: empty field name in %q", ErrInvalidQuery, key)
		}
		cond, err := condition(fieldRef(field), op, filter[key])
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidQuery, key, err)
		}
		conds = append(conds, cond)
	}
	return strings.Join(conds, " && "), nil
}

func splitKey(key string) (field, op string) {
	idx := strings.LastIndex(key, "?")
	if idx < 0 {
		return key, OpEqual
	}
	return key[:idx], key[idx+1:]
}

func fieldRef(field string) string {
	var b strings.Builder
	b.WriteString(itemVar)
	for _, part := range strings.Split(field, ".") {
		b.WriteString("[")
		b.WriteString(strconv.Quote(part))
		b.WriteString("]")
	}
	return b.String()
}

func condition(ref, op string, value any) (string, error) {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpGreater, OpLessOrEq, OpGreaterOrEq:
		lit, err := literal(value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", ref, comparator(op), lit), nil
	case OpPrefix:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("prefix must be a string, got %T", value)
		}
		return fmt.Sprintf("%s.startsWith(%s)", ref, strconv.Quote(s)), nil
	case OpRange:
		bounds, ok := value.([]any)
		if !ok || len(bounds) != 2 {
			return "", errors.New("range must be a two element list")
		}
		lo, err := literal(bounds[0])
		if err != nil {
			return "", err
		}
		hi, err := literal(bounds[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s >= %s && %s <= %s)", ref, lo, ref, hi), nil
	case OpContains, OpNotContains:
		cond, err := containsExpression(ref, value)
		if err != nil {
			return "", err
		}
		if op == OpNotContains {
			return "!" + cond, nil
		}
		return cond, nil
	}
	return "", fmt.Errorf("unknown operator %q", op)
}

func comparator(op string) string {
	switch op {
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpLessOrEq:
		return "<="
	case OpGreaterOrEq:
		return ">="
	}
	return "=="
}

// containsExpression matches substrings of string fields and members of
// list fields.
func containsExpression(ref string, value any) (string, error) {
	lit, err := literal(value)
	if err != nil {
		return "", err
	}
	if _, ok := value.(string); ok {
		return fmt.Sprintf("(type(%s) == string ? %s.contains(%s) : %s in %s)", ref, ref, lit, lit, ref), nil
	}
	return fmt.Sprintf("(%s in %s)", lit, ref), nil
}

// literal renders a JSON-compatible value as a CEL literal. Numbers are
// rendered as doubles because decoded items carry float64 values.
func literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case string:
		return strconv.Quote(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return "", err
		}
		return doubleLiteral(f)
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			lit, err := literal(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			lit, err := literal(v[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, strconv.Quote(k)+": "+lit)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}
	if f, ok := number(value); ok {
		return doubleLiteral(f)
	}
	return "", fmt.Errorf("unsupported value type %T", value)
}

func doubleLiteral(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported number %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

func number(v any) (float64, bool) {
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
