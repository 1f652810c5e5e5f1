package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ratio1/detabase_sdk_go/pkg/base"
)

// readArg returns raw, or stdin when raw is "-".
func readArg(raw string) ([]byte, error) {
	if raw == "-" {
		return io.ReadAll(os.Stdin)
	}
	return []byte(raw), nil
}

func parseItem(raw string) (base.Item, error) {
	data, err := readArg(raw)
	if err != nil {
		return nil, err
	}
	var item base.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("%w: item must be a JSON object: %v", errUsage, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item must be a JSON object", errUsage)
	}
	return item, nil
}

// parseUpdates decodes a JSON object of field updates. A value that is an
// object with a single "$" key is an action:
//
//	{"$increment": 2}  {"$append": "x"}  {"$prepend": ["a"]}  {"$trim": true}
func parseUpdates(raw string) (base.Updates, error) {
	data, err := readArg(raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: updates must be a JSON object: %v", errUsage, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no updates given", errUsage)
	}

	updates := make(base.Updates, len(fields))
	for field, value := range fields {
		action, err := parseAction(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", errUsage, field, err)
		}
		if action != nil {
			updates[field] = action
			continue
		}
		updates[field] = value
	}
	return updates, nil
}

func parseAction(value any) (base.Action, error) {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) != 1 {
		return nil, nil
	}
	for marker, arg := range obj {
		if !strings.HasPrefix(marker, "$") {
			return nil, nil
		}
		switch marker {
		case "$increment":
			by, ok := arg.(float64)
			if !ok {
				return nil, fmt.Errorf("$increment needs a number, got %T", arg)
			}
			return base.Increment(by), nil
		case "$append":
			return base.Append(arg), nil
		case "$prepend":
			return base.Prepend(arg), nil
		case "$trim":
			if arg != true {
				return nil, fmt.Errorf("$trim must be true")
			}
			return base.Trim(), nil
		default:
			return nil, fmt.Errorf("unknown action %s", marker)
		}
	}
	return nil, nil
}

// parseQuery accepts a single filter object or a list of them. Empty input
// matches everything.
func parseQuery(raw string) (base.Query, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	data, err := readArg(raw)
	if err != nil {
		return nil, err
	}
	var query base.Query
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		if err := json.Unmarshal(data, &query); err != nil {
			return nil, fmt.Errorf("%w: query: %v", errUsage, err)
		}
		return query, nil
	}
	var filter base.Filter
	if err := json.Unmarshal(data, &filter); err != nil {
		return nil, fmt.Errorf("%w: query: %v", errUsage, err)
	}
	return base.Or(filter), nil
}
