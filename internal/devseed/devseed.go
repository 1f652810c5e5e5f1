// Package devseed loads seed data for the in-memory Base emulator and the
// sandbox server. Seed files are JSON or YAML documents of the form
//
//	bases:
//	  - base: users
//	    items:
//	      - {key: "1", name: alex}
package devseed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BaseSeed lists the items preloaded into one base.
type BaseSeed struct {
	Base  string           `json:"base" yaml:"base"`
	Items []map[string]any `json:"items" yaml:"items"`
}

// File is the top-level seed document.
type File struct {
	Bases []BaseSeed `json:"bases" yaml:"bases"`
}

// Load reads a seed file. Files ending in .yaml or .yml are decoded as YAML,
// everything else as JSON.
func Load(path string) ([]BaseSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON seed document.
func ParseJSON(data []byte) ([]BaseSeed, error) {
	var f File
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("devseed: decode json: %w", err)
	}
	return validate(f.Bases)
}

// ParseYAML decodes a YAML seed document.
func ParseYAML(data []byte) ([]BaseSeed, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("devseed: decode yaml: %w", err)
	}
	return validate(f.Bases)
}

func validate(bases []BaseSeed) ([]BaseSeed, error) {
	for i, b := range bases {
		if strings.TrimSpace(b.Base) == "" {
			return nil, fmt.Errorf("devseed: entry %d is missing a base name", i)
		}
	}
	return bases, nil
}
