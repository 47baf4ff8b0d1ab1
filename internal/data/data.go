// Package data loads the render data for templates from JSON or YAML files
// and applies --set overrides on top.
package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stdin is the data file name that reads from standard input.
const Stdin = "-"

// Options configures how render data is assembled.
type Options struct {
	// Files are JSON or YAML documents merged in order (last wins).
	Files []string

	// Values are key=value overrides with dotted keys for nested maps.
	Values []string

	// Stdin is read when a file is named "-". Defaults to os.Stdin.
	Stdin io.Reader
}

// Load merges the data files and applies the overrides.
func Load(opts Options) (map[string]interface{}, error) {
	base := make(map[string]interface{})

	for _, f := range opts.Files {
		raw, err := readSource(f, opts.Stdin)
		if err != nil {
			return nil, err
		}

		doc, err := Decode(raw, formatOf(f))
		if err != nil {
			return nil, fmt.Errorf("parsing data file %q: %w", f, err)
		}

		Merge(base, doc)
	}

	for _, v := range opts.Values {
		if err := Set(base, v); err != nil {
			return nil, fmt.Errorf("parsing --set %q: %w", v, err)
		}
	}

	return base, nil
}

func readSource(name string, stdin io.Reader) ([]byte, error) {
	if name == Stdin {
		if stdin == nil {
			stdin = os.Stdin
		}
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading data from stdin: %w", err)
		}
		return raw, nil
	}

	raw, err := os.ReadFile(name) //nolint:gosec // user-provided data file
	if err != nil {
		return nil, fmt.Errorf("reading data file %q: %w", name, err)
	}
	return raw, nil
}

// Format is the encoding of a data document.
type Format int

const (
	// FormatYAML also accepts JSON, which is a YAML subset.
	FormatYAML Format = iota
	FormatJSON
)

func formatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses raw as a mapping document. An empty document yields an
// empty map.
func Decode(raw []byte, format Format) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	if len(strings.TrimSpace(string(raw))) == 0 {
		return doc, nil
	}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(raw, &doc)
	default:
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Merge deep-merges src into dst. Nested maps are merged, other values
// from src replace those in dst.
func Merge(dst, src map[string]interface{}) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			Merge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// Set applies one key=value override. The key is a dotted path; missing
// intermediate maps are created. The value is decoded as a YAML scalar or
// flow collection so "3", "true" and "[a, b]" keep their types.
func Set(dst map[string]interface{}, assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("expected key=value")
	}

	path := strings.Split(strings.TrimSpace(key), ".")
	for _, part := range path {
		if part == "" {
			return fmt.Errorf("empty key segment in %q", key)
		}
	}

	current := dst
	for _, part := range path[:len(path)-1] {
		next, isMap := current[part].(map[string]interface{})
		if !isMap {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}

	current[path[len(path)-1]] = parseValue(raw)
	return nil
}

func parseValue(raw string) interface{} {
	if raw == "" {
		return ""
	}

	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	// Mappings would turn "a: b" into a nested object, which an override
	// never means.
	if _, isMap := v.(map[string]interface{}); isMap {
		return raw
	}
	// A value that is only a comment decodes to nil.
	if v == nil && raw != "null" && raw != "~" {
		return raw
	}
	return v
}
