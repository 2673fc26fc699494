// Package jsonc parses the JSON dialect used by configuration files and
// front matter: plain JSON where whole lines starting with # are comments.
package jsonc

import (
	"fmt"
	"regexp"

	"github.com/ohler55/ojg/oj"
)

var commentLineRe = regexp.MustCompile(`(?m)^[ \t]*#.*$`)

// StripComments blanks out every line whose first non-space character is #.
// Line count is preserved so parser positions still point at the source.
func StripComments(contents string) string {
	return commentLineRe.ReplaceAllString(contents, "")
}

// Parse parses contents into a generic value. Objects decode to
// map[string]any, arrays to []any, integers to int64.
func Parse(contents string) (any, error) {
	data, err := oj.ParseString(StripComments(contents))
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return data, nil
}

// ParseObject parses contents and requires the top level to be an object.
// An empty document yields an empty map.
func ParseObject(contents string) (map[string]any, error) {
	if isBlank(StripComments(contents)) {
		return map[string]any{}, nil
	}

	data, err := Parse(contents)
	if err != nil {
		return nil, err
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", data)
	}
	return obj, nil
}

// Marshal renders a value as compact JSON.
func Marshal(v any) string {
	return oj.JSON(v, &oj.Options{Sort: true})
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
