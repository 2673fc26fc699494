package jsont

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/saltyorg/recipe/internal/jsonc"
	"github.com/spf13/cast"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Formatter transforms a substituted value. Formatters chain left to right.
type Formatter func(v any) (any, error)

var builtinFormatters = map[string]Formatter{
	"str":             stringFormatter(func(s string) string { return s }),
	"raw":             stringFormatter(func(s string) string { return s }),
	"html":            stringFormatter(html.EscapeString),
	"html-attr-value": stringFormatter(html.EscapeString),
	"htmltag":         stringFormatter(html.EscapeString),
	"url-param-value": stringFormatter(url.QueryEscape),
	"upper":           stringFormatter(strings.ToUpper),
	"lower":           stringFormatter(strings.ToLower),
	"trim":            stringFormatter(strings.TrimSpace),
	"title":           stringFormatter(cases.Title(language.English).String),
	"json":            func(v any) (any, error) { return jsonc.Marshal(v), nil },
	"size":            size,
}

func stringFormatter(fn func(string) string) Formatter {
	return func(v any) (any, error) {
		return fn(String(v)), nil
	}
}

func size(v any) (any, error) {
	if n, ok := Len(v); ok {
		return n, nil
	}
	switch t := v.(type) {
	case map[string]any:
		return len(t), nil
	case string:
		return len(t), nil
	}
	return nil, fmt.Errorf("%T has no size", v)
}

// String renders a value the way a substitution writes it. Collections are
// written as JSON.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case map[string]any, []any:
		return jsonc.Marshal(t)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
