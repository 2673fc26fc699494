// Package convert turns document bodies of a given body-type into HTML
// fragments.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsonc"
	"github.com/saltyorg/recipe/internal/jsont"
	"github.com/saltyorg/recipe/internal/templates"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/spf13/cast"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrUnknownSourceType is returned for a body-type with no converter.
var ErrUnknownSourceType = errors.New("unknown source type")

// Converter converts a body. doc is the document being built.
type Converter interface {
	Convert(body string, doc *varstack.Stack) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(body string, doc *varstack.Stack) (string, error)

// Convert implements Converter.
func (f ConverterFunc) Convert(body string, doc *varstack.Stack) (string, error) {
	return f(body, doc)
}

// Registry maps body types to converters.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]Converter)}
}

// Default returns the standard converters: markdown (also md), html, jsont
// and json. JSON bodies are rendered with templates from engine and may load
// files from source.
func Default(engine *templates.Engine, source *filetree.Tree) *Registry {
	r := NewRegistry()
	md := NewMarkdown()
	r.Register("markdown", md)
	r.Register("md", md)
	r.Register("html", ConverterFunc(func(body string, _ *varstack.Stack) (string, error) {
		return body, nil
	}))
	r.Register("jsont", ConverterFunc(expandAgainstDoc))
	r.Register("json", &JSON{Templates: engine, Source: source})
	return r
}

// Register adds or replaces the converter for bodyType.
func (r *Registry) Register(bodyType string, c Converter) {
	r.converters[bodyType] = c
}

// Convert runs the converter registered for bodyType.
func (r *Registry) Convert(bodyType, body string, doc *varstack.Stack) (string, error) {
	c, ok := r.converters[bodyType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSourceType, bodyType)
	}
	return c.Convert(body, doc)
}

// MakeBody converts the body of doc according to its body-type.
func (r *Registry) MakeBody(doc *varstack.Stack) (string, error) {
	bodyType, _, err := doc.Get("body-type")
	if err != nil {
		return "", err
	}
	body, _, err := doc.Get("body")
	if err != nil {
		return "", err
	}
	return r.Convert(cast.ToString(bodyType), jsont.String(body), doc)
}

// Markdown renders CommonMark with GitHub extensions. Raw HTML passes
// through.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a Markdown converter.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)}
}

// Convert implements Converter.
func (m *Markdown) Convert(body string, _ *varstack.Stack) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

func expandAgainstDoc(body string, doc *varstack.Stack) (string, error) {
	return jsont.Expand(body, varstack.NewCursor(doc))
}

var filenameKeyRe = regexp.MustCompile(`^\$filename\.(.+)`)

// JSON treats the body as a data dictionary and renders it with the
// template named by its "template" key, "default" if absent. A key
// "$filename.x" sets x to the contents of the file it names.
type JSON struct {
	Templates *templates.Engine
	Source    *filetree.Tree
}

// Convert implements Converter.
func (j *JSON) Convert(body string, _ *varstack.Stack) (string, error) {
	data, err := jsonc.ParseObject(body)
	if err != nil {
		return "", err
	}

	for key, v := range data {
		m := filenameKeyRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		contents, err := j.Source.ContentsOf(cast.ToString(v))
		if err != nil {
			return "", err
		}
		data[m[1]] = contents
	}

	name := "default"
	if t, ok := data["template"]; ok {
		name = cast.ToString(t)
	}
	return j.Templates.Render(name, jsont.NewDataContext(data))
}
