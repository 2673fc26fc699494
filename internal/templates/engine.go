// Package templates loads the page templates documents are wrapped in.
package templates

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsont"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/spf13/cast"
)

// Ext is the file extension of templates on disk.
const Ext = ".jsont"

// ErrTemplateNotFound is returned when no template file has the requested name.
var ErrTemplateNotFound = errors.New("template not found")

// Engine handles template loading and rendering.
type Engine struct {
	tree      *filetree.Tree
	templates map[string]*jsont.Template
}

// New creates a new template engine reading <name>.jsont files from tree.
func New(tree *filetree.Tree) *Engine {
	return &Engine{
		tree:      tree,
		templates: make(map[string]*jsont.Template),
	}
}

// Dir is the directory templates are read from.
func (e *Engine) Dir() string {
	return e.tree.Root()
}

// LoadString registers a template from a string under name.
func (e *Engine) LoadString(name, content string) error {
	tmpl, err := jsont.Parse(content)
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", name, err)
	}

	e.templates[name] = tmpl
	return nil
}

// Get returns the template called name, loading it on first use.
func (e *Engine) Get(name string) (*jsont.Template, error) {
	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}

	slog.Debug("Loading template", logfields.Template(name), logfields.Dir(e.Dir()))
	content, err := e.tree.ContentsOf(name + Ext)
	if err != nil {
		if errors.Is(err, filetree.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s (looked in %s)", ErrTemplateNotFound, name, e.Dir())
		}
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}

	if err := e.LoadString(name, content); err != nil {
		return nil, err
	}
	return e.templates[name], nil
}

// Render expands the named template against ctx.
func (e *Engine) Render(name string, ctx jsont.Context) (string, error) {
	tmpl, err := e.Get(name)
	if err != nil {
		return "", err
	}

	out, err := tmpl.Expand(ctx)
	if err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return out, nil
}

// MakeHTML renders the full page for doc with the template named by its
// .template variable.
func (e *Engine) MakeHTML(doc *varstack.Stack) (string, error) {
	name, _, err := doc.Get(".template")
	if err != nil {
		return "", err
	}
	return e.Render(cast.ToString(name), varstack.NewCursor(doc))
}
