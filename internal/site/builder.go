package site

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/saltyorg/recipe/internal/convert"
	"github.com/saltyorg/recipe/internal/document"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsont"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/templates"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/spf13/cast"
)

// DefaultDoc is the bottom scope of every document.
func DefaultDoc() map[string]any {
	return map[string]any{
		".template": "default",
		".hidden":   false,
		"body-type": "html",
		// dest.dir is set per directory, dest.basename and dest.ext per file.
		"$doc-dest": "{dest.dir}{dest.basename}{dest.ext}",
		"$content":  "{body}",
	}
}

// DocBuilder converts documents and writes them to the destination tree.
type DocBuilder struct {
	converters *convert.Registry
	templates  *templates.Engine
	source     *filetree.Tree
	dest       *filetree.Tree
	dirs       *filetree.DirMaker
}

// NewDocBuilder returns a DocBuilder writing into dest.
func NewDocBuilder(converters *convert.Registry, engine *templates.Engine, source, dest *filetree.Tree) *DocBuilder {
	return &DocBuilder{
		converters: converters,
		templates:  engine,
		source:     source,
		dest:       dest,
		dirs:       filetree.NewDirMaker(dest),
	}
}

// Build renders the document on top of doc and writes it. It returns the
// destination path relative to the destination tree. doc is left as it was
// found.
func (b *DocBuilder) Build(doc *varstack.Stack) (dest string, err error) {
	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			_, _ = doc.Pop()
		}
	}()

	bodyType, _, err := doc.Get("body-type")
	if err != nil {
		return "", err
	}
	if bt := cast.ToString(bodyType); bt != "" && bt != "html" {
		slog.Debug("Converting body", logfields.BodyType(bt))
		body, err := b.converters.MakeBody(doc)
		if err != nil {
			return "", fmt.Errorf("converting %s body: %w", bt, err)
		}
		doc.Push(map[string]any{"body": body})
		pushed++
	}

	name, _, err := doc.Get(".template")
	if err != nil {
		return "", err
	}

	var html string
	if strings.EqualFold(cast.ToString(name), "none") {
		body, _, err := doc.Get("body")
		if err != nil {
			return "", err
		}
		rel, _, err := doc.Get("relative-path")
		if err != nil {
			return "", err
		}
		html, dest = jsont.String(body), cast.ToString(rel)
	} else {
		if html, err = b.templates.MakeHTML(doc); err != nil {
			return "", err
		}
		v, _, err := doc.Get("doc-dest")
		if err != nil {
			return "", err
		}
		dest = cast.ToString(v)
	}

	dest = document.ToDestPath(dest)
	if dest == "" {
		return "", fmt.Errorf("%w: empty destination path", ErrCannotWriteDestinationFile)
	}
	if err := b.dirs.Ensure(path.Dir(dest)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCannotWriteDestinationFile, err)
	}
	if err := b.dest.WriteFile(dest, html); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCannotWriteDestinationFile, err)
	}

	slog.Info("Wrote", logfields.Dest(b.dest.Path(dest)))
	return dest, nil
}

// Copy copies a static file to the same relative path in the destination
// tree and returns its size.
func (b *DocBuilder) Copy(rel string) (int64, error) {
	if err := b.dirs.Ensure(path.Dir(rel)); err != nil {
		return 0, err
	}
	return b.dest.Copy(b.source, rel)
}
