package document

import (
	"fmt"
	"log/slog"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsont"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/varstack"
)

// BuildFunc renders the document on top of the stack and returns the
// destination path it was written to.
type BuildFunc func(doc *varstack.Stack) (string, error)

// ResultFunc is told the outcome of every index document: dest when it was
// written, err when it failed.
type ResultFunc func(relPath, dest string, err error)

// IndexBuilder accumulates per-directory records of the documents built
// while a directory is walked, and expands the directory's index documents
// when it is exited.
type IndexBuilder struct {
	source    *filetree.Tree
	stack     *varstack.Stack
	build     BuildFunc
	keepGoing bool

	dirStack []string
	levels   []*indexLevel

	onResult ResultFunc
}

type indexLevel struct {
	docs      []any
	dirs      []any
	allDocs   []any
	indexDocs []string
}

func (l *indexLevel) record() map[string]any {
	indexDocs := make([]any, len(l.indexDocs))
	for i, d := range l.indexDocs {
		indexDocs[i] = d
	}
	return map[string]any{
		"docs":       l.docs,
		"dirs":       l.dirs,
		"all-docs":   l.allDocs,
		"index-docs": indexDocs,
	}
}

// NewIndexBuilder returns an IndexBuilder that reads index documents from
// source, expands them on stack and hands them to build.
func NewIndexBuilder(source *filetree.Tree, stack *varstack.Stack, build BuildFunc, keepGoing bool) *IndexBuilder {
	return &IndexBuilder{source: source, stack: stack, build: build, keepGoing: keepGoing}
}

// OnResult sets the function told about every index document built.
func (b *IndexBuilder) OnResult(f ResultFunc) {
	b.onResult = f
}

// Empty reports whether every entered directory has been exited.
func (b *IndexBuilder) Empty() bool {
	return len(b.levels) == 0
}

// Depth is the number of open accumulator levels.
func (b *IndexBuilder) Depth() int {
	return len(b.levels)
}

// EnterDir starts a new accumulator level. destDir is "" for the tree root
// and otherwise ends in a slash.
func (b *IndexBuilder) EnterDir(destDir string) {
	if destDir != "" && len(b.levels) > 0 {
		top := b.levels[len(b.levels)-1]
		top.dirs = append(top.dirs, map[string]any{"name": destDir})
	}
	b.dirStack = append(b.dirStack, destDir)
	b.levels = append(b.levels, &indexLevel{})
}

// OnDoc records a built document. items are the document's metadata and
// front matter scopes; url is where it was written.
func (b *IndexBuilder) OnDoc(items []map[string]any, url string) {
	rec := make(map[string]any)
	for _, item := range items {
		for k, v := range item {
			rec[k] = v
		}
	}
	rec["url"] = url

	n := len(b.levels)
	if n == 0 {
		return
	}
	b.levels[n-1].docs = append(b.levels[n-1].docs, rec)
	for _, l := range b.levels {
		l.allDocs = append(l.allDocs, rec)
	}
}

// OnIndexDoc defers the document at relPath until its directory is exited.
func (b *IndexBuilder) OnIndexDoc(relPath string) {
	if n := len(b.levels); n > 0 {
		b.levels[n-1].indexDocs = append(b.levels[n-1].indexDocs, relPath)
	}
}

// ExitDir builds the index documents of the directory being left as
// index.html in that directory.
func (b *IndexBuilder) ExitDir() error {
	if len(b.levels) == 0 {
		return fmt.Errorf("index builder: exit without matching enter")
	}
	destDir := b.dirStack[len(b.dirStack)-1]
	top := b.levels[len(b.levels)-1]
	b.dirStack = b.dirStack[:len(b.dirStack)-1]
	b.levels = b.levels[:len(b.levels)-1]

	if len(top.indexDocs) > 0 {
		slog.Info("Building indices", logfields.Dir(destDir))
	}
	for _, rel := range top.indexDocs {
		dest, err := b.buildIndex(destDir, top, rel)
		if err != nil {
			err = fmt.Errorf("index %s: %w", rel, err)
			slog.Error("Failed to build index", logfields.Path(rel), logfields.Error(err))
		}
		if b.onResult != nil {
			b.onResult(rel, dest, err)
		}
		if err != nil && !b.keepGoing {
			return err
		}
	}
	return nil
}

func (b *IndexBuilder) buildIndex(destDir string, level *indexLevel, rel string) (string, error) {
	items, err := ReadSource(b.source, rel)
	if err != nil {
		return "", err
	}

	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			_, _ = b.stack.Pop()
		}
	}()

	b.stack.Push(level.record())
	pushed++
	for _, item := range items {
		b.stack.Push(item)
		pushed++
	}

	body, _, err := b.stack.Get("body")
	if err != nil {
		return "", err
	}
	expanded, err := jsont.Expand(jsont.String(body), varstack.NewCursor(b.stack))
	if err != nil {
		return "", err
	}

	page := map[string]any{
		"body":          expanded,
		"dest":          map[string]any{"dir": destDir, "basename": "index", "ext": ".html"},
		"relative-path": destDir + "index.html",
	}
	if bt, _, _ := b.stack.Get("body-type"); bt == "jsont" {
		page["body-type"] = "html"
	}
	b.stack.Push(page)
	pushed++

	return b.build(b.stack)
}
