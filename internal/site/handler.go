package site

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/saltyorg/recipe/internal/config"
	"github.com/saltyorg/recipe/internal/document"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/manifest"
	"github.com/saltyorg/recipe/internal/plugins"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/spf13/cast"
)

// Recorder receives the outcome of every file.
type Recorder interface {
	Record(ctx context.Context, e manifest.Entry) error
}

// Stats counts what happened to the files of a run.
type Stats struct {
	Generated   int
	Copied      int
	Skipped     int
	Filtered    int
	Failed      int
	BytesCopied int64

	// Failures lists the documents counted in Failed.
	Failures []*BuildError
}

// FileHandler receives the source tree walk and maintains the document
// stack: per-directory destination and config scopes, per-file document
// scopes and plugin scopes.
type FileHandler struct {
	ctx      context.Context
	opts     *config.Options
	source   *filetree.Tree
	stack    *varstack.Stack
	builder  *DocBuilder
	index    *document.IndexBuilder
	plugins  *plugins.Manager
	recorder Recorder

	sourceExts map[string]bool
	ignoreExts map[string]bool

	dirStack   []string
	depths     []int
	currentDir string
	destDir    string

	stats Stats
}

var _ filetree.TreeHandler = (*FileHandler)(nil)

// NewFileHandler wires a handler. recorder may be nil.
func NewFileHandler(ctx context.Context, opts *config.Options, source *filetree.Tree, stack *varstack.Stack,
	builder *DocBuilder, index *document.IndexBuilder, pm *plugins.Manager, recorder Recorder) *FileHandler {
	h := &FileHandler{
		ctx:        ctx,
		opts:       opts,
		source:     source,
		stack:      stack,
		builder:    builder,
		index:      index,
		plugins:    pm,
		recorder:   recorder,
		sourceExts: ExtensionSet(opts.SourceExtensions),
		ignoreExts: ExtensionSet(opts.IgnoreExtensions),
	}
	index.OnResult(h.onIndexResult)
	return h
}

// ExtensionSet returns the extensions as a set, without leading dots.
func ExtensionSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[strings.TrimPrefix(s, ".")] = true
	}
	return m
}

// Stats returns the counters so far.
func (h *FileHandler) Stats() Stats {
	return h.stats
}

func (h *FileHandler) recompute() {
	h.currentDir = strings.Join(h.dirStack, "/")
	h.destDir = document.ToDestPath(h.currentDir) + "/"
}

// EnterTree implements filetree.TreeHandler.
func (h *FileHandler) EnterTree() error {
	slog.Info("Entering source dir", logfields.Path(h.source.Root()))

	if err := h.plugins.EnterDir(""); err != nil {
		return err
	}
	h.depths = append(h.depths, h.stack.Size())
	h.stack.Push(map[string]any{"dest": map[string]any{"dir": ""}})
	h.index.EnterDir("")
	return nil
}

// ExitTree implements filetree.TreeHandler.
func (h *FileHandler) ExitTree() error {
	if len(h.dirStack) != 0 {
		return &InvariantError{What: "directory stack depth at tree exit", Want: 0, Got: len(h.dirStack)}
	}
	if err := h.index.ExitDir(); err != nil {
		return err
	}
	if err := h.popScopes(1); err != nil {
		return err
	}
	h.plugins.ExitDir()

	slog.Info("Leaving source dir")

	if !h.plugins.Empty() {
		return &InvariantError{What: "plugin stack depth", Want: 0, Got: h.plugins.Depth()}
	}
	if !h.index.Empty() {
		return &InvariantError{What: "index stack depth", Want: 0, Got: h.index.Depth()}
	}
	return nil
}

// EnterDir implements filetree.Handler.
func (h *FileHandler) EnterDir(name string) error {
	h.dirStack = append(h.dirStack, name)
	h.recompute()
	slog.Info("Entering dir", logfields.Dir(h.currentDir), logfields.Depth(len(h.dirStack)))

	if err := h.plugins.EnterDir(h.currentDir); err != nil {
		return err
	}
	cfg, err := config.ReadDirConfig(h.source, h.currentDir)
	if err != nil {
		return err
	}
	vars, _ := cfg[config.KeyVars].(map[string]any)
	if vars == nil {
		vars = map[string]any{}
	}

	h.depths = append(h.depths, h.stack.Size())
	h.stack.Push(map[string]any{"dest": map[string]any{"dir": h.destDir}})
	h.stack.Push(vars)
	h.index.EnterDir(h.destDir)
	return nil
}

// ExitDir implements filetree.Handler.
func (h *FileHandler) ExitDir() error {
	if err := h.index.ExitDir(); err != nil {
		return err
	}
	if err := h.popScopes(2); err != nil {
		return err
	}
	h.plugins.ExitDir()

	h.dirStack = h.dirStack[:len(h.dirStack)-1]
	h.recompute()
	slog.Debug("Leaving dir", logfields.Dir(h.currentDir))
	return nil
}

// popScopes pops the scopes of the directory being left and checks that
// the stack is back where it was when the directory was entered.
func (h *FileHandler) popScopes(n int) error {
	for i := 0; i < n; i++ {
		if _, err := h.stack.Pop(); err != nil {
			return err
		}
	}
	want := h.depths[len(h.depths)-1]
	h.depths = h.depths[:len(h.depths)-1]
	if got := h.stack.Size(); got != want {
		return &InvariantError{What: "document stack size after " + h.currentDir + "/", Want: want, Got: got}
	}
	return nil
}

// IsDocument reports whether the file at rel is a document rather than a
// static file: its extension is in sourceExts, or its name or a directory
// above it starts with an underscore.
func IsDocument(rel string, sourceExts map[string]bool) bool {
	if sourceExts[strings.TrimPrefix(path.Ext(rel), ".")] {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

// OnFile implements filetree.Handler.
func (h *FileHandler) OnFile(name string) error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	if strings.HasPrefix(name, "__") {
		slog.Debug("Ignoring", logfields.Path(name))
		return nil
	}

	rel := path.Join(h.currentDir, name)
	ext := strings.TrimPrefix(path.Ext(name), ".")

	if h.opts.SourceFilter != nil && !h.opts.SourceFilter.MatchString(rel) {
		h.stats.Filtered++
		h.record(manifest.Entry{Path: rel, Outcome: manifest.Filtered})
		return nil
	}

	if IsDocument(rel, h.sourceExts) {
		return h.onSource(rel, name)
	}

	if h.ignoreExts[ext] {
		slog.Debug("Ignoring", logfields.Path(rel))
		h.stats.Skipped++
		h.record(manifest.Entry{Path: rel, Outcome: manifest.Skipped})
		return nil
	}

	slog.Info("Copying", logfields.Path(rel))
	n, err := h.builder.Copy(rel)
	if err != nil {
		return h.fail(rel, err)
	}
	h.stats.Copied++
	h.stats.BytesCopied += n
	h.record(manifest.Entry{Path: rel, Dest: rel, Outcome: manifest.Copied, Bytes: n})
	return nil
}

func (h *FileHandler) onSource(rel, name string) (err error) {
	slog.Debug("Source file", logfields.Path(rel))

	base := h.stack.Size()
	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			if _, perr := h.stack.Pop(); perr != nil {
				err = perr
				return
			}
		}
		if got := h.stack.Size(); got != base {
			err = &InvariantError{What: "document stack size after " + rel, Want: base, Got: got}
		}
	}()

	items, err := document.ReadSource(h.source, rel)
	if err != nil {
		return h.fail(rel, err)
	}

	h.stack.Push(map[string]any{"dest": map[string]any{
		"basename": strings.TrimSuffix(name, path.Ext(name)),
		"ext":      ".html",
	}})
	pushed++
	for _, item := range items {
		h.stack.Push(item)
		pushed++
	}

	n, err := h.plugins.OnDoc(h.stack)
	pushed += n
	if err != nil {
		return h.fail(rel, err)
	}

	hidden, _, err := h.stack.Get(".hidden")
	if err != nil {
		return h.fail(rel, err)
	}
	if cast.ToBool(hidden) {
		slog.Info("Skipping hidden file", logfields.Path(rel))
		h.stats.Skipped++
		h.record(manifest.Entry{Path: rel, Outcome: manifest.Skipped})
		return nil
	}

	isIndex, _, err := h.stack.Get(".index")
	if err != nil {
		return h.fail(rel, err)
	}
	if cast.ToBool(isIndex) {
		h.index.OnIndexDoc(rel)
		return nil
	}

	dest, err := h.builder.Build(h.stack)
	if err != nil {
		return h.fail(rel, err)
	}
	h.stats.Generated++
	h.index.OnDoc(items, dest)
	h.record(manifest.Entry{Path: rel, Dest: dest, Outcome: manifest.Generated})
	return nil
}

// fail handles a per-file error: it is returned unless keep-going is on, in
// which case it is counted.
func (h *FileHandler) fail(rel string, err error) error {
	slog.Error("Error building", logfields.Path(rel), logfields.Error(err))
	return h.failed(rel, err)
}

// failed records and counts a per-file error that was already logged.
func (h *FileHandler) failed(rel string, err error) error {
	h.record(manifest.Entry{Path: rel, Outcome: manifest.Failed, Error: err.Error()})
	if !h.opts.KeepGoing {
		return &BuildError{Path: rel, Err: err}
	}
	h.stats.Failed++
	h.stats.Failures = append(h.stats.Failures, &BuildError{Path: rel, Err: err})
	return nil
}

// onIndexResult accounts for an index document built on directory exit.
// Without keep-going the index builder returns the error itself.
func (h *FileHandler) onIndexResult(rel, dest string, err error) {
	if err != nil {
		_ = h.failed(rel, err)
		return
	}
	h.stats.Generated++
	h.record(manifest.Entry{Path: rel, Dest: dest, Outcome: manifest.Generated})
}

func (h *FileHandler) record(e manifest.Entry) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(h.ctx, e); err != nil {
		slog.Warn("Failed to record manifest entry", logfields.Path(e.Path), logfields.Error(err))
	}
}
