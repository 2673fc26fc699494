// Package site builds a destination tree from a source tree: it walks the
// source, assembles every document on a variable stack, renders it and
// copies static files.
package site

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/saltyorg/recipe/internal/config"
	"github.com/saltyorg/recipe/internal/convert"
	"github.com/saltyorg/recipe/internal/document"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/plugins"
	"github.com/saltyorg/recipe/internal/templates"
	"github.com/saltyorg/recipe/internal/varstack"
)

// Site is one configured build.
type Site struct {
	opts      *config.Options
	source    *filetree.Tree
	dest      *filetree.Tree
	templates *filetree.Tree
	recorder  Recorder
	runID     string
}

// New returns a Site over the directories named in opts.
func New(opts *config.Options) *Site {
	return NewWithTrees(opts,
		filetree.NewOS(opts.SourceTree),
		filetree.NewOS(opts.DestTree),
		filetree.NewOS(opts.TemplatesDir),
	)
}

// NewWithTrees returns a Site over explicit trees.
func NewWithTrees(opts *config.Options, source, dest, templates *filetree.Tree) *Site {
	return &Site{opts: opts, source: source, dest: dest, templates: templates}
}

// UseRecorder records every file outcome under runID.
func (s *Site) UseRecorder(r Recorder, runID string) {
	s.recorder, s.runID = r, runID
}

// Summary describes a finished run.
type Summary struct {
	Stats
	RunID string
	Dest  string
}

func (s Summary) String() string {
	msg := fmt.Sprintf("%d files generated, %d files copied (%s)",
		s.Generated, s.Copied, humanize.Bytes(uint64(s.BytesCopied)))
	if s.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	if s.Filtered > 0 {
		msg += fmt.Sprintf(", %d filtered", s.Filtered)
	}
	if s.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", s.Failed)
	}
	return msg
}

// Run builds the site.
func (s *Site) Run(ctx context.Context) (*Summary, error) {
	slog.Info("Building site",
		logfields.Path(s.source.Root()),
		logfields.Dest(s.dest.Root()),
		logfields.RunID(s.runID))
	if !s.templates.IsDir("") {
		slog.Warn("Templates directory does not exist", logfields.Dir(s.templates.Root()))
	}
	if s.opts.SourceFilter != nil {
		slog.Info("Source filter active", slog.String("filter", s.opts.SourceFilter.String()))
	}

	stack := varstack.New(DefaultDoc())
	for _, vars := range s.opts.Vars {
		stack.Push(vars)
	}
	stack.UseFileSystem(s.source)
	base := stack.Size()

	engine := templates.New(s.templates)
	builder := NewDocBuilder(convert.Default(engine, s.source), engine, s.source, s.dest)
	index := document.NewIndexBuilder(s.source, stack, builder.Build, s.opts.KeepGoing)
	handler := NewFileHandler(ctx, s.opts, s.source, stack, builder, index, plugins.NewManager(s.source), s.recorder)

	if err := filetree.Walk(s.source.FS(), handler, filetree.Options{IgnoreDirs: filetree.DefaultIgnoreDirs}); err != nil {
		return nil, err
	}
	if got := stack.Size(); got != base {
		return nil, &InvariantError{What: "document stack size after build", Want: base, Got: got}
	}
	if s.opts.Verbose {
		slog.Debug("Document stack", slog.String("scopes", stack.DebugString()))
	}

	stats := handler.Stats()
	summary := &Summary{Stats: stats, RunID: s.runID, Dest: s.dest.Root()}

	slog.Info("Done",
		logfields.Dest(s.dest.Root()),
		slog.Int(logfields.KeyGenerated, stats.Generated),
		slog.Int(logfields.KeyCopied, stats.Copied),
		slog.Int(logfields.KeySkipped, stats.Skipped),
		slog.Int(logfields.KeyFailed, stats.Failed))
	return summary, nil
}
