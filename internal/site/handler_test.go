package site

import (
	"context"
	"errors"
	"testing"

	"github.com/saltyorg/recipe/internal/config"
	"github.com/saltyorg/recipe/internal/convert"
	"github.com/saltyorg/recipe/internal/document"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/plugins"
	"github.com/saltyorg/recipe/internal/templates"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, keepGoing bool) (*FileHandler, *varstack.Stack) {
	t.Helper()

	source := filetree.NewMemory("/src")
	require.NoError(t, source.WriteFile("a/note.txt", "note"))
	opts := &config.Options{KeepGoing: keepGoing, SourceExtensions: []string{"md"}}

	stack := varstack.New(DefaultDoc())
	engine := templates.New(filetree.NewMemory("/templates"))
	builder := NewDocBuilder(convert.Default(engine, source), engine, source, filetree.NewMemory("/out"))
	index := document.NewIndexBuilder(source, stack, builder.Build, keepGoing)
	h := NewFileHandler(context.Background(), opts, source, stack, builder, index, plugins.NewManager(source), nil)
	return h, stack
}

func TestFileHandler_BalancedWalk(t *testing.T) {
	h, stack := newHandler(t, false)

	require.NoError(t, h.EnterTree())
	require.NoError(t, h.EnterDir("a"))
	require.Equal(t, 4, stack.Size())
	require.NoError(t, h.OnFile("note.txt"))
	require.NoError(t, h.ExitDir())
	require.NoError(t, h.ExitTree())
	require.Equal(t, 1, stack.Size())
	require.Equal(t, 1, h.Stats().Copied)
}

func TestFileHandler_ExitTreeWithOpenDirectory(t *testing.T) {
	for _, keepGoing := range []bool{false, true} {
		h, _ := newHandler(t, keepGoing)

		require.NoError(t, h.EnterTree())
		require.NoError(t, h.EnterDir("a"))
		err := h.ExitTree()

		var inv *InvariantError
		require.True(t, errors.As(err, &inv), "keep-going=%v: got %v", keepGoing, err)
		require.Equal(t, "directory stack depth at tree exit", inv.What)
		require.Equal(t, 0, inv.Want)
		require.Equal(t, 1, inv.Got)
	}
}

func TestFileHandler_UnbalancedDirectoryScopes(t *testing.T) {
	for _, keepGoing := range []bool{false, true} {
		h, stack := newHandler(t, keepGoing)

		require.NoError(t, h.EnterTree())
		require.NoError(t, h.EnterDir("a"))
		stack.Push(map[string]any{"leaked": true})
		err := h.ExitDir()

		var inv *InvariantError
		require.True(t, errors.As(err, &inv), "keep-going=%v: got %v", keepGoing, err)
		require.Equal(t, "document stack size after a/", inv.What)
		require.Equal(t, 2, inv.Want)
		require.Equal(t, 3, inv.Got)
	}
}

func TestIsDocument(t *testing.T) {
	exts := ExtensionSet([]string{"md", ".json"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"post.md", true},
		{"data.json", true},
		{"style.css", false},
		{"_page.html", true},
		{"blog/_drafts/notes.txt", true},
		{"blog/img/logo.png", false},
		{"README", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			require.Equal(t, tt.want, IsDocument(tt.rel, exts))
		})
	}
}

func TestRun_EmptyDestinationPath(t *testing.T) {
	s, _ := newSite(t, map[string]string{
		"__templates/default.jsont": defaultTemplate,
		"_nowhere.md":               "---\ndoc-dest:\n---\nx\n",
	})

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrCannotWriteDestinationFile)
}

func TestRun_UnderscoreDirectoryHoldsDocuments(t *testing.T) {
	s, dest := newSite(t, map[string]string{
		"__templates/default.jsont": defaultTemplate,
		"_pages/about.html":         "<p>about</p>",
	})

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Generated)
	require.Equal(t, "about: <p>about</p>", readDest(t, dest, "pages/about.html"))
}
