package convert

import (
	"strings"
	"testing"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/templates"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *filetree.Tree) {
	t.Helper()
	source := filetree.NewMemory("/src")
	require.NoError(t, source.WriteFile("__templates/default.jsont", "[{title}]"))
	require.NoError(t, source.WriteFile("__templates/card.jsont", "<div>{title}: {blurb}</div>"))
	require.NoError(t, source.WriteFile("blurb.txt", "from a file"))

	chrooted, err := source.FS().Chroot("__templates")
	require.NoError(t, err)
	return Default(templates.New(filetree.New(chrooted, "/src/__templates")), source), source
}

func TestRegistry_Markdown(t *testing.T) {
	r, _ := newRegistry(t)

	for _, bodyType := range []string{"markdown", "md"} {
		out, err := r.Convert(bodyType, "Body *text*\n\n<span>raw</span>\n", varstack.New())
		require.NoError(t, err)
		require.Equal(t, "<p>Body <em>text</em></p>\n<p><span>raw</span></p>\n", out)
	}

	out, err := r.Convert("md", "| a |\n|---|\n| 1 |\n", varstack.New())
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "<table>"), out)
}

func TestRegistry_HTMLIsIdentity(t *testing.T) {
	r, _ := newRegistry(t)
	out, err := r.Convert("html", "<b>{not a template}</b>", varstack.New())
	require.NoError(t, err)
	require.Equal(t, "<b>{not a template}</b>", out)
}

func TestRegistry_JSONTemplateExpandsAgainstDoc(t *testing.T) {
	r, _ := newRegistry(t)
	doc := varstack.New(map[string]any{"site": "S"}, map[string]any{"title": "T"})

	out, err := r.Convert("jsont", "{title} on {site}", doc)
	require.NoError(t, err)
	require.Equal(t, "T on S", out)
}

func TestRegistry_JSON(t *testing.T) {
	r, _ := newRegistry(t)

	out, err := r.Convert("json", `{"title": "plain"}`, varstack.New())
	require.NoError(t, err)
	require.Equal(t, "[plain]", out)

	out, err = r.Convert("json", "# a comment\n"+`{"template": "card", "title": "x", "$filename.blurb": "blurb.txt"}`, varstack.New())
	require.NoError(t, err)
	require.Equal(t, "<div>x: from a file</div>", out)

	_, err = r.Convert("json", `{"$filename.blurb": "missing.txt"}`, varstack.New())
	require.ErrorIs(t, err, filetree.ErrFileNotFound)

	_, err = r.Convert("json", `{"template": "nope"}`, varstack.New())
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
}

func TestRegistry_UnknownSourceType(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Convert("rst", "x", varstack.New())
	require.ErrorIs(t, err, ErrUnknownSourceType)
}

func TestRegistry_MakeBody(t *testing.T) {
	r, _ := newRegistry(t)
	doc := varstack.New(map[string]any{"body-type": "md", "body": "# Hi"})

	out, err := r.MakeBody(doc)
	require.NoError(t, err)
	require.Equal(t, "<h1>Hi</h1>\n", out)
}
