package document

import (
	"errors"
	"testing"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsont"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/stretchr/testify/require"
)

type builtPage struct {
	dest string
	body string
}

func recordingBuild(pages *[]builtPage) BuildFunc {
	return func(doc *varstack.Stack) (string, error) {
		dest, _, err := doc.Get("doc-dest")
		if err != nil {
			return "", err
		}
		body, _, err := doc.Get("body")
		if err != nil {
			return "", err
		}
		*pages = append(*pages, builtPage{dest: dest.(string), body: body.(string)})
		return dest.(string), nil
	}
}

func TestIndexBuilder_BuildsIndexInExitedDir(t *testing.T) {
	tree := filetree.NewMemory("/src")
	require.NoError(t, tree.WriteFile("blog/_index.jsont",
		"---\n.index: true\n---\n{.repeated section docs}<a href=\"{url}\">{title}</a>{.end}|{all-docs|size}"))

	stack := varstack.New(map[string]any{"$doc-dest": "{dest.dir}{dest.basename}{dest.ext}"})
	var (
		pages   []builtPage
		results []string
	)
	b := NewIndexBuilder(tree, stack, recordingBuild(&pages), false)
	b.OnResult(func(rel, dest string, err error) {
		require.NoError(t, err)
		results = append(results, rel+" -> "+dest)
	})

	b.EnterDir("")
	b.EnterDir("blog/")
	b.OnDoc([]map[string]any{{"title": "from name"}, {"title": "First"}}, "blog/first.html")
	b.OnDoc([]map[string]any{{"title": "Second"}, {}}, "blog/second.html")
	b.OnIndexDoc("blog/_index.jsont")

	require.NoError(t, b.ExitDir())
	require.Equal(t, []builtPage{{
		dest: "blog/index.html",
		body: `<a href="blog/first.html">First</a><a href="blog/second.html">Second</a>|2`,
	}}, pages)
	require.Equal(t, []string{"blog/_index.jsont -> blog/index.html"}, results)

	require.NoError(t, b.ExitDir())
	require.True(t, b.Empty())
	require.Equal(t, 1, stack.Size(), "index scopes are popped")
}

func TestIndexBuilder_DirsAndAllDocs(t *testing.T) {
	stack := varstack.New()
	b := NewIndexBuilder(filetree.NewMemory("/src"), stack, nil, false)

	b.EnterDir("")
	b.EnterDir("a/")
	b.OnDoc([]map[string]any{{"title": "x"}}, "a/x.html")
	root := b.levels[0]
	require.Equal(t, []any{map[string]any{"name": "a/"}}, root.dirs)
	require.Len(t, root.allDocs, 1)
	require.Empty(t, root.docs)
	require.Equal(t, []string{"", "a/"}, b.dirStack)
}

func TestIndexBuilder_KeepGoing(t *testing.T) {
	tree := filetree.NewMemory("/src")
	require.NoError(t, tree.WriteFile("_index.jsont", "{nope}"))

	fail := func(*varstack.Stack) (string, error) { return "", errors.New("unreachable") }

	strict := NewIndexBuilder(tree, varstack.New(), fail, false)
	strict.EnterDir("")
	strict.OnIndexDoc("_index.jsont")
	require.Error(t, strict.ExitDir())

	var failures []error
	lenient := NewIndexBuilder(tree, varstack.New(), fail, true)
	lenient.OnResult(func(rel, dest string, err error) {
		require.Equal(t, "_index.jsont", rel)
		require.Empty(t, dest)
		failures = append(failures, err)
	})
	lenient.EnterDir("")
	lenient.OnIndexDoc("_index.jsont")
	require.NoError(t, lenient.ExitDir())
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0], jsont.ErrUndefinedVariable)
}
