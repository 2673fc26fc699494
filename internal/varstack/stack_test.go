package varstack

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type stubFS map[string]string

func (fs stubFS) ContentsOf(path string) (string, error) {
	if s, ok := fs[path]; ok {
		return s, nil
	}
	return "", fmt.Errorf("no such file %q", path)
}

func mustGet(t *testing.T, s *Stack, name string) any {
	t.Helper()
	v, ok, err := s.Lookup(name)
	require.NoError(t, err)
	require.True(t, ok, "%s not found", name)
	return v
}

func TestStack_Shadowing(t *testing.T) {
	s := New(map[string]any{"a": 1, "b": 2})
	s.Push(map[string]any{"a": 10})

	require.Equal(t, 10, mustGet(t, s, "a"))
	require.Equal(t, 2, mustGet(t, s, "b"))

	_, ok, err := s.Get("c")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStack_PushPopSymmetry(t *testing.T) {
	s := New(map[string]any{"a": 1})
	pushed := map[string]any{"a": 2, "$b": "{a}"}

	s.Push(pushed)
	require.Equal(t, 2, s.Size())

	popped, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, pushed, popped)
	require.Equal(t, 1, mustGet(t, s, "a"))

	_, err = s.Pop()
	require.NoError(t, err)
	_, err = s.Pop()
	require.ErrorIs(t, err, ErrEmptyStack)
}

func TestStack_Prepend(t *testing.T) {
	s := New(map[string]any{"a": "top"})
	s.Prepend(map[string]any{"a": "bottom", "b": "low"}, map[string]any{"b": "middle"})

	require.Equal(t, 3, s.Size())
	require.Equal(t, "top", mustGet(t, s, "a"))
	require.Equal(t, "middle", mustGet(t, s, "b"))
}

func TestStack_ComputedValueRecomputes(t *testing.T) {
	s := New(map[string]any{"name": "a", "$greeting": "hi {name}"})
	require.Equal(t, "hi a", mustGet(t, s, "greeting"))

	s.Push(map[string]any{"name": "b"})
	require.Equal(t, "hi b", mustGet(t, s, "greeting"))

	_, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, "hi a", mustGet(t, s, "greeting"))
}

func TestStack_PlainKeyBeatsPrefixedKeyInSameScope(t *testing.T) {
	s := New(map[string]any{"x": "plain", "$x": "computed"})
	require.Equal(t, "plain", mustGet(t, s, "x"))
}

func TestStack_TemplateLayersAboveLiteral(t *testing.T) {
	s := New(map[string]any{"title": "T", "page": "literal"})
	s.Push(map[string]any{"$page": "<h1>{title}</h1>"})

	require.Equal(t, "<h1>T</h1>", mustGet(t, s, "page"))
}

func TestStack_FileReference(t *testing.T) {
	raw := map[string]any{
		"name":    "foo",
		"&body":   "foo.txt",
		"$&named": "{name}.txt",
		"&$tmpl":  "tmpl.jsont",
	}

	t.Run("without file system", func(t *testing.T) {
		_, _, err := New(raw).Get("body")
		require.ErrorIs(t, err, ErrNoFileSystem)
	})

	t.Run("with stub file system", func(t *testing.T) {
		s := New(raw).UseFileSystem(stubFS{
			"foo.txt":    "contents of foo",
			"tmpl.jsont": "name is {name}",
		})
		require.Equal(t, "contents of foo", mustGet(t, s, "body"))
		require.Equal(t, "contents of foo", mustGet(t, s, "named"))
		require.Equal(t, "name is foo", mustGet(t, s, "tmpl"))
	})
}

func TestStack_NestedPathAcrossScopes(t *testing.T) {
	s := New(map[string]any{"dest": map[string]any{"dir": "", "ext": ".html"}})
	s.Push(map[string]any{"dest": map[string]any{"dir": "blog/"}})
	s.Push(map[string]any{"dest": map[string]any{"basename": "post"}})
	s.Push(map[string]any{"$doc-dest": "{dest.dir}{dest.basename}{dest.ext}"})

	require.Equal(t, "blog/post.html", mustGet(t, s, "doc-dest"))
	require.Equal(t, "blog/", mustGet(t, s, "dest.dir"))
}

func TestStack_GetPath(t *testing.T) {
	s := New(map[string]any{"docs": []any{map[string]any{"title": "first"}, map[string]any{"title": "second"}}})

	v, ok, err := s.GetPath([]string{"docs", "@", "1", "title"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", v)

	_, ok, err = s.GetPath([]string{"docs", "5"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStack_NullIsFound(t *testing.T) {
	s := New(map[string]any{"a": 1})
	s.Push(map[string]any{"a": nil})

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, v)
}

func TestStack_RecursionLimit(t *testing.T) {
	s := New(map[string]any{"$a": "{b}", "$b": "{a}"})

	_, _, err := s.Get("a")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRecursionLimit))
}

func TestStack_RecursionLimitIsReportedOnce(t *testing.T) {
	s := New(map[string]any{"title": "x"}, map[string]any{"$title": "pre {title}"})

	_, _, err := s.Get("title")
	require.ErrorIs(t, err, ErrRecursionLimit)
	require.Equal(t, `template recursion limit exceeded: evaluating "title"`, err.Error())
}

func TestStack_ToObject(t *testing.T) {
	s := New(map[string]any{"a": 1, "b": 2})
	s.Push(map[string]any{"a": 3, "$c": "{a}-{b}"})

	obj, err := s.ToObject()
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"a": 3, "b": 2, "c": "3-2"}, obj); diff != "" {
		t.Fatalf("ToObject mismatch (-want +got):\n%s", diff)
	}
}

func TestValue_Kind(t *testing.T) {
	tests := []struct {
		key  string
		name string
		want Kind
	}{
		{"plain", "plain", Literal},
		{"$t", "t", Template},
		{"&f", "f", FileRef},
		{"$&tf", "tf", TemplateThenFileRef},
		{"&$ft", "ft", FileRefThenTemplate},
		{"$$x", "$x", Template},
		{"$", "$", Literal},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, ops := compileKey(tt.key)
			require.Equal(t, tt.name, name)
			require.Equal(t, tt.want, Value{Ops: ops}.Kind())
		})
	}
}

func TestStack_DebugString(t *testing.T) {
	s := New(map[string]any{"b": 1, "a": 2})
	s.Push(map[string]any{"$c": "x"})

	require.Equal(t, "[1] $c\n[0] a, b\n", s.DebugString())
}
