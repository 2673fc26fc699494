package filetree

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	depth  int
	failOn string
}

func (r *recorder) EnterTree() error { r.events = append(r.events, "tree{"); return nil }
func (r *recorder) ExitTree() error  { r.events = append(r.events, "}tree"); return nil }

func (r *recorder) EnterDir(name string) error {
	r.depth++
	r.events = append(r.events, name+"/{")
	return nil
}

func (r *recorder) ExitDir() error {
	r.depth--
	r.events = append(r.events, "}")
	return nil
}

func (r *recorder) OnFile(name string) error {
	if name == r.failOn {
		return errors.New("boom")
	}
	r.events = append(r.events, name)
	return nil
}

func memTree(t *testing.T, files ...string) *Tree {
	t.Helper()
	tree := NewMemory("/src")
	for _, f := range files {
		require.NoError(t, tree.WriteFile(f, "contents of "+f))
	}
	return tree
}

func TestWalk_SortedAndBalanced(t *testing.T) {
	tree := memTree(t, "b.md", "a/z.md", "a/y/x.txt", "__templates/default.jsont", "c.txt")
	r := &recorder{}

	require.NoError(t, Walk(tree.FS(), r, Options{IgnoreDirs: DefaultIgnoreDirs}))

	require.Equal(t, []string{
		"tree{",
		"a/{", "y/{", "x.txt", "}", "z.md", "}",
		"b.md", "c.txt",
		"}tree",
	}, r.events)
	require.Zero(t, r.depth)
}

func TestWalk_HandlerErrorStopsWalk(t *testing.T) {
	tree := memTree(t, "a.md", "b.md", "c.md")
	r := &recorder{failOn: "b.md"}

	err := Walk(tree.FS(), r, Options{})
	require.EqualError(t, err, "boom")
	require.Equal(t, []string{"tree{", "a.md"}, r.events)
}

func TestWalk_ListingErrorIsWrapped(t *testing.T) {
	tree := New(memfs.New(), "/missing")
	require.NoError(t, tree.FS().MkdirAll("x", 0755))

	err := walkDir(tree.FS(), "does-not-exist", &recorder{}, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), `listing directory "does-not-exist"`)
}

func TestListTree(t *testing.T) {
	tree := memTree(t, "b.md", "a/z.md", "__config.json", "__plugins/x")

	files, err := ListTree(tree.FS(), Options{IgnoreDirs: DefaultIgnoreDirs})
	require.NoError(t, err)
	require.Equal(t, []string{"__config.json", "a/z.md", "b.md"}, files)
}

func TestTree_ContentsOf(t *testing.T) {
	tree := memTree(t, "dir/file.txt")

	got, err := tree.ContentsOf("dir/file.txt")
	require.NoError(t, err)
	require.Equal(t, "contents of dir/file.txt", got)

	_, err = tree.ContentsOf("nope.txt")
	require.ErrorIs(t, err, ErrFileNotFound)
	require.True(t, tree.Exists("dir"))
	require.True(t, tree.IsDir("dir"))
	require.False(t, tree.IsDir("dir/file.txt"))
}

func TestTree_CopyOnDisk(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "img", "logo.png"), []byte("PNG!"), 0644))

	src, dest := NewOS(srcDir), NewOS(destDir)
	require.NoError(t, NewDirMaker(dest).Ensure("img"))

	n, err := dest.Copy(src, "img/logo.png")
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	data, err := os.ReadFile(filepath.Join(destDir, "img", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, "PNG!", string(data))

	_, err = dest.Copy(src, "missing.png")
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestDirMaker_EnsureIsIdempotent(t *testing.T) {
	tree := NewMemory("/out")
	d := NewDirMaker(tree)

	require.NoError(t, d.Ensure("a/b/"))
	require.NoError(t, d.Ensure("a/b"))
	require.NoError(t, d.Ensure(""))
	require.True(t, tree.IsDir("a/b"))
	require.Len(t, d.made, 1)
}

func TestTree_Path(t *testing.T) {
	tree := NewMemory("/site")
	require.True(t, strings.HasSuffix(tree.Path("blog/post.md"), filepath.Join("blog", "post.md")))
}
