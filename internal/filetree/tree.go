// Package filetree wraps the source, destination and template directories
// and walks the source tree for the site builder.
package filetree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrFileNotFound is returned when a file read through a Tree is missing.
var ErrFileNotFound = errors.New("file not found")

// Tree is a directory all paths are relative to.
type Tree struct {
	fs   billy.Filesystem
	root string
}

// NewOS returns a Tree over the directory root on disk.
func NewOS(root string) *Tree {
	return &Tree{fs: osfs.New(root), root: root}
}

// New returns a Tree over an arbitrary billy filesystem. root is only used
// to render paths in messages.
func New(fs billy.Filesystem, root string) *Tree {
	return &Tree{fs: fs, root: root}
}

// NewMemory returns an empty in-memory Tree.
func NewMemory(root string) *Tree {
	return New(memfs.New(), root)
}

// FS exposes the underlying filesystem.
func (t *Tree) FS() billy.Filesystem {
	return t.fs
}

// Root is the directory the tree was opened on.
func (t *Tree) Root() string {
	return t.root
}

// Path renders rel as a path under the tree root.
func (t *Tree) Path(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// ContentsOf reads the file at rel.
func (t *Tree) ContentsOf(rel string) (string, error) {
	data, err := util.ReadFile(t.fs, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, t.Path(rel))
		}
		return "", fmt.Errorf("reading %s: %w", t.Path(rel), err)
	}
	return string(data), nil
}

// Exists reports whether rel names an existing file or directory.
func (t *Tree) Exists(rel string) bool {
	_, err := t.fs.Stat(rel)
	return err == nil
}

// IsDir reports whether rel names a directory.
func (t *Tree) IsDir(rel string) bool {
	fi, err := t.fs.Stat(rel)
	return err == nil && fi.IsDir()
}

// WriteFile writes contents to rel, creating parent directories.
func (t *Tree) WriteFile(rel, contents string) error {
	if dir := path.Dir(rel); dir != "." {
		if err := t.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", t.Path(dir), err)
		}
	}
	if err := util.WriteFile(t.fs, rel, []byte(contents), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", t.Path(rel), err)
	}
	return nil
}

// Copy copies the file at rel in src to the same path in t and returns the
// number of bytes written.
func (t *Tree) Copy(src *Tree, rel string) (int64, error) {
	in, err := src.fs.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, src.Path(rel))
		}
		return 0, fmt.Errorf("opening %s: %w", src.Path(rel), err)
	}
	defer in.Close()

	out, err := t.fs.Create(rel)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", t.Path(rel), err)
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copying %s: %w", rel, err)
	}
	return n, nil
}

// DirMaker creates destination directories, remembering the ones it has
// already made.
type DirMaker struct {
	tree *Tree
	made map[string]bool
}

// NewDirMaker returns a DirMaker writing into tree.
func NewDirMaker(tree *Tree) *DirMaker {
	return &DirMaker{tree: tree, made: make(map[string]bool)}
}

// Ensure creates dir and its parents unless it was made before.
func (d *DirMaker) Ensure(dir string) error {
	dir = path.Clean(dir)
	if dir == "." || dir == "" || d.made[dir] {
		return nil
	}
	if err := d.tree.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", d.tree.Path(dir), err)
	}
	d.made[dir] = true
	return nil
}
