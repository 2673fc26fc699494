package filetree

import (
	"fmt"
	"path"
	"regexp"
	"sort"

	"github.com/go-git/go-billy/v5"
)

// DefaultIgnoreDirs matches the reserved directories the walk never enters.
var DefaultIgnoreDirs = regexp.MustCompile(`^__`)

// Handler receives the walk as a stream of events. Names are base names;
// handlers track the directory stack themselves.
type Handler interface {
	EnterDir(name string) error
	ExitDir() error
	OnFile(name string) error
}

// TreeHandler is implemented by handlers that want to bracket the walk.
type TreeHandler interface {
	Handler
	EnterTree() error
	ExitTree() error
}

// Options controls Walk.
type Options struct {
	// IgnoreDirs excludes matching directory names. Nil means no exclusions.
	IgnoreDirs *regexp.Regexp
}

// Walk visits fs depth first in sorted order. The first error from a
// listing or from the handler stops the walk.
func Walk(fs billy.Filesystem, h Handler, opts Options) error {
	th, bracketed := h.(TreeHandler)
	if bracketed {
		if err := th.EnterTree(); err != nil {
			return err
		}
	}

	if err := walkDir(fs, "", h, opts); err != nil {
		return err
	}

	if bracketed {
		return th.ExitTree()
	}
	return nil
}

func walkDir(fs billy.Filesystem, dir string, h Handler, opts Options) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing directory %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			if err := h.OnFile(name); err != nil {
				return err
			}
			continue
		}

		if opts.IgnoreDirs != nil && opts.IgnoreDirs.MatchString(name) {
			continue
		}
		if err := h.EnterDir(name); err != nil {
			return err
		}
		if err := walkDir(fs, path.Join(dir, name), h, opts); err != nil {
			return err
		}
		if err := h.ExitDir(); err != nil {
			return err
		}
	}
	return nil
}

// ListTree returns the slash-separated paths of every file in fs in walk
// order.
func ListTree(fs billy.Filesystem, opts Options) ([]string, error) {
	l := &lister{}
	if err := Walk(fs, l, opts); err != nil {
		return nil, err
	}
	return l.files, nil
}

type lister struct {
	dirs  []string
	files []string
}

func (l *lister) EnterDir(name string) error {
	l.dirs = append(l.dirs, name)
	return nil
}

func (l *lister) ExitDir() error {
	l.dirs = l.dirs[:len(l.dirs)-1]
	return nil
}

func (l *lister) OnFile(name string) error {
	l.files = append(l.files, path.Join(append(append([]string(nil), l.dirs...), name)...))
	return nil
}
