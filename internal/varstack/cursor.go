package varstack

import (
	"errors"
	"strconv"
	"strings"

	"github.com/saltyorg/recipe/internal/jsont"
)

var errNotInSection = errors.New("iteration outside a section")

// Cursor is a position inside a Stack, expressed as a path. Templates move
// it with sections and read through it with Lookup. Several cursors may
// share one Stack.
type Cursor struct {
	stack  *Stack
	path   []string
	frames []*cursorFrame
}

type cursorFrame struct {
	iterating bool
	index     int
	length    int
}

var _ jsont.Context = (*Cursor)(nil)

// NewCursor returns a cursor at the root of s.
func NewCursor(s *Stack) *Cursor {
	return &Cursor{stack: s}
}

// Path returns the current cursor path.
func (c *Cursor) Path() []string {
	return append([]string(nil), c.path...)
}

// PushName enters name and returns the value found there, or nil.
func (c *Cursor) PushName(name string) (any, error) {
	c.path = append(c.path, name)
	c.frames = append(c.frames, &cursorFrame{})
	v, _, err := c.stack.GetPath(c.path)
	return v, err
}

// Pop leaves the innermost section.
func (c *Cursor) Pop() {
	if len(c.frames) == 0 {
		return
	}
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	n := 1
	if f.iterating {
		n++
	}
	c.path = c.path[:len(c.path)-n]
}

// Next advances iteration over the list at the cursor. The first call
// starts iterating; it returns false once the list is exhausted, leaving
// the cursor where iteration began.
func (c *Cursor) Next() (bool, error) {
	if len(c.frames) == 0 {
		return false, errNotInSection
	}
	f := c.frames[len(c.frames)-1]

	if !f.iterating {
		v, _, err := c.stack.GetPath(c.path)
		if err != nil {
			return false, err
		}
		n, ok := jsont.Len(v)
		if !ok || n == 0 {
			return false, nil
		}
		f.iterating, f.index, f.length = true, 0, n
		c.path = append(c.path, "0")
		return true, nil
	}

	if f.index >= f.length-1 {
		f.iterating = false
		c.path = c.path[:len(c.path)-1]
		return false, nil
	}
	f.index++
	c.path[len(c.path)-1] = strconv.Itoa(f.index)
	return true, nil
}

// Lookup resolves a dotted name relative to the cursor. When it is not
// found there, successively shorter prefixes of the cursor path are tried so
// that names from enclosing sections stay visible.
func (c *Cursor) Lookup(name string) (any, bool, error) {
	var parts []string
	if name != "@" {
		parts = strings.Split(name, ".")
	}

	for prefix := len(c.path); prefix >= 0; prefix-- {
		full := make([]string, 0, prefix+len(parts))
		full = append(full, c.path[:prefix]...)
		full = append(full, parts...)
		v, ok, err := c.stack.GetPath(full)
		if err != nil || ok {
			return v, ok, err
		}
		if len(parts) == 0 {
			break
		}
	}
	return nil, false, nil
}
