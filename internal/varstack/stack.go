// Package varstack implements the layered variable store documents are
// rendered against, and the path cursor templates use to navigate it.
//
// A Stack is an ordered list of scopes. Keys in a scope may carry prefixes
// that turn them into computed values: "$" expands the value as a JSON
// Template against the whole stack, "&" replaces it with the contents of the
// file it names. Prefixes combine ("$&", "&$") and apply in the order written.
// Computed values are evaluated on every read, so they always reflect the
// current stack.
package varstack

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/saltyorg/recipe/internal/jsont"
)

// MaxEvalDepth bounds how deeply computed values may refer to each other.
const MaxEvalDepth = 64

var (
	ErrEmptyStack     = errors.New("pop from an empty variable stack")
	ErrNoFileSystem   = errors.New("file reference read without a file system")
	ErrRecursionLimit = jsont.ErrRecursionLimit
)

// FileSystem resolves file-backed values.
type FileSystem interface {
	ContentsOf(path string) (string, error)
}

type scope struct {
	raw     map[string]any
	entries map[string]Value
}

// Stack is a layered variable store. The zero value is not usable; use New.
// A Stack is not safe for concurrent use.
type Stack struct {
	scopes []*scope
	fs     FileSystem
	depth  int
}

// New returns a stack holding scopes, the first one lowest.
func New(scopes ...map[string]any) *Stack {
	s := &Stack{}
	for _, raw := range scopes {
		s.Push(raw)
	}
	return s
}

// UseFileSystem binds the file system "&" keys read through.
func (s *Stack) UseFileSystem(fs FileSystem) *Stack {
	s.fs = fs
	return s
}

func compile(raw map[string]any) *scope {
	if raw == nil {
		raw = map[string]any{}
	}
	sc := &scope{raw: raw, entries: make(map[string]Value, len(raw))}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Plain keys first so that "x" beats "$x" in the same scope.
	for _, k := range keys {
		if !isPrefixed(k) {
			sc.entries[k] = Value{Raw: raw[k]}
		}
	}
	for _, k := range keys {
		if !isPrefixed(k) {
			continue
		}
		name, ops := compileKey(k)
		if _, taken := sc.entries[name]; taken {
			continue
		}
		sc.entries[name] = Value{Raw: raw[k], Ops: ops}
	}
	return sc
}

// Push adds raw as the new topmost scope.
func (s *Stack) Push(raw map[string]any) {
	s.scopes = append(s.scopes, compile(raw))
}

// Pop removes the topmost scope and returns it as it was pushed.
func (s *Stack) Pop() (map[string]any, error) {
	if len(s.scopes) == 0 {
		return nil, ErrEmptyStack
	}
	top := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	return top.raw, nil
}

// Prepend inserts scopes at the bottom of the stack, the first one lowest.
func (s *Stack) Prepend(raws ...map[string]any) {
	bottom := make([]*scope, 0, len(raws)+len(s.scopes))
	for _, raw := range raws {
		bottom = append(bottom, compile(raw))
	}
	s.scopes = append(bottom, s.scopes...)
}

// Size is the number of scopes.
func (s *Stack) Size() int {
	return len(s.scopes)
}

// Get reads one top-level key.
func (s *Stack) Get(key string) (any, bool, error) {
	return s.GetPath([]string{key})
}

// Lookup reads a dotted name such as "dest.dir".
func (s *Stack) Lookup(name string) (any, bool, error) {
	return s.GetPath(strings.Split(name, "."))
}

// GetPath resolves path across all scopes.
//
// Every scope starts as a candidate, topmost first. Each segment is read
// from every remaining candidate and only successful reads survive, so
// "dest.dir" finds dir in the highest scope whose dest has one even if a
// higher scope defines a dest without it. "@" segments are skipped and
// numeric segments index lists. A missing path is reported by ok, not err.
func (s *Stack) GetPath(path []string) (any, bool, error) {
	segs := make([]string, 0, len(path))
	for _, seg := range path {
		if seg != "@" {
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		obj, err := s.ToObject()
		return obj, err == nil, err
	}

	candidates := make([]any, 0, len(s.scopes))
	for i := len(s.scopes) - 1; i >= 0; i-- {
		candidates = append(candidates, s.scopes[i])
	}

	for i, seg := range segs {
		last := i == len(segs)-1
		next := make([]any, 0, len(candidates))
		for _, c := range candidates {
			v, ok, err := s.read(c, seg)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
			if last {
				return v, true, nil
			}
			next = append(next, v)
		}
		if len(next) == 0 {
			return nil, false, nil
		}
		candidates = next
	}
	return nil, false, nil
}

func (s *Stack) read(c any, seg string) (any, bool, error) {
	sc, ok := c.(*scope)
	if !ok {
		v, found := jsont.Field(c, seg)
		return v, found, nil
	}

	entry, ok := sc.entries[seg]
	if !ok {
		return nil, false, nil
	}
	v, err := entry.Evaluate(s, seg)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Eval applies a value's operations in declared order.
func (s *Stack) Eval(key string, v Value) (any, error) {
	if len(v.Ops) == 0 {
		return v.Raw, nil
	}
	if s.depth >= MaxEvalDepth {
		return nil, fmt.Errorf("%w: evaluating %q", ErrRecursionLimit, key)
	}
	s.depth++
	defer func() { s.depth-- }()

	cur := v.Raw
	for _, op := range v.Ops {
		switch op {
		case OpTemplate:
			out, err := jsont.Expand(jsont.String(cur), NewCursor(s))
			if err != nil {
				if errors.Is(err, ErrRecursionLimit) {
					return nil, err
				}
				return nil, fmt.Errorf("expanding %q: %w", key, err)
			}
			cur = out
		case OpFileRef:
			if s.fs == nil {
				return nil, fmt.Errorf("%w: %q", ErrNoFileSystem, key)
			}
			out, err := s.fs.ContentsOf(jsont.String(cur))
			if err != nil {
				return nil, fmt.Errorf("reading %q: %w", key, err)
			}
			cur = out
		}
	}
	return cur, nil
}

// ToObject merges every scope into one map, higher scopes winning. Computed
// and file-backed keys are evaluated against the current stack.
func (s *Stack) ToObject() (map[string]any, error) {
	obj := make(map[string]any)
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for name, entry := range s.scopes[i].entries {
			if _, done := obj[name]; done {
				continue
			}
			v, err := entry.Evaluate(s, name)
			if err != nil {
				return nil, err
			}
			obj[name] = v
		}
	}
	return obj, nil
}

// DebugString lists the key names of every scope, topmost first.
func (s *Stack) DebugString() string {
	var b strings.Builder
	for i := len(s.scopes) - 1; i >= 0; i-- {
		keys := make([]string, 0, len(s.scopes[i].raw))
		for k := range s.scopes[i].raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "[%d] %s\n", i, strings.Join(keys, ", "))
	}
	return b.String()
}

func (s *Stack) String() string {
	return fmt.Sprintf("varstack(%d scopes)", len(s.scopes))
}
