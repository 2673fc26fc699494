package jsont

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Expand parses src and expands it against ctx in one step.
func Expand(src string, ctx Context) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Expand(ctx)
}

// Expand renders the template against ctx and returns the result.
func (t *Template) Expand(ctx Context) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, ctx); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Execute renders the template against ctx into w.
func (t *Template) Execute(w io.Writer, ctx Context) error {
	return t.expandNodes(w, t.nodes, ctx)
}

func (t *Template) expandNodes(w io.Writer, nodes []node, ctx Context) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			if _, err := io.WriteString(w, string(n)); err != nil {
				return err
			}
		case *substNode:
			if err := t.expandSubst(w, n, ctx); err != nil {
				return err
			}
		case *sectionNode:
			if err := t.expandSection(w, n, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Template) expandSubst(w io.Writer, n *substNode, ctx Context) error {
	v, ok, err := ctx.Lookup(n.name)
	if errors.Is(err, ErrRecursionLimit) {
		return err
	}
	if err != nil {
		return fmt.Errorf("line %d: looking up %q: %w", n.line, n.name, err)
	}
	if !ok {
		return fmt.Errorf("line %d: %w: %s", n.line, ErrUndefinedVariable, n.name)
	}

	for _, name := range n.formatters {
		if v, err = t.formatters[name](v); err != nil {
			return fmt.Errorf("line %d: formatter %q on %q: %w", n.line, name, n.name, err)
		}
	}

	_, err = io.WriteString(w, String(v))
	return err
}

func (t *Template) expandSection(w io.Writer, n *sectionNode, ctx Context) error {
	v, err := ctx.PushName(n.name)
	if errors.Is(err, ErrRecursionLimit) {
		return err
	}
	if err != nil {
		return fmt.Errorf("line %d: entering section %q: %w", n.line, n.name, err)
	}
	defer ctx.Pop()

	if !Truthy(v) {
		return t.expandNodes(w, n.or, ctx)
	}
	if !n.repeated {
		return t.expandNodes(w, n.body, ctx)
	}

	if _, ok := Len(v); !ok {
		return fmt.Errorf("line %d: repeated section %q is a %T, not a list", n.line, n.name, v)
	}
	for i := 0; ; i++ {
		more, err := ctx.Next()
		if errors.Is(err, ErrRecursionLimit) {
			return err
		}
		if err != nil {
			return fmt.Errorf("line %d: iterating %q: %w", n.line, n.name, err)
		}
		if !more {
			return nil
		}
		if i > 0 {
			if err := t.expandNodes(w, n.alternates, ctx); err != nil {
				return err
			}
		}
		if err := t.expandNodes(w, n.body, ctx); err != nil {
			return err
		}
	}
}
