package jsont

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax is returned for malformed templates.
	ErrSyntax = errors.New("template syntax error")
	// ErrUndefinedVariable is returned when a substitution names nothing.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrUnknownFormatter is returned for a formatter name with no registration.
	ErrUnknownFormatter = errors.New("unknown formatter")
	// ErrRecursionLimit is returned by a Context whose values expand other
	// templates once they nest too deeply. Expansion passes it up as is.
	ErrRecursionLimit = errors.New("template recursion limit exceeded")
)

type node interface{}

type textNode string

type substNode struct {
	name       string
	formatters []string
	line       int
}

type sectionNode struct {
	name       string
	repeated   bool
	line       int
	body       []node
	or         []node
	alternates []node
}

type token struct {
	directive bool
	text      string
	line      int
}

// Template is a parsed JSON Template. It is immutable and may be expanded
// any number of times against different contexts.
type Template struct {
	nodes      []node
	formatters map[string]Formatter
}

// Option configures Parse.
type Option func(*Template)

// WithFormatter registers an extra formatter, overriding a built-in one of
// the same name.
func WithFormatter(name string, f Formatter) Option {
	return func(t *Template) {
		t.formatters[name] = f
	}
}

// Parse compiles src.
func Parse(src string, opts ...Option) (*Template, error) {
	t := &Template{formatters: make(map[string]Formatter, len(builtinFormatters))}
	for name, f := range builtinFormatters {
		t.formatters[name] = f
	}
	for _, opt := range opts {
		opt(t)
	}

	nodes, err := t.build(tokenize(src))
	if err != nil {
		return nil, err
	}
	t.nodes = nodes
	return t, nil
}

// tokenize splits src into literal text and directives. It never fails:
// anything that does not look like a directive is text.
func tokenize(src string) []token {
	var (
		tokens []token
		text   strings.Builder
	)
	line, i, counted := 1, 0, 0

	flush := func() {
		if text.Len() > 0 {
			tokens = append(tokens, token{text: text.String(), line: line})
			text.Reset()
		}
	}

	for i < len(src) {
		open := strings.IndexByte(src[i:], '{')
		if open < 0 {
			text.WriteString(src[i:])
			break
		}
		open += i
		text.WriteString(src[i:open])

		end := strings.IndexByte(src[open:], '}')
		if !isDirectiveStart(src, open) || end < 0 || strings.ContainsRune(src[open:open+end], '\n') {
			text.WriteByte('{')
			i = open + 1
			continue
		}
		end += open

		flush()
		line += strings.Count(src[counted:open], "\n")
		counted = open
		tokens = append(tokens, token{directive: true, text: src[open+1 : end], line: line})
		i = end + 1
	}
	flush()
	return tokens
}

func isDirectiveStart(src string, open int) bool {
	if open+1 >= len(src) {
		return false
	}
	switch c := src[open+1]; {
	case c == ' ', c == '\t', c == '\n', c == '\r', c == '}':
		return false
	}
	return true
}

func syntaxError(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

func (t *Template) build(tokens []token) ([]node, error) {
	type frame struct {
		sec    *sectionNode
		parent *[]node
		clause string
	}

	var (
		root    []node
		current = &root
		stack   []*frame
	)

	for _, tok := range tokens {
		if !tok.directive {
			*current = append(*current, textNode(tok.text))
			continue
		}

		d := strings.TrimSpace(tok.text)
		switch {
		case strings.HasPrefix(d, "#"):
		case d == ".meta-left":
			*current = append(*current, textNode("{"))
		case d == ".meta-right":
			*current = append(*current, textNode("}"))
		case d == ".space":
			*current = append(*current, textNode(" "))
		case d == ".newline":
			*current = append(*current, textNode("\n"))

		case strings.HasPrefix(d, ".section "), strings.HasPrefix(d, ".repeated section "):
			repeated := strings.HasPrefix(d, ".repeated ")
			name := strings.TrimSpace(d[strings.Index(d, "section ")+len("section "):])
			if name == "" {
				return nil, syntaxError(tok.line, "section without a name")
			}
			sec := &sectionNode{name: name, repeated: repeated, line: tok.line}
			*current = append(*current, sec)
			stack = append(stack, &frame{sec: sec, parent: current, clause: "body"})
			current = &sec.body

		case d == ".or":
			if len(stack) == 0 {
				return nil, syntaxError(tok.line, "{.or} outside a section")
			}
			top := stack[len(stack)-1]
			if top.clause == "or" {
				return nil, syntaxError(tok.line, "duplicate {.or} in section %q", top.sec.name)
			}
			top.clause = "or"
			current = &top.sec.or

		case d == ".alternates with":
			if len(stack) == 0 || !stack[len(stack)-1].sec.repeated {
				return nil, syntaxError(tok.line, "{.alternates with} outside a repeated section")
			}
			top := stack[len(stack)-1]
			if top.clause != "body" {
				return nil, syntaxError(tok.line, "{.alternates with} must precede {.or} in section %q", top.sec.name)
			}
			top.clause = "alternates"
			current = &top.sec.alternates

		case d == ".end":
			if len(stack) == 0 {
				return nil, syntaxError(tok.line, "{.end} without an open section")
			}
			current = stack[len(stack)-1].parent
			stack = stack[:len(stack)-1]

		case strings.HasPrefix(d, "."):
			return nil, syntaxError(tok.line, "unknown directive %q", d)

		default:
			parts := strings.Split(d, "|")
			sub := &substNode{name: strings.TrimSpace(parts[0]), line: tok.line}
			if sub.name == "" {
				return nil, syntaxError(tok.line, "empty variable name")
			}
			for _, f := range parts[1:] {
				f = strings.TrimSpace(f)
				if _, ok := t.formatters[f]; !ok {
					return nil, fmt.Errorf("%w: line %d: %q", ErrUnknownFormatter, tok.line, f)
				}
				sub.formatters = append(sub.formatters, f)
			}
			*current = append(*current, sub)
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, syntaxError(top.sec.line, "section %q is never closed", top.sec.name)
	}
	return root, nil
}
