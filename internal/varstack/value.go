package varstack

import "strings"

// Op is one read-time operation recorded from a key prefix.
type Op int

const (
	// OpTemplate expands the value as a JSON Template against the stack.
	OpTemplate Op = iota
	// OpFileRef replaces the value with the contents of the file it names.
	OpFileRef
)

func (o Op) String() string {
	if o == OpTemplate {
		return "$"
	}
	return "&"
}

// Kind classifies a compiled value by its operations.
type Kind int

const (
	Literal Kind = iota
	Template
	FileRef
	TemplateThenFileRef
	FileRefThenTemplate
)

func (k Kind) String() string {
	switch k {
	case Template:
		return "template"
	case FileRef:
		return "file"
	case TemplateThenFileRef:
		return "template-then-file"
	case FileRefThenTemplate:
		return "file-then-template"
	}
	return "literal"
}

// Value is a compiled scope entry: the raw value as written plus the
// operations its key prefix asked for, in declaration order.
type Value struct {
	Raw any
	Ops []Op
}

// Kind reports which variant v is.
func (v Value) Kind() Kind {
	switch len(v.Ops) {
	case 0:
		return Literal
	case 1:
		if v.Ops[0] == OpTemplate {
			return Template
		}
		return FileRef
	}
	if v.Ops[0] == OpTemplate {
		return TemplateThenFileRef
	}
	return FileRefThenTemplate
}

// Evaluate applies v's operations against s.
func (v Value) Evaluate(s *Stack, key string) (any, error) {
	return s.Eval(key, v)
}

// compileKey strips up to two distinct operation prefixes from key.
// "$&x" yields ("x", [template, file]); "&$x" the reverse order.
func compileKey(key string) (string, []Op) {
	var ops []Op
	seen := map[byte]bool{}
	for len(ops) < 2 && len(key) > 1 {
		c := key[0]
		if (c != '$' && c != '&') || seen[c] {
			break
		}
		seen[c] = true
		if c == '$' {
			ops = append(ops, OpTemplate)
		} else {
			ops = append(ops, OpFileRef)
		}
		key = key[1:]
	}
	return key, ops
}

func isPrefixed(key string) bool {
	return strings.HasPrefix(key, "$") || strings.HasPrefix(key, "&")
}
