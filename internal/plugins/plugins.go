// Package plugins runs the per-directory __plugins.hcl hooks that add
// variables to every document below that directory.
//
// A plugin file holds on_doc blocks. Each block is evaluated against the
// document being built; its attributes become one new scope on the document
// stack. An optional when attribute guards the block, and a vars attribute
// may hold an object whose keys are not valid identifiers:
//
//	on_doc {
//	  when = var("ext") == "md"
//	  slug = lower(replace(var("title"), " ", "-"))
//	  vars = { ".template" = "post", "$permalink" = "/{dest.dir}{slug}" }
//	}
package plugins

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// FileName is the plugin file looked for in every directory.
const FileName = "__plugins.hcl"

const (
	blockOnDoc = "on_doc"
	attrWhen   = "when"
	attrVars   = "vars"
)

// Set is the plugins loaded from one directory. An empty Set is valid.
type Set struct {
	Path  string
	hooks []*hclsyntax.Body
}

// Len is the number of on_doc hooks in the set.
func (s *Set) Len() int {
	return len(s.hooks)
}

// Load reads the plugin file of dir in tree. A missing file yields an empty
// Set.
func Load(tree *filetree.Tree, dir string) (*Set, error) {
	rel := path.Join(dir, FileName)
	src, err := tree.ContentsOf(rel)
	if errors.Is(err, filetree.ErrFileNotFound) {
		slog.Debug("No plugins", logfields.Path(rel))
		return &Set{Path: rel}, nil
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Loading plugins", logfields.Plugin(rel))
	return Parse(rel, []byte(src))
}

// Parse compiles plugin source. filename is used in diagnostics.
func Parse(filename string, src []byte) (*Set, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	body := file.Body.(*hclsyntax.Body)
	for name, attr := range body.Attributes {
		return nil, fmt.Errorf("%s: unexpected top-level attribute %q", attr.SrcRange, name)
	}

	set := &Set{Path: filename}
	for _, block := range body.Blocks {
		if block.Type != blockOnDoc {
			return nil, fmt.Errorf("%s: unknown block type %q", block.TypeRange, block.Type)
		}
		set.hooks = append(set.hooks, block.Body)
	}
	return set, nil
}

// Run evaluates every hook against doc and returns the scopes they produce,
// skipping hooks whose guard is false and hooks that produce nothing.
func (s *Set) Run(doc *varstack.Stack) ([]map[string]any, error) {
	ctx := evalContext(doc)

	var scopes []map[string]any
	for _, hook := range s.hooks {
		scope, err := runHook(hook, ctx)
		if err != nil {
			return scopes, fmt.Errorf("%s: %w", s.Path, err)
		}
		if len(scope) > 0 {
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}

func runHook(hook *hclsyntax.Body, ctx *hcl.EvalContext) (map[string]any, error) {
	if when, ok := hook.Attributes[attrWhen]; ok {
		v, diags := when.Expr.Value(ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		if v.IsNull() || v.Type() != cty.Bool {
			return nil, fmt.Errorf("%s: when must be a bool", when.SrcRange)
		}
		if !v.True() {
			return nil, nil
		}
	}

	scope := make(map[string]any)
	for _, name := range sortedNames(hook.Attributes) {
		if name == attrWhen {
			continue
		}
		attr := hook.Attributes[name]
		v, diags := attr.Expr.Value(ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		val, err := fromCty(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr.SrcRange, err)
		}

		if name != attrVars {
			scope[name] = val
			continue
		}
		vars, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: vars must be an object", attr.SrcRange)
		}
		for k, e := range vars {
			scope[k] = e
		}
	}
	return scope, nil
}

func evalContext(doc *varstack.Stack) *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"var":           lookupFunc(doc),
			"has":           hasFunc(doc),
			"upper":         stdlib.UpperFunc,
			"lower":         stdlib.LowerFunc,
			"title":         stdlib.TitleFunc,
			"trim":          stdlib.TrimFunc,
			"trimspace":     stdlib.TrimSpaceFunc,
			"chomp":         stdlib.ChompFunc,
			"replace":       stdlib.ReplaceFunc,
			"regex_replace": stdlib.RegexReplaceFunc,
			"substr":        stdlib.SubstrFunc,
			"format":        stdlib.FormatFunc,
			"join":          stdlib.JoinFunc,
			"split":         stdlib.SplitFunc,
		},
	}
}

// lookupFunc is var(name): the value of a dotted name in the document, or
// null when it is undefined.
func lookupFunc(doc *varstack.Stack) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, ok, err := doc.Lookup(args[0].AsString())
			if err != nil {
				return cty.NilVal, err
			}
			if !ok {
				return cty.NullVal(cty.DynamicPseudoType), nil
			}
			return toCty(v), nil
		},
	})
}

func hasFunc(doc *varstack.Stack) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			_, ok, err := doc.Lookup(args[0].AsString())
			if err != nil {
				return cty.NilVal, err
			}
			return cty.BoolVal(ok), nil
		},
	})
}

// Manager keeps one plugin Set per directory on the walk path.
type Manager struct {
	source *filetree.Tree
	sets   []*Set
}

// NewManager returns a Manager loading plugin files from source.
func NewManager(source *filetree.Tree) *Manager {
	return &Manager{source: source}
}

// EnterDir loads the plugins of dir, relative to the source root.
func (m *Manager) EnterDir(dir string) error {
	set, err := Load(m.source, dir)
	if err != nil {
		return err
	}
	m.sets = append(m.sets, set)
	return nil
}

// ExitDir drops the plugins of the directory being left.
func (m *Manager) ExitDir() {
	if len(m.sets) > 0 {
		m.sets = m.sets[:len(m.sets)-1]
	}
}

// Empty reports whether every entered directory has been exited.
func (m *Manager) Empty() bool {
	return len(m.sets) == 0
}

// Depth is the number of directories whose plugins are active.
func (m *Manager) Depth() int {
	return len(m.sets)
}

// OnDoc runs every active hook, outermost directory first, and pushes each
// resulting scope onto doc. It returns the number of scopes pushed, also on
// error, so the caller can unwind them.
func (m *Manager) OnDoc(doc *varstack.Stack) (int, error) {
	pushed := 0
	for _, set := range m.sets {
		scopes, err := set.Run(doc)
		for _, scope := range scopes {
			doc.Push(scope)
			pushed++
		}
		if err != nil {
			return pushed, err
		}
	}
	return pushed, nil
}
