package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsonc"
	"github.com/saltyorg/recipe/internal/logfields"
	"github.com/saltyorg/recipe/internal/varstack"
	"github.com/spf13/cast"
)

// Option keys, as written in __config.json and option layers.
const (
	KeySourceTree       = "source-tree"
	KeyDestTree         = "dest-tree"
	KeyTemplatesDir     = "templates-dir"
	KeySourceFilter     = "source-filter"
	KeySourceExtensions = "source-extensions"
	KeyIgnoreExtensions = "ignore-extensions"
	KeyKeepGoing        = "keep-going"
	KeyVerbose          = "verbose"
	KeyManifest         = "manifest"
	KeyVars             = "vars"
)

// DirConfigFile is the per-directory configuration file.
const DirConfigFile = "__config.json"

// Options are the resolved settings of one run.
type Options struct {
	SourceTree       string
	DestTree         string
	TemplatesDir     string
	SourceFilter     *regexp.Regexp
	SourceExtensions []string
	IgnoreExtensions []string
	KeepGoing        bool
	Verbose          bool
	Manifest         string

	// Vars holds the vars object of every layer that has one, lowest first.
	Vars []map[string]any
}

// Defaults returns the lowest option layer for a source directory.
func Defaults(sourceDir string) map[string]any {
	sourceDir = strings.TrimSuffix(sourceDir, "/")
	if sourceDir == "" {
		sourceDir = "."
	}
	return map[string]any{
		KeySourceTree:       sourceDir,
		KeyDestTree:         filepath.Join(sourceDir, "__output"),
		KeyTemplatesDir:     "__templates",
		KeySourceExtensions: []any{"markdown", "md", "json"},
		KeyIgnoreExtensions: []any{"jsont"},
		KeyKeepGoing:        false,
		KeyVars:             map[string]any{},
	}
}

// ReadDirConfig reads dir/__config.json from tree. A missing file yields an
// empty object.
func ReadDirConfig(tree *filetree.Tree, dir string) (map[string]any, error) {
	rel := path.Join(dir, DirConfigFile)
	contents, err := tree.ContentsOf(rel)
	if errors.Is(err, filetree.ErrFileNotFound) {
		slog.Debug("No configuration", logfields.Path(tree.Path(rel)))
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Using configuration", logfields.Path(tree.Path(rel)))
	cfg, err := jsonc.ParseObject(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tree.Path(rel), err)
	}
	return cfg, nil
}

// Resolve layers option maps, lowest first, and reads the result. Layers
// are a variable stack, so an option may be computed from others, e.g.
// "$dest-tree": "{source-tree}/../public".
func Resolve(layers ...map[string]any) (*Options, error) {
	stack := varstack.New(layers...)

	get := func(key string) (any, error) {
		v, _, err := stack.Get(key)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", key, err)
		}
		return v, nil
	}

	var (
		opts Options
		errs []error
	)
	str := func(key string) string {
		v, err := get(key)
		errs = append(errs, err)
		return cast.ToString(v)
	}
	list := func(key string) []string {
		v, err := get(key)
		errs = append(errs, err)
		return cast.ToStringSlice(v)
	}
	flag := func(key string) bool {
		v, err := get(key)
		errs = append(errs, err)
		return cast.ToBool(v)
	}

	opts.SourceTree = str(KeySourceTree)
	opts.DestTree = str(KeyDestTree)
	opts.TemplatesDir = str(KeyTemplatesDir)
	opts.Manifest = str(KeyManifest)
	opts.SourceExtensions = list(KeySourceExtensions)
	opts.IgnoreExtensions = list(KeyIgnoreExtensions)
	opts.KeepGoing = flag(KeyKeepGoing)
	opts.Verbose = flag(KeyVerbose)
	filter := str(KeySourceFilter)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if filter != "" {
		re, err := regexp.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("source-filter: %w", err)
		}
		opts.SourceFilter = re
	}

	if opts.TemplatesDir != "" && !filepath.IsAbs(opts.TemplatesDir) {
		opts.TemplatesDir = filepath.Join(opts.SourceTree, opts.TemplatesDir)
	}

	for _, layer := range layers {
		if vars, ok := layer[KeyVars].(map[string]any); ok && len(vars) > 0 {
			opts.Vars = append(opts.Vars, vars)
		}
	}
	return &opts, nil
}

// Validate checks that the options describe a runnable build.
func (o *Options) Validate() error {
	if err := validateDirectory(o.SourceTree, "source tree"); err != nil {
		return err
	}
	if len(o.SourceExtensions) == 0 {
		return fmt.Errorf("source-extensions must not be empty")
	}

	src, err := filepath.Abs(o.SourceTree)
	if err != nil {
		return fmt.Errorf("source tree: %w", err)
	}
	dest, err := filepath.Abs(o.DestTree)
	if err != nil {
		return fmt.Errorf("dest tree: %w", err)
	}

	rel, err := filepath.Rel(src, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if !strings.HasPrefix(first, "__") {
		return fmt.Errorf("dest tree %s is inside the source tree but not under a __ directory; its output would be read back as input", o.DestTree)
	}
	return nil
}
