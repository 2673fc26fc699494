package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
dest_tree: /tmp/out
source_extensions: [markdown, txt]
keep_going: true
vars:
  site: Example
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		KeyDestTree:         "/tmp/out",
		KeySourceExtensions: []any{"markdown", "txt"},
		KeyKeepGoing:        true,
		KeyVars:             map[string]any{"site": "Example"},
	}, cfg.Layer())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "dest_tree: [", "parsing config file"},
		{"bad filter", "source_filter: '('", "source_filter"},
		{"missing source", "source_tree: /does/not/exist", "does not exist"},
		{"empty extension", "ignore_extensions: ['']", "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			require.ErrorContains(t, err, tt.want)
		})
	}

	_, err := Load(filepath.Join(dir, "absent.yml"))
	require.ErrorContains(t, err, "reading config file")
}

func TestResolve_Layering(t *testing.T) {
	opts, err := Resolve(
		Defaults("/site/"),
		map[string]any{KeyTemplatesDir: "layouts", KeyVars: map[string]any{"a": 1}},
		map[string]any{KeyKeepGoing: true, KeySourceFilter: `\.md$`, KeyVars: map[string]any{"b": 2}},
	)
	require.NoError(t, err)

	require.Equal(t, "/site", opts.SourceTree)
	require.Equal(t, filepath.Join("/site", "__output"), opts.DestTree)
	require.Equal(t, filepath.Join("/site", "layouts"), opts.TemplatesDir)
	require.Equal(t, []string{"markdown", "md", "json"}, opts.SourceExtensions)
	require.Equal(t, []string{"jsont"}, opts.IgnoreExtensions)
	require.True(t, opts.KeepGoing)
	require.True(t, opts.SourceFilter.MatchString("a/b.md"))
	require.Equal(t, []map[string]any{{"a": 1}, {"b": 2}}, opts.Vars)
}

func TestResolve_ComputedOption(t *testing.T) {
	opts, err := Resolve(Defaults("/site"), map[string]any{"$dest-tree": "{source-tree}/../public"})
	require.NoError(t, err)
	require.Equal(t, "/site/../public", opts.DestTree)
}

func TestResolve_BadFilter(t *testing.T) {
	_, err := Resolve(Defaults("/site"), map[string]any{KeySourceFilter: "("})
	require.ErrorContains(t, err, "source-filter")
}

func TestOptions_Validate(t *testing.T) {
	src := t.TempDir()

	tests := []struct {
		name    string
		dest    string
		wantErr bool
	}{
		{"default output dir", filepath.Join(src, "__output"), false},
		{"outside the source", filepath.Join(filepath.Dir(src), "public"), false},
		{"same as source", src, true},
		{"plain dir inside source", filepath.Join(src, "public"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{SourceTree: src, DestTree: tt.dest, SourceExtensions: []string{"md"}}
			err := opts.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}

	missing := &Options{SourceTree: filepath.Join(src, "nope"), SourceExtensions: []string{"md"}}
	require.ErrorContains(t, missing.Validate(), "does not exist")

	file := filepath.Join(src, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	notDir := &Options{SourceTree: file, SourceExtensions: []string{"md"}}
	require.ErrorContains(t, notDir.Validate(), "is not a directory")
}

func TestReadDirConfig(t *testing.T) {
	tree := filetree.NewMemory("/src")
	require.NoError(t, tree.WriteFile("blog/__config.json", "# blog settings\n{\"vars\": {\"section\": \"Blog\"}}"))
	require.NoError(t, tree.WriteFile("bad/__config.json", "{"))

	cfg, err := ReadDirConfig(tree, "blog")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"vars": map[string]any{"section": "Blog"}}, cfg)

	cfg, err = ReadDirConfig(tree, "")
	require.NoError(t, err)
	require.Empty(t, cfg)

	_, err = ReadDirConfig(tree, "bad")
	require.Error(t, err)
}
