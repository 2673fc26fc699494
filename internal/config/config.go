package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/saltyorg/recipe/internal/filetree"
	"gopkg.in/yaml.v3"
)

// File represents the optional YAML configuration file given with --config.
// Every field is optional; set fields override the built-in defaults and the
// source tree's __config.json, and are overridden by flags.
type File struct {
	SourceTree       string         `yaml:"source_tree"`
	DestTree         string         `yaml:"dest_tree"`
	TemplatesDir     string         `yaml:"templates_dir"`
	SourceFilter     string         `yaml:"source_filter"`
	SourceExtensions []string       `yaml:"source_extensions"`
	IgnoreExtensions []string       `yaml:"ignore_extensions"`
	KeepGoing        *bool          `yaml:"keep_going"`
	Manifest         string         `yaml:"manifest"`
	Vars             map[string]any `yaml:"vars"`
}

// Load reads and parses a config file from the given path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *File) Validate() error {
	if c.SourceTree != "" {
		if err := validateDirectory(c.SourceTree, "source_tree"); err != nil {
			return err
		}
	}
	if c.SourceFilter != "" {
		if _, err := regexp.Compile(c.SourceFilter); err != nil {
			return fmt.Errorf("source_filter: %w", err)
		}
	}
	for _, ext := range append(append([]string(nil), c.SourceExtensions...), c.IgnoreExtensions...) {
		if ext == "" {
			return fmt.Errorf("extensions must not be empty")
		}
	}
	return nil
}

// Layer returns the set fields as an option layer.
func (c *File) Layer() map[string]any {
	layer := make(map[string]any)
	setString := func(key, v string) {
		if v != "" {
			layer[key] = v
		}
	}
	setString(KeySourceTree, c.SourceTree)
	setString(KeyDestTree, c.DestTree)
	setString(KeyTemplatesDir, c.TemplatesDir)
	setString(KeySourceFilter, c.SourceFilter)
	setString(KeyManifest, c.Manifest)
	if c.SourceExtensions != nil {
		layer[KeySourceExtensions] = toAnySlice(c.SourceExtensions)
	}
	if c.IgnoreExtensions != nil {
		layer[KeyIgnoreExtensions] = toAnySlice(c.IgnoreExtensions)
	}
	if c.KeepGoing != nil {
		layer[KeyKeepGoing] = *c.KeepGoing
	}
	if c.Vars != nil {
		layer[KeyVars] = c.Vars
	}
	return layer
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// validateDirectory checks that a path exists and is a directory.
func validateDirectory(path, name string) error {
	tree := filetree.NewOS(path)
	if !tree.Exists("") {
		return fmt.Errorf("%s does not exist: %s", name, path)
	}
	if !tree.IsDir("") {
		return fmt.Errorf("%s is not a directory: %s", name, path)
	}
	return nil
}
