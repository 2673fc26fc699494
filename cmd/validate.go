package cmd

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/saltyorg/recipe/internal/config"
	"github.com/saltyorg/recipe/internal/document"
	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsonc"
	"github.com/saltyorg/recipe/internal/site"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and front matter",
	Long:  "Validate the configuration and the front matter of source documents.",
}

var validateConfigCmd = &cobra.Command{
	Use:   "config [source dir]",
	Short: "Validate the resolved configuration",
	Long: `Validate the configuration a build would use: the YAML file given
with --config, if any, layered with the source tree's __config.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "✅ Config is valid")
		if IsVerbose() {
			fmt.Fprintf(out, "  source tree:    %s\n", opts.SourceTree)
			fmt.Fprintf(out, "  dest tree:      %s\n", opts.DestTree)
			fmt.Fprintf(out, "  templates dir:  %s\n", opts.TemplatesDir)
			fmt.Fprintf(out, "  source exts:    %s\n", strings.Join(opts.SourceExtensions, ", "))
			fmt.Fprintf(out, "  ignored exts:   %s\n", strings.Join(opts.IgnoreExtensions, ", "))
		}
		return nil
	},
}

var validateFrontmatterCmd = &cobra.Command{
	Use:   "frontmatter [source dir]",
	Short: "Validate front matter in source documents",
	Long:  "Parse the front matter of every document in the source tree and report the ones that fail.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveOptions(cmd, args)
		if err != nil {
			return err
		}
		return validateFrontmatter(cmd, opts)
	},
}

func init() {
	validateCmd.AddCommand(validateConfigCmd)
	validateCmd.AddCommand(validateFrontmatterCmd)
	rootCmd.AddCommand(validateCmd)
}

// frontmatterReport counts the outcome of a front matter validation.
type frontmatterReport struct {
	Valid         int
	Invalid       int
	NoFrontmatter int
}

// validateFrontmatter checks every document of the source tree.
func validateFrontmatter(cmd *cobra.Command, opts *config.Options) error {
	tree := filetree.NewOS(opts.SourceTree)
	report, err := checkFrontmatter(cmd, tree, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nValidation complete: %d valid, %d invalid, %d without front matter\n",
		report.Valid, report.Invalid, report.NoFrontmatter)

	if report.Invalid > 0 {
		return fmt.Errorf("found %d invalid files", report.Invalid)
	}
	return nil
}

func checkFrontmatter(cmd *cobra.Command, tree *filetree.Tree, opts *config.Options) (frontmatterReport, error) {
	var report frontmatterReport
	out := cmd.OutOrStdout()

	files, err := filetree.ListTree(tree.FS(), filetree.Options{IgnoreDirs: filetree.DefaultIgnoreDirs})
	if err != nil {
		return report, fmt.Errorf("listing source tree: %w", err)
	}

	exts := site.ExtensionSet(opts.SourceExtensions)
	for _, rel := range files {
		if strings.HasPrefix(path.Base(rel), "__") || !site.IsDocument(rel, exts) {
			continue
		}
		if opts.SourceFilter != nil && !opts.SourceFilter.MatchString(rel) {
			continue
		}

		hasFrontmatter, err := checkDocument(tree, rel)
		if err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", rel, err)
			report.Invalid++
			continue
		}
		if !hasFrontmatter {
			report.NoFrontmatter++
			if IsVerbose() {
				fmt.Fprintf(out, "⚠️  %s: no front matter\n", rel)
			}
			continue
		}

		report.Valid++
		if IsVerbose() {
			fmt.Fprintf(out, "✅ %s\n", rel)
		}
	}
	return report, nil
}

// checkDocument parses one document and reports whether it had front
// matter. JSON documents are all front matter.
func checkDocument(tree *filetree.Tree, rel string) (bool, error) {
	contents, err := tree.ContentsOf(rel)
	if err != nil {
		return false, err
	}
	if path.Ext(rel) == ".json" {
		_, err := jsonc.ParseObject(contents)
		return err == nil, err
	}

	lines, _, err := document.SplitFrontMatter(contents)
	if err != nil {
		return false, err
	}
	if lines == nil {
		return false, nil
	}
	vars, err := document.ParseFrontMatter(lines)
	if err != nil {
		return false, err
	}
	for _, key := range []string{".hidden", ".index"} {
		if v, ok := vars[key]; ok {
			if _, isBool := v.(bool); !isBool {
				return false, errors.New(key + " must be true or false")
			}
		}
	}
	return true, nil
}
