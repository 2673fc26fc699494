package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/saltyorg/recipe/internal/document"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	newTemplate string
	newPageTmpl string
	newForce    bool
	newDated    bool
)

var newCmd = &cobra.Command{
	Use:   "new <relative path>",
	Short: "Create a new source document",
	Long: `Create a new source document with starter front matter.

The path is relative to the current directory. A path without an
extension gets .md. With --dated the base name is prefixed with today's
date, which the build turns into year, month and day variables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := scaffoldDocument(args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", out)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newTemplate, "template", "", "path to a text/template scaffold (default: built in)")
	newCmd.Flags().StringVar(&newPageTmpl, "page-template", "", "value of the .template front matter key")
	newCmd.Flags().BoolVar(&newForce, "force", false, "overwrite existing file if present")
	newCmd.Flags().BoolVar(&newDated, "dated", false, "prefix the file name with today's date")
	rootCmd.AddCommand(newCmd)
}

// ScaffoldData contains data for the scaffold template.
type ScaffoldData struct {
	Title    string // e.g. "Hello World" for hello-world.md
	Template string // .template value, empty for the default
	Date     string // YYYY-MM-DD
}

// scaffoldDocument writes a new document at rel and returns its path.
func scaffoldDocument(rel string, now time.Time) (string, error) {
	dir, name := path.Split(filepath.ToSlash(rel))
	if name == "" {
		return "", fmt.Errorf("%q names a directory", rel)
	}
	if path.Ext(name) == "" {
		name += ".md"
	}
	if newDated {
		name = now.Format("2006-01-02") + "-" + name
	}
	outputPath := filepath.FromSlash(dir + name)

	if _, err := os.Stat(outputPath); err == nil && !newForce {
		return "", fmt.Errorf("file %s already exists (use --force to overwrite)", outputPath)
	}

	meta := document.ExtractMetadata(dir + name)
	data := ScaffoldData{
		Title:    cases.Title(language.English).String(strings.TrimSpace(meta["title"].(string))),
		Template: newPageTmpl,
		Date:     now.Format("2006-01-02"),
	}

	var (
		tmpl *template.Template
		err  error
	)
	if newTemplate == "" {
		tmpl, err = template.New("scaffold").Funcs(scaffoldFuncs()).Parse(defaultScaffoldTemplate)
		if err != nil {
			return "", fmt.Errorf("parsing default template: %w", err)
		}
	} else {
		tmpl, err = template.New(filepath.Base(newTemplate)).Funcs(scaffoldFuncs()).ParseFiles(newTemplate)
		if err != nil {
			return "", fmt.Errorf("parsing template file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return outputPath, nil
}

// scaffoldFuncs returns the function map available to scaffold templates.
func scaffoldFuncs() template.FuncMap {
	titleCaser := cases.Title(language.English)
	return template.FuncMap{
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"title":     titleCaser.String,
		"trimSpace": strings.TrimSpace,
		"replace":   strings.ReplaceAll,
		"join":      strings.Join,
		"split":     strings.Split,
		"slug": func(s string) string {
			return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
		},
	}
}

const defaultScaffoldTemplate = `---
title: {{.Title}}
{{- if .Template}}
.template: {{.Template}}
{{- end}}
---
# {{.Title}}

Written {{.Date}}.
`
