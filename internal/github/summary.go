// Package github reports build results to GitHub Actions.
package github

import (
	"fmt"
	"os"
	"strings"
)

// maxListed is the number of failures shown before the list is collapsed.
const maxListed = 10

// Failure is a document that failed to build.
type Failure struct {
	Path  string
	Error string
}

// BuildSummary holds the results of one build run.
type BuildSummary struct {
	Source      string
	Dest        string
	RunID       string
	Generated   int
	Copied      int
	Skipped     int
	Filtered    int
	Failed      int
	BytesCopied string // human readable
	Failures    []Failure
}

// WriteStepSummary appends the summary to GITHUB_STEP_SUMMARY if running in
// GitHub Actions.
func (s *BuildSummary) WriteStepSummary() error {
	if os.Getenv("GITHUB_ACTIONS") != "true" {
		return nil
	}

	summaryFile := os.Getenv("GITHUB_STEP_SUMMARY")
	if summaryFile == "" {
		return nil
	}

	f, err := os.OpenFile(summaryFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening summary file: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(s.Markdown())
	return err
}

// Markdown renders the summary as a GitHub flavored markdown section.
func (s *BuildSummary) Markdown() string {
	var sb strings.Builder

	sb.WriteString("## 🍳 Site Build Results\n\n")
	fmt.Fprintf(&sb, "`%s` → `%s`", s.Source, s.Dest)
	if s.RunID != "" {
		fmt.Fprintf(&sb, " (run `%s`)", s.RunID)
	}
	sb.WriteString("\n\n")

	sb.WriteString("| Metric | Count |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| ✅ Generated | %d |\n", s.Generated)
	fmt.Fprintf(&sb, "| 📄 Copied | %d (%s) |\n", s.Copied, s.BytesCopied)
	fmt.Fprintf(&sb, "| ⏭️ Skipped | %d |\n", s.Skipped)
	if s.Filtered > 0 {
		fmt.Fprintf(&sb, "| 🔎 Filtered | %d |\n", s.Filtered)
	}
	fmt.Fprintf(&sb, "| ❌ Failed | %d |\n", s.Failed)
	sb.WriteString("\n")

	if len(s.Failures) == 0 {
		return sb.String()
	}

	collapse := len(s.Failures) > maxListed
	if collapse {
		sb.WriteString("<details>\n")
		fmt.Fprintf(&sb, "<summary><strong>Failed Documents (%d)</strong></summary>\n\n", len(s.Failures))
	} else {
		fmt.Fprintf(&sb, "### Failed Documents (%d)\n\n", len(s.Failures))
	}

	sb.WriteString("| Document | Error |\n")
	sb.WriteString("|----------|-------|\n")
	for _, f := range s.Failures {
		errMsg := strings.ReplaceAll(f.Error, "|", "\\|")
		errMsg = strings.ReplaceAll(errMsg, "\n", " ")
		fmt.Fprintf(&sb, "| `%s` | %s |\n", f.Path, errMsg)
	}
	sb.WriteString("\n")

	if collapse {
		sb.WriteString("</details>\n\n")
	}
	return sb.String()
}
