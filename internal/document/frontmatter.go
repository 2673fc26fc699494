package document

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/saltyorg/recipe/internal/filetree"
	"github.com/saltyorg/recipe/internal/jsonc"
)

// ErrUnterminatedFrontMatter is returned when a document opens a front
// matter block that never closes.
var ErrUnterminatedFrontMatter = errors.New("unterminated front matter")

const delimiter = "---"

var (
	metaLineRe  = regexp.MustCompile(`^\s*(\S+):\s*(.*)`)
	jsonStartRe = regexp.MustCompile(`^\s*\{`)
)

// SplitFrontMatter separates the front matter lines from the body. A
// document has front matter only when its first line is "---"; otherwise the
// whole input is body.
func SplitFrontMatter(contents string) ([]string, string, error) {
	first, rest, _ := strings.Cut(contents, "\n")
	if strings.TrimSpace(first) != delimiter {
		return nil, contents, nil
	}

	var lines []string
	for {
		line, after, more := strings.Cut(rest, "\n")
		if strings.TrimSpace(line) == delimiter {
			return lines, after, nil
		}
		if !more {
			return nil, "", ErrUnterminatedFrontMatter
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
		rest = after
	}
}

// ParseFrontMatter turns front matter lines into variables. Lines are
// "key: value" pairs with lowercased keys, where true, false and null are
// coerced. If the first line opens a JSON object the block is parsed as JSON
// instead.
func ParseFrontMatter(lines []string) (map[string]any, error) {
	if len(lines) > 0 && jsonStartRe.MatchString(lines[0]) {
		vars, err := jsonc.ParseObject(strings.Join(lines, "\n"))
		if err != nil {
			return nil, fmt.Errorf("parsing JSON front matter: %w", err)
		}
		return vars, nil
	}

	vars := make(map[string]any)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := metaLineRe.FindStringSubmatch(line)
		if m == nil {
			slog.Warn("Invalid front matter line", slog.String("line", line))
			continue
		}

		var value any = strings.TrimSpace(m[2])
		switch strings.ToLower(value.(string)) {
		case "true":
			value = true
		case "false":
			value = false
		case "null":
			value = nil
		}
		vars[strings.ToLower(m[1])] = value
	}
	return vars, nil
}

// ReadSource reads the document at relPath and returns the two scopes it
// contributes: the metadata extracted from its path, and its parsed
// variables with the body under "body". JSON documents are variables only.
// Other documents get a body-type named after their extension.
func ReadSource(tree *filetree.Tree, relPath string) ([]map[string]any, error) {
	contents, err := tree.ContentsOf(relPath)
	if err != nil {
		return nil, err
	}
	extracted := ExtractMetadata(relPath)

	if path.Ext(relPath) == ".json" {
		parsed, err := jsonc.ParseObject(contents)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", relPath, err)
		}
		return []map[string]any{extracted, parsed}, nil
	}

	if ext := extracted["ext"].(string); ext != "" {
		extracted["body-type"] = ext
	}

	lines, body, err := SplitFrontMatter(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", relPath, err)
	}
	parsed, err := ParseFrontMatter(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", relPath, err)
	}
	parsed["body"] = body
	return []map[string]any{extracted, parsed}, nil
}
