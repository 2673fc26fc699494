// Package document reads source documents: the metadata encoded in their
// file names, their front matter and body, and the per-directory index
// pages built from them.
package document

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	datedNameRe   = regexp.MustCompile(`^_{0,2}(\d{4})-(\d{2})-(\d{2})-(.+)`)
	leadingUnders = regexp.MustCompile(`^_{1,2}`)
)

// ExtractMetadata derives variables from a source path relative to the
// source tree: relative-path, filename, ext (without the dot) and title, plus
// year, month and day when the base name starts with a YYYY-MM-DD- date.
func ExtractMetadata(relPath string) map[string]any {
	filename := path.Base(relPath)
	ext := path.Ext(filename)
	basename := strings.TrimSuffix(filename, ext)
	title := leadingUnders.ReplaceAllString(basename, "")

	meta := map[string]any{
		"relative-path": relPath,
		"filename":      filename,
		"ext":           strings.TrimPrefix(ext, "."),
	}

	if m := datedNameRe.FindStringSubmatch(basename); m != nil {
		meta["year"], _ = strconv.Atoi(m[1])
		meta["month"], _ = strconv.Atoi(m[2])
		meta["day"], _ = strconv.Atoi(m[3])
		title = m[4]
	}

	meta["title"] = strings.ReplaceAll(title, "-", " ")
	return meta
}

// ToDestPath removes the leading underscore of every path component.
func ToDestPath(relPath string) string {
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		parts[i] = strings.TrimPrefix(p, "_")
	}
	return strings.Join(parts, "/")
}
