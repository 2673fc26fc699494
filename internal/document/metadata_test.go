package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		path string
		want map[string]any
	}{
		{
			path: "blog/2009-01-02-hello-world.markdown",
			want: map[string]any{
				"relative-path": "blog/2009-01-02-hello-world.markdown",
				"filename":      "2009-01-02-hello-world.markdown",
				"ext":           "markdown",
				"year":          2009,
				"month":         1,
				"day":           2,
				"title":         "hello world",
			},
		},
		{
			path: "_about-me.html",
			want: map[string]any{
				"relative-path": "_about-me.html",
				"filename":      "_about-me.html",
				"ext":           "html",
				"title":         "about me",
			},
		},
		{
			path: "_2020-03-04-draft.md",
			want: map[string]any{
				"relative-path": "_2020-03-04-draft.md",
				"filename":      "_2020-03-04-draft.md",
				"ext":           "md",
				"year":          2020,
				"month":         3,
				"day":           4,
				"title":         "draft",
			},
		},
		{
			path: "release-2020-01-02-notes.md",
			want: map[string]any{
				"relative-path": "release-2020-01-02-notes.md",
				"filename":      "release-2020-01-02-notes.md",
				"ext":           "md",
				"title":         "release 2020 01 02 notes",
			},
		},
		{
			path: "__index",
			want: map[string]any{
				"relative-path": "__index",
				"filename":      "__index",
				"ext":           "",
				"title":         "index",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ExtractMetadata(tt.path)); diff != "" {
				t.Errorf("ExtractMetadata(%q) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestToDestPath(t *testing.T) {
	tests := map[string]string{
		"_a/_b/c.html": "a/b/c.html",
		"a/b":          "a/b",
		"_post.html":   "post.html",
		"a/__b":        "a/_b",
		"":             "",
	}

	for in, want := range tests {
		if got := ToDestPath(in); got != want {
			t.Errorf("ToDestPath(%q) = %q, want %q", in, got, want)
		}
	}
}
