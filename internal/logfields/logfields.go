package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath      = "path"
	KeyDir       = "dir"
	KeyDest      = "dest"
	KeyTemplate  = "template"
	KeyBodyType  = "body_type"
	KeyPlugin    = "plugin"
	KeyDepth     = "depth"
	KeyRunID     = "run_id"
	KeyError     = "error"
	KeyGenerated = "generated"
	KeyCopied    = "copied"
	KeySkipped   = "skipped"
	KeyFailed    = "failed"
)

// Path is the source-relative path of a file.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Dir is a source directory relative to the source root.
func Dir(d string) slog.Attr {
	return slog.String(KeyDir, d)
}

// Dest is a destination path.
func Dest(d string) slog.Attr {
	return slog.String(KeyDest, d)
}

func Template(name string) slog.Attr {
	return slog.String(KeyTemplate, name)
}

func BodyType(t string) slog.Attr {
	return slog.String(KeyBodyType, t)
}

func Plugin(p string) slog.Attr {
	return slog.String(KeyPlugin, p)
}

// Depth is the directory depth of the walk.
func Depth(n int) slog.Attr {
	return slog.Int(KeyDepth, n)
}

func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// Error renders err, or an empty string for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
