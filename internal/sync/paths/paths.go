// Package paths canonicalizes user- and protocol-supplied paths into the
// segment form shared by the local and remote trees.
package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	syncerr "github.com/dl-alexandre/ftpfetch/internal/errors"
)

// Path is a normalized sequence of non-empty segments relative to a root.
// The zero value is the root itself.
type Path []string

// Normalize converts raw into a Path. Backslashes are treated as separators,
// empty and "." segments are dropped. Input containing NUL characters or ".."
// segments is rejected with InvalidPath.
func Normalize(raw string) (Path, error) {
	if strings.ContainsRune(raw, 0) {
		return nil, syncerr.New(syncerr.KindInvalidPath, fmt.Sprintf("%q", raw), fmt.Errorf("contains NUL character"))
	}
	raw = strings.ReplaceAll(raw, `\`, "/")

	var segments Path
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, syncerr.New(syncerr.KindInvalidPath, raw, fmt.Errorf("parent segment not allowed"))
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// MustNormalize is Normalize for literals known to be valid.
func MustNormalize(raw string) Path {
	p, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// ValidName reports whether name can be used as a single segment taken from a
// directory listing.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Depth is the number of segments.
func (p Path) Depth() int {
	return len(p)
}

// Base returns the last segment, or "" for the root.
func (p Path) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns p without its last segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[: len(p)-1 : len(p)-1]
}

// Join returns a new Path with name appended. p is never modified.
func (p Path) Join(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Equal compares segment by segment.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
// Matching is on whole segments: "ab" does not have prefix "a".
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Remote renders p as an absolute slash path below the remote root.
func (p Path) Remote(root string) string {
	return path.Join("/", root, p.String())
}

// Local renders p as an OS path below the local root.
func (p Path) Local(root string) string {
	if len(p) == 0 {
		return filepath.Clean(root)
	}
	return filepath.Join(append([]string{root}, p...)...)
}

// RemoteRoot canonicalizes a configured remote root into "/a/b" form; the
// server root is "/".
func RemoteRoot(raw string) (string, error) {
	p, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return "/" + p.String(), nil
}

// NormalizeAll normalizes every entry of raws, skipping entries that are
// empty after normalization.
func NormalizeAll(raws []string) ([]Path, error) {
	out := make([]Path, 0, len(raws))
	for _, raw := range raws {
		p, err := Normalize(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		if p.IsRoot() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
