package sync

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RelPath is the path of an entry relative to the root of its tree. The
// root itself is ".".
// A RelPath is what makes the two trees comparable: `source/p` and
// `destination/p` are counterparts.
type RelPath string

// Rel returns `path` relative to `root`. It returns false if `path` isn't
// lexically within `root`.
// The check is done on whole path components, so `/src2/a` isn't within
// `/src`. Symlinks aren't resolved.
func Rel(root, path string) (RelPath, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return RelPath(rel), true
}

// Under returns the absolute path of `p` within the tree rooted at `root`.
func (p RelPath) Under(root string) string {
	return filepath.Join(root, string(p))
}

// MapPath translates `path`, which must be within `fromRoot`, into the
// corresponding path within `toRoot`.
// For example, MapPath("/src", "/dst", "/src/a/b.txt") is "/dst/a/b.txt".
// Passing a path that isn't within `fromRoot` is a programming error, and
// panics.
func MapPath(fromRoot, toRoot, path string) string {
	rel, ok := Rel(fromRoot, path)
	if !ok {
		panic(fmt.Sprintf("sync: %q is not within %q", path, fromRoot))
	}
	return rel.Under(toRoot)
}

// Overlaps returns whether one of the trees contains the other. Mirroring
// overlapping trees never converges since every copy adds to the source.
func Overlaps(a, b string) bool {
	if _, ok := Rel(a, b); ok {
		return true
	}
	_, ok := Rel(b, a)
	return ok
}
