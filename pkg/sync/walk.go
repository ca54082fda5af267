package sync

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Visit tells the walker what happened to a directory after visiting it.
type Visit int

const (
	// Descend walks into the directory's children.
	Descend Visit = iota

	// SkipSubtree leaves the directory in place but doesn't walk into it.
	SkipSubtree

	// Gone means that the entry was removed by the visitor, so there's
	// nothing left to walk into.
	Gone
)

func (v Visit) String() string {
	switch v {
	case Descend:
		return "descend"
	case SkipSubtree:
		return "skip-subtree"
	case Gone:
		return "gone"
	}
	return "unknown"
}

type visitFunc func(path string, info os.FileInfo) Visit

// walk visits every entry under `root` top-down: a directory is visited
// before any of its children, and its children are only walked if the visit
// returns Descend. Entries within a directory are visited in lexical order.
// Directories that can't be listed are reported through `failed` and
// skipped.
// walk returns errors.FileNotFound if `root` doesn't exist.
func walk(root string, visit visitFunc, failed func(result)) error {
	info, err := fs.Stat(root)
	if err != nil {
		if isNotExist(err) {
			return errors.FileNotFound{Path: root}
		}
		return errors.WithContext(err, "stat root")
	}

	if !info.IsDir() {
		return errors.Errorf("%q is not a directory", root)
	}

	walkDir(root, visit, failed)
	return nil
}

func walkDir(dir string, visit visitFunc, failed func(result)) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		failed(result{op: opRead, path: dir, dir: true, err: err})
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, isLink := resolve(path, entry)
		if visit(path, info) != Descend || !info.IsDir() || isLink {
			continue
		}
		walkDir(path, visit, failed)
	}
}

// resolve classifies a directory entry. Symlinks are classified by their
// target so that a link to a directory is treated as a directory, but the
// walker never follows it. Dangling links are treated as files.
func resolve(path string, entry os.FileInfo) (os.FileInfo, bool) {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry, false
	}

	target, err := fs.Stat(path)
	if err != nil {
		return entry, true
	}
	return target, true
}

// isNotExist returns whether `err` means that the path is absent. ENOTDIR is
// included since it means that a parent of the path is a file.
func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}
