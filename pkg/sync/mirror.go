package sync

import (
	"os"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mirror creates or refreshes every entry of the source in the destination.
// Directories are created when missing, with the permissions of their source
// counterpart. Files are copied when missing, and
// recopied when the source's modification time is strictly after the
// destination's.
// The walk always descends into source directories, even if creating the
// destination directory failed. The files within it then fail individually.
func (s Syncer) Mirror() Report {
	p := s.newPhase()
	p.walkRoot(s.Source, func(path string, info os.FileInfo) Visit {
		p.record(s.mirrorEntry(path, info))
		return Descend
	})
	return p.report
}

func (s Syncer) mirrorEntry(path string, info os.FileInfo) result {
	dstPath := MapPath(s.Source, s.Destination, path)
	dstInfo, err := fs.Stat(dstPath)
	if err != nil && !isNotExist(err) {
		return result{op: opStat, path: dstPath, dir: info.IsDir(), err: err}
	}
	dstExists := err == nil

	if info.IsDir() {
		if dstExists && dstInfo.IsDir() {
			return result{}
		}

		if err := fs.MkdirAll(dstPath, info.Mode().Perm()); err != nil {
			return result{op: opCreate, path: dstPath, dir: true, err: err}
		}
		return result{op: opCreate, path: dstPath, dir: true}
	}

	if !dstExists {
		if err := copyFile(path, dstPath); err != nil {
			return result{op: opCreate, path: dstPath, err: err}
		}
		return result{op: opCreate, path: dstPath}
	}

	if dstInfo.IsDir() {
		// Prune removes directories whose counterpart is a file, so this only
		// happens if that removal failed.
		return result{op: opCreate, path: dstPath,
			err: errors.New("a directory is in the way")}
	}

	// Equal modification times count as in sync.
	if !info.ModTime().After(dstInfo.ModTime()) {
		return result{}
	}

	if err := copyFile(path, dstPath); err != nil {
		return result{op: opUpdate, path: dstPath, err: err}
	}
	return result{op: opUpdate, path: dstPath}
}
