package sync

import (
	"os"
)

// Prune removes every entry of the destination that has no counterpart in
// the source.
// The destination is walked top-down so that a removed directory's children
// are never visited. A directory is kept only if its counterpart is a
// directory, and a file is kept only if its counterpart exists and isn't a
// directory.
func (s Syncer) Prune() Report {
	p := s.newPhase()
	p.walkRoot(s.Destination, func(path string, info os.FileInfo) Visit {
		res, visit := s.pruneEntry(path, info)
		p.record(res)
		return visit
	})
	return p.report
}

func (s Syncer) pruneEntry(path string, info os.FileInfo) (result, Visit) {
	srcPath := MapPath(s.Destination, s.Source, path)
	srcInfo, err := fs.Stat(srcPath)
	if err != nil && !isNotExist(err) {
		// We can't tell whether the source has the entry, so leave it alone
		// until the next cycle.
		return result{op: opStat, path: srcPath, dir: info.IsDir(), err: err}, SkipSubtree
	}
	srcExists := err == nil

	if srcExists && srcInfo.IsDir() == info.IsDir() {
		return result{}, Descend
	}

	if info.IsDir() {
		// Remove the directory as a unit. Even if removal only partially
		// succeeds, there's no point walking into it since none of its
		// children have counterparts.
		if err := fs.RemoveAll(path); err != nil {
			return result{op: opDelete, path: path, dir: true, err: err}, SkipSubtree
		}
		return result{op: opDelete, path: path, dir: true}, Gone
	}

	if err := fs.Remove(path); err != nil {
		return result{op: opDelete, path: path, err: err}, SkipSubtree
	}
	return result{op: opDelete, path: path}, Gone
}
