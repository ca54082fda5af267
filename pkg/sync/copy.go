package sync

import (
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// copyFile copies the contents, mode and modification time of `src` to
// `dst`. The parent of `dst` must already exist.
// The copy is staged in a temporary file next to `dst` and renamed over it,
// so `dst` is never left half-written, and read-only destination files can
// still be refreshed.
func copyFile(src, dst string) (err error) {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return errors.WithContext(err, "stat source")
	}

	tmpFile, err := afero.TempFile(fs, filepath.Dir(dst), "."+filepath.Base(dst)+".foldersync-")
	if err != nil {
		return errors.WithContext(err, "create staging file")
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			fs.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmpFile, srcFile); err != nil {
		tmpFile.Close()
		return errors.WithContext(err, "copy")
	}

	if err = tmpFile.Close(); err != nil {
		return errors.WithContext(err, "close staging file")
	}

	if err = fs.Chmod(tmpPath, fileInfo.Mode().Perm()); err != nil {
		return errors.WithContext(err, "set file mode")
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err = fs.Chtimes(tmpPath, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.WithContext(err, "set file modtime")
	}

	if err = fs.Rename(tmpPath, dst); err != nil {
		return errors.WithContext(err, "rename staging file")
	}
	return nil
}
