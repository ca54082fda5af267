package sync

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sidkik/foldersync/pkg/errors"
)

type file struct {
	path     string
	contents string
	mode     os.FileMode
	modTime  time.Time
}

func (f file) WithContents(contents string) file {
	f.contents = contents
	return f
}

func (f file) WithMode(mode os.FileMode) file {
	f.mode = mode
	return f
}

func (f file) WithModTime(modTime time.Time) file {
	f.modTime = modTime
	return f
}

func randomFile(path string) file {
	randomTime := time.Date(2019, 11, 10, rand.Intn(23), rand.Intn(59), rand.Intn(59), 0, time.UTC)
	return file{
		path:     path,
		contents: strconv.Itoa(rand.Int()),
		mode:     os.FileMode(0640 | rand.Intn(8)),
		modTime:  randomTime,
	}
}

// mockFs contains helper methods for creating temporary folders to mirror.
type mockFs struct {
	root        string
	source      string
	destination string
	logFile     string
}

type fsOp func(mockFs) error

func newMockFs() (mockFs, error) {
	root, err := os.MkdirTemp("", "foldersync-ci")
	if err != nil {
		return mockFs{}, errors.WithContext(err, "make root dir")
	}

	source := filepath.Join(root, "source")
	if err := os.Mkdir(source, 0755); err != nil {
		return mockFs{}, errors.WithContext(err, "make source directory")
	}

	return mockFs{
		root:        root,
		source:      source,
		destination: filepath.Join(root, "destination"),
		logFile:     filepath.Join(root, "foldersync.log"),
	}, nil
}

func (fs mockFs) cleanup() error {
	return os.RemoveAll(fs.root)
}

func (fs mockFs) sourcePath(path string) string {
	return filepath.Join(fs.source, path)
}

func (fs mockFs) destinationPath(path string) string {
	return filepath.Join(fs.destination, path)
}

func createFile(toCreate file) fsOp {
	return func(fs mockFs) error {
		return writeFile(fs.sourcePath(toCreate.path), toCreate)
	}
}

// createDestinationFile creates a file that only exists in the destination.
func createDestinationFile(toCreate file) fsOp {
	return func(fs mockFs) error {
		return writeFile(fs.destinationPath(toCreate.path), toCreate)
	}
}

func writeFile(path string, toCreate file) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "make parent")
	}

	// Write through a new inode so that read-only modes from a previous
	// version of the file don't get in the way.
	if err := os.RemoveAll(path); err != nil {
		return errors.WithContext(err, "remove old version")
	}

	if err := os.WriteFile(path, []byte(toCreate.contents), 0600); err != nil {
		return errors.WithContext(err, "write")
	}

	if err := os.Chmod(path, toCreate.mode); err != nil {
		return errors.WithContext(err, "chmod")
	}

	if err := os.Chtimes(path, time.Now(), toCreate.modTime); err != nil {
		return errors.WithContext(err, "chtimes")
	}
	return nil
}

func removeFile(f string) fsOp {
	return func(fs mockFs) error {
		return os.RemoveAll(fs.sourcePath(f))
	}
}

func makeDir(dir string) fsOp {
	return func(fs mockFs) error {
		return os.MkdirAll(fs.sourcePath(dir), 0755)
	}
}
