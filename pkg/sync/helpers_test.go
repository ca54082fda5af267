package sync

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	srcRoot = "/src"
	dstRoot = "/dst"
)

type mockFile struct {
	path     string
	contents string
	mode     os.FileMode
	modTime  time.Time
}

func (f mockFile) writeToFs() error {
	if err := fs.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	if err := afero.WriteFile(fs, f.path, []byte(f.contents), f.mode); err != nil {
		return err
	}
	return fs.Chtimes(f.path, time.Now(), f.modTime)
}

func (f mockFile) at(root string) mockFile {
	f.path = MapPath(srcRoot, root, f.path)
	return f
}

func randomFile(overrides mockFile) mockFile {
	if overrides.path == "" {
		overrides.path = filepath.Join(srcRoot, strconv.Itoa(rand.Int()))
	}

	if overrides.contents == "" {
		overrides.contents = strconv.Itoa(rand.Int())
	}

	if overrides.modTime.IsZero() {
		randomTime := time.Date(2019, 11, 10, rand.Intn(23), rand.Intn(59), rand.Intn(59), 0, time.UTC)
		overrides.modTime = randomTime
	}

	if overrides.mode == 0000 {
		overrides.mode = os.FileMode(0640 | rand.Intn(8))
	}
	return overrides
}

func writeFiles(t *testing.T, files ...mockFile) {
	for _, f := range files {
		require.NoError(t, f.writeToFs())
	}
}

func mkdirs(t *testing.T, dirs ...string) {
	for _, dir := range dirs {
		require.NoError(t, fs.MkdirAll(dir, 0755))
	}
}

func newTestSyncer() (Syncer, *logrusTest.Hook) {
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(srcRoot, dstRoot, logger), hook
}

func entriesAt(hook *logrusTest.Hook, level logrus.Level) (entries []*logrus.Entry) {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			entries = append(entries, entry)
		}
	}
	return entries
}

func loggedPaths(entries []*logrus.Entry) (paths []string) {
	for _, entry := range entries {
		paths = append(paths, entry.Data["path"].(string))
	}
	return paths
}

// treeEntry is the part of an entry that mirroring is expected to preserve.
type treeEntry struct {
	dir      bool
	contents string
	mode     os.FileMode
	modTime  time.Time
}

// snapshotTree returns every entry under `root`, keyed by its path relative
// to `root`.
func snapshotTree(t *testing.T, root string) map[RelPath]treeEntry {
	tree := map[RelPath]treeEntry{}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, ok := Rel(root, path)
		require.True(t, ok)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			tree[rel] = treeEntry{dir: true}
			return nil
		}

		contents, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		tree[rel] = treeEntry{
			contents: string(contents),
			mode:     info.Mode(),
			modTime:  info.ModTime().UTC(),
		}
		return nil
	})
	require.NoError(t, err)
	return tree
}

var errInjected = errors.New("injected failure")

// faultyFs fails selected operations. Each operation fails for the listed
// paths and everything beneath them.
type faultyFs struct {
	afero.Fs

	// broken maps an operation ("remove", "open", "mkdir", "create",
	// "rename" or "stat") to the paths it fails for.
	broken map[string][]string
}

func (f faultyFs) check(op, path string) error {
	for _, brokenPath := range f.broken[op] {
		if _, ok := Rel(brokenPath, path); ok {
			return &os.PathError{Op: op, Path: path, Err: errInjected}
		}
	}
	return nil
}

func (f faultyFs) Remove(name string) error {
	if err := f.check("remove", name); err != nil {
		return err
	}
	return f.Fs.Remove(name)
}

func (f faultyFs) RemoveAll(path string) error {
	if err := f.check("remove", path); err != nil {
		return err
	}
	return f.Fs.RemoveAll(path)
}

func (f faultyFs) Open(name string) (afero.File, error) {
	if err := f.check("open", name); err != nil {
		return nil, err
	}
	return f.Fs.Open(name)
}

func (f faultyFs) Mkdir(name string, perm os.FileMode) error {
	if err := f.check("mkdir", name); err != nil {
		return err
	}
	return f.Fs.Mkdir(name, perm)
}

func (f faultyFs) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check("mkdir", path); err != nil {
		return err
	}
	return f.Fs.MkdirAll(path, perm)
}

func (f faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 {
		if err := f.check("create", name); err != nil {
			return nil, err
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f faultyFs) Rename(oldname, newname string) error {
	if err := f.check("rename", newname); err != nil {
		return err
	}
	return f.Fs.Rename(oldname, newname)
}

func (f faultyFs) Stat(name string) (os.FileInfo, error) {
	if err := f.check("stat", name); err != nil {
		return nil, err
	}
	return f.Fs.Stat(name)
}
