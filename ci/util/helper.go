package util

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	// Binary is the path to the foldersync binary under test.
	Binary string
}

// NewTestHelper creates a new TestHelper.
func NewTestHelper(binary string) (*TestHelper, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.WithContext(err, "find foldersync binary")
	}
	return &TestHelper{Binary: path}, nil
}

// Start starts the given foldersync command. It returns a channel for
// obtaining any errors after starting the command, and any errors from
// starting the command. The command is stopped with SIGTERM when `ctx` is
// cancelled.
func (helper *TestHelper) Start(ctx context.Context, args ...string) (chan error, error) {
	cmd := exec.Command(helper.Binary, args...)

	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	errChan := make(chan error)
	go func() {
		waitErr := make(chan error)
		go func() {
			waitErr <- cmd.Wait()
			close(waitErr)
		}()

		defer close(errChan)
		select {
		case <-ctx.Done():
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				errChan <- errors.WithContext(err, "kill")
				return
			}
			if err := <-waitErr; err != nil {
				errChan <- fmt.Errorf("unclean shutdown (%s): stderr: %s", err, stderr)
			}
		case err := <-waitErr:
			errChan <- fmt.Errorf("crashed (%v): stderr: %s", err, stderr)
		}
	}()
	return errChan, nil
}

// Run runs the given foldersync command, and returns its combined output.
func (helper *TestHelper) Run(ctx context.Context, command ...string) ([]byte, error) {
	return exec.CommandContext(ctx, helper.Binary, command...).CombinedOutput()
}

// WaitUntilSynced blocks until the destination is an exact mirror of the
// source, or `ctx` has expired.
func (helper *TestHelper) WaitUntilSynced(ctx context.Context, source, destination string) error {
	var diff []string
	synced := TestWithRetry(ctx, nil, func() bool {
		var err error
		diff, err = DiffTrees(source, destination)
		if err != nil {
			log.WithError(err).Debug("Failed to compare trees")
			return false
		}
		return len(diff) == 0
	})

	if !synced {
		return errors.Errorf("destination never converged: %v", diff)
	}
	return nil
}

// TestWithRetry runs `test` with an exponential backoff until it succeeds, or
// `ctx` expires. `trigger` may be used to retry immediately.
func TestWithRetry(ctx context.Context, trigger chan struct{}, test func() bool) bool {
	maxSleepTime := 5 * time.Second
	sleepTime := 100 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return test()
		case <-time.After(sleepTime):
			sleepTime *= 2
			if sleepTime > maxSleepTime {
				sleepTime = maxSleepTime
			}
		case <-trigger:
		}

		if test() {
			return true
		}
	}
}

type entry struct {
	dir      bool
	contents string
	mode     os.FileMode
	modTime  time.Time
}

// DiffTrees returns the relative paths that differ between the two trees. An
// entry differs if it's missing from either tree, or if its type, contents,
// mode, or modification time differ.
func DiffTrees(a, b string) ([]string, error) {
	aTree, err := snapshot(a)
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("snapshot %q", a))
	}

	bTree, err := snapshot(b)
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("snapshot %q", b))
	}

	var diff []string
	for path, aEntry := range aTree {
		bEntry, ok := bTree[path]
		if !ok || aEntry.dir != bEntry.dir || aEntry.contents != bEntry.contents ||
			aEntry.mode != bEntry.mode || !aEntry.modTime.Equal(bEntry.modTime) {
			diff = append(diff, string(path))
		}
	}
	for path := range bTree {
		if _, ok := aTree[path]; !ok {
			diff = append(diff, string(path))
		}
	}
	sort.Strings(diff)
	return diff, nil
}

func snapshot(root string) (map[sync.RelPath]entry, error) {
	fs := afero.NewOsFs()
	tree := map[sync.RelPath]entry{}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, ok := sync.Rel(root, path)
		if !ok || rel == "." {
			return nil
		}

		if info.IsDir() {
			tree[rel] = entry{dir: true}
			return nil
		}

		contents, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		tree[rel] = entry{
			contents: string(contents),
			mode:     info.Mode(),
			modTime:  info.ModTime(),
		}
		return nil
	})
	return tree, err
}

// LogContains returns whether the log file at `path` contains `msg`.
func LogContains(path, msg string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	return err == nil && bytes.Contains(contents, []byte(msg))
}
