package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

var fs = afero.NewOsFs()

// Watch watches every directory under `root`. It sends an event on the
// returned channel whenever an entry within the tree changes. Directories
// created after Watch returns are watched as well.
func Watch(root string, log logrus.FieldLogger) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(trackNewDirs(watcher, log)), nil
}

// trackNewDirs forwards the watcher's events. Before forwarding the creation
// of a directory, it starts watching the directory and its children, since
// fsnotify doesn't watch recursively.
func trackNewDirs(watcher *fsnotify.Watcher, log logrus.FieldLogger) <-chan fsnotify.Event {
	events := make(chan fsnotify.Event)
	go func() {
		watchErrors := watcher.Errors
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					close(events)
					return
				}

				if event.Has(fsnotify.Create) {
					addDirs(watcher, event.Name, log)
				}
				events <- event
			case err, ok := <-watchErrors:
				if !ok {
					watchErrors = nil
					continue
				}
				log.WithError(err).Warn("File watcher error")
			}
		}
	}()
	return events
}

func addDirs(watcher *fsnotify.Watcher, path string, log logrus.FieldLogger) {
	fi, err := fs.Stat(path)
	if err != nil || !fi.IsDir() {
		// The entry is either a file, which is covered by the watch on its
		// parent, or it's already gone.
		return
	}

	dirs, err := getPathsToWatch(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("Failed to list new directory")
		return
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.WithError(err).WithField("path", dir).Warn(
				"Failed to watch new directory. Changes within it will be " +
					"picked up by the next scheduled cycle.")
		}
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns `root` and every directory beneath it. Files don't
// need their own watch because fsnotify reports changes to a directory's
// entries on the directory.
func getPathsToWatch(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.Errorf("%q is not a directory", root)
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		// Walk doesn't follow symlinks, so this never leaves `root`.
		if fi.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
