package sync

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Ensure makes sure that both roots are usable before walking them.
// A missing source is only a warning: the cycle carries on as if the source
// were empty. A missing destination is created along with its parents.
// Ensure is idempotent.
func (s Syncer) Ensure() Report {
	p := s.newPhase()

	sourceExists, err := afero.DirExists(fs, s.Source)
	if err != nil || !sourceExists {
		var srcErr error = errors.SourceUnavailable{Path: s.Source}
		if err != nil {
			srcErr = errors.WithContext(err, srcErr.Error())
		}
		p.log.WithError(srcErr).WithField("path", s.Source).Warn(
			"Source folder not found. Treating it as empty for this cycle.")
	}

	destinationExists, err := afero.DirExists(fs, s.Destination)
	if err == nil && destinationExists {
		return p.report
	}

	if err := fs.MkdirAll(s.Destination, 0755); err != nil {
		p.report.Failed++
		createErr := errors.DestinationCreateFailure{Path: s.Destination, Err: err}
		p.log.WithError(createErr).WithFields(logrus.Fields{
			"path":   s.Destination,
			"action": opCreate,
		}).Error("Failed to create destination folder")
		return p.report
	}

	p.record(result{op: opCreate, path: s.Destination, dir: true})
	return p.report
}
