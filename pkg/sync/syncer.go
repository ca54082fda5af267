package sync

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// The actions logged for entries. Every successful create, update and
// delete produces exactly one Info record, and every failure exactly one
// Error record.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opStat   = "stat"
	opRead   = "read"
)

// Syncer mirrors the Source tree into the Destination tree.
type Syncer struct {
	Source      string
	Destination string

	// Log receives a record for every change and every failure. It's never
	// configured by this package.
	Log logrus.FieldLogger
}

// New returns a Syncer for the given roots. Both roots should be absolute
// and cleaned.
func New(source, destination string, log logrus.FieldLogger) Syncer {
	return Syncer{
		Source:      source,
		Destination: destination,
		Log:         log,
	}
}

// Report counts what a phase or a cycle did.
type Report struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Add merges `other` into the report.
func (r *Report) Add(other Report) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Deleted += other.Deleted
	r.Failed += other.Failed
}

// Changed returns the number of entries that were created, updated or
// deleted.
func (r Report) Changed() int {
	return r.Created + r.Updated + r.Deleted
}

// Fields returns the report as log fields.
func (r Report) Fields() logrus.Fields {
	return logrus.Fields{
		"created": r.Created,
		"updated": r.Updated,
		"deleted": r.Deleted,
		"failed":  r.Failed,
	}
}

// RunCycle runs Ensure, Prune and Mirror in that order. Pruning has to come
// first so that an entry that was renamed in the source doesn't survive
// under its old name.
// All records logged during the cycle carry the same `cycle` field.
func (s Syncer) RunCycle() Report {
	cycle := s
	cycle.Log = s.Log.WithField("cycle", uuid.NewString())

	var report Report
	report.Add(cycle.Ensure())
	report.Add(cycle.Prune())
	report.Add(cycle.Mirror())
	return report
}

// result is the outcome of visiting a single entry. An empty op means that
// the entry was already in sync.
type result struct {
	op   string
	path string
	dir  bool
	err  error
}

// phase accumulates the results of one walk.
type phase struct {
	log    logrus.FieldLogger
	report Report
}

func (s Syncer) newPhase() *phase {
	return &phase{log: s.Log}
}

// record logs and counts `res`.
func (p *phase) record(res result) {
	kind := "file"
	if res.dir {
		kind = "directory"
	}

	if res.err != nil {
		p.report.Failed++
		entryErr := errors.EntryIOFailure{Op: res.op, Path: res.path, Err: res.err}
		p.log.WithError(entryErr).WithFields(logrus.Fields{
			"path":   res.path,
			"action": res.op,
		}).Errorf("Failed to %s %s", res.op, kind)
		return
	}

	var verb string
	switch res.op {
	case "":
		return
	case opCreate:
		p.report.Created++
		verb = "Created"
	case opUpdate:
		p.report.Updated++
		verb = "Updated"
	case opDelete:
		p.report.Deleted++
		verb = "Removed"
	default:
		panic(fmt.Sprintf("sync: unexpected action %q", res.op))
	}

	p.log.WithFields(logrus.Fields{
		"path":   res.path,
		"action": res.op,
	}).Infof("%s %s", verb, kind)
}

// walkRoot walks `root`, reporting a missing root at the Debug level since
// Ensure already reported it for the cycle.
func (p *phase) walkRoot(root string, visit visitFunc) {
	err := walk(root, visit, p.record)
	if err == nil {
		return
	}

	if _, ok := errors.RootCause(err).(errors.FileNotFound); ok {
		p.log.WithField("path", root).Debug("Folder doesn't exist. Nothing to walk.")
		return
	}
	p.record(result{op: opRead, path: root, dir: true, err: err})
}
