// Package daemon runs sync cycles periodically.
package daemon

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/metrics"
	"github.com/sidkik/foldersync/pkg/sync"
)

// Syncer runs a single sync cycle.
type Syncer interface {
	RunCycle() sync.Report
}

// Daemon runs a cycle, waits for Interval, and repeats. The wait starts once
// a cycle finishes, so cycles never overlap.
type Daemon struct {
	Syncer   Syncer
	Interval time.Duration
	Clock    clockwork.Clock
	Log      logrus.FieldLogger

	// Wake ends the current wait early. It may be nil.
	Wake <-chan struct{}
}

// New creates a Daemon that waits on the real clock.
func New(syncer Syncer, interval time.Duration, log logrus.FieldLogger) Daemon {
	return Daemon{
		Syncer:   syncer,
		Interval: interval,
		Clock:    clockwork.NewRealClock(),
		Log:      log,
	}
}

// Run runs cycles until the process exits.
func (d Daemon) Run() {
	d.Log.WithField("interval", d.Interval).Info("Starting sync loop")
	for {
		d.RunOnce()
		d.wait()
	}
}

// RunOnce runs a single cycle and records its outcome.
func (d Daemon) RunOnce() sync.Report {
	start := d.Clock.Now()
	report := d.Syncer.RunCycle()
	end := d.Clock.Now()
	metrics.RecordCycle(report, end.Sub(start), end)

	log := d.Log.WithFields(report.Fields()).WithField("duration", end.Sub(start))
	if report.Changed() == 0 && report.Failed == 0 {
		log.Debug("Sync cycle finished")
	} else {
		log.Info("Sync cycle finished")
	}
	return report
}

func (d Daemon) wait() {
	timer := d.Clock.NewTimer(d.Interval)
	defer timer.Stop()

	select {
	case <-timer.Chan():
	case <-d.Wake:
		d.Log.Debug("Woken up early by a change in the source folder")
	}
}
