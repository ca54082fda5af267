package config

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

const (
	// DefaultDaemonConfigName is the file name the run command looks for when
	// it's given a directory rather than a config file.
	DefaultDaemonConfigName = "foldersync.yaml"

	// InitialDaemonConfigVersion is the first version of the foldersync
	// daemon config. Config files that do not specify a version will default
	// to this version.
	InitialDaemonConfigVersion = "v1alpha1"

	// SupportedDaemonConfigVersion is the supported version of the daemon
	// config of the current foldersync binary.
	SupportedDaemonConfigVersion = "v1alpha1"
)

// Daemon contains the configuration of a mirroring daemon.
type Daemon struct {
	Version     string `json:"version,omitempty"`
	Source      string `json:"source"`      // Required.
	Destination string `json:"destination"` // Required.
	LogFile     string `json:"logFile,omitempty"`

	// Interval is the number of seconds to wait between cycles.
	Interval int `json:"interval"`

	// Watch triggers a cycle as soon as the source changes, rather than
	// waiting for the interval to elapse.
	Watch bool `json:"watch,omitempty"`

	// MetricsAddress is the address to serve Prometheus metrics on. Metrics
	// aren't served if it's empty.
	MetricsAddress string `json:"metricsAddress,omitempty"`

	// Only populated when parsed from a file. Never set by user.
	path string
}

// GetPath returns the filepath that the config was parsed from. A getter
// method is used rather than making the field public so that it can't get set
// by the yaml Unmarshalling.
func (c Daemon) GetPath() string {
	return c.path
}

func (c Daemon) getVersion() string {
	return c.Version
}

// IntervalDuration returns the time to wait between cycles.
func (c Daemon) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// ParseDaemon parses the daemon config at `path`. Relative paths within the
// config are evaluated relative to the directory containing it.
func ParseDaemon(path string) (Daemon, error) {
	config := Daemon{
		path:    path,
		Version: InitialDaemonConfigVersion,
	}
	if err := decodeFile(path, &config, SupportedDaemonConfigVersion); err != nil {
		return Daemon{}, errors.WithContext(err, "parse")
	}

	config, err := config.normalize(filepath.Dir(path))
	if err != nil {
		return Daemon{}, err
	}

	if err := config.Validate(); err != nil {
		return Daemon{}, err
	}
	return config, nil
}

// FromArgs builds a daemon config from the positional arguments of the run
// command. Relative paths are evaluated relative to `workingDir`.
func FromArgs(workingDir, source, destination, logFile, interval string) (Daemon, error) {
	seconds, err := strconv.Atoi(interval)
	if err != nil {
		return Daemon{}, errors.NewFriendlyError(
			"The sync interval must be a whole number of seconds, got %q.", interval)
	}

	config := Daemon{
		Version:     SupportedDaemonConfigVersion,
		Source:      source,
		Destination: destination,
		LogFile:     logFile,
		Interval:    seconds,
	}
	config, err = config.normalize(workingDir)
	if err != nil {
		return Daemon{}, err
	}

	if err := config.Validate(); err != nil {
		return Daemon{}, err
	}
	return config, nil
}

// Validate checks that the config describes a mirror that can be run.
func (c Daemon) Validate() error {
	if c.Source == "" {
		return errors.MissingFieldError{Field: "source"}
	}

	if c.Destination == "" {
		return errors.MissingFieldError{Field: "destination"}
	}

	if c.Interval <= 0 {
		return errors.NewFriendlyError(
			"The sync interval must be a positive number of seconds, got %d.", c.Interval)
	}

	// Mirroring a folder into itself would copy the destination into itself
	// every cycle, and pruning a folder from its own parent would delete it.
	if sync.Overlaps(c.Source, c.Destination) {
		return errors.NewFriendlyError(
			"The source folder %q and the destination folder %q overlap.\n"+
				"Neither folder may be inside the other.", c.Source, c.Destination)
	}
	return nil
}

// normalize expands ~'s, and makes every path absolute.
func (c Daemon) normalize(relativeTo string) (Daemon, error) {
	for _, path := range []*string{&c.Source, &c.Destination, &c.LogFile} {
		if *path == "" {
			continue
		}

		expanded, err := homedirExpand(*path)
		if err != nil {
			return Daemon{}, errors.WithContext(err, "expand homedir")
		}

		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(relativeTo, expanded)
		}

		abs, err := filepath.Abs(expanded)
		if err != nil {
			return Daemon{}, errors.WithContext(err, "get absolute path")
		}
		*path = abs
	}
	return c, nil
}

// WriteDaemon writes the given daemon config to `path`.
func WriteDaemon(path string, cfg Daemon) error {
	cfg.Version = SupportedDaemonConfigVersion
	cfgBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, cfgBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
