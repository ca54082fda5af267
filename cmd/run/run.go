package run

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/daemon"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/fswatch"
	"github.com/sidkik/foldersync/pkg/metrics"
	"github.com/sidkik/foldersync/pkg/sync"
)

// Mocked for unit testing.
var (
	stderr              io.Writer = os.Stderr
	getWorkingDirectory           = os.Getwd
	exit                          = os.Exit
)

type runCmd struct {
	configPath     string
	once           bool
	watch          bool
	metricsAddress string
	verbose        bool
}

// New creates a new `run` command.
func New() *cobra.Command {
	var cmd runCmd
	cobraCmd := &cobra.Command{
		Use:   "run [source destination log_file interval_seconds]",
		Short: "Mirror a source folder into a destination folder periodically",
		Long: `Keep the destination folder an exact copy of the source folder.

Every interval, entries that no longer exist in the source are removed from
the destination, and new or modified files are copied over. The source
folder is never modified.

The folders can either be passed as arguments, or read from a config file
created with "foldersync config". If no arguments are given, the config file
in the current directory is used.`,
		Args: validateArgs,
		Run: func(_ *cobra.Command, args []string) {
			if err := cmd.run(args); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cobraCmd.Flags().StringVarP(&cmd.configPath, "config", "c", "",
		"The config file to read. Defaults to "+config.DefaultDaemonConfigName+
			" in the current directory.")
	cobraCmd.Flags().BoolVar(&cmd.once, "once", false,
		"Run a single sync cycle and exit. The exit code is non-zero if any "+
			"entry failed to sync.")
	cobraCmd.Flags().BoolVar(&cmd.watch, "watch", false,
		"Start a cycle as soon as the source folder changes, rather than "+
			"waiting for the interval to elapse.")
	cobraCmd.Flags().StringVar(&cmd.metricsAddress, "metrics-address", "",
		"Serve Prometheus metrics at /metrics on this address.")
	cobraCmd.Flags().BoolVarP(&cmd.verbose, "verbose", "v", false,
		"Log debug messages. Also enabled by setting "+util.VerboseLogKey+"=true.")
	return cobraCmd
}

func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 4 {
		return errors.NewFriendlyError("Expected either no arguments, or the "+
			"source folder, destination folder, log file and sync interval "+
			"(in seconds). Got %d arguments.", len(args))
	}
	return nil
}

func (cmd runCmd) run(args []string) error {
	cfg, err := cmd.getConfig(args)
	if err != nil {
		return err
	}

	if cmd.watch {
		cfg.Watch = true
	}
	if cmd.metricsAddress != "" {
		cfg.MetricsAddress = cmd.metricsAddress
	}

	var logFile io.Closer
	logOutput := stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.WithContext(err, "open log file")
		}
		defer f.Close()
		logFile = f
		logOutput = io.MultiWriter(stderr, f)
	}
	log := util.NewLogger(logOutput, cmd.verbose || util.Verbose())

	log.WithFields(logrus.Fields{
		"source":      cfg.Source,
		"destination": cfg.Destination,
		"interval":    cfg.IntervalDuration(),
	}).Info("Starting foldersync")

	syncer := sync.New(cfg.Source, cfg.Destination, log)
	d := daemon.New(syncer, cfg.IntervalDuration(), log)
	if cmd.once {
		if report := d.RunOnce(); report.Failed != 0 {
			return errors.NewFriendlyError(
				"%d entries failed to sync. See the log for details.", report.Failed)
		}
		return nil
	}

	if cfg.Watch {
		d.Wake = watchSource(cfg.Source, log)
	}

	if cfg.MetricsAddress != "" {
		serveMetrics(cfg.MetricsAddress, log)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go handleSignals(log, signals, logFile)
	d.Run()
	return nil
}

func (cmd runCmd) getConfig(args []string) (config.Daemon, error) {
	if len(args) == 4 {
		if cmd.configPath != "" {
			return config.Daemon{}, errors.NewFriendlyError(
				"The --config flag can't be combined with folder arguments.")
		}

		wd, err := getWorkingDirectory()
		if err != nil {
			return config.Daemon{}, errors.WithContext(err, "get working directory")
		}
		return config.FromArgs(wd, args[0], args[1], args[2], args[3])
	}

	path := cmd.configPath
	if path == "" {
		path = config.DefaultDaemonConfigName
	} else if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, config.DefaultDaemonConfigName)
	}

	cfg, err := config.ParseDaemon(path)
	if err != nil {
		switch cause := errors.RootCause(err).(type) {
		case errors.FileNotFound:
			return config.Daemon{}, errors.NewFriendlyError(
				"No config file found at %q.\n"+
					"Either pass the source folder, destination folder, log "+
					"file and sync interval as arguments, or run "+
					"`foldersync config` to create one.", cause.Path)
		case errors.MissingFieldError:
			return config.Daemon{}, errors.NewFriendlyError(
				"The %q field is required in %q.", cause.Field, path)
		}
		return config.Daemon{}, errors.WithContext(err, "parse config")
	}
	return cfg, nil
}

// watchSource returns a channel that receives an event whenever the source
// changes. If the source can't be watched, it returns nil and the daemon only
// polls.
func watchSource(source string, log logrus.FieldLogger) <-chan struct{} {
	events, err := fswatch.Watch(source, log)
	if err == nil {
		return events
	}

	if strings.Contains(errors.RootCause(err).Error(), "too many open files") {
		log.Warn("Too many folders to automatically watch for changes. " +
			"Changes will only be picked up every interval instead. " +
			"Raise the inotify watch limit to enable watching.")
	} else {
		log.WithError(err).Warn("Failed to watch the source folder for changes. " +
			"Changes will only be picked up every interval instead.")
	}
	return nil
}

func serveMetrics(address string, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:    address,
		Handler: mux,
	}

	go func() {
		log.WithField("address", address).Info("Serving metrics")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
}

// handleSignals logs a final record when the process is asked to stop, and
// closes the log file before exiting. A cycle that's interrupted mid-copy
// leaves at most a staging file behind, which the next run's prune removes.
func handleSignals(log logrus.FieldLogger, signals <-chan os.Signal, logFile io.Closer) {
	sig := <-signals
	log.WithField("signal", sig.String()).Info("Shutting down")
	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(stderr, "Failed to close log file: %s\n", err)
		}
	}
	exit(0)
}
