package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/errors"
)

// VerboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const VerboseLogKey = "FOLDERSYNC_LOG_VERBOSE"

// Mocked for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError handles errors that are severe enough to terminate the
// program. Friendly errors are printed as is, and all other errors are logged
// with their full context.
func HandleFatalError(err error) {
	if friendlyErr, ok := errors.RootCause(err).(errors.FriendlyError); ok {
		fmt.Fprintln(stderr, friendlyErr.FriendlyMessage())
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the panic and its stack trace before continuing to panic.
// It must be deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		panic(r)
	}
}

// Verbose returns whether debug logging was requested through the
// environment.
func Verbose() bool {
	return os.Getenv(VerboseLogKey) == "true"
}

// NewLogger creates a logger that writes timestamped records to `out`.
func NewLogger(out io.Writer, verbose bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{
		// Show the full timestamp rather than the time elapsed since the
		// process started, so that records can be correlated across restarts.
		FullTimestamp: true,

		// Disable colors since we'll be logging to a file as well.
		DisableColors: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
