package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseDaemonConfig             = config.ParseDaemon
	writeDaemonConfig             = config.WriteDaemon
	getWorkingDirectory           = os.Getwd
)

const (
	defaultLogFile  = "foldersync.log"
	defaultInterval = "60"
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.Daemon
	cmd := &cobra.Command{
		Use:   "config [path]",
		Short: "Create or update a foldersync config file",
		Long: "Interactively create a config file for `foldersync run`.\n" +
			"The file is written to " + config.DefaultDaemonConfigName +
			" in the current directory unless a path is given.\n" +
			"Fields set through flags aren't prompted for.",
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := SetupConfig(configPath(args), cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.Source, "source", "",
		"Set the source folder in the config.")
	cmd.Flags().StringVar(&cliOpts.Destination, "destination", "",
		"Set the destination folder in the config.")
	cmd.Flags().StringVar(&cliOpts.LogFile, "log-file", "",
		"Set the log file in the config.")
	cmd.Flags().IntVar(&cliOpts.Interval, "interval", 0,
		"Set the sync interval in seconds in the config.")

	// Setup the commands for querying the contents of the daemon config.
	type getterSpec struct {
		use, short string
		fn         func(config.Daemon) string
	}

	getters := []getterSpec{
		{
			use:   "get-source [path]",
			short: "Get the configured source folder",
			fn:    func(cfg config.Daemon) string { return cfg.Source },
		},
		{
			use:   "get-destination [path]",
			short: "Get the configured destination folder",
			fn:    func(cfg config.Daemon) string { return cfg.Destination },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Args:  cobra.MaximumNArgs(1),
			Run: func(_ *cobra.Command, args []string) {
				cfg, err := parseDaemonConfig(configPath(args))
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

func configPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return config.DefaultDaemonConfigName
}

// SetupConfig prompts for the fields that aren't set in `cliOpts`, and writes
// the resulting config to `path`.
func SetupConfig(path string, cliOpts config.Daemon) error {
	cfg, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeDaemonConfig(path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	// Parse the written file so that mistakes are caught now rather than
	// when the daemon starts.
	if _, err := parseDaemonConfig(path); err != nil {
		return errors.WithContext(err, "validate config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func nonEmptyValidationFn(resp string) (string, bool) {
	if strings.TrimSpace(resp) == "" {
		return "A value is required.", false
	}
	return "", true
}

func intervalValidationFn(resp string) (string, bool) {
	if interval, err := strconv.Atoi(resp); err != nil || interval <= 0 {
		return "The interval must be a positive whole number of seconds.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the desired
// configuration is. Answers from an existing config at `path` are offered as
// choices alongside the guessed defaults.
func generateConfig(path string, cliOpts config.Daemon) (config.Daemon, error) {
	currConfig, err := parseDaemonConfig(path)
	if err != nil {
		currConfig = config.Daemon{}
		log.WithError(err).Debug("Failed to read current config")
	}

	defaultSource, err := getWorkingDirectory()
	if err != nil {
		defaultSource = ""
		log.WithError(err).Info("Failed to guess source folder")
	}

	cfg := cliOpts
	interval := ""
	if cliOpts.Interval != 0 {
		interval = strconv.Itoa(cliOpts.Interval)
	}
	currInterval := ""
	if currConfig.Interval != 0 {
		currInterval = strconv.Itoa(currConfig.Interval)
	}

	var prompts []prompt
	if cliOpts.Source == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the folder to mirror.\n" +
				"It's never modified by foldersync.",
			prompt:        "Source folder",
			defaultAnswer: defaultSource,
			currAnswer:    currConfig.Source,
			field:         &cfg.Source,
			validationFn:  nonEmptyValidationFn,
		})
	}

	if cliOpts.Destination == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the folder to mirror into.\n" +
				"Anything in it that isn't in the source folder will be deleted.",
			prompt:       "Destination folder",
			currAnswer:   currConfig.Destination,
			field:        &cfg.Destination,
			validationFn: nonEmptyValidationFn,
		})
	}

	if cliOpts.LogFile == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the file to log to, in addition to the terminal.\n" +
				"Relative paths are relative to the config file.",
			prompt:        "Log file",
			defaultAnswer: defaultLogFile,
			currAnswer:    currConfig.LogFile,
			field:         &cfg.LogFile,
		})
	}

	if cliOpts.Interval == 0 {
		prompts = append(prompts, prompt{
			helpString:    "Enter the number of seconds to wait between syncs.",
			prompt:        "Sync interval",
			defaultAnswer: defaultInterval,
			currAnswer:    currInterval,
			field:         &interval,
			validationFn:  intervalValidationFn,
		})
	}

	stdinReader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(stdinReader, prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Daemon{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	// The interval was validated by its prompt, or set as an int by the flag.
	cfg.Interval, _ = strconv.Atoi(interval)
	cfg.Watch = currConfig.Watch
	cfg.MetricsAddress = currConfig.MetricsAddress
	return cfg, nil
}

func promptUser(in *bufio.Reader, helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := readLine(in)
			if err != nil {
				return "", err
			}

			// Default to the first choice if user doesn't enter anything.
			choice := 1
			if choiceStr != "" {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	return readLine(in)
}

// readLine reads a line without its trailing newline. A final line that isn't
// newline-terminated is returned as is.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
