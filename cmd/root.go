package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/foldersync/cmd/config"
	"github.com/sidkik/foldersync/cmd/run"
	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/cmd/version"
)

// Execute runs the main CLI process.
func Execute() {
	if util.Verbose() {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "foldersync",
		Short: "Periodically mirror one folder into another",
		Long: "foldersync keeps a destination folder an exact copy of a source\n" +
			"folder by syncing them on a fixed interval.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		run.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
