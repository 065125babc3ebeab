package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readaloud/internal/background"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}

		page = page.WithSection("Background tasks", fmt.Sprintf(
			"The %s task starts playback from a JSON payload such as {\"current\":\"chapter-01\",\"progress\":0.5}. "+
				"Missing fields are taken from the saved position. An empty payload stops playback and keeps the position.",
			background.TaskID))
		page = page.WithSection("Environment",
			"READALOUD_CONFIG_HOME, READALOUD_DATA_DIR, READALOUD_PLATFORM, READALOUD_LOGFILE and READALOUD_DEBUG "+
				"override the matching configuration.")
		page = page.WithSection("Copyright", "(C) 2025 dgnsrekt.\nReleased under MIT license.")

		_, err = fmt.Fprint(cmd.OutOrStdout(), page.Build(roff.NewDocument()))
		return err
	},
}
