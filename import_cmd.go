package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/library"
)

var (
	importWatch bool

	importCmd = &cobra.Command{
		Use:   "import DIR",
		Short: "Import a directory of chapters",
		Long: paragraph(fmt.Sprintf("\n%s every markdown and text file below DIR as a chapter. Chapters are read in the order of their paths, so name them so they sort. Files ignored by git are skipped.",
			keyword("Import"))),
		Example: paragraph("readaloud import ./book\nreadaloud import ./book --watch"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.ExpandPath(args[0])

			return withContainer(nil, func(i do.Injector, _ *config.Config) error {
				lib := do.MustInvoke[*library.Library](i)

				res, err := lib.Import(cmd.Context(), dir)
				if err != nil {
					return fmt.Errorf("unable to import %s: %w", dir, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s", keyword(fmt.Sprintf("%d chapters", res.Imported)))
				if res.Skipped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d", res.Skipped)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ".")

				if !importWatch {
					return nil
				}
				return watch(cmd, lib, dir)
			})
		},
	}
)

func watch(cmd *cobra.Command, lib *library.Library, dir string) error {
	w, err := library.NewWatcher(lib, dir, library.DefaultSettleDelay)
	if err != nil {
		return err
	}
	w.Applied = func(name string, removed bool) {
		verb := "Updated"
		if removed {
			verb = "Removed"
		}
		fmt.Fprintln(cmd.OutOrStdout(), verb, keyword(name))
		log.Debug("Applied change", "chapter", name, "removed", removed)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), faint(fmt.Sprintf("Watching %s for changes. Press ctrl+c to stop.", dir)))
	return w.Run(ctx)
}

func init() {
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "keep importing changes until interrupted")
}
