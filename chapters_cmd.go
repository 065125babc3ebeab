package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/di"
	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/store"
)

var (
	chaptersFind string

	chaptersCmd = &cobra.Command{
		Use:     "chapters",
		Aliases: []string{"ls"},
		Short:   "List chapters in reading order",
		Long: paragraph(fmt.Sprintf("\n%s the imported chapters in the order they are read. The chapter you were last reading is marked with its position.",
			keyword("List"))),
		Example: paragraph("readaloud chapters\nreadaloud chapters --find intro"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(nil, func(i do.Injector, _ *config.Config) error {
				ctx := cmd.Context()
				lib := do.MustInvoke[*library.Library](i)

				var (
					entries []library.Entry
					err     error
				)
				if chaptersFind != "" {
					entries, err = lib.Find(ctx, chaptersFind)
				} else {
					entries, err = lib.Entries(ctx)
				}
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), faint("No chapters. Add some with `readaloud import DIR`."))
					return nil
				}

				settings, err := store.LoadSettings(ctx, do.MustInvoke[*di.StoreHandle](i))
				if err != nil {
					log.Warn("Could not read settings", "err", err)
				}

				w := cmd.OutOrStdout()
				for n, e := range entries {
					marker := "  "
					suffix := ""
					if e.Name == settings.Current {
						marker = keyword("▶ ")
						suffix = "  " + keyword(fmt.Sprintf("%.0f%%", settings.Progress*100))
					}
					fmt.Fprintf(w, "%s%3d  %-40s %8s%s\n",
						marker, n+1, e.Name, faint(humanize.Bytes(uint64(e.Size))), suffix) //nolint:gosec
				}
				return nil
			})
		},
	}
)

// completeChapters offers chapter names for the first argument.
func completeChapters(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	_ = withContainer(nil, func(i do.Injector, _ *config.Config) error {
		entries, err := do.MustInvoke[*library.Library](i).Entries(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name, toComplete) {
				names = append(names, e.Name)
			}
		}
		return nil
	})
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	chaptersCmd.Flags().StringVarP(&chaptersFind, "find", "f", "", "only list chapters fuzzily matching this")
}
