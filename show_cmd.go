package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/segment"
)

var (
	showUnits bool
	showWidth uint

	showCmd = &cobra.Command{
		Use:   "show CHAPTER",
		Short: "Print a chapter",
		Long: paragraph(fmt.Sprintf("\n%s a chapter as markdown, or with --units as the numbered sentences it is read as.",
			keyword("Render"))),
		Example:           paragraph("readaloud show chapter-01\nreadaloud show chapter-01 --units"),
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeChapters,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(nil, func(i do.Injector, cfg *config.Config) error {
				ctx := cmd.Context()
				lib := do.MustInvoke[*library.Library](i)

				ch, err := lib.Chapter(ctx, findChapter(ctx, lib, args[0]))
				if err != nil {
					return err
				}

				if showUnits {
					text := ch.Content
					if cfg.Playback.StripMarkdown {
						text = segment.PlainText(text)
					}
					for n, unit := range segment.Split(text) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", faint(fmt.Sprintf("%4d", n+1)), unit)
					}
					return nil
				}
				return render(cmd, ch.Content)
			})
		},
	}
)

func render(cmd *cobra.Command, content string) error {
	style := styles.AutoStyle
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal {
		style = styles.NoTTYStyle
	}

	width := showWidth
	if !cmd.Flags().Changed("width") {
		if isTerminal {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
		}
		if width > 120 {
			width = 120
		}
		if width == 0 {
			width = 80
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(int(width)), //nolint:gosec
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(strings.TrimSpace(content))
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

func init() {
	showCmd.Flags().BoolVarP(&showUnits, "units", "u", false, "print the sentences the chapter is read as")
	showCmd.Flags().UintVarP(&showWidth, "width", "w", 0, "word-wrap at width")
}
