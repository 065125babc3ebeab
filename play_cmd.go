package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/readaloud/internal/background"
	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/di"
	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/notify"
	"github.com/dgnsrekt/readaloud/ui"
)

var (
	playAt       float64
	playAutoPlay bool
	playMouse    bool

	playCmd = &cobra.Command{
		Use:   "play [CHAPTER]",
		Short: "Open the play bar",
		Long: paragraph(fmt.Sprintf("\n%s a chapter in the play bar. Without a chapter the one you were last reading is reopened where you left off. When stdout is not a terminal, playback starts right away and the command returns once it stops.",
			keyword("Open"))),
		Example:           paragraph("readaloud play\nreadaloud play chapter-03 --autoplay\nreadaloud play ch3 --at 0.5"),
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeChapters,
		RunE:              runPlay,
	}
)

func runPlay(cmd *cobra.Command, args []string) error {
	var chapter string
	if len(args) > 0 {
		chapter = args[0]
	}
	var at *float64
	if cmd.Flags().Changed("at") {
		at = &playAt
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return playHeadless(ctx, chapter, at)
	}
	return playTUI(ctx, chapter, at)
}

func playTUI(ctx context.Context, chapter string, at *float64) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	toasts := notify.NewChannel(8)
	notifier := notify.Multi{toasts, notify.Log{Logger: log.Default()}}

	return withContainer(notifier, func(i do.Injector, _ *config.Config) error {
		lib := do.MustInvoke[*library.Library](i)
		task := do.MustInvoke[*background.Task](i)
		c := do.MustInvoke[*di.ControllerHandle](i)

		name, p, err := task.Resolve(ctx, background.Payload{
			Current:  findChapter(ctx, lib, chapter),
			Progress: at,
		})
		if err != nil && !errors.Is(err, background.ErrNothingToPlay) {
			return err
		}

		cfg.Chapter = name
		cfg.Progress = p
		cfg.AutoPlay = playAutoPlay
		cfg.EnableMouse = playMouse

		if _, err := ui.NewProgram(ui.New(cfg, c.Controller, lib, toasts)).Run(); err != nil {
			return fmt.Errorf("unable to run tui program: %w", err)
		}
		return nil
	})
}

// playHeadless plays through the background task and blocks until playback
// stops, so it can be used from scripts and schedulers.
func playHeadless(ctx context.Context, chapter string, at *float64) error {
	notifier := notify.Multi{notify.NewTerminal(os.Stderr), notify.Log{Logger: log.Default()}}

	return withContainer(notifier, func(i do.Injector, _ *config.Config) error {
		lib := do.MustInvoke[*library.Library](i)
		task := do.MustInvoke[*background.Task](i)
		c := do.MustInvoke[*di.ControllerHandle](i)

		err := task.Run(ctx, background.Payload{
			Current:  findChapter(ctx, lib, chapter),
			Progress: at,
		})
		if err != nil {
			return err
		}
		return waitForStop(ctx, c.Controller)
	})
}

// findChapter maps what the user typed to a chapter name. Unknown names
// are passed through so the controller reports them.
func findChapter(ctx context.Context, lib *library.Library, query string) string {
	if query == "" {
		return ""
	}
	matches, err := lib.Find(ctx, query)
	if err != nil || len(matches) == 0 {
		return query
	}
	if matches[0].Name != query {
		log.Debug("Matched chapter", "query", query, "chapter", matches[0].Name)
	}
	return matches[0].Name
}

func init() {
	playCmd.Flags().Float64Var(&playAt, "at", 0, "start at this fraction of the chapter (0 to 1)")
	playCmd.Flags().BoolVarP(&playAutoPlay, "autoplay", "a", false, "start speaking as soon as the chapter opens")
	playCmd.Flags().BoolVarP(&playMouse, "mouse", "m", false, "enable mouse support")
	_ = playCmd.Flags().MarkHidden("mouse")
}
