package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readaloud/internal/background"
	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/di"
	"github.com/dgnsrekt/readaloud/internal/notify"
)

var (
	taskCmd = &cobra.Command{
		Use:   "task",
		Short: "Run background tasks",
		Long:  paragraph(fmt.Sprintf("\nRun the tasks a scheduler would %s without opening the play bar.", keyword("invoke"))),
		Args:  cobra.NoArgs,
	}

	taskRunCmd = &cobra.Command{
		Use:   "run TASK-ID [PAYLOAD]",
		Short: "Run a background task",
		Long: paragraph(fmt.Sprintf("\n%s a background task with a JSON payload, given as an argument or on stdin. An empty payload stops playback. The command returns once playback stops.",
			keyword("Run"))),
		Example: paragraph(fmt.Sprintf(`readaloud task run %[1]s '{"current":"chapter-02.md"}'
readaloud task run %[1]s '{"current":"chapter-02.md","progress":0.25}'
echo '{}' | readaloud task run %[1]s`, background.TaskID)),
		Args: cobra.RangeArgs(1, 2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return []string{background.TaskID}, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if len(args) == 2 {
				raw = []byte(args[1])
			} else if yes, err := stdinIsPipe(); err != nil {
				return err
			} else if yes {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("unable to read payload: %w", err)
				}
				raw = b
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			notifier := notify.Multi{notify.NewTerminal(os.Stderr), notify.Log{Logger: log.Default()}}
			return withContainer(notifier, func(i do.Injector, _ *config.Config) error {
				r := do.MustInvoke[*background.Registry](i)
				if err := r.Dispatch(ctx, args[0], raw); err != nil {
					return err
				}
				return waitForStop(ctx, do.MustInvoke[*di.ControllerHandle](i).Controller)
			})
		},
	}

	taskListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered background tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(nil, func(i do.Injector, _ *config.Config) error {
				for _, id := range do.MustInvoke[*background.Registry](i).IDs() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
)

func init() {
	taskCmd.AddCommand(taskRunCmd, taskListCmd)
}
