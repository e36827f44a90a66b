package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/presentation/tui"
	"github.com/aretw0/triage/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the triage assistant in the terminal",
	Long: `Starts an interactive conversation on stdin/stdout. Summaries are rendered as
Markdown when stdout is a terminal. Type /reset to start over and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, logger, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")
		interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))

		opts := []runner.Option{
			runner.WithSessionID(sessionID),
			runner.WithInput(cmd.InOrStdin()),
			runner.WithOutput(cmd.OutOrStdout()),
			runner.WithLogger(logger),
		}
		if interactive {
			tui.PrintBanner(cmd.OutOrStdout(), triage.Version)
			render, err := tui.NewRenderer()
			if err != nil {
				logger.Warn("markdown rendering disabled", "err", err)
			} else {
				opts = append(opts, runner.WithRenderer(render))
			}
		} else {
			opts = append(opts, runner.WithPrompt(""))
		}

		return runner.NewChat(rt.Service, opts...).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", runner.DefaultSessionID, "Session to resume or create")
	chatCmd.Flags().Bool("plain", false, "Disable the banner, prompt and Markdown rendering")
}
