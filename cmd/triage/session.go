package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/config"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long: `List, inspect, and remove sessions in the configured store. Encrypted stores
are decrypted with the configured keys. The memory store is empty on every run.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfg, _, err := loadConfig(cmd); err == nil && cfg.Store.Kind == config.StoreMemory {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: the memory store does not persist sessions; use --store file or redis")
		}
	},
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, _, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sessions, err := rt.Service.Sessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No active sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Active Sessions:")
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		rt, _, _, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		state, err := rt.Service.Session(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("loading session '%s': %w", sessionID, err)
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id]...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("name at least one session or pass --all")
		}

		rt, _, _, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if all {
			args, err = rt.Service.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, sessionID := range args {
			if err := rt.Service.DeleteSession(cmd.Context(), sessionID); err != nil {
				errs = append(errs, fmt.Errorf("removing '%s': %w", sessionID, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", sessionID)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}
