package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/presentation/graph"
	"github.com/aretw0/triage/pkg/domain"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the loaded symptom flows",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, _, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		out := cmd.OutOrStdout()
		for _, def := range rt.Service.Flows().All() {
			fmt.Fprintf(out, "%s\n", def.Domain)
			if len(def.Intents) > 0 {
				fmt.Fprintf(out, "  intents: %s\n", strings.Join(def.Intents, ", "))
			}
			fmt.Fprintf(out, "  stages:  %s\n", strings.Join(def.StageIDs(), " -> "))
		}
		return nil
	},
}

// graphCmd prints a Mermaid diagram of one flow.
var graphCmd = &cobra.Command{
	Use:   "graph <domain>",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the stages of a symptom flow.
With --session, the session's current stage is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := domain.ParseDomain(args[0])
		if err != nil {
			return err
		}

		rt, _, _, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		def, ok := rt.Service.Flows().Get(d)
		if !ok {
			return fmt.Errorf("no flow for domain %s", d)
		}

		var overlay *graph.Overlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			st, err := rt.Service.Session(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", sessionID, err)
			}
			if st.ActiveDomain == d {
				overlay = &graph.Overlay{CurrentStage: st.Stage}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the current stage of this session")
}
