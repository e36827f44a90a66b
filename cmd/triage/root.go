package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
	"github.com/aretw0/triage/internal/config"
	"github.com/aretw0/triage/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage is a rule-driven symptom triage dialog engine",
	Long: `Triage guides a patient through short symptom interviews (headache, fever,
cough, stomach, fatigue, skin) and hands a structured summary to downstream
systems. It runs as an interactive chat, an HTTP/WebSocket API or an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file or redis")
	rootCmd.PersistentFlags().String("classifier", "", "Intent classifier: pattern, openai or gemini")
	rootCmd.PersistentFlags().String("flows", "", "Directory of flow tables overriding the built-in ones")
}

// loadConfig resolves configuration from file, environment and flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("classifier") {
		cfg.Classifier.Kind, _ = flags.GetString("classifier")
	}
	if flags.Changed("flows") {
		cfg.Flows.Dir, _ = flags.GetString("flows")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewWithFormat(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// buildRuntime loads configuration and wires the service for a command.
func buildRuntime(ctx context.Context, cmd *cobra.Command) (*cli.Runtime, *config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	rt, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing triage: %w", err)
	}
	return rt, cfg, logger, nil
}
