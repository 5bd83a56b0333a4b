package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/internal/app"
	"github.com/helpdesk-io/helpdesk/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helpdeskctl",
		Short:         "Operate on a helpdesk data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("HELPDESK_CONFIG"), "path to config JSON file (default: HELPDESK_* environment)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	root.AddCommand(newTicketsCmd(), newStatsCmd(), newLogsCmd(), newConfigCmd())
	return root
}

// loadApp builds the components from --config or the environment.
// Notifications still go out through the configured connectors.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	return app.Build(cfg, logger)
}
