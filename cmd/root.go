package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scanlink",
		Short: "Scan-session synchronization between a capture station and companion displays",
		Long: `Scanlink keeps a barcode capture station and its companion displays
consistent about a single scan session: the current article, its photo, and
who is logged in to annotate it.

It ships the relay, both client variants, and a history export in one binary.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scanlink.yaml", "Path to config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newStationCmd(&configPath))
	cmd.AddCommand(newCompanionCmd(&configPath))
	cmd.AddCommand(newExportCmd())

	return cmd
}
