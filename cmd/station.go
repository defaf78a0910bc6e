package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scanlink/internal/client"
	"scanlink/internal/config"
	"scanlink/internal/lookup"
)

func newStationCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "station",
		Short: "Run the capture station: read scans and announce them",
		Long: `Runs the capture-station client. Barcode scanners act as keyboards,
so every line read from stdin is treated as one scanned EAN: it is looked up
in the product store and announced to all companions as the current article.`,
		Example: `  # Scan interactively (or pipe a scanner device)
  scanlink station`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ui := client.NewConsoleUI(os.Stdout)
			rt := client.New(client.Config{
				RelayURL:     cfg.RelayURL,
				API:          lookup.NewClient(cfg.APIBaseURL),
				UI:           ui,
				PollInterval: cfg.PollInterval,
			})
			go rt.Run(cmd.Context())

			fmt.Println("Ready. Scan or type an EAN, empty line quits.")
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				ean := strings.TrimSpace(scanner.Text())
				if ean == "" {
					return nil
				}
				if err := rt.AnnounceScan(cmd.Context(), ean); err != nil {
					slog.Warn("Scan rejected", "input", ean, "err", err)
				}
			}
			return scanner.Err()
		},
	}

	return cmd
}
