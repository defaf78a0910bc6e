package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"scanlink/internal/history"
)

func newExportCmd() *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a capture history log into a parquet file",
		Long: `Reads a companion's capture history (JSONL) and writes it as parquet
for inventory analysis tooling.`,
		Example: `  scanlink export --input history.jsonl --output history.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := history.Load(input)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no records in %s", input)
			}

			if err := history.WriteParquet(output, records); err != nil {
				return err
			}
			slog.Info("History exported", "records", len(records), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "history.jsonl", "History log to read")
	cmd.Flags().StringVarP(&output, "output", "o", "history.parquet", "Parquet file to write")

	return cmd
}
