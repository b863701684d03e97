package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestPath string

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the client table into the record store",
	Long: `Ingest parses the semicolon-delimited client table and saves every
record in one batch. It does nothing when the store already holds records,
so it is only useful with a persistent store.

Example:
  clientscore ingest --file clients.csv
  CLIENTSCORE_STORE_DRIVER=sqlite clientscore ingest`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestPath, "file", "", "CSV file to load (overrides ingest.path, default: bundled dataset)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if ingestPath != "" {
		cfg.Ingest.Path = ingestPath
	}

	st, closeStore, err := openStore(cfg.Store, cfg.Cache)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	inserted, err := runIngestion(ctx, st, cfg.Ingest, logger)
	if err != nil {
		return err
	}

	total, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Inserted %d clients (%d in store)\n", inserted, total)
	return nil
}
