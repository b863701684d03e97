package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/worker"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score many clients from a file of ids in parallel",
	Long: `Batch scores every client id listed in a file (one per line, blank
lines and # comments ignored, duplicates scored once):
- Predictions run concurrently with a configurable worker count
- Calls to the scoring service are throttled per endpoint host
- A failed prediction is reported for its id and never replaced by a default score

Results are written as a JSON array in input order.

Example:
  clientscore batch ids.txt
  clientscore batch ids.txt --concurrency 8 --out scores.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output JSON path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch scoring")
}

// batchEntry is one line of batch output
type batchEntry struct {
	ID                  int64    `json:"id"`
	ApprovalProbability *float64 `json:"approvalProbability"`
	Decision            *string  `json:"decision"`
	Error               string   `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	workers := cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Clientscore Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.1f req/s (burst %d)\n", cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	scorer := worker.NewBatchScorer(a.pipeline, workers,
		cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize, a.gateway.PredictURL())

	results, err := scorer.ScoreFile(ctx, file)
	if err != nil {
		return fmt.Errorf("score file: %w", err)
	}

	entries := make([]batchEntry, 0, len(results))
	failureCount := 0
	for _, result := range results {
		entries = append(entries, toBatchEntry(result))
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ client %d: %v\n", result.ID, result.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ client %d: %s\n", result.ID, describeScore(result.Result))
	}

	if err := writeBatch(entries, batchOut); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d clients\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(results)-failureCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	if batchOut != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOut)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func toBatchEntry(r *worker.ScoreResult) batchEntry {
	entry := batchEntry{ID: r.ID}
	if r.Error != nil {
		entry.Error = r.Error.Error()
		return entry
	}
	if r.Result != nil {
		entry.ApprovalProbability = r.Result.ApprovalProbability
		entry.Decision = r.Result.Decision
	}
	return entry
}

func describeScore(s *model.ClientWithScore) string {
	if s == nil {
		return "no result"
	}
	prob := "null"
	if s.ApprovalProbability != nil {
		prob = fmt.Sprintf("%.4f", *s.ApprovalProbability)
	}
	decision := "null"
	if s.Decision != nil {
		decision = *s.Decision
	}
	return fmt.Sprintf("probability=%s decision=%s", prob, decision)
}

// writeBatch writes entries as indented JSON to path, or stdout when path is empty
func writeBatch(entries []batchEntry, path string) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
