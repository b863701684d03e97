package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var predictTimeout time.Duration

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict <id>",
	Short: "Score one client through the scoring service",
	Long: `Predict assembles the feature set of one client, sends it to the
scoring service and prints the client together with the reported
approval probability and decision as JSON.

Example:
  clientscore predict 1
  clientscore predict 1 --timeout 5s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(args[0], func(ctx context.Context, a *app, id int64) (any, error) {
			return a.pipeline.Predict(ctx, id)
		})
	},
}

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain <id>",
	Short: "Fetch the scoring service explanation for one client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(args[0], func(ctx context.Context, a *app, id int64) (any, error) {
			return a.pipeline.Explain(ctx, id)
		})
	},
}

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features <id>",
	Short: "Print the feature set that would be sent for one client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(args[0], func(ctx context.Context, a *app, id int64) (any, error) {
			return a.pipeline.Features(ctx, id)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{predictCmd, explainCmd, featuresCmd} {
		rootCmd.AddCommand(c)
		c.Flags().DurationVar(&predictTimeout, "timeout", time.Minute, "overall timeout")
	}
}

// withClient opens the app, runs fn for the parsed id and prints its result as JSON
func withClient(rawID string, fn func(ctx context.Context, a *app, id int64) (any, error)) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid client id %q", rawID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), predictTimeout)
	defer cancel()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	result, err := fn(ctx, a, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
