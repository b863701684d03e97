package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ppiankov/clientscore/internal/api"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load client records and serve the HTTP API",
	Long: `Serve opens the record store, ingests the client table once (skipped
when the store already holds records) and serves the HTTP API:

  GET  /api/clients?page=0&size=50
  GET  /api/client/:id
  POST /api/client/:id/predict
  POST /api/client/:id/explain
  GET  /healthz

Example:
  clientscore serve
  clientscore serve --addr :9090
  CLIENTSCORE_GATEWAY_PREDICT_URL=http://scoring:8000/predict clientscore serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	count, err := a.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ %d clients loaded, scoring via %s\n", count, a.gateway.PredictURL())

	server := api.NewServer(a.pipeline, logger, cfg.Server)
	return server.Run(ctx)
}
