package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/openplag/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check and archive API over HTTP",
	Long: `Serve exposes the detector as a JSON API:

  GET  /healthz
  POST /api/v1/check           {"text": "...", "name": "...", "archive": false, "no_web": false, "summary": false}
  POST /api/v1/check/file      multipart form with a "file" field
  POST /api/v1/documents       {"text": "...", "name": "..."}
  GET  /api/v1/documents
  GET  /api/v1/documents/:id
  POST /api/v1/documents/:id/check  {"no_web": false}

Example:
  openplag serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cfg, err := openPipeline(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	fmt.Fprintf(os.Stderr, "✓ Listening on %s (corpus: %s)\n", cfg.Server.Addr, cfg.Corpus.Path)
	return server.New(p, cfg.Server, logger).Run(ctx, cfg.Server.Addr)
}
