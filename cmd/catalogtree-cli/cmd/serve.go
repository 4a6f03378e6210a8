package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"catalogtree/internal/adapters/httpapi"
	"catalogtree/internal/adapters/source"
	"catalogtree/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured source over HTTP",
	Long: `Serve pages of the configured source as JSON, so other catalogtree
instances can browse it with --source http.

Endpoints:
  GET /api/v1/children?key=&page_token=&limit=
  GET /api/v1/health

Example:
  catalogtree-cli serve --root /srv/archive --listen :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opened, err := source.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer opened.Close()

		e := httpapi.BuildServer(opened.Provider, cfg.LogLevel)

		errCh := make(chan error, 1)
		go func() {
			errCh <- e.Start(cfg.Listen)
		}()
		logger.WithField("listen", cfg.Listen).WithField("source", cfg.Source).Info("serving catalog")
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s catalog on %s\n", cfg.Source, cfg.Listen)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("listen", config.DefaultListen, "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
