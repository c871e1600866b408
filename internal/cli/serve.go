package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"co2dash/internal/api"
	"co2dash/internal/engine"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr string
}

func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and charts over HTTP",
		Long: `Start the HTTP server immediately and load the dataset in the background.
Endpoints answer 503 until loading finishes, and 500 if it failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr != "" {
				root.Config.Addr = opts.addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides addr)")
	return cmd
}

func serve(ctx context.Context, root *RootOptions) error {
	cfg := root.Config

	// The API is live before the data is; handlers return 503 until SetData.
	h := api.NewHandler(cfg.ComparePreset, cfg.TopN)
	e := api.NewServer(h, cfg.RateLimit)

	cache := engine.NewCache(cfg.DataPath)
	go func() {
		log.Info("background: loading dataset...")
		t0 := time.Now()
		t, err := cache.Get(ctx)
		h.SetData(t, err)
		if err != nil {
			log.Errorf("background: dataset unavailable: %v", err)
			return
		}
		log.Infof("background: dataset ready in %v", time.Since(t0))
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server ready on %s (data loading in background...)", cfg.Addr)
		errCh <- e.Start(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
