package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ancestord/internal/httpapi"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var addr string
	var preload bool
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the Ancestor HTTP API",
		Example: "  ancestord serve --config ancestord.yaml\n  ancestord serve --backend server --addr :8000 --preload",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			log := newLogger(cfg.Log, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}

			httpapi.SetLogger(log)
			httpapi.SetDefaultLogLevel(cfg.Log.Level)
			httpapi.SetBaseContext(ctx)
			httpapi.SetMaxBodyBytes(cfg.HTTP.MaxBodyBytes)
			httpapi.SetCORSOrigins(cfg.HTTP.CORSOrigins)
			httpapi.SetRateLimitPerMinute(cfg.HTTP.RateLimitPerMin)
			mux := httpapi.NewMux(a.svc, httpapi.Options{
				Model:   a.model,
				Speech:  a.speechBackend(),
				Started: time.Now(),
			})
			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			if preload {
				go func() {
					if err := a.svc.Warmup(ctx); err != nil {
						log.Warn().Err(err).Msg("preload failed; will retry on first request")
						return
					}
					log.Info().Msg("model preloaded")
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Str("model", a.model.Path).Msg("ancestord listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
			a.close(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default :8000)")
	cmd.Flags().BoolVar(&preload, "preload", false, "Initialize the model session at startup")
	return cmd
}
