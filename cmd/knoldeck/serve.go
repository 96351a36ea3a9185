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

	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/jobs"
	"github.com/conorfennell/knoldeck/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deck over a JSON API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched := jobs.New(a.deck, a.log, a.cfg.CheckInterval, a.cfg.VerifyInterval)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           web.NewServer(a.deck, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.log.Info("Server starting", "addr", a.cfg.Listen)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.log.Info("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}),
	}

	def := config.Default()
	cmd.Flags().String("listen", def.Listen, "Address to listen on")
	cmd.Flags().Duration("check-interval", def.CheckInterval, "How often to check for newly due cards")
	cmd.Flags().Duration("verify-interval", def.VerifyInterval, "How often to verify the counters (0 disables)")
	return cmd
}
