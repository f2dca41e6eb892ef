package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subwayfeed/internal/handler"
	"subwayfeed/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector and the HTTP read API",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Time between collection cycles")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "Allowed CORS origins")
}

func serve(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := handler.Options{Cycles: a.collector, StreamInterval: cfg.Interval}
	if a.db != nil {
		opts.Status = a.db
	}
	srv := server.New(cfg.Port, handler.New(a.repo, a.store, logger, opts), cfg.CORSOrigins, logger)

	collectorDone := make(chan struct{})
	go func() {
		a.collector.Run(ctx)
		close(collectorDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		stop()
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}

	<-collectorDone
	return err
}
