package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mipwatch/internal/app"
	"mipwatch/internal/platform/config"
	"mipwatch/internal/platform/httpserver"
	"mipwatch/internal/platform/logger"
)

// main wires the tracker service behind the HTTP router and keeps the server
// lifecycle small. Analysis lives in internal/analysis.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mipwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("MIPWATCH_CONFIG"))
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.WithAsyncChangeFeed(app.DefaultEventBuffer))
	if err != nil {
		return err
	}
	defer a.Close()

	srv := httpserver.New(cfg.Server.Addr, newRouter(a, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.RunWorker(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	return g.Wait()
}
