package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"governomics/internal/app"
	"governomics/internal/httputil"
	"governomics/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	if deps.Queue == nil {
		deps.Log.Error("worker requires QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	deps.Log.Info("ask worker starting", "backend", deps.Backend.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal during shutdown kills the process.
	context.AfterFunc(ctx, stop)

	if err := serve(ctx, deps); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// serve runs the queue worker and the health endpoint until ctx is done or
// either of them fails.
func serve(ctx context.Context, deps app.Deps) error {
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return run(ctx, deps)
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, "worker", deps.Config.Port)
	})

	return g.Wait()
}

func run(ctx context.Context, deps app.Deps) error {
	return deps.Queue.Worker(ctx, queue.TaskTypeAsk, deps.Chat.HandleTask)
}
