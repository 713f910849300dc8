package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM.
// Running downloads then remove their partial files and a pending login
// stops its callback server. Once the first signal arrives the default
// handlers are restored, so a second signal kills the process.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		if parent.Err() == nil {
			logger.Info("interrupted, canceling; interrupt again to force exit")
		}
	}()

	return ctx
}
