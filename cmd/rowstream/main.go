package main

import (
	"context"
	"os"
	"os/signal"

	"go.llib.dev/rowstream/internal/cli"
	"go.llib.dev/rowstream/pkg/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := cli.Execute(ctx); err != nil {
		logging.Error(ctx, "rowstream failed", logging.ErrField(err))
		cancel()
		os.Exit(1)
	}
}
