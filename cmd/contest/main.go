package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contest-store/internal/cli"
	"contest-store/internal/platform/config"
)

func main() {
	_ = config.Load()

	app := cli.NewApp(config.FromEnv(), os.Stdout, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
