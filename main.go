package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sithukyaw666/balena-compose/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		cmd.WriteError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
