package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rflorenc/tablist/internal/credentials"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], credentials.NewTerminalPrompter(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
