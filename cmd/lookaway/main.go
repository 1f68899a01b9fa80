package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lookaway/internal/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.New().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lookaway:", err)
		os.Exit(1)
	}
}
