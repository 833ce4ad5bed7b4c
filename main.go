package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trenchy69/FLashloanbotonETH/cmd"
	"github.com/trenchy69/FLashloanbotonETH/utils"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := cmd.ExecuteContext(ctx)
	utils.CleanupLogger()
	if err != nil {
		os.Exit(1)
	}
}
