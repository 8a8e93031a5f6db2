package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"

	"github.com/xcloud/console-client/internal/di"
	"github.com/xcloud/console-client/internal/tools/common"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "xcloud-mockapi:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := common.LoadEnvFile(".env"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := di.InitializeMockAPI(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	figure.NewFigure("xcloud mockapi", "cybermedium", true).Print()
	fmt.Println()
	a.Logger.Info("seeded accounts", "usernames", "admin, operator, viewer")
	return a.Run(ctx)
}
