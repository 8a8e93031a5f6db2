package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xcloud/console-client/internal/apierror"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates "log in again" from other failures so scripts can
// branch on it.
func exitCode(err error) int {
	var checkErr *checkFailedError
	switch {
	case apierror.IsKind(err, apierror.KindAuth):
		return 3
	case errors.As(err, &checkErr):
		return 4
	default:
		return 1
	}
}
