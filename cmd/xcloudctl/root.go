package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xcloud/console-client/internal/app"
	"github.com/xcloud/console-client/internal/di"
	"github.com/xcloud/console-client/internal/tools/common"
	"github.com/xcloud/console-client/internal/tools/ui"
)

type options struct {
	ci      bool
	envFile string
	timeout time.Duration

	app     *app.CLI
	cleanup func()
}

// checkFailedError marks a failed check command (doctor, probe).
type checkFailedError struct{ err error }

func (e *checkFailedError) Error() string { return e.err.Error() }
func (e *checkFailedError) Unwrap() error { return e.err }

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "xcloudctl",
		Short:         "Command-line client for the XCloud console API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd.Context())
		},
	}
	cobra.OnFinalize(func() {
		if err := opts.close(); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown:", err)
		}
	})
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall command timeout")

	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newRefreshCommand(opts),
		newProfileCommand(opts),
		newUsersCommand(opts),
		newGetCommand(opts),
		newTokenCommand(opts),
		newProbeCommand(opts),
		newDoctorCommand(opts),
	)
	return cmd
}

func (o *options) init(ctx context.Context) error {
	if err := common.LoadEnvFile(o.envFile); err != nil {
		return err
	}
	a, cleanup, err := di.InitializeCLI(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	o.app, o.cleanup = a, cleanup
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func (o *options) close() error {
	if o.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := o.app.Shutdown(ctx)
	o.cleanup()
	o.app, o.cleanup = nil, nil
	return err
}

// run executes fn behind the spinner, or directly with a JSON result line in
// --ci mode.
func (o *options) run(ctx context.Context, title string, fn func(context.Context) ([]string, error)) error {
	if o.ci {
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		details, err := fn(ctx)
		common.PrintCIResult(err == nil, title, details, err)
		return err
	}
	_, err := ui.Run(title, func(uiCtx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(mergeCancel(ctx, uiCtx), o.timeout)
		defer cancel()
		return fn(ctx)
	})
	return err
}

// mergeCancel returns parent cancelled additionally when other is done.
func mergeCancel(parent, other context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	context.AfterFunc(ctx, func() { stop() })
	return ctx
}
