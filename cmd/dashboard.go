package cmd

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codeassure/internal/dashboard"
	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/session"
	"github.com/joescharf/codeassure/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "ui"},
	Short:   "Open the live review dashboard",
	Long: `Open the interactive review dashboard.

The review list refreshes every refresh.interval (default 5s). Press / to
search, s to cycle the severity filter, esc to clear filters, t to request
a pull request review, r to refresh now, enter to open a review and q to
quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func newDashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	c, err := getClient(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.New(c, session.NewGuard(sess),
		dashboard.WithInterval(viper.GetDuration("refresh.interval")),
		dashboard.WithRefetchDelay(viper.GetDuration("review.refetch_delay")),
		dashboard.WithLogger(logging.With("component", "dashboard")),
	), nil
}

func dashboardRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	d, err := newDashboard(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	dec, err := d.Mount(ctx)
	if !dec.Allow {
		if err != nil {
			ui.VerboseLog("%v", err)
		}
		return fmt.Errorf("%w: redirected to %s", errNotLoggedIn, dec.Redirect)
	}
	if err != nil {
		return err
	}

	return tui.Run(ctx, d)
}
