package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codeassure/internal/client"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/session"
)

var (
	loginToken  string
	loginNoWait bool
	logoutYes   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with GitHub",
	Long: `Sign in to the CodeAssure server with GitHub.

Prints the login URL and listens on auth.callback_addr for the server's
redirect to /auth/callback, which carries the session token. Use --token
to store a token obtained some other way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return loginRun(ctx)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logoutRun(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in GitHub user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return whoamiRun(cmd.Context())
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Store this session token instead of opening the browser flow")
	loginCmd.Flags().BoolVar(&loginNoWait, "no-wait", false, "Only print the login URL")
	logoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func loginRun(ctx context.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}

	if loginToken != "" {
		if dryRun {
			ui.DryRunMsg("Would store the given token and verify it against %s", c.BaseURL())
			return nil
		}
		if err := sess.SetToken(ctx, loginToken); err != nil {
			return err
		}
		return verifyLogin(ctx, c)
	}

	ui.Info("Open this URL in your browser to sign in with GitHub:")
	fmt.Fprintf(ui.Out, "\n  %s\n\n", c.LoginURL())
	if loginNoWait || dryRun {
		return nil
	}

	addr := viper.GetString("auth.callback_addr")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for login callback on %s: %w (use --token instead)", addr, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, viper.GetDuration("auth.wait_timeout"))
	defer cancel()

	ui.Info("Waiting for the login callback on http://%s%s ...", addr, session.RouteCallback)
	return waitForCallback(waitCtx, ln, c)
}

// waitForCallback serves the callback route on ln until a token arrives
// and verifies it. ln is closed on return.
func waitForCallback(ctx context.Context, ln net.Listener, c *client.Client) error {
	cb := session.NewCallbackServer(sess)
	srv := &http.Server{Handler: cb.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ui.VerboseLog("callback server: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("timed out waiting for login callback")
			}
			return ctx.Err()
		case res := <-cb.Results():
			if res.Err != nil {
				return res.Err
			}
			if res.Route != session.RouteDashboard {
				ui.Warning("Callback arrived without a token, still waiting")
				continue
			}
			return verifyLogin(ctx, c)
		}
	}
}

func verifyLogin(ctx context.Context, c *client.Client) error {
	user, _, err := session.NewGuard(sess).Verify(ctx, c)
	if err != nil {
		return fmt.Errorf("token rejected by %s: %w", c.BaseURL(), err)
	}
	ui.Success("Logged in as %s", user.Username)
	return nil
}

func logoutRun(ctx context.Context) error {
	s, err := getSession(ctx)
	if err != nil {
		return err
	}
	if !s.IsAuthenticated() {
		ui.Info("Not logged in.")
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would clear the stored session")
		return nil
	}

	cleared, err := s.Logout(ctx, func() bool {
		return logoutYes || ui.Confirm("Log out of CodeAssure?")
	})
	if err != nil {
		return err
	}
	if !cleared {
		ui.Info("Logout cancelled.")
		return nil
	}
	ui.Success("Logged out.")
	return nil
}

func whoamiRun(ctx context.Context) error {
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	user, _, err := session.NewGuard(sess).Verify(ctx, c)
	if err != nil {
		return fmt.Errorf("session is no longer valid and was cleared (run 'codeassure login'): %w", err)
	}
	printUser(user)
	return nil
}

func printUser(u *models.User) {
	table := ui.Table([]string{"Field", "Value"})
	_ = table.Append([]string{"Username", u.Username})
	_ = table.Append([]string{"GitHub ID", fmt.Sprint(u.GitHubID)})
	if u.Email != nil && *u.Email != "" {
		_ = table.Append([]string{"Email", *u.Email})
	}
	_ = table.Append([]string{"Profile", u.ProfileURL()})
	_ = table.Render()
}
