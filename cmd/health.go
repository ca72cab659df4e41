package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/codeassure/internal/output"
	"github.com/joescharf/codeassure/internal/session"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server's integration configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return healthRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func healthRun(ctx context.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("server at %s unreachable: %w", c.BaseURL(), err)
	}

	ui.Info("Server: %s", output.Cyan(c.BaseURL()))
	table := ui.Table([]string{"Integration", "Configured"})
	_ = table.Append([]string{"LLM (Groq)", output.YesNo(h.GroqConfigured)})
	_ = table.Append([]string{"GitHub", output.YesNo(h.GitHubConfigured)})
	_ = table.Render()

	if !h.GroqConfigured || !h.GitHubConfigured {
		ui.Warning("Reviews will fail until every integration is configured on the server.")
	}

	saved, ok, err := sessionSavedAt(ctx)
	switch {
	case err != nil:
		return err
	case ok:
		ui.Info("Session: stored %s", saved.Local().Format("2006-01-02 15:04"))
	default:
		ui.Info("Session: none (run 'codeassure login')")
	}
	return nil
}

// sessionSavedAt reports when the session token was last written locally.
func sessionSavedAt(ctx context.Context) (time.Time, bool, error) {
	st, err := getStore(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	entries, err := st.List(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read local state: %w", err)
	}
	for _, e := range entries {
		if e.Key == session.TokenKey && e.Value != "" {
			return e.UpdatedAt, true, nil
		}
	}
	return time.Time{}, false, nil
}
