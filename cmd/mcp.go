package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/codeassure/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for coding agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents query reviews and start embeddings using the
session stored by 'codeassure login'. Configure with:

  {
    "mcpServers": {
      "codeassure": { "command": "codeassure", "args": ["mcp"] }
    }
  }

Available tools: codeassure_list_reviews, codeassure_get_review,
codeassure_trigger_review, codeassure_review_stats,
codeassure_embed_repository, codeassure_embedding_status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()

		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		tracker := newTracker(c)
		defer tracker.Close()

		return mcp.NewServer(c, tracker, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
