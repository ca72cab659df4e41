package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codeassure/internal/embedding"
	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/output"
)

var embedNoWait bool

var embedCmd = &cobra.Command{
	Use:   "embed [owner/repo]...",
	Short: "Index repositories for context-aware reviews",
	Long: `Start embedding one or more repositories and track the jobs.

Each job is polled with a doubling delay (embedding.initial_delay up to
embedding.max_delay) until the server reports it embedded, or marked
failed after embedding.max_attempts checks. A repository whose job is
still processing is not started twice. Without arguments the repository
of the current checkout is embedded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			repo, err := currentRepo()
			if err != nil {
				return err
			}
			args = []string{repo}
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return embedRun(ctx, args)
	},
}

var embedStatusCmd = &cobra.Command{
	Use:   "status <owner/repo>",
	Short: "Check whether a repository is embedded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return embedStatusRun(cmd.Context(), args[0])
	},
}

func init() {
	embedCmd.Flags().BoolVar(&embedNoWait, "no-wait", false, "Start the jobs and return without polling")
	embedCmd.AddCommand(embedStatusCmd)
	rootCmd.AddCommand(embedCmd)
}

func pollPolicy() embedding.PollPolicy {
	return embedding.PollPolicy{
		InitialDelay: viper.GetDuration("embedding.initial_delay"),
		MaxDelay:     viper.GetDuration("embedding.max_delay"),
		MaxAttempts:  viper.GetInt("embedding.max_attempts"),
	}
}

func newTracker(api embedding.API) *embedding.Tracker {
	return embedding.NewTracker(api,
		embedding.WithPolicy(pollPolicy()),
		embedding.WithLogger(logging.With("component", "embedding")),
	)
}

func embedRun(ctx context.Context, repos []string) error {
	for _, repo := range repos {
		if err := models.ValidateRepo(repo); err != nil {
			return err
		}
	}
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		for _, repo := range repos {
			ui.DryRunMsg("Would start embedding %s", repo)
		}
		return nil
	}

	tracker := newTracker(c)
	defer tracker.Close()

	var startErrs []error
	for _, repo := range repos {
		job, started, err := tracker.Start(ctx, repo)
		switch {
		case err != nil:
			ui.Error("%s: %v", repo, authHint(err))
			startErrs = append(startErrs, err)
		case !started:
			ui.Info("%s is already processing", repo)
		default:
			ui.Success("Embedding started for %s", repo)
			ui.VerboseLog("job %s", job.ID)
		}
	}
	if len(tracker.Jobs()) == 0 {
		return errors.Join(startErrs...)
	}
	if embedNoWait {
		ui.Info("Not waiting. Check progress with 'codeassure embed status <owner/repo>'.")
		return errors.Join(startErrs...)
	}

	ui.Info("Waiting for embeddings (checking every %s, up to %d times)...", pollPolicy().InitialDelay, pollPolicy().MaxAttempts)
	if err := waitJobs(ctx, tracker); err != nil {
		return err
	}

	printJobs(tracker.Jobs())

	for _, job := range tracker.Jobs() {
		if job.Status == models.JobStatusFailed {
			startErrs = append(startErrs, fmt.Errorf("%s: %s", job.Repo, job.Error))
		}
	}
	return errors.Join(startErrs...)
}

// waitJobs prints status transitions until no job is processing.
func waitJobs(ctx context.Context, tracker *embedding.Tracker) error {
	last := map[string]models.JobStatus{}
	attempts := map[string]int{}
	report := func() {
		for _, job := range tracker.Jobs() {
			if job.Attempts != attempts[job.Repo] && job.Status == models.JobStatusProcessing {
				ui.VerboseLog("%s still processing after %d checks", job.Repo, job.Attempts)
			}
			attempts[job.Repo] = job.Attempts
			if last[job.Repo] == job.Status {
				continue
			}
			last[job.Repo] = job.Status
			switch job.Status {
			case models.JobStatusCompleted:
				ui.Success("%s embedded", job.Repo)
			case models.JobStatusFailed:
				ui.Error("%s failed: %s", job.Repo, job.Error)
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- tracker.Wait(ctx) }()
	for {
		select {
		case err := <-done:
			report()
			return err
		case <-tracker.Updates():
			report()
		}
	}
}

func printJobs(jobs []models.EmbeddingJob) {
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Repository", "Status", "Vectors", "Checks", "Error"})
	for _, job := range jobs {
		vectors := "-"
		if job.Vectors != nil {
			vectors = strconv.Itoa(*job.Vectors)
		}
		_ = table.Append([]string{
			output.Cyan(job.Repo),
			output.JobStatusColor(string(job.Status)),
			vectors,
			strconv.Itoa(job.Attempts),
			output.Truncate(job.Error, 50),
		})
	}
	_ = table.Render()
}

func embedStatusRun(ctx context.Context, repo string) error {
	if err := models.ValidateRepo(repo); err != nil {
		return err
	}
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	st, err := c.EmbeddingStatus(ctx, repo)
	if err != nil {
		return authHint(fmt.Errorf("embedding status: %w", err))
	}

	if st.Embedded {
		vectors := "unknown"
		if st.Vectors != nil {
			vectors = strconv.Itoa(*st.Vectors)
		}
		ui.Success("%s is embedded (%s vectors)", repo, vectors)
		if st.Collection != "" {
			ui.VerboseLog("collection %s", st.Collection)
		}
		return nil
	}
	reason := st.Reason
	if reason == "" {
		reason = "not embedded yet"
	}
	ui.Warning("%s: %s", repo, reason)
	return nil
}
