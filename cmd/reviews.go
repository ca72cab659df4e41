package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/joescharf/codeassure/internal/filter"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/output"
)

var (
	reviewsSearch   string
	reviewsSeverity string
	reviewsJSON     bool
	reviewsCopy     int
)

// copyToClipboard is replaceable in tests.
var copyToClipboard = clipboard.WriteAll

var reviewsCmd = &cobra.Command{
	Use:     "reviews",
	Aliases: []string{"review", "r"},
	Short:   "List, show and trigger pull request reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviews with optional search and severity filter",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review with all of its issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsShowRun(cmd.Context(), args[0])
	},
}

var reviewsTriggerCmd = &cobra.Command{
	Use:   "trigger [owner/repo] [pr-number]",
	Short: "Ask the server to review a pull request",
	Long: `Ask the server to review a pull request.

Without owner/repo the repository is taken from the origin remote of the
current checkout. Without a PR number the pull request of the current
branch is looked up with the gh CLI.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, pr, err := resolveTriggerTarget(args)
		if err != nil {
			return err
		}
		return reviewsTriggerRun(cmd.Context(), repo, pr)
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewsCmd, reviewsListCmd} {
		c.Flags().StringVarP(&reviewsSearch, "search", "s", "", "Match repository, PR number or summary (case-insensitive)")
		c.Flags().StringVar(&reviewsSeverity, "severity", "all", "Severity filter: all, high, medium, low")
		c.Flags().BoolVar(&reviewsJSON, "json", false, "Output JSON")
	}
	reviewsShowCmd.Flags().IntVar(&reviewsCopy, "copy", 0, "Copy the code example of issue N to the clipboard")
	reviewsShowCmd.Flags().BoolVar(&reviewsJSON, "json", false, "Output JSON")

	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	reviewsCmd.AddCommand(reviewsTriggerCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func reviewsListRun(ctx context.Context) error {
	sev, err := models.ParseSeverityFilter(reviewsSeverity)
	if err != nil {
		return err
	}
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	reviews, err := c.ListReviews(ctx)
	if err != nil {
		return authHint(fmt.Errorf("list reviews: %w", err))
	}
	state := models.FilterState{Search: reviewsSearch, Severity: sev}
	visible := filter.Apply(reviews, state)

	if reviewsJSON {
		return writeJSON(visible)
	}

	st := filter.Summarize(reviews)
	fmt.Fprintf(ui.Out, "%s total  %s critical  %s clean  %s issues found\n\n",
		output.Cyan(strconv.Itoa(st.Total)), output.Red(strconv.Itoa(st.Critical)),
		output.Green(strconv.Itoa(st.Clean)), output.Yellow(strconv.Itoa(st.IssuesFound)))

	if len(reviews) == 0 {
		ui.Info("No reviews yet. Trigger one with 'codeassure reviews trigger <owner/repo> <pr>'.")
		return nil
	}
	if len(visible) == 0 {
		ui.Info("No reviews match your filters.")
		return nil
	}

	table := ui.Table([]string{"ID", "Pull Request", "Severity", "Issues", "Summary", "Reviewed"})
	for _, r := range visible {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		_ = table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			output.Cyan(r.Ref()),
			output.SeverityColor(string(r.Severity)),
			strconv.Itoa(len(r.Issues)),
			output.Truncate(r.Summary, 60),
			created,
		})
	}
	_ = table.Render()

	if state.Active() {
		fmt.Fprintf(ui.Out, "\n%s\n", output.Faint(fmt.Sprintf("%d of %d reviews shown", len(visible), len(reviews))))
	}
	return nil
}

func reviewsShowRun(ctx context.Context, idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid review id %q", idArg)
	}
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	r, err := c.GetReview(ctx, id)
	if err != nil {
		return authHint(fmt.Errorf("get review %d: %w", id, err))
	}

	if reviewsCopy != 0 {
		return copyIssueExample(r, reviewsCopy)
	}
	if reviewsJSON {
		return writeJSON(r)
	}
	printReview(r)
	return nil
}

func copyIssueExample(r *models.Review, n int) error {
	if n < 1 || n > len(r.Issues) {
		return fmt.Errorf("review %d has %d issues; --copy must be between 1 and %d", r.ID, len(r.Issues), len(r.Issues))
	}
	ex := r.Issues[n-1].CodeExample
	if ex.IsZero() {
		return fmt.Errorf("issue %d has no code example", n)
	}
	if err := copyToClipboard(ex.CopyText()); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	ui.Success("Copied code example of issue %d to the clipboard", n)
	return nil
}

func printReview(r *models.Review) {
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(r.Ref()), output.SeverityColor(strings.ToUpper(string(r.Severity))))
	if r.PRURL != "" {
		fmt.Fprintln(ui.Out, output.Faint(r.PRURL))
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintln(ui.Out, output.Faint("Reviewed "+r.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintf(ui.Out, "\n%s\n\n", r.Summary)

	if len(r.Issues) == 0 {
		ui.Success("No issues found")
		return
	}
	for i, issue := range r.Issues {
		head := fmt.Sprintf("%d. [%s]", i+1, output.IssueTypeColor(string(issue.Type), issue.Type.Label()))
		if loc := issue.Location(); loc != "" {
			head += " " + loc
		}
		fmt.Fprintln(ui.Out, head)
		if issue.Description != "" {
			fmt.Fprintf(ui.Out, "   %s\n", issue.Description)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(ui.Out, "   %s %s\n", output.Green("Suggestion:"), issue.Suggestion)
		}
		switch issue.CodeExample.Kind {
		case models.CodeExampleSnippet:
			fmt.Fprintln(ui.Out, indentBlock(issue.CodeExample.Snippet, "   | "))
		case models.CodeExampleDiff:
			fmt.Fprintln(ui.Out, "   "+output.Red("Before:"))
			fmt.Fprintln(ui.Out, indentBlock(issue.CodeExample.Before, "   - "))
			fmt.Fprintln(ui.Out, "   "+output.Green("After:"))
			fmt.Fprintln(ui.Out, indentBlock(issue.CodeExample.After, "   + "))
		}
		fmt.Fprintln(ui.Out)
	}
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// resolveTriggerTarget fills in the repository and PR number from the
// working directory when they are not given.
func resolveTriggerTarget(args []string) (repo, pr string, err error) {
	switch len(args) {
	case 2:
		return args[0], args[1], nil
	case 1:
		if models.ValidateRepo(args[0]) == nil {
			repo = args[0]
		} else {
			pr = args[0]
		}
	}

	if repo == "" {
		if repo, err = currentRepo(); err != nil {
			return "", "", err
		}
	}
	if pr == "" {
		found, err := ghClient.CurrentPR(workDir())
		if err != nil {
			return "", "", fmt.Errorf("find pull request for the current branch (pass the PR number): %w", err)
		}
		pr = strconv.Itoa(found.Number)
		ui.VerboseLog("using PR #%d %s", found.Number, found.Title)
	}
	return repo, pr, nil
}

func reviewsTriggerRun(ctx context.Context, repo, prArg string) error {
	if err := models.ValidateRepo(repo); err != nil {
		return err
	}
	pr, err := strconv.Atoi(strings.TrimPrefix(prArg, "#"))
	if err != nil || pr <= 0 {
		return fmt.Errorf("invalid pull request number %q", prArg)
	}
	c, err := requireLogin(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would request a review of %s#%d", repo, pr)
		return nil
	}

	ack, err := c.TriggerReview(ctx, repo, pr)
	if err != nil {
		return authHint(fmt.Errorf("trigger review: %w", err))
	}
	ui.Success("Review requested for %s#%d", repo, pr)
	if ack.Message != "" {
		ui.VerboseLog("%s", ack.Message)
	}
	if ack.PRURL != "" {
		fmt.Fprintf(ui.Out, "  %s\n", ack.PRURL)
	}
	ui.Info("The review will appear in 'codeassure reviews' once the server finishes.")
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
