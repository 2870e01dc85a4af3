package cmd

import (
	"fmt"
	"sort"

	"github.com/khrees2412/rosterctl/internal/app"
	"github.com/khrees2412/rosterctl/internal/database"
	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past roster uploads",
	Long:  "List recorded upload attempts with their outcome and the duplicate resolutions that followed",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		imports, err := store.ListImports(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		if len(imports) == 0 {
			cmd.Println("No uploads yet. Import a roster with 'roster upload <file>'")
			return nil
		}

		cmd.Println(titleStyle.Render("Upload History"))
		for _, imp := range imports {
			cmd.Printf("\n%s %s %s\n", labelStyle.Render(fmt.Sprintf("#%d", imp.ID)), imp.FileName, outcomeLabel(imp.Outcome))
			cmd.Printf("   %s %s\n", labelStyle.Render("Uploaded:"), imp.UploadedAt.Local().Format("Jan 2, 2006 15:04"))
			if imp.Outcome != models.OutcomeRejected && imp.Outcome != models.OutcomeFailed {
				cmd.Printf("   %s %d created, %d errors, %d duplicates\n", labelStyle.Render("Rows:"),
					imp.CreatedCount, imp.ErrorCount, imp.DuplicateCount)
			}
			if imp.Message != "" {
				cmd.Printf("   %s %s\n", labelStyle.Render("Message:"), imp.Message)
			}

			resolutions, err := store.GetResolutionsByImportID(cmd.Context(), imp.ID)
			if err != nil {
				return fmt.Errorf("fetch resolutions: %w", err)
			}
			for _, res := range resolutions {
				cmd.Printf("   %s %s: %d update, %d skip (%d succeeded, %d errors)\n",
					labelStyle.Render("Resolution:"), res.Outcome, res.Updated, res.Skipped, res.SuccessCount, res.ErrorCount)
			}
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize upload history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := historyStore(cmd)
		if err != nil {
			return err
		}

		stats, err := store.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		if stats.Uploads == 0 {
			cmd.Println("No uploads yet. Import a roster with 'roster upload <file>'")
			return nil
		}

		cmd.Println(titleStyle.Render("Upload Statistics"))

		// Overall stats
		cmd.Printf("\n%s\n", labelStyle.Render("Overview"))
		cmd.Printf("  Total Uploads: %d\n", stats.Uploads)
		cmd.Printf("  Imported: %d\n", stats.Imported)
		cmd.Printf("  Needed Review: %d\n", stats.NeedsReview)
		cmd.Printf("  Failed: %d\n", stats.Failed)
		cmd.Printf("  Rejected: %d\n", stats.Rejected)
		if stats.LastUploadAt != nil {
			cmd.Printf("  Last Upload: %s\n", stats.LastUploadAt.Local().Format("Jan 2, 2006 15:04"))
		}

		// Row totals
		cmd.Printf("\n%s\n", labelStyle.Render("Rows"))
		cmd.Printf("  Candidates Created: %d\n", stats.Created)
		cmd.Printf("  Row Errors: %d\n", stats.RowErrors)
		cmd.Printf("  Possible Duplicates: %d\n", stats.Duplicates)

		// Duplicate resolutions
		if stats.Resolutions > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Resolutions"))
			cmd.Printf("  Submitted: %d\n", stats.Resolutions)
			cmd.Printf("  Updated: %d\n", stats.Updated)
			cmd.Printf("  Skipped: %d\n", stats.Skipped)
		}

		// Outcome breakdown
		cmd.Printf("\n%s\n", labelStyle.Render("Outcome Breakdown"))
		outcomes := make([]string, 0, len(stats.OutcomeBreakdown))
		for outcome := range stats.OutcomeBreakdown {
			outcomes = append(outcomes, outcome)
		}
		sort.Strings(outcomes)
		for _, outcome := range outcomes {
			count := stats.OutcomeBreakdown[outcome]
			percentage := float64(count) / float64(stats.Uploads) * 100
			cmd.Printf("  %s: %d (%.1f%%)\n", outcome, count, percentage)
		}
		return nil
	},
}

func historyStore(cmd *cobra.Command) (*database.Store, error) {
	a, err := mustApp(cmd)
	if err != nil {
		return nil, err
	}
	if a.History == nil {
		return nil, app.ErrHistoryDisabled
	}
	return a.History, nil
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case models.OutcomeImported:
		return labelStyle.Render("✓ imported")
	case models.OutcomeNeedsReview:
		return valueStyle.Render("needs review")
	default:
		return errorStyle.Render("✗ " + outcome)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyStatsCmd)

	historyCmd.Flags().Int("limit", 20, "Number of uploads to show (0 for all)")
}
