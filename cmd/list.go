package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khrees2412/rosterctl/internal/api"
	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates in the roster",
	Example: `  roster list
  roster list --tag backend
  roster list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		tag, _ := cmd.Flags().GetString("tag")
		asJSON, _ := cmd.Flags().GetBool("json")

		view := a.NewView(nil)
		if err := view.Load(cmd.Context()); err != nil {
			return fmt.Errorf("%s", api.Message(err))
		}

		candidates := filterByTag(view.Candidates(), tag)

		if asJSON {
			data, err := json.MarshalIndent(candidates, "", "  ")
			if err != nil {
				return fmt.Errorf("encode candidates: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		if len(candidates) == 0 {
			if tag != "" {
				cmd.Printf("No candidates tagged %q\n", tag)
				return nil
			}
			cmd.Println("No candidates found. Import some with 'roster upload <file>'")
			return nil
		}

		cmd.Println(titleStyle.Render(fmt.Sprintf("Candidates (%d)", len(candidates))))
		for i, c := range candidates {
			printCandidate(cmd, i+1, c)
		}
		return nil
	},
}

func printCandidate(cmd *cobra.Command, n int, c models.Candidate) {
	cmd.Printf("\n%s. %s\n", labelStyle.Render(fmt.Sprintf("%d", n)), c.Name)
	cmd.Printf("   %s %s\n", labelStyle.Render("Email:"), c.Email)
	cmd.Printf("   %s %s\n", labelStyle.Render("ID:"), c.ID)
	if len(c.Tags) > 0 {
		cmd.Printf("   %s %s\n", labelStyle.Render("Tags:"), strings.Join(c.Tags, ", "))
	}
	if len(c.Tests) > 0 {
		names := make([]string, 0, len(c.Tests))
		for _, t := range c.Tests {
			names = append(names, t.Name)
		}
		cmd.Printf("   %s %s\n", labelStyle.Render("Tests:"), strings.Join(names, ", "))
	}
	if c.Completed {
		cmd.Printf("   %s %s\n", labelStyle.Render("Completed:"), "✓")
	}
}

// filterByTag keeps candidates carrying tag, ignoring case. An empty tag keeps all.
func filterByTag(candidates []models.Candidate, tag string) []models.Candidate {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return candidates
	}
	out := []models.Candidate{}
	for _, c := range candidates {
		if c.Tags.Has(tag) {
			out = append(out, c)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("tag", "", "Only show candidates with this tag")
	listCmd.Flags().Bool("json", false, "Print candidates as JSON")
}
