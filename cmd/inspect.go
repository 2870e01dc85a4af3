package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khrees2412/rosterctl/internal/app"
	"github.com/khrees2412/rosterctl/internal/roster"
	"github.com/khrees2412/rosterctl/internal/spreadsheet"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Check a roster spreadsheet before uploading it",
	Long: `Read a .csv, .xlsx or .xls file locally and report the detected name, email
and tags columns, a preview of the parsed rows and any rows missing a name or
email. Nothing is sent to the server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		preview, _ := cmd.Flags().GetInt("preview")
		strict, _ := cmd.Flags().GetBool("strict")

		if err := roster.ValidateFileName(path); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", filepath.Base(path), err)
		}
		defer f.Close()

		report, err := spreadsheet.Inspect(path, f)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", filepath.Base(path), err)
		}

		cmd.Println(titleStyle.Render("Roster File: " + report.FileName))
		if report.Sheet != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("Sheet:"), report.Sheet)
		}
		cmd.Printf("%s %s\n", labelStyle.Render("Headers:"), strings.Join(report.Headers, ", "))
		cmd.Printf("%s %s\n", labelStyle.Render("Name column:"), columnLabel(report.Headers, report.Columns.Name))
		cmd.Printf("%s %s\n", labelStyle.Render("Email column:"), columnLabel(report.Headers, report.Columns.Email))
		cmd.Printf("%s %s\n", labelStyle.Render("Tags column:"), columnLabel(report.Headers, report.Columns.Tags))
		cmd.Printf("%s %d\n", labelStyle.Render("Rows:"), len(report.Rows))

		if rows := report.Preview(preview); len(rows) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render("Preview"))
			for _, row := range rows {
				line := fmt.Sprintf("  %s <%s>", row.Name, row.Email)
				if len(row.Tags) > 0 {
					line += " " + dimStyle.Render("["+row.Tags.String()+"]")
				}
				cmd.Println(line)
			}
		}

		if missing := report.Columns.Missing(); len(missing) > 0 {
			cmd.Printf("\n%s missing required columns: %s\n", errorStyle.Render("✗"), strings.Join(missing, ", "))
		}
		if len(report.Problems) > 0 {
			cmd.Printf("\n%s\n", labelStyle.Render(fmt.Sprintf("Problems (%d)", len(report.Problems))))
			for _, p := range report.Problems {
				cmd.Printf("  line %d: %s\n", p.Line, p.Reason)
			}
		}

		if report.Ready() {
			cmd.Println("\n✓ Ready to upload")
			return nil
		}
		if strict {
			return app.ErrNotReady
		}
		return nil
	},
}

func columnLabel(headers []string, idx int) string {
	if idx < 0 || idx >= len(headers) {
		return valueStyle.Render("not found")
	}
	return valueStyle.Render(fmt.Sprintf("%q (column %d)", headers[idx], idx+1))
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Int("preview", 5, "Number of parsed rows to show")
	inspectCmd.Flags().Bool("strict", false, "Exit with an error when the file has problems")
}
