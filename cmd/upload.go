package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/khrees2412/rosterctl/internal/app"
	"github.com/khrees2412/rosterctl/internal/matcher"
	"github.com/khrees2412/rosterctl/internal/roster"
	"github.com/khrees2412/rosterctl/pkg/models"
	"github.com/spf13/cobra"
)

// duplicate handling modes for `roster upload --on-duplicate`
const (
	onDuplicatePrompt  = "prompt"
	onDuplicateUpdate  = "update"
	onDuplicateSkip    = "skip"
	onDuplicateDefault = "default"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Import candidates from a CSV or Excel file",
	Long: `Upload a roster spreadsheet (.csv, .xlsx, .xls) to the roster API.

When the server reports rows that look like existing candidates you decide,
row by row, whether to update an existing record or skip the row. Use
--on-duplicate to apply one answer to every row instead.`,
	Example: `  roster upload candidates.csv
  roster upload spring.xlsx --on-duplicate skip
  roster upload spring.xlsx --on-duplicate default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("on-duplicate")
		switch mode {
		case onDuplicatePrompt, onDuplicateUpdate, onDuplicateSkip, onDuplicateDefault:
		default:
			return fmt.Errorf("invalid --on-duplicate %q: must be prompt, update, skip or default", mode)
		}

		ctx := cmd.Context()
		view := a.NewView(nil)
		path := args[0]
		view.SelectFile(path)

		cmd.Printf("Uploading %s...\n", path)
		if err := view.UploadPath(ctx, path); err != nil {
			if msg := view.Status().Message; msg != "" {
				return errors.New(msg)
			}
			return err
		}
		printStatus(cmd, view.Status())

		return settleDuplicates(ctx, cmd, view, mode)
	},
}

// settleDuplicates decides every open duplicate row according to mode and
// submits the decisions. Cancelling the prompt returns app.ErrUnresolved.
func settleDuplicates(ctx context.Context, cmd *cobra.Command, view *roster.View, mode string) error {
	dialog := view.Dialog()
	if dialog == nil {
		return nil
	}

	switch mode {
	case onDuplicateUpdate:
		applyAll(dialog, models.ActionUpdate)
	case onDuplicateSkip:
		applyAll(dialog, models.ActionSkip)
	case onDuplicatePrompt:
		ok, err := promptDecisions(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), dialog)
		if err != nil {
			return err
		}
		if !ok {
			view.Cancel()
			cmd.Println("The rest of the import was kept.")
			return app.ErrUnresolved
		}
	}

	decisions := dialog.Decisions()
	updates := 0
	for _, d := range decisions {
		if d.Action == models.ActionUpdate {
			updates++
		}
	}
	cmd.Printf("Submitting %d decisions (%d update, %d skip)...\n", len(decisions), updates, len(decisions)-updates)

	if err := view.Resolve(ctx); err != nil {
		if msg := view.Status().Message; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	printStatus(cmd, view.Status())
	return nil
}

func printStatus(cmd *cobra.Command, status roster.Status) {
	switch status.Kind {
	case roster.StatusInfo:
		cmd.Printf("✓ %s\n", status.Message)
	case roster.StatusError:
		cmd.Println(errorStyle.Render(status.Message))
	}
}

// applyAll sets action on every row. Rows with nothing to update stay skipped.
func applyAll(dialog *roster.Dialog, action models.Action) {
	for _, row := range dialog.Rows() {
		_ = dialog.Choose(row.Token, action)
	}
}

// promptDecisions asks for a decision on each duplicate row. It returns false
// when the user cancels. Empty answers and end of input keep the default.
func promptDecisions(reader *bufio.Reader, out io.Writer, dialog *roster.Dialog) (bool, error) {
	rows := dialog.Rows()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Possible duplicates (%d)", len(rows))))

	for i, row := range rows {
		incoming := row.Duplicate.New
		fmt.Fprintf(out, "\n%s %s <%s>", labelStyle.Render(fmt.Sprintf("[%d/%d]", i+1, len(rows))), incoming.Name, incoming.Email)
		if len(incoming.Tags) > 0 {
			fmt.Fprintf(out, " %s", dimStyle.Render("["+incoming.Tags.String()+"]"))
		}
		fmt.Fprintln(out)

		for j, existing := range row.Duplicate.Existing {
			fmt.Fprintf(out, "   %d) %s <%s> #%s %s\n", j+1, existing.Name, existing.Email, existing.ID,
				dimStyle.Render("matched on "+matcher.Summary(incoming, existing)))
		}

		current, err := dialog.Decision(row.Token)
		if err != nil {
			return false, err
		}

		for {
			fmt.Fprintf(out, "Action [u]pdate/[s]kip/[c]ancel (default: %s): ", current.Action)
			answer, eof, err := readAnswer(reader)
			if err != nil {
				return false, err
			}
			if answer == "" {
				if eof {
					fmt.Fprintln(out)
					return true, nil
				}
				break
			}

			if answer == "c" || answer == "cancel" {
				return false, nil
			}
			if answer == "s" || answer == "skip" {
				if err := dialog.Choose(row.Token, models.ActionSkip); err != nil {
					return false, err
				}
				break
			}
			if answer != "u" && answer != "update" {
				fmt.Fprintln(out, "Please answer u, s or c")
				continue
			}
			if len(row.Duplicate.Existing) == 0 {
				fmt.Fprintln(out, "Nothing to update for this row, skipping")
				break
			}
			if err := dialog.Choose(row.Token, models.ActionUpdate); err != nil {
				return false, err
			}
			if dialog.NeedsSelector(row.Token) {
				if err := promptMatch(reader, out, dialog, row); err != nil {
					return false, err
				}
			}
			break
		}
	}
	return true, nil
}

// promptMatch asks which existing record an update should target
func promptMatch(reader *bufio.Reader, out io.Writer, dialog *roster.Dialog, row roster.Row) error {
	existing := row.Duplicate.Existing
	for {
		fmt.Fprintf(out, "Update which record? [1-%d] (default: 1): ", len(existing))
		answer, _, err := readAnswer(reader)
		if err != nil {
			return err
		}
		if answer == "" {
			return nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(existing) {
			fmt.Fprintln(out, "Invalid selection")
			continue
		}
		return dialog.SelectMatch(row.Token, existing[n-1].ID)
	}
}

// readAnswer reads one trimmed, lower-cased line. eof reports that input ended.
func readAnswer(reader *bufio.Reader) (string, bool, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("read answer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), errors.Is(err, io.EOF), nil
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("on-duplicate", onDuplicatePrompt, "How to handle duplicates: prompt, update, skip or default")
}
