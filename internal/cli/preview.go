package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/config"
	"github.com/andywolf/csv2issues/internal/csvfile"
	"github.com/andywolf/csv2issues/internal/issues"
	"github.com/andywolf/csv2issues/internal/security"
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Show the issues a CSV file would produce",
	Long: `Parse a CSV or XLSX file and print each issue with its derived labels.
No network access is needed.

Example:
  csv2issues preview issues.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := config.DefaultCSVFile
	if len(args) > 0 {
		path = args[0]
	} else if cfg, err := config.Load(); err == nil {
		path = cfg.Input.CSVFile
	}

	rows, err := csvfile.ReadFile(path)
	if err != nil {
		return err
	}

	writePreview(cmd.OutOrStdout(), rows)
	return nil
}

func writePreview(w io.Writer, rows []csvfile.Row) {
	skipped := 0
	for i, row := range rows {
		d := issues.FromRow(row)
		if !d.HasTitle() {
			skipped++
			continue
		}
		derived := issues.DeriveLabels(d)
		fmt.Fprintf(w, "%3d. %s\n", i+1, d.Title)
		fmt.Fprintf(w, "     %s\n", mutedStyle.Render(strings.Join(derived, ", ")))
		for _, name := range derived {
			if err := security.ValidateLabelName(name); err != nil {
				fmt.Fprintf(w, "     %s\n", failStyle.Render("warning: "+err.Error()))
			}
		}
	}

	fmt.Fprintf(w, "\n%d rows, %d issues", len(rows), len(rows)-skipped)
	if skipped > 0 {
		fmt.Fprintf(w, ", %d skipped (no title)", skipped)
	}
	fmt.Fprintln(w)
}
