package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/config"
	"github.com/andywolf/csv2issues/internal/events"
)

var historyCmd = &cobra.Command{
	Use:   "history [events-file]",
	Short: "Show the events journal written by create --events",
	Long: `Read a JSONL events journal and print what each run changed.

The file defaults to run.events from the configuration. Use --run to show a
single run and --type to restrict the event types.

Example:
  csv2issues history run.jsonl
  csv2issues history run.jsonl --type issue_created,issue_failed
  csv2issues history --run 3f0c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	addHistoryFlags(historyCmd)
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("run", "", "Only show events of this run id")
	cmd.Flags().StringSlice("type", nil, "Only show these event types (comma-separated)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if cfg, err := config.Load(); err == nil {
		path = cfg.Run.Events
	}
	if path == "" {
		return fmt.Errorf("no events file given (pass a path or set run.events)")
	}

	runID, _ := cmd.Flags().GetString("run")
	typeNames, _ := cmd.Flags().GetStringSlice("type")
	types, err := parseEventTypes(typeNames)
	if err != nil {
		return err
	}

	all, err := events.ReadEvents(path)
	if err != nil {
		return err
	}

	writeHistory(cmd.OutOrStdout(), events.FilterByType(events.FilterByRun(all, runID), types...))
	return nil
}

func parseEventTypes(names []string) ([]events.EventType, error) {
	types := make([]events.EventType, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if !events.IsValidEventType(name) {
			valid := make([]string, 0, len(events.ValidEventTypes()))
			for _, t := range events.ValidEventTypes() {
				valid = append(valid, string(t))
			}
			return nil, fmt.Errorf("unknown event type %q (valid: %s)", name, strings.Join(valid, ", "))
		}
		types = append(types, events.EventType(name))
	}
	return types, nil
}

// writeHistory prints events grouped under a heading per run, in file order.
func writeHistory(w io.Writer, journal []events.Event) {
	if len(journal) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No events"))
		return
	}

	currentRun := ""
	for i, e := range journal {
		if i == 0 || e.RunID != currentRun {
			currentRun = e.RunID
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Run %s  %s", e.RunID, e.Repository)))
		}
		fmt.Fprintf(w, "  %s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), historyLine(e))
	}
}

func historyLine(e events.Event) string {
	switch e.Type {
	case events.EventRunStarted:
		return "started: " + e.Summary
	case events.EventRunFinished:
		return "finished: " + e.Summary
	case events.EventLabelCreated:
		return okStyle.Render("label created") + " " + e.Name
	case events.EventLabelFailed:
		return failStyle.Render("label failed") + " " + e.Name + ": " + e.Error
	case events.EventIssueCreated:
		return okStyle.Render("issue created") + fmt.Sprintf(" #%d %s  %s", e.Number, e.Name, e.URL)
	case events.EventIssueFailed:
		return failStyle.Render("issue failed") + fmt.Sprintf(" row %d %s: %s", e.Row, e.Name, e.Error)
	case events.EventRowSkipped:
		return mutedStyle.Render(fmt.Sprintf("row %d skipped (no title)", e.Row))
	}
	return string(e.Type)
}
