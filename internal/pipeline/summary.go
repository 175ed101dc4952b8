package pipeline

import (
	"time"

	"github.com/andywolf/csv2issues/internal/labels"
)

// CreatedIssue is one successfully created issue.
type CreatedIssue struct {
	// Row is the 1-based position of the source row among the parsed rows.
	Row    int
	Number int
	Title  string
	URL    string
}

// RowFailure pairs a row that could not be turned into an issue with the
// error that stopped it.
type RowFailure struct {
	Row    int
	Title  string
	Fields map[string]string
	Err    error
}

// PlannedIssue is what a dry run would have submitted for a row.
type PlannedIssue struct {
	Row    int
	Title  string
	Labels []string
}

// Summary is the outcome of one run. It is returned for every run that
// passes validation, including runs with failed rows and interrupted runs.
type Summary struct {
	RunID      string
	Repository string
	DryRun     bool

	StartedAt  time.Time
	FinishedAt time.Time

	// TotalRows counts every parsed row, including skipped ones.
	TotalRows int
	// Skipped counts rows without a title.
	Skipped int

	Created []CreatedIssue
	Failed  []RowFailure

	Labels labels.Result

	// Planned and MissingLabels are only filled by a dry run.
	Planned       []PlannedIssue
	MissingLabels []labels.Definition

	// Interrupted is set when the context ended before every row was
	// attempted.
	Interrupted bool
}

// Attempted returns the number of rows an issue creation was tried for.
func (s *Summary) Attempted() int {
	return len(s.Created) + len(s.Failed)
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
