package pipeline

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andywolf/csv2issues/internal/csvfile"
	"github.com/andywolf/csv2issues/internal/events"
	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/labels"
	"github.com/andywolf/csv2issues/internal/pacing"
)

type fakeAPI struct {
	probeErr    error
	issueErrs   map[string]error
	cancelAfter map[string]context.CancelFunc

	probeCalls       int
	listLabelCalls   int
	createLabelCalls int
	issueTitles      []string
}

func (f *fakeAPI) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &github.Repository{Name: repo, FullName: owner + "/" + repo}, nil
}

func (f *fakeAPI) ListLabels(ctx context.Context, owner, repo string) ([]github.Label, error) {
	f.listLabelCalls++
	return []github.Label{{Name: labels.Baseline}}, nil
}

func (f *fakeAPI) CreateLabel(ctx context.Context, owner, repo string, label github.LabelRequest) (*github.Label, error) {
	f.createLabelCalls++
	return &github.Label{Name: label.Name}, nil
}

func (f *fakeAPI) CreateIssue(ctx context.Context, owner, repo string, issue github.IssueRequest) (*github.Issue, error) {
	f.issueTitles = append(f.issueTitles, issue.Title)
	if cancel := f.cancelAfter[issue.Title]; cancel != nil {
		cancel()
	}
	if err := f.issueErrs[issue.Title]; err != nil {
		return nil, err
	}
	n := len(f.issueTitles)
	return &github.Issue{Number: n, Title: issue.Title, HTMLURL: "https://github.com/octo/hello/issues/" + issue.Title}, nil
}

func (f *fakeAPI) mutations() int {
	return f.createLabelCalls + len(f.issueTitles)
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type memoryRecorder struct {
	events []events.Event
	err    error
}

func (m *memoryRecorder) Record(e events.Event) error {
	m.events = append(m.events, e)
	return m.err
}

func (m *memoryRecorder) types() []events.EventType {
	out := make([]events.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func rowsOf(titles ...string) func(string) ([]csvfile.Row, error) {
	return func(string) ([]csvfile.Row, error) {
		rows := make([]csvfile.Row, 0, len(titles))
		for _, title := range titles {
			rows = append(rows, csvfile.Row{"Title": title, "Description": "about " + title})
		}
		return rows, nil
	}
}

func testOptions() Options {
	return Options{
		Owner:   "octo",
		Repo:    "hello",
		CSVFile: "issues.csv",
		Tokens:  github.StaticToken("ghp_test"),
		Pacing:  pacing.DefaultPolicy(),
		RunID:   "run-1",
	}
}

func newTestOrchestrator(opts Options, api API, extra ...Option) (*Orchestrator, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	all := append([]Option{WithSleeper(sleeper.sleep)}, extra...)
	return New(opts, api, all...), sleeper
}

func TestRun_CreatesEveryTitledRow(t *testing.T) {
	api := &fakeAPI{}
	o, sleeper := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a", "  ", "b", "", "c")))

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalRows != 5 || summary.Skipped != 2 {
		t.Errorf("total %d skipped %d, want 5 and 2", summary.TotalRows, summary.Skipped)
	}
	if len(summary.Created) != 3 || len(summary.Failed) != 0 {
		t.Fatalf("created %d failed %d", len(summary.Created), len(summary.Failed))
	}
	if summary.Created[1].Row != 3 || summary.Created[1].Title != "b" || summary.Created[1].Number != 2 {
		t.Errorf("unexpected created entry %+v", summary.Created[1])
	}
	if summary.Repository != "octo/hello" || summary.RunID != "run-1" {
		t.Errorf("unexpected summary identity %q %q", summary.Repository, summary.RunID)
	}
	if o.State() != StateDone {
		t.Errorf("state = %s, want %s", o.State(), StateDone)
	}

	// Every catalog label but the existing one is created.
	if api.createLabelCalls != len(labels.Catalog())-1 {
		t.Errorf("expected %d label creations, got %d", len(labels.Catalog())-1, api.createLabelCalls)
	}

	var issuePauses int
	for _, d := range sleeper.delays {
		if d == pacing.DefaultIssueDelay {
			issuePauses++
		}
	}
	if issuePauses != 3 {
		t.Errorf("expected one issue pause per created issue, got %d", issuePauses)
	}
}

func TestRun_RowFailureDoesNotStopRun(t *testing.T) {
	createErr := &github.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "Validation Failed"}
	api := &fakeAPI{issueErrs: map[string]error{"b": createErr}}
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a", "b", "c")))

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("row failures must not fail the run: %v", err)
	}

	if len(api.issueTitles) != 3 {
		t.Errorf("expected all 3 rows attempted, got %v", api.issueTitles)
	}
	if len(summary.Created) != 2 {
		t.Errorf("expected 2 created, got %d", len(summary.Created))
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(summary.Failed))
	}
	failure := summary.Failed[0]
	if failure.Row != 2 || failure.Title != "b" || failure.Fields["Description"] != "about b" {
		t.Errorf("unexpected failure %+v", failure)
	}
	if !errors.Is(failure.Err, createErr) {
		t.Errorf("failure must retain the triggering error, got %v", failure.Err)
	}
}

func TestRun_ProbeFailureAbortsBeforeMutation(t *testing.T) {
	api := &fakeAPI{probeErr: &github.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}}
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a")))

	summary, err := o.Run(context.Background())
	if summary != nil {
		t.Error("aborted runs return no summary")
	}
	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected AccessError, got %v", err)
	}
	if github.StatusCode(err) != http.StatusNotFound {
		t.Errorf("AccessError must wrap the API error, got %v", err)
	}

	if api.listLabelCalls != 0 || api.mutations() != 0 {
		t.Errorf("expected no label or issue calls, got list=%d mutations=%d", api.listLabelCalls, api.mutations())
	}
	if o.State() != StateAborted {
		t.Errorf("state = %s, want %s", o.State(), StateAborted)
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{"missing owner", func(o *Options) { o.Owner = "" }, "owner"},
		{"missing repo", func(o *Options) { o.Repo = " " }, "repo"},
		{"missing csv", func(o *Options) { o.CSVFile = "" }, "csv_file"},
		{"missing token source", func(o *Options) { o.Tokens = nil }, "token"},
		{"empty token", func(o *Options) { o.Tokens = github.StaticToken("") }, "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.modify(&opts)
			api := &fakeAPI{}
			o, _ := newTestOrchestrator(opts, api, WithRowReader(rowsOf("a")))

			_, err := o.Run(context.Background())
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
			if api.probeCalls != 0 {
				t.Error("configuration errors must abort before any network call")
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	opts := testOptions()
	opts.CSVFile = filepath.Join(t.TempDir(), "missing.csv")
	api := &fakeAPI{}
	o, _ := newTestOrchestrator(opts, api)

	_, err := o.Run(context.Background())
	var fileErr *FileNotFoundError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileNotFoundError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
	if api.probeCalls != 0 {
		t.Error("probe must not run when the file is missing")
	}
}

func TestRun_ReadsCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.csv")
	content := "Title,Description,Type\n\"Fix, login\",\"It fails\",Bug\n\"Broken\",\"row\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := testOptions()
	opts.CSVFile = path
	api := &fakeAPI{}
	o, _ := newTestOrchestrator(opts, api)

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalRows != 1 || len(api.issueTitles) != 1 || api.issueTitles[0] != "Fix, login" {
		t.Errorf("unexpected rows: total %d titles %v", summary.TotalRows, api.issueTitles)
	}
}

func TestRun_DeclinedConfirmationMakesNoChanges(t *testing.T) {
	api := &fakeAPI{}
	var seen Plan
	confirm := ConfirmFunc(func(ctx context.Context, plan Plan) (bool, error) {
		seen = plan
		return false, nil
	})
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a", "", "b")), WithConfirmer(confirm))

	summary, err := o.Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if summary != nil {
		t.Error("declined runs return no summary")
	}
	if api.mutations() != 0 {
		t.Errorf("expected no mutations, got %d", api.mutations())
	}
	if seen.Rows != 3 || seen.Issues != 2 || seen.Repository != "octo/hello" {
		t.Errorf("unexpected plan %+v", seen)
	}
}

func TestRun_ConfirmationError(t *testing.T) {
	api := &fakeAPI{}
	boom := errors.New("no terminal")
	confirm := ConfirmFunc(func(context.Context, Plan) (bool, error) { return false, boom })
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a")), WithConfirmer(confirm))

	_, err := o.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped confirmation error, got %v", err)
	}
	if api.mutations() != 0 {
		t.Error("expected no mutations")
	}
}

func TestRun_AcceptedConfirmation(t *testing.T) {
	api := &fakeAPI{}
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a")), WithConfirmer(AlwaysConfirm))

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Created) != 1 {
		t.Errorf("expected 1 created, got %d", len(summary.Created))
	}
}

func TestRun_DryRun(t *testing.T) {
	opts := testOptions()
	opts.DryRun = true
	api := &fakeAPI{}
	confirmCalled := false
	confirm := ConfirmFunc(func(context.Context, Plan) (bool, error) {
		confirmCalled = true
		return false, nil
	})
	o, _ := newTestOrchestrator(opts, api, WithRowReader(rowsOf("a", "", "b")), WithConfirmer(confirm))

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.mutations() != 0 {
		t.Errorf("dry run must not create anything, got %d mutations", api.mutations())
	}
	if confirmCalled {
		t.Error("dry run does not ask for confirmation")
	}
	if !summary.DryRun || len(summary.Planned) != 2 || summary.Skipped != 1 {
		t.Errorf("unexpected dry run summary %+v", summary)
	}
	if summary.Planned[0].Labels[0] != labels.Baseline {
		t.Errorf("planned labels must start with the baseline, got %v", summary.Planned[0].Labels)
	}
	if len(summary.MissingLabels) != len(labels.Catalog())-1 {
		t.Errorf("expected %d missing labels, got %d", len(labels.Catalog())-1, len(summary.MissingLabels))
	}
}

func TestRun_Batching(t *testing.T) {
	opts := testOptions()
	opts.Pacing = pacing.Policy{IssueDelay: time.Second, BatchSize: 2, BatchDelay: time.Minute}
	api := &fakeAPI{}
	o, sleeper := newTestOrchestrator(opts, api, WithRowReader(rowsOf("a", "b", "c", "d", "e")))

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var batchPauses int
	for _, d := range sleeper.delays {
		if d == time.Minute {
			batchPauses++
		}
	}
	// Pauses before the 3rd and 5th attempts.
	if batchPauses != 2 {
		t.Errorf("expected 2 batch pauses, got %d", batchPauses)
	}
}

func TestRun_CancellationReturnsPartialSummary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeAPI{cancelAfter: map[string]context.CancelFunc{"b": cancel}}
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a", "b", "c")))

	summary, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation after validation must still return a summary: %v", err)
	}
	if !summary.Interrupted {
		t.Error("expected Interrupted")
	}
	if len(api.issueTitles) != 2 {
		t.Errorf("expected iteration to stop after b, got %v", api.issueTitles)
	}
	if len(summary.Created) != 2 || len(summary.Failed) != 0 {
		t.Errorf("created %d failed %d", len(summary.Created), len(summary.Failed))
	}
}

func TestRun_Timestamps(t *testing.T) {
	start := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	var last time.Time
	clock := func() time.Time {
		calls++
		last = start.Add(time.Duration(calls-1) * time.Minute)
		return last
	}
	rec := &memoryRecorder{}
	o, _ := newTestOrchestrator(testOptions(), &fakeAPI{},
		WithRowReader(rowsOf("a")),
		WithClock(clock),
		WithRecorder(rec),
	)

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", summary.StartedAt, start)
	}
	if !summary.FinishedAt.After(summary.StartedAt) || summary.FinishedAt.After(last) {
		t.Errorf("FinishedAt = %v, want within (%v, %v]", summary.FinishedAt, start, last)
	}
	if summary.Duration() != summary.FinishedAt.Sub(summary.StartedAt) {
		t.Errorf("Duration() = %v", summary.Duration())
	}

	// Journal entries share the run clock.
	finished := rec.events[len(rec.events)-1]
	if finished.Type != events.EventRunFinished || finished.Timestamp.Before(summary.FinishedAt) {
		t.Errorf("run_finished event %+v stamped before FinishedAt %v", finished, summary.FinishedAt)
	}
}

func TestRun_RecordsJournal(t *testing.T) {
	createErr := &github.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "Validation Failed"}
	api := &fakeAPI{issueErrs: map[string]error{"b": createErr}}
	rec := &memoryRecorder{}
	o, _ := newTestOrchestrator(testOptions(), api,
		WithRowReader(rowsOf("a", "", "b")),
		WithRecorder(rec),
	)

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	labelEvents := len(events.FilterByType(rec.events, events.EventLabelCreated))
	if labelEvents != api.createLabelCalls {
		t.Errorf("expected %d label_created events, got %d", api.createLabelCalls, labelEvents)
	}

	var rowTypes []events.EventType
	for _, typ := range rec.types() {
		if typ != events.EventLabelCreated {
			rowTypes = append(rowTypes, typ)
		}
	}
	want := []events.EventType{
		events.EventRunStarted,
		events.EventIssueCreated,
		events.EventRowSkipped,
		events.EventIssueFailed,
		events.EventRunFinished,
	}
	if len(rowTypes) != len(want) {
		t.Fatalf("event types = %v, want %v", rowTypes, want)
	}
	for i := range want {
		if rowTypes[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, rowTypes[i], want[i])
		}
	}

	for _, e := range rec.events {
		if e.RunID != "run-1" || e.Repository != "octo/hello" || e.Timestamp.IsZero() {
			t.Errorf("event not stamped: %+v", e)
		}
	}
	failed := events.FilterByType(rec.events, events.EventIssueFailed)[0]
	if failed.Row != 3 || failed.Name != "b" || failed.Error == "" {
		t.Errorf("unexpected failure event %+v", failed)
	}
}

func TestRun_JournalErrorsDoNotStopRun(t *testing.T) {
	api := &fakeAPI{}
	rec := &memoryRecorder{err: errors.New("disk full")}
	o, _ := newTestOrchestrator(testOptions(), api, WithRowReader(rowsOf("a", "b")), WithRecorder(rec))

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Created) != 2 {
		t.Errorf("expected 2 created, got %d", len(summary.Created))
	}
}

func TestRun_DryRunRecordsNothing(t *testing.T) {
	opts := testOptions()
	opts.DryRun = true
	rec := &memoryRecorder{}
	o, _ := newTestOrchestrator(opts, &fakeAPI{}, WithRowReader(rowsOf("a")), WithRecorder(rec))

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("dry run recorded %v", rec.types())
	}
}
