// Package pipeline sequences a bulk issue run: validation, confirmation,
// label provisioning, issue creation and the final summary.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andywolf/csv2issues/internal/csvfile"
	"github.com/andywolf/csv2issues/internal/events"
	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/issues"
	"github.com/andywolf/csv2issues/internal/labels"
	"github.com/andywolf/csv2issues/internal/logging"
	"github.com/andywolf/csv2issues/internal/pacing"
)

// State is the orchestrator's position in a run.
type State string

const (
	StateIdle                 State = "IDLE"
	StateValidating           State = "VALIDATING"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateProvisioning         State = "PROVISIONING"
	StateCreating             State = "CREATING"
	StateSummarizing          State = "SUMMARIZING"
	StateDone                 State = "DONE"
	StateAborted              State = "ABORTED"
)

// API is the GitHub surface a run needs.
type API interface {
	labels.API
	issues.API
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// Options is the validated input of a run.
type Options struct {
	Owner   string
	Repo    string
	CSVFile string

	// Tokens must yield a non-empty token; the orchestrator checks it before
	// touching the network.
	Tokens github.TokenSource

	DryRun bool
	Pacing pacing.Policy
	RunID  string
}

// Repository returns "owner/repo".
func (o Options) Repository() string {
	return o.Owner + "/" + o.Repo
}

// Plan is shown to the confirmation gate before anything is changed.
type Plan struct {
	Repository string
	CSVFile    string
	Rows       int
	Issues     int
}

// Confirmer decides whether a run may proceed to mutating calls.
type Confirmer interface {
	Confirm(ctx context.Context, plan Plan) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, plan Plan) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, plan Plan) (bool, error) {
	return f(ctx, plan)
}

// AlwaysConfirm approves every plan.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Plan) (bool, error) { return true, nil })

// Orchestrator runs the pipeline once. It is not safe for concurrent use.
type Orchestrator struct {
	opts      Options
	api       API
	confirmer Confirmer
	logger    logging.Logger
	sleep     pacing.Sleeper
	now       func() time.Time
	readRows  func(path string) ([]csvfile.Row, error)
	recorder  events.Recorder

	provisioner *labels.Provisioner
	creator     *issues.Creator

	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfirmer installs a confirmation gate. Without one the run proceeds
// unattended.
func WithConfirmer(c Confirmer) Option {
	return func(o *Orchestrator) {
		o.confirmer = c
	}
}

// WithLogger sets the logger shared by every stage.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSleeper replaces the real pacing sleep (tests).
func WithSleeper(s pacing.Sleeper) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sleep = s
		}
	}
}

// WithClock sets the time source for the summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRowReader replaces csvfile.ReadFile.
func WithRowReader(read func(path string) ([]csvfile.Row, error)) Option {
	return func(o *Orchestrator) {
		if read != nil {
			o.readRows = read
		}
	}
}

// WithRecorder journals every mutation of the run.
func WithRecorder(r events.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// New creates an orchestrator for a single run.
func New(cfg Options, api API, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		opts:     cfg,
		api:      api,
		logger:   logging.NopLogger{},
		sleep:    pacing.Sleep,
		now:      time.Now,
		readRows: csvfile.ReadFile,
		recorder: events.Discard,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.provisioner = labels.NewProvisioner(api,
		labels.WithLogger(o.logger),
		labels.WithDelay(cfg.Pacing.LabelDelay),
		labels.WithSleeper(o.sleep),
	)
	o.creator = issues.NewCreator(api,
		issues.WithLogger(o.logger),
		issues.WithDelay(cfg.Pacing.IssueDelay),
		issues.WithSleeper(o.sleep),
	)
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.logger.Debugf("State: %s -> %s", o.state, s)
	o.state = s
}

// Run executes the pipeline. A precondition failure returns a nil summary
// and one of ConfigurationError, FileNotFoundError or AccessError; a
// declined confirmation returns ErrAborted. Every other run returns its
// summary and a nil error, even when rows failed or ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     o.opts.RunID,
		DryRun:    o.opts.DryRun,
		StartedAt: o.now(),
	}

	o.setState(StateValidating)
	rows, repo, err := o.validate(ctx)
	if err != nil {
		o.setState(StateAborted)
		return nil, err
	}
	summary.Repository = repo.FullName
	if summary.Repository == "" {
		summary.Repository = o.opts.Repository()
	}
	summary.TotalRows = len(rows)

	if o.opts.DryRun {
		o.dryRun(ctx, rows, summary)
		return o.finish(summary), nil
	}

	if o.confirmer != nil {
		o.setState(StateAwaitingConfirmation)
		ok, err := o.confirmer.Confirm(ctx, o.plan(rows))
		if err != nil {
			o.setState(StateAborted)
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			o.setState(StateAborted)
			return nil, ErrAborted
		}
	}

	o.record(summary, events.Event{Type: events.EventRunStarted, Summary: fmt.Sprintf("%d rows", len(rows))})

	o.setState(StateProvisioning)
	summary.Labels = o.provisioner.Ensure(ctx, o.opts.Owner, o.opts.Repo)
	o.recordLabels(summary)
	if summary.Labels.Interrupted {
		summary.Interrupted = true
		return o.finish(summary), nil
	}

	o.setState(StateCreating)
	o.create(ctx, rows, summary)

	return o.finish(summary), nil
}

func (o *Orchestrator) validate(ctx context.Context) ([]csvfile.Row, *github.Repository, error) {
	switch {
	case strings.TrimSpace(o.opts.Owner) == "":
		return nil, nil, &ConfigurationError{Field: "owner", Message: "repository owner is required"}
	case strings.TrimSpace(o.opts.Repo) == "":
		return nil, nil, &ConfigurationError{Field: "repo", Message: "repository name is required"}
	case strings.TrimSpace(o.opts.CSVFile) == "":
		return nil, nil, &ConfigurationError{Field: "csv_file", Message: "CSV file path is required"}
	case o.opts.Tokens == nil:
		return nil, nil, &ConfigurationError{Field: "token", Message: "GitHub token is required"}
	}

	if _, err := o.opts.Tokens.Token(ctx); err != nil {
		return nil, nil, &ConfigurationError{Field: "token", Message: "GitHub token is required", Err: err}
	}

	rows, err := o.readRows(o.opts.CSVFile)
	if err != nil {
		return nil, nil, &FileNotFoundError{Path: o.opts.CSVFile, Err: err}
	}
	o.logger.Infof("Found %d issues to create", len(rows))

	o.logger.Infof("Checking repository access...")
	repo, err := o.api.GetRepository(ctx, o.opts.Owner, o.opts.Repo)
	if err != nil {
		return nil, nil, &AccessError{Repository: o.opts.Repository(), Err: err}
	}
	o.logger.Infof("Repository access confirmed: %s", repo.FullName)

	return rows, repo, nil
}

func (o *Orchestrator) plan(rows []csvfile.Row) Plan {
	p := Plan{
		Repository: o.opts.Repository(),
		CSVFile:    o.opts.CSVFile,
		Rows:       len(rows),
	}
	for _, row := range rows {
		if issues.FromRow(row).HasTitle() {
			p.Issues++
		}
	}
	return p
}

func (o *Orchestrator) dryRun(ctx context.Context, rows []csvfile.Row, summary *Summary) {
	o.logger.Infof("Dry run: no labels or issues will be created")

	o.setState(StateProvisioning)
	summary.MissingLabels = o.provisioner.Plan(ctx, o.opts.Owner, o.opts.Repo)
	for _, def := range summary.MissingLabels {
		o.logger.Infof("Would create label: %s", def.Name)
	}

	o.setState(StateCreating)
	for i, row := range rows {
		d := issues.FromRow(row)
		if !d.HasTitle() {
			summary.Skipped++
			continue
		}
		planned := PlannedIssue{Row: i + 1, Title: d.Title, Labels: issues.DeriveLabels(d)}
		o.logger.Infof("Would create issue: %s [%s]", planned.Title, strings.Join(planned.Labels, ", "))
		summary.Planned = append(summary.Planned, planned)
	}
}

func (o *Orchestrator) create(ctx context.Context, rows []csvfile.Row, summary *Summary) {
	policy := o.opts.Pacing
	attempts := 0

	for i, row := range rows {
		if ctx.Err() != nil {
			summary.Interrupted = true
			return
		}

		d := issues.FromRow(row)
		if !d.HasTitle() {
			summary.Skipped++
			o.record(summary, events.Event{Type: events.EventRowSkipped, Row: i + 1})
			continue
		}

		if policy.BatchBoundary(attempts) {
			o.logger.Infof("Completed batch of %d, pausing %s", policy.BatchSize, policy.BatchDelay)
			if err := o.sleep(ctx, policy.BatchDelay); err != nil {
				summary.Interrupted = true
				return
			}
		}
		attempts++

		issue, err := o.creator.Create(ctx, o.opts.Owner, o.opts.Repo, row)
		if err != nil {
			if ctx.Err() != nil {
				summary.Interrupted = true
				return
			}
			summary.Failed = append(summary.Failed, RowFailure{
				Row:    i + 1,
				Title:  d.Title,
				Fields: map[string]string(row),
				Err:    err,
			})
			o.record(summary, events.Event{Type: events.EventIssueFailed, Row: i + 1, Name: d.Title, Error: err.Error()})
			continue
		}

		summary.Created = append(summary.Created, CreatedIssue{
			Row:    i + 1,
			Number: issue.Number,
			Title:  d.Title,
			URL:    issue.HTMLURL,
		})
		o.record(summary, events.Event{
			Type:   events.EventIssueCreated,
			Row:    i + 1,
			Name:   d.Title,
			Number: issue.Number,
			URL:    issue.HTMLURL,
		})
	}
}

func (o *Orchestrator) finish(summary *Summary) *Summary {
	o.setState(StateSummarizing)
	summary.FinishedAt = o.now()

	switch {
	case summary.DryRun:
		o.logger.Infof("Dry run complete: %d issues, %d missing labels", len(summary.Planned), len(summary.MissingLabels))
	default:
		o.logger.Infof("Summary: created %d, failed %d", len(summary.Created), len(summary.Failed))
		for _, f := range summary.Failed {
			o.logger.Warningf("Failed: %s: %v", f.Title, f.Err)
		}
	}
	if summary.Interrupted {
		o.logger.Warningf("Run interrupted after %d of %d rows", summary.Attempted()+summary.Skipped, summary.TotalRows)
	}
	if !summary.DryRun {
		counts := fmt.Sprintf("created %d, failed %d, skipped %d, interrupted %t",
			len(summary.Created), len(summary.Failed), summary.Skipped, summary.Interrupted)
		o.record(summary, events.Event{Type: events.EventRunFinished, Summary: counts})
	}

	o.setState(StateDone)
	return summary
}

func (o *Orchestrator) recordLabels(summary *Summary) {
	for _, name := range summary.Labels.Created {
		o.record(summary, events.Event{Type: events.EventLabelCreated, Name: name})
	}
	for _, f := range summary.Labels.Failed {
		e := events.Event{Type: events.EventLabelFailed, Name: f.Name}
		if f.Err != nil {
			e.Error = f.Err.Error()
		}
		o.record(summary, e)
	}
}

// record stamps e and hands it to the recorder. Journal failures are logged
// and never stop the run.
func (o *Orchestrator) record(summary *Summary, e events.Event) {
	e.Timestamp = o.now()
	e.RunID = summary.RunID
	e.Repository = summary.Repository
	if err := o.recorder.Record(e); err != nil {
		o.logger.Warningf("Failed to record %s event: %v", e.Type, err)
	}
}
