// Package issues turns CSV rows into GitHub issues.
package issues

import (
	"context"
	"strings"
	"time"

	"github.com/andywolf/csv2issues/internal/csvfile"
	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/labels"
	"github.com/andywolf/csv2issues/internal/logging"
	"github.com/andywolf/csv2issues/internal/pacing"
)

// Descriptor holds the recognized fields of a row.
type Descriptor struct {
	Title       string
	Description string
	Priority    string
	Type        string
	Labels      string
	Difficulty  string
	Component   string
}

// FromRow extracts the recognized columns of row; absent columns are empty.
func FromRow(row csvfile.Row) Descriptor {
	return Descriptor{
		Title:       row.Get(csvfile.ColumnTitle),
		Description: row.Get(csvfile.ColumnDescription),
		Priority:    row.Get(csvfile.ColumnPriority),
		Type:        row.Get(csvfile.ColumnType),
		Labels:      row.Get(csvfile.ColumnLabels),
		Difficulty:  row.Get(csvfile.ColumnDifficulty),
		Component:   row.Get(csvfile.ColumnComponent),
	}
}

// HasTitle reports whether the descriptor has a non-blank title.
func (d Descriptor) HasTitle() bool {
	return strings.TrimSpace(d.Title) != ""
}

// DeriveLabels computes the label set for d. The baseline label comes
// first, followed by the Labels column tokens and the labels implied by
// Difficulty, Component, Priority and Type. Duplicates and empty names are
// removed; the first occurrence keeps its position.
func DeriveLabels(d Descriptor) []string {
	derived := []string{labels.Baseline}

	for _, tok := range strings.Split(d.Labels, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			derived = append(derived, tok)
		}
	}
	if d.Difficulty != "" {
		derived = append(derived, labels.DifficultyPrefix+strings.ToLower(d.Difficulty))
	}
	if d.Component != "" {
		derived = append(derived, labels.ComponentPrefix+strings.ToLower(d.Component))
	}
	if d.Priority != "" {
		derived = append(derived, labels.PriorityPrefix+strings.ToLower(d.Priority))
	}
	if d.Type == "Bug" {
		derived = append(derived, labels.Bug)
	}
	if d.Difficulty == "Easy" {
		derived = append(derived, labels.GoodFirstIssue)
	}

	seen := make(map[string]bool, len(derived))
	unique := derived[:0]
	for _, name := range derived {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}
	return unique
}

// Request builds the creation payload for d.
func Request(d Descriptor) github.IssueRequest {
	return github.IssueRequest{
		Title:  d.Title,
		Body:   d.Description,
		Labels: DeriveLabels(d),
	}
}

// API is the part of the GitHub client the creator uses.
type API interface {
	CreateIssue(ctx context.Context, owner, repo string, issue github.IssueRequest) (*github.Issue, error)
}

// Creator submits one issue per call and pauses after each success.
type Creator struct {
	api    API
	logger logging.Logger
	delay  time.Duration
	sleep  pacing.Sleeper
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Creator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDelay sets the pause after each successful creation.
func WithDelay(d time.Duration) Option {
	return func(c *Creator) {
		c.delay = d
	}
}

// WithSleeper replaces the real sleep (tests).
func WithSleeper(s pacing.Sleeper) Option {
	return func(c *Creator) {
		if s != nil {
			c.sleep = s
		}
	}
}

// NewCreator creates an issue creator.
func NewCreator(api API, opts ...Option) *Creator {
	c := &Creator{
		api:    api,
		logger: logging.NopLogger{},
		delay:  pacing.DefaultIssueDelay,
		sleep:  pacing.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create opens an issue for row on owner/repo. The API error is returned
// unchanged on failure. After a successful creation Create waits for the
// configured delay; if that wait is cut short by ctx the created issue is
// still returned.
func (c *Creator) Create(ctx context.Context, owner, repo string, row csvfile.Row) (*github.Issue, error) {
	d := FromRow(row)
	req := Request(d)

	c.logger.Infof("Creating issue: %s", d.Title)
	c.logger.Debugf("Labels: %s", strings.Join(req.Labels, ", "))

	issue, err := c.api.CreateIssue(ctx, owner, repo, req)
	if err != nil {
		c.logger.Errorf("Failed to create issue: %s: %v", d.Title, err)
		return nil, err
	}

	c.logger.Infof("Created: #%d - %s", issue.Number, d.Title)
	c.logger.Debugf("URL: %s", issue.HTMLURL)

	_ = c.sleep(ctx, c.delay)
	return issue, nil
}
