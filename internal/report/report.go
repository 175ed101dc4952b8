// Package report writes a run summary to disk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andywolf/csv2issues/internal/pipeline"
	"github.com/andywolf/csv2issues/internal/security"
)

// Report is the YAML shape of a run summary.
type Report struct {
	RunID      string    `yaml:"run_id,omitempty"`
	Repository string    `yaml:"repository"`
	DryRun     bool      `yaml:"dry_run"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Duration   string    `yaml:"duration"`

	Interrupted bool `yaml:"interrupted,omitempty"`

	Totals Totals `yaml:"totals"`

	Labels  *Labels   `yaml:"labels,omitempty"`
	Created []Created `yaml:"created,omitempty"`
	Failed  []Failed  `yaml:"failed,omitempty"`
	Planned []Planned `yaml:"planned,omitempty"`

	MissingLabels []string `yaml:"missing_labels,omitempty"`
}

// Totals are the run's counters.
type Totals struct {
	Rows    int `yaml:"rows"`
	Skipped int `yaml:"skipped"`
	Created int `yaml:"created"`
	Failed  int `yaml:"failed"`
}

// Labels summarizes label provisioning.
type Labels struct {
	Created []string `yaml:"created,omitempty"`
	Present int      `yaml:"present"`
	Raced   []string `yaml:"already_existed,omitempty"`
	Failed  []Failed `yaml:"failed,omitempty"`
	ListErr string   `yaml:"list_error,omitempty"`
}

// Created is one created issue.
type Created struct {
	Row    int    `yaml:"row"`
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
	URL    string `yaml:"url"`
}

// Failed is one failed row or label.
type Failed struct {
	Row   int    `yaml:"row,omitempty"`
	Name  string `yaml:"name"`
	Error string `yaml:"error"`
}

// Planned is one issue a dry run would create.
type Planned struct {
	Row    int      `yaml:"row"`
	Title  string   `yaml:"title"`
	Labels []string `yaml:"labels,flow"`
}

// FromSummary converts s to its report form.
func FromSummary(s *pipeline.Summary) Report {
	r := Report{
		RunID:       s.RunID,
		Repository:  s.Repository,
		DryRun:      s.DryRun,
		StartedAt:   s.StartedAt.UTC(),
		FinishedAt:  s.FinishedAt.UTC(),
		Duration:    s.Duration().Round(time.Millisecond).String(),
		Interrupted: s.Interrupted,
		Totals: Totals{
			Rows:    s.TotalRows,
			Skipped: s.Skipped,
			Created: len(s.Created),
			Failed:  len(s.Failed),
		},
	}

	for _, c := range s.Created {
		r.Created = append(r.Created, Created{Row: c.Row, Number: c.Number, Title: c.Title, URL: c.URL})
	}
	for _, f := range s.Failed {
		r.Failed = append(r.Failed, Failed{Row: f.Row, Name: f.Title, Error: errString(f.Err)})
	}
	for _, p := range s.Planned {
		r.Planned = append(r.Planned, Planned{Row: p.Row, Title: p.Title, Labels: p.Labels})
	}
	for _, def := range s.MissingLabels {
		r.MissingLabels = append(r.MissingLabels, def.Name)
	}

	if !s.DryRun {
		l := &Labels{
			Created: s.Labels.Created,
			Present: len(s.Labels.Present),
			Raced:   s.Labels.Raced,
			ListErr: errString(s.Labels.ListErr),
		}
		for _, f := range s.Labels.Failed {
			l.Failed = append(l.Failed, Failed{Name: f.Name, Error: errString(f.Err)})
		}
		r.Labels = l
	}

	return r
}

// Marshal renders s as YAML.
func Marshal(s *pipeline.Summary) ([]byte, error) {
	data, err := yaml.Marshal(FromSummary(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// WriteYAML writes s to path, creating parent directories as needed.
func WriteYAML(path string, s *pipeline.Summary) error {
	if s == nil {
		return fmt.Errorf("no summary to write")
	}

	data, err := Marshal(s)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// errString renders err with credentials masked; API messages can echo
// request headers.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return security.Redact(err.Error())
}
