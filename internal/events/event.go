// Package events records the mutations of a run as a JSON Lines journal.
package events

import (
	"time"
)

// EventType identifies what happened.
type EventType string

const (
	// EventRunStarted is written once validation has passed.
	EventRunStarted EventType = "run_started"
	// EventLabelCreated is a label created by provisioning.
	EventLabelCreated EventType = "label_created"
	// EventLabelFailed is a label whose creation failed.
	EventLabelFailed EventType = "label_failed"
	// EventIssueCreated is a successfully created issue.
	EventIssueCreated EventType = "issue_created"
	// EventIssueFailed is a row whose issue could not be created.
	EventIssueFailed EventType = "issue_failed"
	// EventRowSkipped is a row without a title.
	EventRowSkipped EventType = "row_skipped"
	// EventRunFinished closes the run; Summary carries the counts.
	EventRunFinished EventType = "run_finished"
)

// Event is one journal line.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id,omitempty"`
	Repository string    `json:"repository,omitempty"`
	Type       EventType `json:"type"`

	// Row is the 1-based row position for row events.
	Row int `json:"row,omitempty"`
	// Name is the issue title or label name.
	Name   string `json:"name,omitempty"`
	Number int    `json:"number,omitempty"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`

	Summary string `json:"summary,omitempty"`
}

// Recorder accepts journal events.
type Recorder interface {
	Record(Event) error
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) error { return nil }

// ValidEventTypes returns all valid event type values.
func ValidEventTypes() []EventType {
	return []EventType{
		EventRunStarted,
		EventLabelCreated,
		EventLabelFailed,
		EventIssueCreated,
		EventIssueFailed,
		EventRowSkipped,
		EventRunFinished,
	}
}

// IsValidEventType checks if the given string is a valid event type.
func IsValidEventType(s string) bool {
	for _, t := range ValidEventTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}
