// Package pacing holds the fixed delays that keep a run under the API's
// rate limits.
package pacing

import (
	"context"
	"time"
)

const (
	// DefaultLabelDelay separates successive label creations.
	DefaultLabelDelay = 100 * time.Millisecond

	// DefaultIssueDelay follows every successful issue creation.
	DefaultIssueDelay = time.Second
)

// Policy is the set of delays applied during a run. Zero values disable
// the corresponding wait.
type Policy struct {
	LabelDelay time.Duration
	IssueDelay time.Duration

	// BatchSize > 0 adds BatchDelay after every BatchSize issue attempts.
	BatchSize  int
	BatchDelay time.Duration
}

// DefaultPolicy returns the delays used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		LabelDelay: DefaultLabelDelay,
		IssueDelay: DefaultIssueDelay,
	}
}

// BatchBoundary reports whether a batch delay is due after attempts issue
// attempts.
func (p Policy) BatchBoundary(attempts int) bool {
	return p.BatchSize > 0 && p.BatchDelay > 0 && attempts > 0 && attempts%p.BatchSize == 0
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper. It returns ctx.Err() when the context ends
// before d has elapsed.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
