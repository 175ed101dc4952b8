package labels

import (
	"context"
	"time"

	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/logging"
	"github.com/andywolf/csv2issues/internal/pacing"
)

// API is the part of the GitHub client the provisioner uses.
type API interface {
	ListLabels(ctx context.Context, owner, repo string) ([]github.Label, error)
	CreateLabel(ctx context.Context, owner, repo string, label github.LabelRequest) (*github.Label, error)
}

// Failure records a label that could not be created.
type Failure struct {
	Name string
	Err  error
}

// Result describes what a provisioning pass did. It is informational only:
// provisioning never fails a run.
type Result struct {
	// Present lists catalog labels the repository already had.
	Present []string
	// Created lists labels created by this pass.
	Created []string
	// Raced lists labels whose creation reported "already exists".
	Raced []string
	// Failed lists labels whose creation failed for any other reason.
	Failed []Failure
	// ListErr is set when the existing labels could not be fetched; the
	// pass then treated the repository as having no labels.
	ListErr error
	// Interrupted is set when the context ended before the pass finished.
	Interrupted bool
}

// Provisioner reconciles the catalog against a repository's labels.
type Provisioner struct {
	api     API
	catalog []Definition
	logger  logging.Logger
	delay   time.Duration
	sleep   pacing.Sleeper
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDelay sets the pause between successive creation calls.
func WithDelay(d time.Duration) Option {
	return func(p *Provisioner) {
		p.delay = d
	}
}

// WithSleeper replaces the real sleep (tests).
func WithSleeper(s pacing.Sleeper) Option {
	return func(p *Provisioner) {
		if s != nil {
			p.sleep = s
		}
	}
}

// NewProvisioner creates a provisioner for the built-in catalog.
func NewProvisioner(api API, opts ...Option) *Provisioner {
	p := &Provisioner{
		api:     api,
		catalog: Catalog(),
		logger:  logging.NopLogger{},
		delay:   pacing.DefaultLabelDelay,
		sleep:   pacing.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// existing fetches the label names of owner/repo. A failure is logged and
// reported as an empty set.
func (p *Provisioner) existing(ctx context.Context, owner, repo string) (map[string]bool, error) {
	names := make(map[string]bool)

	current, err := p.api.ListLabels(ctx, owner, repo)
	if err != nil {
		p.logger.Warningf("Could not fetch existing labels: %v", err)
		return names, err
	}

	for _, l := range current {
		names[l.Name] = true
	}
	return names, nil
}

// Plan returns the catalog entries missing from owner/repo without creating
// anything.
func (p *Provisioner) Plan(ctx context.Context, owner, repo string) []Definition {
	names, _ := p.existing(ctx, owner, repo)

	var missing []Definition
	for _, def := range p.catalog {
		if !names[def.Name] {
			missing = append(missing, def)
		}
	}
	return missing
}

// Ensure creates every catalog label missing from owner/repo. Creation
// failures are logged and skipped; a label reported as already existing is
// not an error.
func (p *Provisioner) Ensure(ctx context.Context, owner, repo string) Result {
	p.logger.Infof("Setting up labels...")

	var res Result
	names, err := p.existing(ctx, owner, repo)
	res.ListErr = err

	attempts := 0
	for _, def := range p.catalog {
		if names[def.Name] {
			res.Present = append(res.Present, def.Name)
			continue
		}

		if attempts > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				res.Interrupted = true
				return res
			}
		}
		attempts++

		_, err := p.api.CreateLabel(ctx, owner, repo, github.LabelRequest{
			Name:        def.Name,
			Color:       def.Color,
			Description: def.Description,
		})
		switch {
		case err == nil:
			p.logger.Infof("Created label: %s", def.Name)
			res.Created = append(res.Created, def.Name)
		case github.IsAlreadyExists(err):
			p.logger.Infof("Label already exists: %s", def.Name)
			res.Raced = append(res.Raced, def.Name)
		case ctx.Err() != nil:
			res.Interrupted = true
			return res
		default:
			p.logger.Errorf("Failed to create label %s: %v", def.Name, err)
			res.Failed = append(res.Failed, Failure{Name: def.Name, Err: err})
		}
	}

	return res
}
