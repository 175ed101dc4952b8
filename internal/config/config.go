package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/andywolf/csv2issues/internal/pacing"
	"github.com/andywolf/csv2issues/internal/pipeline"
	"github.com/andywolf/csv2issues/internal/security"
)

// Default values applied by Load.
const (
	DefaultCSVFile = "./issues.csv"
	DefaultTimeout = "30s"
	DefaultFormat  = "text"
)

// Config represents the full csv2issues configuration
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Input      InputConfig      `mapstructure:"input"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Pacing     PacingConfig     `mapstructure:"pacing"`
	Run        RunConfig        `mapstructure:"run"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RepositoryConfig names the target repository
type RepositoryConfig struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`
}

// InputConfig locates the issue list
type InputConfig struct {
	CSVFile string `mapstructure:"csv_file"`
}

// GitHubConfig contains GitHub authentication settings. One of Token,
// TokenSecret or the App triple must be set.
type GitHubConfig struct {
	Token          string `mapstructure:"token"`
	TokenSecret    string `mapstructure:"token_secret"` // Secret Manager path holding a token
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	BaseURL        string `mapstructure:"base_url"`
	Timeout        string `mapstructure:"timeout"` // Per-request, duration string
}

// PacingConfig holds the rate-limit delays as duration strings. An empty
// value selects the default; "0s" disables the wait.
type PacingConfig struct {
	LabelDelay string `mapstructure:"label_delay"`
	IssueDelay string `mapstructure:"issue_delay"`
	BatchSize  int    `mapstructure:"batch_size"`
	BatchDelay string `mapstructure:"batch_delay"`
}

// RunConfig contains per-run switches
type RunConfig struct {
	DryRun bool   `mapstructure:"dry_run"`
	Yes    bool   `mapstructure:"yes"`
	Report string `mapstructure:"report"` // YAML summary path
	Events string `mapstructure:"events"` // JSONL journal path
}

// LoggingConfig selects the log sinks
type LoggingConfig struct {
	Format     string `mapstructure:"format"`      // text or json
	GCPProject string `mapstructure:"gcp_project"` // also ship entries to Cloud Logging
	Verbose    bool   `mapstructure:"verbose"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Input.CSVFile == "" {
		cfg.Input.CSVFile = DefaultCSVFile
	}

	if cfg.GitHub.Timeout == "" {
		cfg.GitHub.Timeout = DefaultTimeout
	}

	if cfg.Pacing.LabelDelay == "" {
		cfg.Pacing.LabelDelay = pacing.DefaultLabelDelay.String()
	}

	if cfg.Pacing.IssueDelay == "" {
		cfg.Pacing.IssueDelay = pacing.DefaultIssueDelay.String()
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultFormat
	}
}

// ParseRepository splits "owner/name".
func ParseRepository(s string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", s)
	}
	return parts[0], parts[1], nil
}

// SetRepository sets the owner and name from "owner/name".
func (c *Config) SetRepository(s string) error {
	owner, name, err := ParseRepository(s)
	if err != nil {
		return &pipeline.ConfigurationError{Field: "repository", Message: err.Error()}
	}
	c.Repository.Owner = owner
	c.Repository.Name = name
	return nil
}

// FullName returns "owner/name".
func (c *Config) FullName() string {
	return c.Repository.Owner + "/" + c.Repository.Name
}

// HasAppCredentials reports whether GitHub App authentication is configured.
func (c *Config) HasAppCredentials() bool {
	return c.GitHub.AppID != 0 && c.GitHub.InstallationID != 0 && c.GitHub.PrivateKeyPath != ""
}

// Validate checks the settings every networked command needs. Errors are
// *pipeline.ConfigurationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Repository.Owner) == "" {
		return &pipeline.ConfigurationError{Field: "repository.owner", Message: "repository owner is required"}
	}

	if strings.TrimSpace(c.Repository.Name) == "" {
		return &pipeline.ConfigurationError{Field: "repository.name", Message: "repository name is required"}
	}

	if err := security.ValidateRepository(c.Repository.Owner, c.Repository.Name); err != nil {
		return &pipeline.ConfigurationError{Field: "repository", Message: err.Error()}
	}

	if c.GitHub.Token == "" && c.GitHub.TokenSecret == "" && !c.HasAppCredentials() {
		return &pipeline.ConfigurationError{
			Field:   "github.token",
			Message: "GitHub token is required (set GITHUB_TOKEN, github.token_secret, or GitHub App credentials)",
		}
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}

	if _, err := c.Policy(); err != nil {
		return err
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if c.Logging.Format != "" && !validFormats[c.Logging.Format] {
		return &pipeline.ConfigurationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q (must be text or json)", c.Logging.Format),
		}
	}

	return nil
}

// ValidateForRun performs additional validation required before creating issues
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Input.CSVFile) == "" {
		return &pipeline.ConfigurationError{Field: "input.csv_file", Message: "CSV file path is required"}
	}

	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() (time.Duration, error) {
	return parseDuration("github.timeout", c.GitHub.Timeout)
}

// Policy returns the pacing policy.
func (c *Config) Policy() (pacing.Policy, error) {
	var (
		p   pacing.Policy
		err error
	)

	if p.LabelDelay, err = parseDuration("pacing.label_delay", c.Pacing.LabelDelay); err != nil {
		return p, err
	}
	if p.IssueDelay, err = parseDuration("pacing.issue_delay", c.Pacing.IssueDelay); err != nil {
		return p, err
	}
	if p.BatchDelay, err = parseDuration("pacing.batch_delay", c.Pacing.BatchDelay); err != nil {
		return p, err
	}

	if c.Pacing.BatchSize < 0 {
		return p, &pipeline.ConfigurationError{Field: "pacing.batch_size", Message: "must not be negative"}
	}
	p.BatchSize = c.Pacing.BatchSize

	return p, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &pipeline.ConfigurationError{Field: field, Message: "invalid duration", Err: err}
	}
	if d < 0 {
		return 0, &pipeline.ConfigurationError{Field: field, Message: "must not be negative"}
	}
	return d, nil
}
