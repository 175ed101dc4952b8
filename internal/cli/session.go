package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/cloud/gcp"
	"github.com/andywolf/csv2issues/internal/config"
	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/logging"
	"github.com/andywolf/csv2issues/internal/security"
	"github.com/andywolf/csv2issues/internal/version"
)

// session bundles what every networked command needs: a run id, a
// redacting logger and an authenticated API client.
type session struct {
	runID     string
	cfg       *config.Config
	logger    logging.Logger
	sanitizer *security.LogSanitizer
	tokens    github.TokenSource
	client    *github.Client

	closers []io.Closer
}

// newSession builds a session from cfg. Callers must Close it.
func newSession(ctx context.Context, cfg *config.Config, out io.Writer) (*session, error) {
	s := &session{
		runID:     uuid.New().String(),
		cfg:       cfg,
		sanitizer: security.NewLogSanitizer(),
	}
	s.sanitizer.AddSecret(cfg.GitHub.Token)

	logger, err := s.newLogger(ctx, out)
	if err != nil {
		return nil, err
	}
	s.logger = logger
	s.logger.Debugf("Run ID: %s", s.runID)

	timeout, err := cfg.Timeout()
	if err != nil {
		s.Close()
		return nil, err
	}

	clientOpts := []github.ClientOption{
		github.WithTimeout(timeout),
		github.WithUserAgent(version.UserAgent()),
	}
	if cfg.GitHub.BaseURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}

	tokens, err := s.tokenSource(ctx, clientOpts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.tokens = tokens
	s.client = github.NewClient(tokens, clientOpts...)

	return s, nil
}

func (s *session) newLogger(ctx context.Context, out io.Writer) (logging.Logger, error) {
	opts := []logging.Option{
		logging.WithRunID(s.runID),
		logging.WithSanitizer(s.sanitizer),
		logging.WithVerbose(s.cfg.Logging.Verbose),
	}
	console, err := logging.New(s.cfg.Logging.Format, out, opts...)
	if err != nil {
		return nil, err
	}

	if s.cfg.Logging.GCPProject == "" {
		return console, nil
	}

	cloud, err := gcp.NewCloudLogger(ctx, s.cfg.Logging.GCPProject, gcp.DefaultLogID, []gcp.CloudLoggerOption{
		gcp.WithRunID(s.runID),
		gcp.WithLabels(map[string]string{"repository": s.cfg.FullName()}),
		gcp.WithSanitizer(s.sanitizer),
		gcp.WithVerbose(s.cfg.Logging.Verbose),
	})
	if err != nil {
		console.Warningf("Cloud Logging unavailable, logging to console only: %v", err)
		return console, nil
	}
	return gcp.Tee{console, cloud}, nil
}

// tokenSource resolves credentials in order: explicit token, Secret Manager
// secret, GitHub App installation.
func (s *session) tokenSource(ctx context.Context, clientOpts []github.ClientOption) (github.TokenSource, error) {
	gh := s.cfg.GitHub

	switch {
	case gh.Token != "":
		s.logger.Debugf("Using GitHub token from configuration")
		return github.StaticToken(gh.Token), nil

	case gh.TokenSecret != "":
		s.logger.Debugf("Using GitHub token from Secret Manager: %s", gh.TokenSecret)
		client, err := gcp.NewSecretManagerClient(ctx, s.cfg.Logging.GCPProject)
		if err != nil {
			return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
		}
		s.closers = append(s.closers, client)
		return &redactingSource{next: gcp.NewSecretToken(client, gh.TokenSecret), sanitizer: s.sanitizer}, nil

	case s.cfg.HasAppCredentials():
		s.logger.Debugf("Using GitHub App %d installation %d", gh.AppID, gh.InstallationID)
		gen, err := github.NewJWTGeneratorFromFile(strconv.FormatInt(gh.AppID, 10), gh.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		app, err := github.NewAppTokenSource(gen, gh.InstallationID, github.WithExchangeOptions(clientOpts...))
		if err != nil {
			return nil, err
		}
		return &redactingSource{next: app, sanitizer: s.sanitizer}, nil
	}

	return nil, fmt.Errorf("no GitHub credentials configured")
}

// Close flushes the logger and releases clients.
func (s *session) Close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// redactingSource registers every token it hands out with the sanitizer.
type redactingSource struct {
	next      github.TokenSource
	sanitizer *security.LogSanitizer
}

func (r *redactingSource) Token(ctx context.Context) (string, error) {
	tok, err := r.next.Token(ctx)
	if err == nil {
		r.sanitizer.AddSecret(tok)
	}
	return tok, err
}

// loadConfig loads configuration and applies the optional owner/repo
// argument.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) > 0 {
		if err := cfg.SetRepository(args[0]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(cmd.Context())

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping after the current request...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
