package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher defines the interface for fetching secrets
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the GCP Secret Manager client
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerClient creates a Secret Manager client. projectID is used
// to expand bare secret names; when empty it is discovered from the
// environment or the metadata server.
func NewSecretManagerClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	if projectID == "" {
		projectID, err = getProjectID(ctx)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to get project ID: %w", err)
		}
	}

	return &SecretManagerClient{client: client, projectID: projectID}, nil
}

// getProjectID reads the project from the usual environment variables,
// falling back to the metadata server.
func getProjectID(ctx context.Context) (string, error) {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if projectID := os.Getenv(key); projectID != "" {
			return projectID, nil
		}
	}
	return getProjectIDFromMetadata(ctx)
}

func getProjectIDFromMetadata(ctx context.Context) (string, error) {
	const metadataURL = "http://metadata.google.internal/computeMetadata/v1/project/project-id"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch project ID from metadata server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metadata response: %w", err)
	}

	projectID := strings.TrimSpace(string(body))
	if projectID == "" {
		return "", fmt.Errorf("empty project ID from metadata server")
	}
	return projectID, nil
}

// FetchSecret retrieves a secret. secretPath may be a full version path,
// a secret path without version (latest is used) or a bare secret name.
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: c.normalizeSecretPath(secretPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return string(result.Payload.Data), nil
}

func (c *SecretManagerClient) normalizeSecretPath(secretPath string) string {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath
	}
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest"
	}

	project := c.projectID
	if project == "" {
		project = "*"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, path.Base(secretPath))
}

// Close closes the Secret Manager client
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SecretToken resolves the GitHub token from a secret on first use and
// caches it for the rest of the run. It satisfies github.TokenSource.
type SecretToken struct {
	mu      sync.Mutex
	fetcher SecretFetcher
	path    string
	token   string
}

// NewSecretToken creates a token source reading secretPath through fetcher.
func NewSecretToken(fetcher SecretFetcher, secretPath string) *SecretToken {
	return &SecretToken{fetcher: fetcher, path: secretPath}
}

// Token returns the cached secret value, fetching it on the first call.
func (s *SecretToken) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	value, err := s.fetcher.FetchSecret(ctx, s.path)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token secret %s: %w", s.path, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("token secret %s is empty", s.path)
	}

	s.token = value
	return s.token, nil
}
