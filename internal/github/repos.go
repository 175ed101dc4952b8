package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Repository is the subset of the repository resource used for the access probe.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
}

// Label is a repository label.
type Label struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// LabelRequest is the body of a label creation.
type LabelRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// IssueRequest is the body of an issue creation.
type IssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

// Issue is a created issue.
type Issue struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// labelsPerPage is the largest page GitHub serves. Only the first page is read.
const labelsPerPage = 100

func repoPath(owner, repo string) string {
	return fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
}

// GetRepository fetches owner/repo. It doubles as the access probe.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var r Repository
	if err := c.Do(ctx, http.MethodGet, repoPath(owner, repo), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListLabels returns the labels defined on owner/repo.
func (c *Client) ListLabels(ctx context.Context, owner, repo string) ([]Label, error) {
	var labels []Label
	path := fmt.Sprintf("%s/labels?per_page=%d", repoPath(owner, repo), labelsPerPage)
	if err := c.Do(ctx, http.MethodGet, path, nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabel creates a label on owner/repo.
func (c *Client) CreateLabel(ctx context.Context, owner, repo string, label LabelRequest) (*Label, error) {
	var created Label
	if err := c.Do(ctx, http.MethodPost, repoPath(owner, repo)+"/labels", label, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateIssue opens an issue on owner/repo.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, issue IssueRequest) (*Issue, error) {
	if issue.Labels == nil {
		issue.Labels = []string{}
	}

	var created Issue
	if err := c.Do(ctx, http.MethodPost, repoPath(owner, repo)+"/issues", issue, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
