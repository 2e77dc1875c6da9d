package forge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xanzy/go-gitlab"
)

// GitLabResolver resolves refs through the GitLab API.
type GitLabResolver struct {
	client    *gitlab.Client
	projectID string // numeric ID or "namespace/project"
}

// NewGitLabResolver creates a resolver for a GitLab project.
// baseURL selects a self-hosted instance; leave it empty for gitlab.com.
func NewGitLabResolver(token, baseURL, projectID string) (*GitLabResolver, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	var client *gitlab.Client
	var err error

	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabResolver{
		client:    client,
		projectID: projectID,
	}, nil
}

// ResolveRef returns the commit SHA the branch or tag currently points at.
// Branches are checked first, then tags.
func (r *GitLabResolver) ResolveRef(ctx context.Context, ref string) (string, error) {
	branch, resp, err := r.client.Branches.GetBranch(r.projectID, ref, gitlab.WithContext(ctx))
	if err == nil && branch.Commit != nil {
		return branch.Commit.ID, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return "", fmt.Errorf("resolve branch %s: %w", ref, err)
	}

	tag, resp, err := r.client.Tags.GetTag(r.projectID, ref, gitlab.WithContext(ctx))
	if err == nil && tag.Commit != nil {
		return tag.Commit.ID, nil
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	}
	return "", fmt.Errorf("resolve tag %s: %w", ref, err)
}
