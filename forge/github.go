package forge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubResolver resolves refs through the GitHub API.
type GitHubResolver struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubResolver creates a resolver for a GitHub repository.
// token may be a personal access token or an installation token; leave
// it empty for unauthenticated access to public repositories.
func NewGitHubResolver(token, owner, repo string) (*GitHubResolver, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &GitHubResolver{
		client: github.NewClient(hc),
		owner:  owner,
		repo:   repo,
	}, nil
}

// NewGitHubResolverWithTokenSource creates a resolver authenticated by
// an oauth2 token source, such as a GitHub App installation source.
func NewGitHubResolverWithTokenSource(ts oauth2.TokenSource, owner, repo string) (*GitHubResolver, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	hc := oauth2.NewClient(context.Background(), ts)
	return &GitHubResolver{
		client: github.NewClient(hc),
		owner:  owner,
		repo:   repo,
	}, nil
}

// ResolveRef returns the commit SHA the branch or tag currently points at.
func (r *GitHubResolver) ResolveRef(ctx context.Context, ref string) (string, error) {
	sha, resp, err := r.client.Repositories.GetCommitSHA1(ctx, r.owner, r.repo, ref, "")
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrRefNotFound, ref)
		}
		return "", fmt.Errorf("resolve ref %s: %w", ref, err)
	}
	return sha, nil
}
