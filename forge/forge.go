package forge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Sentinel errors returned by forge resolvers.
var (
	ErrUnknownForge = errors.New("no resolver for remote host")
	ErrRefNotFound  = errors.New("ref not found on remote")
)

// Resolver resolves a symbolic ref (branch or tag name) to a commit ID.
type Resolver interface {
	ResolveRef(ctx context.Context, ref string) (string, error)
}

// Remote identifies a repository on a forge.
type Remote struct {
	Host    string // e.g. "github.com"
	Owner   string // namespace or user
	Project string // repository name, without .git
}

// ParseRemote splits a git remote URL into host, owner and project.
// Both SSH (git@host:owner/project.git) and HTTP(S) forms are accepted.
func ParseRemote(remoteURL string) (Remote, error) {
	// SSH URLs: git@github.com:owner/project.git
	if strings.HasPrefix(remoteURL, "git@") {
		rest := strings.TrimPrefix(remoteURL, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if !ok || host == "" {
			return Remote{}, fmt.Errorf("invalid SSH URL %q", remoteURL)
		}
		path = strings.TrimSuffix(path, ".git")
		owner, project, ok := strings.Cut(path, "/")
		if !ok || owner == "" || project == "" {
			return Remote{}, fmt.Errorf("invalid repository path %q", path)
		}
		return Remote{Host: host, Owner: owner, Project: project}, nil
	}

	// HTTP(S) URLs: https://host/owner/project.git
	trimmed := strings.TrimPrefix(remoteURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		return Remote{}, fmt.Errorf("invalid remote URL %q", remoteURL)
	}
	return Remote{
		Host:    parts[0],
		Owner:   strings.Join(parts[1:len(parts)-1], "/"),
		Project: parts[len(parts)-1],
	}, nil
}

// NewResolver picks a resolver based on the remote's host. GitHub and
// GitLab hosts are recognized; anything else returns ErrUnknownForge.
// token may be empty for public repositories.
func NewResolver(remoteURL, token string) (Resolver, error) {
	remote, err := ParseRemote(remoteURL)
	if err != nil {
		return nil, err
	}

	switch {
	case remote.Host == "github.com":
		return NewGitHubResolver(token, remote.Owner, remote.Project)
	case strings.Contains(remote.Host, "gitlab"):
		baseURL := ""
		if remote.Host != "gitlab.com" {
			baseURL = "https://" + remote.Host
		}
		return NewGitLabResolver(token, baseURL, remote.Owner+"/"+remote.Project)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownForge, remote.Host)
	}
}

// NewResolverWithSource is like NewResolver but authenticates through an
// oauth2 token source, such as a GitHub App installation source. GitLab
// has no token-source client, so the source is drained into a plain
// token there.
func NewResolverWithSource(remoteURL string, ts oauth2.TokenSource) (Resolver, error) {
	remote, err := ParseRemote(remoteURL)
	if err != nil {
		return nil, err
	}

	switch {
	case remote.Host == "github.com":
		return NewGitHubResolverWithTokenSource(ts, remote.Owner, remote.Project)
	case strings.Contains(remote.Host, "gitlab"):
		tok, err := ts.Token()
		if err != nil {
			return nil, fmt.Errorf("obtain forge token: %w", err)
		}
		baseURL := ""
		if remote.Host != "gitlab.com" {
			baseURL = "https://" + remote.Host
		}
		return NewGitLabResolver(tok.AccessToken, baseURL, remote.Owner+"/"+remote.Project)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownForge, remote.Host)
	}
}
