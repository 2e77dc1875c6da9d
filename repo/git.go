package repo

import (
	"os"
	"strings"
)

// Git performs git operations for repository references.
type Git struct {
	runner CommandRunner
}

// Option configures Git.
type Option func(*Git)

// WithRunner sets a custom command runner.
// This is primarily used for testing to inject mock command execution.
func WithRunner(runner CommandRunner) Option {
	return func(g *Git) {
		g.runner = runner
	}
}

// NewGit creates a git operations handle.
func NewGit(opts ...Option) *Git {
	g := &Git{runner: NewExecRunner()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone clones the repository to its path. Cloning an already-present
// checkout is a no-op.
func (g *Git) Clone(ref *Ref) error {
	if g.IsRepo(ref.Path) {
		return nil
	}
	if err := os.MkdirAll(ref.Path, 0o755); err != nil {
		return &Error{Op: "clone", Repo: ref.Key, Err: err}
	}
	if _, err := g.runner.Run(".", "git", "clone", "-q", ref.URL, ref.Path); err != nil {
		return &Error{Op: "clone", Repo: ref.Key, Err: err}
	}
	return nil
}

// Fetch updates the checkout's remote tracking state.
func (g *Git) Fetch(ref *Ref) error {
	if _, err := g.runner.Run(ref.Path, "git", "fetch", "-q"); err != nil {
		return &Error{Op: "fetch", Repo: ref.Key, Err: err}
	}
	return nil
}

// Checkout switches the checkout to the pinned commit, or to the floating
// tag or branch when no commit is pinned.
func (g *Git) Checkout(ref *Ref) error {
	target := ref.Commit
	if target == "" {
		target = ref.UpstreamRef()
	}
	if target == "" {
		// No commit, tag or branch: stay on the clone's default head.
		return nil
	}
	if _, err := g.runner.Run(ref.Path, "git", "checkout", "-q", target); err != nil {
		return &Error{Op: "checkout", Repo: ref.Key, Err: err}
	}
	return nil
}

// CurrentRevision returns the commit the checkout currently points at.
func (g *Git) CurrentRevision(ref *Ref) (string, error) {
	if !g.IsRepo(ref.Path) {
		return "", &Error{Op: "current revision", Repo: ref.Key, Err: ErrNoCheckout}
	}
	rev, err := g.runner.Run(ref.Path, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", &Error{Op: "current revision", Repo: ref.Key, Err: err}
	}
	return rev, nil
}

// RemoteRevision resolves the repository's floating ref to a commit on the
// remote without touching the checkout.
func (g *Git) RemoteRevision(ref *Ref) (string, error) {
	out, err := g.runner.Run(".", "git", "ls-remote", ref.URL, ref.UpstreamRef())
	if err != nil {
		return "", &Error{Op: "ls-remote", Repo: ref.Key, Err: err}
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", &Error{Op: "ls-remote", Repo: ref.Key, Err: ErrRefNotFound}
	}
	return fields[0], nil
}

// TopLevel returns the root of the work tree containing dir, or
// ErrNotGitRepo when dir is outside any work tree.
func (g *Git) TopLevel(dir string) (string, error) {
	out, err := g.runner.Run(dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", &Error{Op: "top level", Err: ErrNotGitRepo}
	}
	return out, nil
}

// IsRepo reports whether path is a git repository.
func (g *Git) IsRepo(path string) bool {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	_, err := g.runner.Run(path, "git", "rev-parse", "--git-dir")
	return err == nil
}
