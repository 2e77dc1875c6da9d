package repo

import "errors"

// Repository operation errors.
var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNoCheckout indicates the repository has no checkout yet.
	ErrNoCheckout = errors.New("repository not checked out")

	// ErrRefNotFound indicates the remote does not know the requested ref.
	ErrRefNotFound = errors.New("remote ref not found")
)

// Error wraps a git command error with context.
type Error struct {
	Op     string // Operation that failed (e.g., "clone", "checkout")
	Repo   string // Repository key
	Output string // Combined command output
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Repo != "" {
		msg += " " + e.Repo
	}
	if e.Output != "" {
		return msg + ": " + e.Output
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
