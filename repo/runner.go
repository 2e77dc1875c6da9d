package repo

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes external commands. The production implementation
// shells out; tests inject a mock.
type CommandRunner interface {
	// Run executes name with args in dir and returns trimmed stdout.
	Run(dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Env holds extra environment variables (KEY=VALUE) appended to the
	// inherited environment, e.g. GIT_SSH_COMMAND for deploy keys.
	Env []string
}

// NewExecRunner creates a runner that executes real commands.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return strings.TrimSpace(stdout.String()), &Error{
				Op: name, Output: msg, Err: err,
			}
		}
		return strings.TrimSpace(stdout.String()), err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// MockRunner is a CommandRunner for tests. Responses are keyed by the full
// command line (name plus space-joined args).
type MockRunner struct {
	Responses map[string]string
	Errors    map[string]error
	Calls     []string
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
	}
}

func (m *MockRunner) Run(dir, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	m.Calls = append(m.Calls, key)
	if err, ok := m.Errors[key]; ok {
		return "", err
	}
	return m.Responses[key], nil
}
