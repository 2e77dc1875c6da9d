package ssh

import (
	"strings"
)

// GitSSHCommand builds the ssh invocation git should use for remote
// operations. With a key path, the key is forced via IdentitiesOnly so
// the agent cannot substitute another identity. BatchMode keeps git
// subprocesses from blocking on interactive prompts.
func GitSSHCommand(keyPath string) string {
	cmd := []string{"ssh", "-o", "BatchMode=yes"}
	if keyPath != "" {
		cmd = append(cmd, "-o", "IdentitiesOnly=yes", "-i", quoteArg(keyPath))
	}
	return strings.Join(cmd, " ")
}

// GitEnv returns the environment entries that route git's SSH transport
// through GitSSHCommand. The result is meant for a command runner's
// extra environment.
func GitEnv(keyPath string) []string {
	return []string{"GIT_SSH_COMMAND=" + GitSSHCommand(keyPath)}
}

// quoteArg shell-quotes a path for use inside GIT_SSH_COMMAND, which
// git splits with sh.
func quoteArg(s string) string {
	if !strings.ContainsAny(s, " \t'\"\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
