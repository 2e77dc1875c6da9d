package ssh

import "errors"

// SSH credential errors.
var (
	// ErrNoSSHAgent is returned when the SSH agent is not available.
	ErrNoSSHAgent = errors.New("ssh-agent not available")

	// ErrNoSSHKeys is returned when no usable SSH keys are found.
	ErrNoSSHKeys = errors.New("no SSH keys found")

	// ErrKeyNotFound is returned when a key is not loaded in the agent.
	ErrKeyNotFound = errors.New("SSH key not found in agent")

	// ErrInvalidKeyFormat is returned when a public key file cannot be parsed.
	ErrInvalidKeyFormat = errors.New("invalid SSH public key format")

	// ErrKeyEncrypted is returned when a private key needs a passphrase.
	// Encrypted keys must be used through the agent.
	ErrKeyEncrypted = errors.New("SSH private key is encrypted")
)
