package ssh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gossh "golang.org/x/crypto/ssh"
)

// Config holds configuration for SSH key discovery.
type Config struct {
	// SSHDir is the directory searched for keys.
	// Defaults to ~/.ssh if empty.
	SSHDir string

	// PreferredKeys is the preference order of public key file names.
	// Defaults to ed25519, ecdsa, rsa if empty.
	PreferredKeys []string
}

// DefaultPreferredKeys is the default key preference order.
var DefaultPreferredKeys = []string{
	"id_ed25519.pub",
	"id_ecdsa.pub",
	"id_rsa.pub",
}

func (c Config) sshDir() (string, error) {
	if c.SSHDir != "" {
		return c.SSHDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ssh"), nil
}

func (c Config) preferredKeys() []string {
	if len(c.PreferredKeys) > 0 {
		return c.PreferredKeys
	}
	return DefaultPreferredKeys
}

// KeyInfo describes an SSH key usable for repository access.
type KeyInfo struct {
	// Path is the path to the public key file.
	Path string

	// PrivateKeyPath is the matching private key file (Path without .pub).
	PrivateKeyPath string

	// KeyType is the key algorithm (e.g. "ssh-ed25519", "ssh-rsa").
	KeyType string

	// Fingerprint is the SHA256 fingerprint of the key.
	Fingerprint string

	// Comment is the optional key comment.
	Comment string
}

// FindDefaultKey finds the user's preferred SSH key in ~/.ssh.
func FindDefaultKey() (*KeyInfo, error) {
	return FindDefaultKeyWithConfig(Config{})
}

// FindDefaultKeyWithConfig finds the preferred SSH key using custom
// configuration.
func FindDefaultKeyWithConfig(cfg Config) (*KeyInfo, error) {
	sshDir, err := cfg.sshDir()
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.preferredKeys() {
		path := filepath.Join(sshDir, name)
		if info, err := ReadPublicKey(path); err == nil {
			return info, nil
		}
	}

	return nil, ErrNoSSHKeys
}

// ReadPublicKey reads and parses an SSH public key file.
func ReadPublicKey(path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parsePublicKey(path, data)
}

func parsePublicKey(path string, data []byte) (*KeyInfo, error) {
	pub, comment, _, _, err := gossh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKeyFormat, path)
	}

	return &KeyInfo{
		Path:           path,
		PrivateKeyPath: strings.TrimSuffix(path, ".pub"),
		KeyType:        pub.Type(),
		Fingerprint:    gossh.FingerprintSHA256(pub),
		Comment:        comment,
	}, nil
}

// ListLocalKeys lists all SSH public keys in the SSH directory.
func ListLocalKeys() ([]*KeyInfo, error) {
	return ListLocalKeysWithConfig(Config{})
}

// ListLocalKeysWithConfig lists all SSH public keys using custom
// configuration.
func ListLocalKeysWithConfig(cfg Config) ([]*KeyInfo, error) {
	sshDir, err := cfg.sshDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSSHKeys
		}
		return nil, fmt.Errorf("read ssh directory: %w", err)
	}

	var keys []*KeyInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}

		path := filepath.Join(sshDir, entry.Name())
		info, err := ReadPublicKey(path)
		if err != nil {
			continue // skip unreadable or malformed key files
		}
		keys = append(keys, info)
	}

	if len(keys) == 0 {
		return nil, ErrNoSSHKeys
	}

	return keys, nil
}

// ValidatePrivateKey checks that path holds a parseable private key git
// can authenticate with. Encrypted keys return ErrKeyEncrypted; those
// must be loaded into the agent instead.
func ValidatePrivateKey(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	if _, err := gossh.ParsePrivateKey(data); err != nil {
		var missing *gossh.PassphraseMissingError
		if errors.As(err, &missing) {
			return fmt.Errorf("%w: %s", ErrKeyEncrypted, path)
		}
		return fmt.Errorf("parse private key %s: %w", path, err)
	}
	return nil
}
