package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gossh "golang.org/x/crypto/ssh"
)

// writeTestKey generates an ed25519 key pair and writes both halves
// under dir using name for the public file (e.g. "id_ed25519.pub").
func writeTestKey(t *testing.T, dir, name string) *KeyInfo {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sshPub, err := gossh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("convert public key: %v", err)
	}
	pubPath := filepath.Join(dir, name)
	if err := os.WriteFile(pubPath, gossh.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}

	block, err := gossh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	privPath := strings.TrimSuffix(pubPath, ".pub")
	if err := os.WriteFile(privPath, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}

	return &KeyInfo{
		Path:           pubPath,
		PrivateKeyPath: privPath,
		KeyType:        sshPub.Type(),
		Fingerprint:    gossh.FingerprintSHA256(sshPub),
	}
}

func TestReadPublicKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid key", func(t *testing.T) {
		want := writeTestKey(t, dir, "id_ed25519.pub")

		info, err := ReadPublicKey(want.Path)
		if err != nil {
			t.Fatalf("ReadPublicKey: %v", err)
		}
		if info.KeyType != "ssh-ed25519" {
			t.Errorf("KeyType = %q, want ssh-ed25519", info.KeyType)
		}
		if info.Fingerprint != want.Fingerprint {
			t.Errorf("Fingerprint = %q, want %q", info.Fingerprint, want.Fingerprint)
		}
		if !strings.HasPrefix(info.Fingerprint, "SHA256:") {
			t.Errorf("Fingerprint %q missing SHA256: prefix", info.Fingerprint)
		}
		if info.PrivateKeyPath != want.PrivateKeyPath {
			t.Errorf("PrivateKeyPath = %q, want %q", info.PrivateKeyPath, want.PrivateKeyPath)
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.pub")
		if err := os.WriteFile(path, []byte("not a key\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ReadPublicKey(path)
		if !errors.Is(err, ErrInvalidKeyFormat) {
			t.Fatalf("error = %v, want ErrInvalidKeyFormat", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadPublicKey(filepath.Join(dir, "nope.pub"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestFindDefaultKeyWithConfig(t *testing.T) {
	t.Run("preference order", func(t *testing.T) {
		dir := t.TempDir()
		writeTestKey(t, dir, "id_rsa.pub")
		ed := writeTestKey(t, dir, "id_ed25519.pub")

		info, err := FindDefaultKeyWithConfig(Config{SSHDir: dir})
		if err != nil {
			t.Fatalf("FindDefaultKeyWithConfig: %v", err)
		}
		if info.Path != ed.Path {
			t.Errorf("picked %s, want the ed25519 key %s", info.Path, ed.Path)
		}
	})

	t.Run("custom preference", func(t *testing.T) {
		dir := t.TempDir()
		writeTestKey(t, dir, "id_ed25519.pub")
		deploy := writeTestKey(t, dir, "deploy.pub")

		info, err := FindDefaultKeyWithConfig(Config{
			SSHDir:        dir,
			PreferredKeys: []string{"deploy.pub"},
		})
		if err != nil {
			t.Fatalf("FindDefaultKeyWithConfig: %v", err)
		}
		if info.Path != deploy.Path {
			t.Errorf("picked %s, want %s", info.Path, deploy.Path)
		}
	})

	t.Run("no keys", func(t *testing.T) {
		_, err := FindDefaultKeyWithConfig(Config{SSHDir: t.TempDir()})
		if !errors.Is(err, ErrNoSSHKeys) {
			t.Fatalf("error = %v, want ErrNoSSHKeys", err)
		}
	})
}

func TestListLocalKeysWithConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestKey(t, dir, "id_ed25519.pub")
	writeTestKey(t, dir, "id_rsa.pub")
	// Non-key clutter that must be skipped.
	os.WriteFile(filepath.Join(dir, "known_hosts"), []byte("host data"), 0o644)
	os.WriteFile(filepath.Join(dir, "broken.pub"), []byte("junk"), 0o644)

	keys, err := ListLocalKeysWithConfig(Config{SSHDir: dir})
	if err != nil {
		t.Fatalf("ListLocalKeysWithConfig: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("found %d keys, want 2", len(keys))
	}

	t.Run("missing dir", func(t *testing.T) {
		_, err := ListLocalKeysWithConfig(Config{SSHDir: filepath.Join(dir, "nope")})
		if !errors.Is(err, ErrNoSSHKeys) {
			t.Fatalf("error = %v, want ErrNoSSHKeys", err)
		}
	})
}

func TestValidatePrivateKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		info := writeTestKey(t, dir, "id_ed25519.pub")
		if err := ValidatePrivateKey(info.PrivateKeyPath); err != nil {
			t.Fatalf("ValidatePrivateKey: %v", err)
		}
	})

	t.Run("encrypted", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		block, err := gossh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("secret"))
		if err != nil {
			t.Fatalf("marshal encrypted key: %v", err)
		}
		path := filepath.Join(dir, "locked")
		if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
			t.Fatal(err)
		}

		err = ValidatePrivateKey(path)
		if !errors.Is(err, ErrKeyEncrypted) {
			t.Fatalf("error = %v, want ErrKeyEncrypted", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(dir, "junk")
		if err := os.WriteFile(path, []byte("junk"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := ValidatePrivateKey(path); err == nil {
			t.Fatal("expected error for unparseable key")
		}
	})
}
