package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteConfigTree writes a set of configuration files (path -> content)
// under dir, creating intermediate directories as needed.
func WriteConfigTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file %s: %v", path, err)
		}
	}
}
