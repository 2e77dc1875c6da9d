package include

import (
	"path/filepath"
	"strings"
)

// LockPath returns the lock sibling of a configuration file location:
// for a document at name.ext it is name.lock.ext in the same directory.
func LockPath(location string) string {
	ext := filepath.Ext(location)
	return strings.TrimSuffix(location, ext) + ".lock" + ext
}
