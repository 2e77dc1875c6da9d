package include

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stratabuild/strata/config"
)

// Handler resolves the include graph rooted at one or more top
// configuration files.
//
// Local includes are path strings resolved relative to the current
// repository root (with a deprecated file-relative fallback). Cross-
// repository includes are mappings with a repo key and a file path relative
// to that repository's root; when the repository location is unknown the
// reference is reported as missing instead of expanded.
//
// When lock resolution is enabled, a lock sibling of each visited document
// (name.lock.ext next to name.ext) is injected as soon as the document is
// loaded, ahead of the document's own includes, so its pins participate in
// the merge.
type Handler struct {
	topFiles    []string
	topRepoRoot string
	useLock     bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLock enables or disables implicit lock-sibling resolution.
// It is enabled by default.
func WithLock(use bool) Option {
	return func(h *Handler) {
		h.useLock = use
	}
}

// NewHandler creates an include handler for the given top files. Includes in
// the top files are resolved relative to topRepoRoot.
func NewHandler(topFiles []string, topRepoRoot string, opts ...Option) *Handler {
	h := &Handler{
		topFiles:    topFiles,
		topRepoRoot: topRepoRoot,
		useLock:     true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TopRepoRoot returns the current top repository root. It differs from the
// constructor argument only after a bootstrap document carrying a source
// directory override has been resolved.
func (h *Handler) TopRepoRoot() string {
	return h.topRepoRoot
}

// Lockfile returns the canonical top lockfile location: the lock sibling of
// the first top file.
func (h *Handler) Lockfile() string {
	return LockPath(h.topFiles[0])
}

// Resolve expands the include graph. repos maps repository keys to checkout
// paths; keys referenced by cross-repository includes but absent from the
// map are returned as missing, deduplicated in first-seen order.
//
// The returned documents are in merge order: depth first, every document
// after its own includes.
func (h *Handler) Resolve(repos map[string]string) ([]*config.Document, []string, error) {
	if repos == nil {
		repos = map[string]string{}
	}

	var docs []*config.Document
	var missing []string
	for _, topFile := range h.topFiles {
		d, m, err := h.visit(topFile, h.topRepoRoot, false, false, repos, nil)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, d...)
		missing = appendMissing(missing, m...)
	}
	return docs, missing, nil
}

// visit loads one document and recursively resolves its lock sibling and
// includes. stack holds the absolute locations of the active include chain;
// re-entering one of them is a cycle.
func (h *Handler) visit(location, repoRoot string, isLock, isExternal bool, repos map[string]string, stack []string) ([]*config.Document, []string, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		abs = location
	}
	for _, ancestor := range stack {
		if ancestor == abs {
			return nil, nil, &config.IncludeError{Path: location, Msg: "include cycle detected"}
		}
	}
	stack = append(stack, abs)

	doc, err := config.Load(location, isLock, isExternal)
	if err != nil {
		return nil, nil, err
	}
	if doc.Body == nil {
		return nil, nil, &config.IncludeError{
			Path: location,
			Msg:  "configuration file does not contain a mapping as base type",
		}
	}

	var docs []*config.Document
	var missing []string

	if h.useLock {
		lockPath := LockPath(location)
		if fileExists(lockPath) {
			slog.Debug("appending lockfile", "file", lockPath)
			sub, subMissing, err := h.visit(lockPath, repoRoot, true, isExternal, repos, stack)
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, sub...)
			missing = appendMissing(missing, subMissing...)
		}
	}

	// A source dir override redirects the repository root for everything
	// resolved from here on. Only auto-generated bootstrap documents set it.
	if doc.SourceDir != "" {
		h.topRepoRoot = doc.SourceDir
		repoRoot = doc.SourceDir
	}

	for _, entry := range includeEntries(doc.Body) {
		switch include := entry.(type) {
		case string:
			target := include
			if !filepath.IsAbs(target) {
				target = filepath.Join(repoRoot, include)
				if !fileExists(target) {
					alternate := filepath.Join(filepath.Dir(location), include)
					if fileExists(alternate) {
						slog.Warn("falling back to file-relative addressing of local include",
							"include", include, "file", location)
						slog.Warn("update your configuration to repo-relative addressing to avoid this warning")
						target = alternate
					}
				}
			}
			sub, subMissing, err := h.visit(target, repoRoot, false, isExternal, repos, stack)
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, sub...)
			missing = appendMissing(missing, subMissing...)

		case *config.Mapping:
			repoKey := include.GetString("repo")
			repoPath, known := repos[repoKey]
			if !known {
				missing = appendMissing(missing, repoKey)
				continue
			}
			fileValue, ok := include.Get("file")
			if !ok {
				return nil, nil, &config.IncludeError{
					Path: location,
					Msg:  `"file" is not specified for include of repo ` + repoKey,
				}
			}
			file, _ := fileValue.(string)
			absRepo, err := filepath.Abs(repoPath)
			if err != nil {
				absRepo = repoPath
			}
			sub, subMissing, err := h.visit(filepath.Join(absRepo, file), absRepo, false, true, repos, stack)
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, sub...)
			missing = appendMissing(missing, subMissing...)
		}
	}

	docs = append(docs, doc)
	return docs, missing, nil
}

// includeEntries returns the header.includes list, or nil if absent.
func includeEntries(body *config.Mapping) []any {
	header := body.GetMapping("header")
	if header == nil {
		return nil
	}
	v, ok := header.Get("includes")
	if !ok {
		return nil
	}
	entries, _ := v.([]any)
	return entries
}

// appendMissing appends keys not already present, preserving first-seen order.
func appendMissing(missing []string, keys ...string) []string {
	for _, key := range keys {
		seen := false
		for _, m := range missing {
			if m == key {
				seen = true
				break
			}
		}
		if !seen {
			missing = append(missing, key)
		}
	}
	return missing
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
