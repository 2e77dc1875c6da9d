package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/stratabuild/strata/config"
	"github.com/stratabuild/strata/repo"
)

// ErrNoRevision indicates a floating repository has no resolvable current
// revision and therefore cannot be pinned.
var ErrNoRevision = errors.New("repository has no resolvable revision")

// Reconciler updates lock documents from the current state of floating
// repositories.
type Reconciler struct {
	write func(*config.Document) error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWriter sets the function used to persist dirty lock documents.
// The default writes through config.WriteDocument.
func WithWriter(write func(*config.Document) error) Option {
	return func(r *Reconciler) {
		r.write = write
	}
}

// NewReconciler creates a reconciler.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{write: config.WriteDocument}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile walks the lock documents in resolution order and brings their
// pins up to date with the floating repositories in repos. Repositories
// still uncovered afterwards are pinned in the canonical top lockfile at
// topLockPath, reusing an already-resolved document at that location or
// synthesizing a new one.
//
// It returns the documents that were rewritten and the repositories that
// could not be locked (normally none).
func (r *Reconciler) Reconcile(lockDocs []*config.Document, repos []*repo.Ref, topLockPath string) ([]*config.Document, []*repo.Ref, error) {
	var toLock []*repo.Ref
	for _, ref := range repos {
		if !ref.OperationsDisabled && ref.Floating() {
			toLock = append(toLock, ref)
		}
	}
	if len(toLock) == 0 {
		slog.Info("no floating repositories found, nothing to lock")
		return nil, nil, nil
	}

	var updated []*config.Document

	// First update the locks we have without creating new ones.
	for _, doc := range lockDocs {
		remaining, changed, err := r.updateLockDocument(doc, toLock, repos)
		if err != nil {
			return nil, nil, err
		}
		toLock = remaining
		if changed {
			if err := r.persist(doc); err != nil {
				return nil, nil, err
			}
			updated = append(updated, doc)
		}
	}

	// Then add new pins for the remaining repos to the top lockfile.
	if len(toLock) > 0 {
		names := make([]string, len(toLock))
		for i, ref := range toLock {
			names[i] = ref.Name
		}
		slog.Warn("repositories not covered by any lockfile, adding to top lockfile",
			"repos", strings.Join(names, ", "), "file", topLockPath)

		var target *config.Document
		if len(lockDocs) > 0 && lockDocs[0].Location == topLockPath {
			target = lockDocs[0]
		} else {
			target = config.NewLock(topLockPath)
		}
		table := lockTable(target)
		if table == nil {
			return nil, nil, &config.IncludeError{
				Path: target.Location,
				Msg:  "lock document has no overrides.repos table",
			}
		}
		for _, ref := range toLock {
			entry := config.NewMapping()
			entry.Set("commit", nil)
			table.Set(ref.Key, entry)
		}

		remaining, changed, err := r.updateLockDocument(target, toLock, repos)
		if err != nil {
			return nil, nil, err
		}
		toLock = remaining
		if changed {
			if err := r.persist(target); err != nil {
				return nil, nil, err
			}
			if !containsDoc(updated, target) {
				updated = append(updated, target)
			}
		}
	}

	return updated, toLock, nil
}

// updateLockDocument updates all pins recorded in doc that match a
// still-floating repository. Matched repositories are removed from toLock
// whether or not their pin was rewritten, so later documents do not
// re-process them. No new pins are added here.
func (r *Reconciler) updateLockDocument(doc *config.Document, toLock []*repo.Ref, all []*repo.Ref) ([]*repo.Ref, bool, error) {
	table := lockTable(doc)
	if table == nil {
		return toLock, false, nil
	}

	external := isExternalLockfile(doc, all)
	changed := false

	for _, key := range table.Keys() {
		idx := indexOfRef(toLock, key)
		if idx < 0 {
			continue
		}
		ref := toLock[idx]
		toLock = append(toLock[:idx], toLock[idx+1:]...)

		if ref.Revision == "" {
			return nil, false, fmt.Errorf("%w: %s", ErrNoRevision, ref.Name)
		}

		entry := table.GetMapping(key)
		if entry == nil {
			entry = config.NewMapping()
			table.Set(key, entry)
		}

		switch pinned := entry.GetString("commit"); {
		case pinned == ref.Revision:
			slog.Info("lock is up-to-date", "repo", ref.Name, "commit", ref.Revision)
		case !external:
			slog.Info("updating lock", "repo", ref.Name, "from", pinned, "to", ref.Revision)
			entry.Set("commit", ref.Revision)
			changed = true
		default:
			slog.Warn("repo is locked in external lockfile, not updating",
				"repo", ref.Name, "file", doc.Location)
		}
	}

	return toLock, changed, nil
}

func (r *Reconciler) persist(doc *config.Document) error {
	slog.Info("updating lockfile", "file", doc.Location)
	if err := r.write(doc); err != nil {
		return fmt.Errorf("write lockfile %s: %w", doc.Location, err)
	}
	return nil
}

// lockTable returns the overrides.repos mapping of a lock document, or nil.
func lockTable(doc *config.Document) *config.Mapping {
	if doc.Body == nil {
		return nil
	}
	overrides := doc.Body.GetMapping("overrides")
	if overrides == nil {
		return nil
	}
	return overrides.GetMapping("repos")
}

// isExternalLockfile reports whether the document lives inside the checkout
// of a repository this tool actively manages. Such documents would be
// overwritten by the next checkout, so their pins are never rewritten.
func isExternalLockfile(doc *config.Document, repos []*repo.Ref) bool {
	abs, err := filepath.Abs(doc.Location)
	if err != nil {
		abs = doc.Location
	}
	for _, ref := range repos {
		if ref.OperationsDisabled || ref.Path == "" {
			continue
		}
		root, err := filepath.Abs(ref.Path)
		if err != nil {
			continue
		}
		if pathWithin(abs, root) {
			return true
		}
	}
	return false
}

func pathWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func indexOfRef(refs []*repo.Ref, key string) int {
	for i, ref := range refs {
		if ref.Key == key {
			return i
		}
	}
	return -1
}

func containsDoc(docs []*config.Document, doc *config.Document) bool {
	for _, d := range docs {
		if d == doc {
			return true
		}
	}
	return false
}
