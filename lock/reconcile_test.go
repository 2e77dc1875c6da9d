package lock

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stratabuild/strata/config"
	"github.com/stratabuild/strata/repo"
)

// lockDoc creates a lock document at location pinning the given repos.
func lockDoc(location string, pins map[string]string) *config.Document {
	doc := config.NewLock(location)
	table := doc.Body.GetMapping("overrides").GetMapping("repos")
	for key, commit := range pins {
		entry := config.NewMapping()
		entry.Set("commit", commit)
		table.Set(key, entry)
	}
	return doc
}

func pinOf(doc *config.Document, key string) string {
	return doc.Body.GetMapping("overrides").GetMapping("repos").
		GetMapping(key).GetString("commit")
}

// captureWriter records persisted documents instead of writing files.
func captureWriter(written *[]string) Option {
	return WithWriter(func(doc *config.Document) error {
		*written = append(*written, doc.Location)
		return nil
	})
}

func TestReconcile_UpdatesStalePin(t *testing.T) {
	doc := lockDoc("/project/project.lock.yml", map[string]string{"r1": "AAA"})
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Path: "/work/r1", Revision: "BBB"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	updated, unlocked, err := r.Reconcile([]*config.Document{doc}, repos, "/project/project.lock.yml")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if got := pinOf(doc, "r1"); got != "BBB" {
		t.Errorf("pin = %q, want rewritten to %q", got, "BBB")
	}
	if len(updated) != 1 || updated[0] != doc {
		t.Errorf("updated = %v, want the stale lock document", updated)
	}
	if len(written) != 1 || written[0] != doc.Location {
		t.Errorf("written = %v, want [%s]", written, doc.Location)
	}
	if len(unlocked) != 0 {
		t.Errorf("unlocked = %v, want none", unlocked)
	}
}

func TestReconcile_ExternalLockfileNotRewritten(t *testing.T) {
	metaPath := filepath.Join("/work", "meta")
	doc := lockDoc(filepath.Join(metaPath, "base.lock.yml"), map[string]string{"r1": "AAA"})
	repos := []*repo.Ref{
		{Key: "meta", Name: "meta", Path: metaPath, Commit: "fixed", URL: "https://example.com/meta.git"},
		{Key: "r1", Name: "r1", Path: "/work/r1", Revision: "BBB", URL: "https://example.com/r1.git"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	updated, unlocked, err := r.Reconcile([]*config.Document{doc}, repos, "/project/project.lock.yml")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if got := pinOf(doc, "r1"); got != "AAA" {
		t.Errorf("pin = %q, want untouched %q (external lockfile)", got, "AAA")
	}
	if len(updated) != 0 {
		t.Errorf("updated = %v, want none", updated)
	}
	if len(written) != 0 {
		t.Errorf("written = %v, want none", written)
	}
	// The repo counts as reconciled even though the pin was not rewritten.
	if len(unlocked) != 0 {
		t.Errorf("unlocked = %v, want none", unlocked)
	}
}

func TestReconcile_UpToDatePinNotWritten(t *testing.T) {
	doc := lockDoc("/project/project.lock.yml", map[string]string{"r1": "BBB"})
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Path: "/work/r1", Revision: "BBB"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	updated, _, err := r.Reconcile([]*config.Document{doc}, repos, doc.Location)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(updated) != 0 || len(written) != 0 {
		t.Errorf("updated = %v, written = %v, want none for an up-to-date pin", updated, written)
	}
}

func TestReconcile_CreatesTopLockfile(t *testing.T) {
	repos := []*repo.Ref{
		{Key: "r2", Name: "r2", Path: "/work/r2", Revision: "CCC"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	topLock := "/project/project.lock.yml"
	updated, unlocked, err := r.Reconcile(nil, repos, topLock)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(updated) != 1 {
		t.Fatalf("updated = %v, want one new lock document", updated)
	}
	doc := updated[0]
	if doc.Location != topLock {
		t.Errorf("location = %q, want canonical top lockfile %q", doc.Location, topLock)
	}
	if !doc.IsLock {
		t.Error("new document not flagged IsLock")
	}
	if got := pinOf(doc, "r2"); got != "CCC" {
		t.Errorf("pin = %q, want current revision %q", got, "CCC")
	}
	header := doc.Body.GetMapping("header")
	if v, _ := header.Get("version"); v != config.FileVersion {
		t.Errorf("header.version = %v, want %d", v, config.FileVersion)
	}
	if len(written) != 1 {
		t.Errorf("written = %v, want one write", written)
	}
	if len(unlocked) != 0 {
		t.Errorf("unlocked = %v, want none", unlocked)
	}
}

func TestReconcile_ReusesResolvedTopLockfile(t *testing.T) {
	topLock := "/project/project.lock.yml"
	doc := lockDoc(topLock, map[string]string{"r1": "AAA"})
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Path: "/work/r1", Revision: "AAA"},
		{Key: "r2", Name: "r2", Path: "/work/r2", Revision: "CCC"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	updated, _, err := r.Reconcile([]*config.Document{doc}, repos, topLock)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(updated) != 1 || updated[0] != doc {
		t.Fatalf("updated = %v, want the reused top lock document", updated)
	}
	if got := pinOf(doc, "r2"); got != "CCC" {
		t.Errorf("new pin = %q, want %q", got, "CCC")
	}
	if got := pinOf(doc, "r1"); got != "AAA" {
		t.Errorf("existing pin = %q, want untouched %q", got, "AAA")
	}
}

func TestReconcile_NothingFloating(t *testing.T) {
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Commit: "AAA", Revision: "AAA"},
		{Key: "local", Name: "local", OperationsDisabled: true},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	updated, unlocked, err := r.Reconcile(nil, repos, "/project/project.lock.yml")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if updated != nil || unlocked != nil || len(written) != 0 {
		t.Errorf("updated = %v, unlocked = %v, written = %v, want all empty",
			updated, unlocked, written)
	}
}

func TestReconcile_MissingRevision(t *testing.T) {
	doc := lockDoc("/project/project.lock.yml", map[string]string{"r1": "AAA"})
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Path: "/work/r1"}, // no resolvable revision
	}

	r := NewReconciler(captureWriter(new([]string)))
	_, _, err := r.Reconcile([]*config.Document{doc}, repos, doc.Location)
	if !errors.Is(err, ErrNoRevision) {
		t.Fatalf("Reconcile() error = %v, want ErrNoRevision", err)
	}
}

func TestReconcile_LaterLockfileSkipsReconciled(t *testing.T) {
	first := lockDoc("/project/a.lock.yml", map[string]string{"r1": "AAA"})
	second := lockDoc("/project/b.lock.yml", map[string]string{"r1": "ZZZ"})
	repos := []*repo.Ref{
		{Key: "r1", Name: "r1", Path: "/work/r1", Revision: "BBB"},
	}

	var written []string
	r := NewReconciler(captureWriter(&written))
	_, _, err := r.Reconcile([]*config.Document{first, second}, repos, first.Location)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if got := pinOf(first, "r1"); got != "BBB" {
		t.Errorf("first pin = %q, want %q", got, "BBB")
	}
	if got := pinOf(second, "r1"); got != "ZZZ" {
		t.Errorf("second pin = %q, want untouched %q (already reconciled)", got, "ZZZ")
	}
}
