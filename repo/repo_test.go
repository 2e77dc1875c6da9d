package repo

import (
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/stratabuild/strata/config"
)

// parseConfig parses a YAML snippet into an effective configuration mapping.
func parseConfig(t *testing.T, src string) *config.Mapping {
	t.Helper()

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src), &root); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	m := config.NewMapping()
	if err := root.Decode(m); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return m
}

func TestFromConfig(t *testing.T) {
	cfg := parseConfig(t, `repos:
  this:
  meta:
    url: https://example.com/meta.git
    branch: main
  extra:
    url: https://example.com/extra.git
    commit: 0123abcd
    path: vendor/extra
`)

	refs, err := FromConfig(cfg, "/project", "/work")
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}

	this := refs[0]
	if !this.OperationsDisabled {
		t.Error("url-less repo: OperationsDisabled = false, want true")
	}
	if this.Path != "/project" {
		t.Errorf("url-less repo path = %q, want top repo root", this.Path)
	}

	meta := refs[1]
	if meta.OperationsDisabled {
		t.Error("meta: OperationsDisabled = true, want false")
	}
	if !meta.Floating() {
		t.Error("meta: Floating() = false, want true (branch-tracking)")
	}
	if meta.Path != filepath.Join("/work", "meta") {
		t.Errorf("meta path = %q, want default under work dir", meta.Path)
	}
	if meta.UpstreamRef() != "main" {
		t.Errorf("meta upstream = %q, want %q", meta.UpstreamRef(), "main")
	}

	extra := refs[2]
	if extra.Floating() {
		t.Error("extra: Floating() = true, want false (pinned)")
	}
	if extra.Path != filepath.Join("/work", "vendor/extra") {
		t.Errorf("extra path = %q, want relative path anchored at work dir", extra.Path)
	}
}

func TestFromConfig_OverridesPinCommit(t *testing.T) {
	cfg := parseConfig(t, `repos:
  meta:
    url: https://example.com/meta.git
    branch: main
overrides:
  repos:
    meta:
      commit: feedbeef
`)

	refs, err := FromConfig(cfg, "/project", "/work")
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if refs[0].Commit != "feedbeef" {
		t.Errorf("commit = %q, want override pin", refs[0].Commit)
	}
	if refs[0].Floating() {
		t.Error("Floating() = true after override pin, want false")
	}
}

func TestFromConfig_Order(t *testing.T) {
	cfg := parseConfig(t, `repos:
  zulu:
    url: https://example.com/z.git
  alpha:
    url: https://example.com/a.git
  mike:
    url: https://example.com/m.git
`)

	refs, err := FromConfig(cfg, "/project", "/work")
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	var keys []string
	for _, r := range refs {
		keys = append(keys, r.Key)
	}
	if want := []string{"zulu", "alpha", "mike"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("repo order = %v, want table order %v", keys, want)
	}
}

func TestFromConfig_Layers(t *testing.T) {
	cfg := parseConfig(t, `repos:
  meta:
    url: https://example.com/meta.git
    layers:
      meta-core:
      meta-extras: enabled
      meta-skipped: disabled
`)

	refs, err := FromConfig(cfg, "/project", "/work")
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	want := []string{"meta-core", "meta-extras"}
	if !reflect.DeepEqual(refs[0].Layers, want) {
		t.Errorf("layers = %v, want %v", refs[0].Layers, want)
	}
}

func TestFromConfig_NoRepos(t *testing.T) {
	cfg := parseConfig(t, "machine: qemux86-64\n")

	refs, err := FromConfig(cfg, "/project", "/work")
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("got %d refs, want 0", len(refs))
	}
}
