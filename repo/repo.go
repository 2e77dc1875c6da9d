package repo

import (
	"fmt"
	"path/filepath"

	"github.com/stratabuild/strata/config"
)

// Ref is one repository reference read from the effective configuration's
// repos table.
type Ref struct {
	// Key is the repository key in the repos table.
	Key string

	// Name is the display name, defaulting to Key.
	Name string

	// URL is the clone URL. Empty for the repository containing the top
	// configuration itself.
	URL string

	// Path is the checkout location.
	Path string

	// Commit pins the repository to a fixed commit. Empty means the
	// repository is floating (tracking Branch or Tag).
	Commit string

	// Branch and Tag select the floating ref to track.
	Branch string
	Tag    string

	// Layers lists the enabled layer subdirectories.
	Layers []string

	// OperationsDisabled is true for repositories whose checkout lifecycle
	// this tool does not manage (url-less local repositories).
	OperationsDisabled bool

	// Revision is the current commit of the checkout, resolved lazily.
	Revision string
}

// Floating reports whether the reference tracks a branch or tag rather
// than a fixed commit.
func (r *Ref) Floating() bool {
	return r.Commit == ""
}

// UpstreamRef returns the remote ref the repository tracks: the tag if set,
// otherwise the branch.
func (r *Ref) UpstreamRef() string {
	if r.Tag != "" {
		return r.Tag
	}
	return r.Branch
}

// FromConfig builds the ordered repository list from an effective
// configuration. topRepoRoot is the checkout path for url-less entries;
// workDir is where managed repositories are checked out by default.
// Commit pins recorded under overrides.repos take precedence over the
// repos table.
func FromConfig(cfg *config.Mapping, topRepoRoot, workDir string) ([]*Ref, error) {
	table := cfg.GetMapping("repos")
	if table == nil {
		return nil, nil
	}

	var overrides *config.Mapping
	if o := cfg.GetMapping("overrides"); o != nil {
		overrides = o.GetMapping("repos")
	}

	refs := make([]*Ref, 0, table.Len())
	for _, key := range table.Keys() {
		ref := &Ref{Key: key, Name: key}

		value, _ := table.Get(key)
		entry, ok := value.(*config.Mapping)
		if !ok && value != nil {
			return nil, fmt.Errorf("repo %s: entry is not a mapping", key)
		}
		if entry != nil {
			if name := entry.GetString("name"); name != "" {
				ref.Name = name
			}
			ref.URL = entry.GetString("url")
			ref.Path = entry.GetString("path")
			ref.Commit = entry.GetString("commit")
			ref.Branch = entry.GetString("branch")
			ref.Tag = entry.GetString("tag")
			ref.Layers = layerList(entry.GetMapping("layers"))
		}

		if ref.URL == "" {
			// A url-less repo refers to the repository the configuration
			// itself lives in; its lifecycle is not managed here.
			ref.Path = topRepoRoot
			ref.OperationsDisabled = true
		} else if ref.Path == "" {
			ref.Path = filepath.Join(workDir, key)
		} else if !filepath.IsAbs(ref.Path) {
			ref.Path = filepath.Join(workDir, ref.Path)
		}

		if overrides != nil {
			if pin := overrides.GetMapping(key); pin != nil {
				if commit := pin.GetString("commit"); commit != "" {
					ref.Commit = commit
				}
			}
		}

		refs = append(refs, ref)
	}
	return refs, nil
}

// layerList returns the enabled layers of a repos entry. A layer is enabled
// unless its value is the string "disabled".
func layerList(layers *config.Mapping) []string {
	if layers == nil {
		return nil
	}
	var enabled []string
	for _, name := range layers.Keys() {
		if v, _ := layers.Get(name); v == "disabled" {
			continue
		}
		enabled = append(enabled, name)
	}
	return enabled
}
