package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"

	"github.com/stratabuild/strata/auth/ssh"
	"github.com/stratabuild/strata/config"
	"github.com/stratabuild/strata/forge"
	"github.com/stratabuild/strata/include"
	"github.com/stratabuild/strata/repo"
)

// ErrUndefinedRepo is returned when an include references a repository
// key the merged configuration never defines.
var ErrUndefinedRepo = errors.New("repository referenced by include is not defined")

// Project is a loaded build configuration: the merged document tree plus
// the repositories it pulls in.
type Project struct {
	workDir  string
	topFiles []string
	git      *repo.Git
	gitSet   bool
	sshKey   string
	useLock  bool
	forgeTS  oauth2.TokenSource
	runID    string
	log      *slog.Logger

	topRepoRoot string
	handler     *include.Handler
	docs        []*config.Document
	cfg         *config.Mapping
	repos       []*repo.Ref
}

// Option configures a Project.
type Option func(*Project)

// WithGit sets the git handle used for repository operations.
func WithGit(g *repo.Git) Option {
	return func(p *Project) {
		p.git = g
		p.gitSet = true
	}
}

// WithLock enables or disables lockfile resolution. Enabled by default.
func WithLock(use bool) Option {
	return func(p *Project) {
		p.useLock = use
	}
}

// WithSSHKey routes all git operations through the given private key.
// Ignored when WithGit supplies a custom handle.
func WithSSHKey(keyPath string) Option {
	return func(p *Project) {
		p.sshKey = keyPath
	}
}

// WithForgeTokenSource authenticates forge API calls through an oauth2
// token source instead of a static token, e.g. a GitHub App
// installation source.
func WithForgeTokenSource(ts oauth2.TokenSource) Option {
	return func(p *Project) {
		p.forgeTS = ts
	}
}

// New creates a project from a configuration file spec. spec is one or
// more file paths joined with ":"; the files merge left to right. The
// repositories the configuration defines are checked out under workDir.
func New(spec, workDir string, opts ...Option) (*Project, error) {
	if spec == "" {
		return nil, fmt.Errorf("configuration file is required")
	}

	p := &Project{
		workDir: workDir,
		git:     repo.NewGit(),
		useLock: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.sshKey != "" && !p.gitSet {
		if err := ssh.ValidatePrivateKey(p.sshKey); err != nil {
			// An encrypted key is still usable when the agent holds it:
			// ssh matches the -i identity by its public half and lets the
			// agent sign.
			if !errors.Is(err, ssh.ErrKeyEncrypted) {
				return nil, err
			}
			if err := agentHoldsKey(p.sshKey); err != nil {
				return nil, err
			}
		}
		runner := &repo.ExecRunner{Env: ssh.GitEnv(p.sshKey)}
		p.git = repo.NewGit(repo.WithRunner(runner))
	}

	for _, file := range strings.Split(spec, ":") {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, fmt.Errorf("resolve config path %s: %w", file, err)
		}
		p.topFiles = append(p.topFiles, abs)
	}

	runID, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate run ID: %w", err)
	}
	p.runID = runID
	p.log = slog.With("run", runID)

	// Includes in the top files resolve against the work tree that holds
	// them, falling back to their directory outside a checkout.
	dir := filepath.Dir(p.topFiles[0])
	if root, err := p.git.TopLevel(dir); err == nil {
		p.topRepoRoot = root
	} else {
		p.topRepoRoot = dir
	}

	return p, nil
}

// RunID returns the identifier tagged onto this project's log records.
func (p *Project) RunID() string { return p.runID }

// Config returns the merged configuration. Valid after Load.
func (p *Project) Config() *config.Mapping { return p.cfg }

// Repos returns the repositories the configuration defines, in
// configuration order. Valid after Load.
func (p *Project) Repos() []*repo.Ref { return p.repos }

// Documents returns the resolved document list in merge order.
// Valid after Load.
func (p *Project) Documents() []*config.Document { return p.docs }

// Lockfiles returns the lock documents that participated in the merge,
// in resolution order. Valid after Load.
func (p *Project) Lockfiles() []*config.Document {
	var locks []*config.Document
	for _, doc := range p.docs {
		if doc.IsLock {
			locks = append(locks, doc)
		}
	}
	return locks
}

// LockfilePath returns the canonical top lockfile location.
// Valid after Load.
func (p *Project) LockfilePath() string {
	return p.handler.Lockfile()
}

// Load expands the include graph and merges the configuration. Includes
// that reference repositories without a checkout trigger a clone of
// those repositories, then resolution restarts with the enlarged
// checkout set until the graph is complete.
func (p *Project) Load() error {
	repoPaths := map[string]string{}

	for {
		p.handler = include.NewHandler(p.topFiles, p.topRepoRoot, include.WithLock(p.useLock))
		docs, missing, err := p.handler.Resolve(repoPaths)
		if err != nil {
			return err
		}

		merged, err := config.Merge(docs)
		if err != nil {
			return err
		}
		refs, err := repo.FromConfig(merged, p.handler.TopRepoRoot(), p.workDir)
		if err != nil {
			return err
		}

		p.docs = docs
		p.cfg = merged
		p.repos = refs

		if len(missing) == 0 {
			return nil
		}

		for _, key := range missing {
			ref := findRef(refs, key)
			if ref == nil {
				return fmt.Errorf("%w: %s", ErrUndefinedRepo, key)
			}
			if !ref.OperationsDisabled {
				p.log.Info("fetching repository needed by include", "repo", ref.Name, "url", ref.URL)
				if err := p.git.Clone(ref); err != nil {
					return err
				}
				if err := p.git.Checkout(ref); err != nil {
					return err
				}
			}
			repoPaths[key] = ref.Path
		}
	}
}

// Checkout brings every managed repository to the configured state:
// clone if absent, then switch to the pinned commit or floating ref.
// With update set, existing checkouts fetch before switching.
func (p *Project) Checkout(update bool) error {
	for _, ref := range p.repos {
		if ref.OperationsDisabled {
			continue
		}
		present := p.git.IsRepo(ref.Path)
		if !present {
			p.log.Info("cloning repository", "repo", ref.Name, "url", ref.URL)
			if err := p.git.Clone(ref); err != nil {
				return err
			}
		} else if update {
			if err := p.git.Fetch(ref); err != nil {
				return err
			}
		}
		if err := p.git.Checkout(ref); err != nil {
			return err
		}
	}
	return nil
}

// ResolveRevisions fills in each managed repository's current revision,
// from the checkout when one exists and from the remote otherwise.
// Lock reconciliation needs these to pin floating repositories.
func (p *Project) ResolveRevisions() error {
	for _, ref := range p.repos {
		if ref.OperationsDisabled {
			continue
		}
		if p.git.IsRepo(ref.Path) {
			rev, err := p.git.CurrentRevision(ref)
			if err != nil {
				return err
			}
			ref.Revision = rev
			continue
		}
		if ref.Floating() {
			rev, err := p.git.RemoteRevision(ref)
			if err != nil {
				return err
			}
			ref.Revision = rev
		} else {
			ref.Revision = ref.Commit
		}
	}
	return nil
}

// ResolveRevisionsRemote is like ResolveRevisions for repositories
// without a checkout, but resolves refs through forge APIs instead of
// git ls-remote. token authenticates against the forge unless a token
// source was configured; hosts no forge resolver knows fall back to
// ls-remote.
func (p *Project) ResolveRevisionsRemote(ctx context.Context, token string) error {
	for _, ref := range p.repos {
		if ref.OperationsDisabled {
			continue
		}
		if p.git.IsRepo(ref.Path) {
			rev, err := p.git.CurrentRevision(ref)
			if err != nil {
				return err
			}
			ref.Revision = rev
			continue
		}
		if !ref.Floating() {
			ref.Revision = ref.Commit
			continue
		}

		var resolver forge.Resolver
		var err error
		if p.forgeTS != nil {
			resolver, err = forge.NewResolverWithSource(ref.URL, p.forgeTS)
		} else {
			resolver, err = forge.NewResolver(ref.URL, token)
		}
		if errors.Is(err, forge.ErrUnknownForge) {
			rev, err := p.git.RemoteRevision(ref)
			if err != nil {
				return err
			}
			ref.Revision = rev
			continue
		}
		if err != nil {
			return err
		}

		rev, err := resolver.ResolveRef(ctx, ref.UpstreamRef())
		if err != nil {
			return err
		}
		p.log.Info("resolved ref through forge API",
			"repo", ref.Name, "ref", ref.UpstreamRef(), "commit", rev)
		ref.Revision = rev
	}
	return nil
}

// agentHoldsKey verifies the ssh-agent holds the key whose public half
// sits next to keyPath.
func agentHoldsKey(keyPath string) error {
	info, err := ssh.ReadPublicKey(keyPath + ".pub")
	if err != nil {
		return fmt.Errorf("read public key for encrypted %s: %w", keyPath, err)
	}

	ag, err := ssh.GetAgent()
	if err != nil {
		return fmt.Errorf("encrypted key %s: %w", keyPath, err)
	}
	defer ag.Close()

	held, err := ssh.AgentHasKey(ag, info.Fingerprint)
	if err != nil {
		return err
	}
	if !held {
		return fmt.Errorf("encrypted key %s: %w", keyPath, ssh.ErrKeyNotFound)
	}
	return nil
}

func findRef(refs []*repo.Ref, key string) *repo.Ref {
	for _, ref := range refs {
		if ref.Key == key {
			return ref
		}
	}
	return nil
}
