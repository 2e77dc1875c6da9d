// Package repo models the repositories referenced by an effective
// configuration and the git operations needed to materialize them.
//
// Core types:
//   - Ref: one repository reference (url, floating ref or pinned commit,
//     checkout path, operations-disabled flag)
//   - Git: git operations through a CommandRunner (with a mock for testing)
//
// Example usage:
//
//	refs, err := repo.FromConfig(cfg, topRepoRoot, workDir)
//	g := repo.NewGit()
//	for _, ref := range refs {
//	    err := g.Clone(ref)
//	}
package repo
