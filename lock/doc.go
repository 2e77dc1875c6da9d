// Package lock implements lockfile reconciliation: comparing floating
// repository references against the pinned commits recorded in lock
// documents, rewriting stale pins, and creating new pins for repositories
// no lockfile covers yet.
//
// Lock documents that live inside a repository this tool actively manages
// are treated as external: their pins are honored but never rewritten.
package lock
