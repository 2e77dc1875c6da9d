// Package include implements the include resolver: a depth-first expansion
// of the includes directive across a reference graph that may span multiple
// repositories.
//
// Resolution returns the documents in merge order (children before the
// document that included them) together with the deduplicated list of
// repository keys whose checkout location is not yet known. Callers fetch
// those repositories and resolve again with an augmented repository map.
//
// Example usage:
//
//	handler := include.NewHandler([]string{"project.yml"}, repoRoot)
//	docs, missing, err := handler.Resolve(map[string]string{"meta": "/work/meta"})
package include
