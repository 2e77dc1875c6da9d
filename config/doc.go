// Package config implements the configuration document model: loading and
// validating JSON/YAML documents, the order-preserving value tree, the deep
// merge that folds an ordered document list into one effective configuration,
// and the writer that serializes a document back to disk.
//
// Core types:
//   - Mapping: insertion-ordered map, the backbone of every document body
//   - Document: one parsed, validated configuration unit tied to a location
//   - LoadError, IncludeError: the two fatal error kinds
//
// Example usage:
//
//	doc, err := config.Load("project.yml", false, false)
//	merged, err := config.Merge([]*config.Document{base, doc})
//	err = config.WriteDocument(doc)
package config
