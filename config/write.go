package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Encode serializes body to the given format ("json" or "yaml").
// Mapping keys keep their insertion order unless sorted is set.
func Encode(body *Mapping, format string, sorted bool) ([]byte, error) {
	if sorted {
		body = body.sortedCopy()
	}
	switch format {
	case "json":
		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(body); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// FormatFor returns the output format for a target location based on its
// file extension. Anything that is not .json serializes as YAML.
func FormatFor(location string) string {
	if filepath.Ext(location) == ".json" {
		return "json"
	}
	return "yaml"
}

// WriteDocument serializes the document body, format chosen by the
// location's extension, and writes it to its location.
func WriteDocument(doc *Document) error {
	if doc.Body == nil {
		return &IncludeError{Path: doc.Location, Msg: "cannot write non-mapping document"}
	}
	data, err := Encode(doc.Body, FormatFor(doc.Location), false)
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Location, err)
	}
	return os.WriteFile(doc.Location, data, 0o644)
}
