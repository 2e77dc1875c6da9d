package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration file version window. Files carrying a header.version outside
// [CompatibleFileVersion, FileVersion] are rejected.
const (
	FileVersion           = 14
	CompatibleFileVersion = 1
)

// Keys reserved for auto-generated bootstrap documents that redirect where
// repository-relative includes are resolved from.
const (
	sourceDirOverrideKey     = "_source_dir"
	sourceDirHostOverrideKey = "_source_dir_host"
)

// Document is one parsed, validated configuration unit tied to a location.
type Document struct {
	// Location is the path the document was loaded from.
	Location string

	// Body is the parsed content, nil if the top-level value is not a
	// mapping. A nil body is rejected by the include resolver, not here.
	Body *Mapping

	// IsLock is true for documents whose purpose is pinning floating
	// repositories rather than primary configuration.
	IsLock bool

	// IsExternal is true for documents reached through a cross-repository
	// include. External lock documents are never rewritten.
	IsExternal bool

	// SourceDir is the _source_dir override, set only by auto-generated
	// bootstrap documents.
	SourceDir string
}

// Load reads, parses and validates the configuration file at location.
// The format is chosen by file extension (.json, .yml, .yaml).
// It returns a *LoadError on unreadable or malformed files, schema
// violations, and out-of-range header versions.
func Load(location string, isLock, isExternal bool) (*Document, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: location, Err: ErrNotFound}
		}
		return nil, &LoadError{Path: location, Err: err}
	}

	var value any
	switch ext := filepath.Ext(location); ext {
	case ".json":
		value, err = decodeJSON(data)
	case ".yml", ".yaml":
		value, err = decodeYAML(data)
	default:
		return nil, &LoadError{Path: location, Err: ErrUnknownExtension}
	}
	if err != nil {
		return nil, &LoadError{Path: location, Err: err}
	}

	if err := validateDocument(value); err != nil {
		return nil, &LoadError{Path: location, Err: err}
	}

	doc := &Document{
		Location:   location,
		IsLock:     isLock,
		IsExternal: isExternal,
	}

	body, ok := value.(*Mapping)
	if !ok {
		// Not a mapping at the top: the include resolver rejects this
		// document with an IncludeError.
		return doc, nil
	}
	doc.Body = body

	version, err := headerVersion(body)
	if err != nil {
		return nil, &LoadError{Path: location, Err: err}
	}
	if version < CompatibleFileVersion || version > FileVersion {
		return nil, &LoadError{Path: location, Err: fmt.Errorf(
			"%w: this version of strata is compatible with version %d to %d, file has version %d",
			ErrVersion, CompatibleFileVersion, FileVersion, version)}
	}

	if _, ok := body.Get("proxy_config"); ok {
		slog.Warn("obsolete 'proxy_config' detected, this has no effect and will be rejected soon",
			"file", location)
	}

	doc.SourceDir = body.GetString(sourceDirOverrideKey)

	return doc, nil
}

// NewLock creates an empty lock document at location: a current-version
// header and an empty overrides.repos table.
func NewLock(location string) *Document {
	repos := NewMapping()
	overrides := NewMapping()
	overrides.Set("repos", repos)
	header := NewMapping()
	header.Set("version", FileVersion)
	body := NewMapping()
	body.Set("header", header)
	body.Set("overrides", overrides)
	return &Document{Location: location, Body: body, IsLock: true}
}

// headerVersion extracts the header.version integer. The legacy version
// string "0.10" is accepted as version 1.
func headerVersion(body *Mapping) (int, error) {
	header := body.GetMapping("header")
	if header == nil {
		return 0, fmt.Errorf("%w: missing header", ErrVersion)
	}
	v, ok := header.Get("version")
	if !ok {
		return 0, fmt.Errorf("%w: missing header version", ErrVersion)
	}
	switch version := v.(type) {
	case int:
		return version, nil
	case string:
		// Version string "0.10" predates integer file versions and is
		// equivalent to file version 1.
		if version == "0.10" {
			return 1, nil
		}
		return 0, fmt.Errorf("%w: unsupported version string %q", ErrVersion, version)
	default:
		return 0, fmt.Errorf("%w: header version is not an integer", ErrVersion)
	}
}

func decodeYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	return fromYAMLNode(root.Content[0])
}

// decodeJSON parses JSON through the token stream so that object key order
// is preserved in the resulting Mapping.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing content after JSON document")
	}
	return value, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("non-string object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, err
			}
			return m, nil
		case '[':
			var seq []any
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, val)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			if seq == nil {
				seq = []any{}
			}
			return seq, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return int(i), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		// string, bool or nil
		return t, nil
	}
}
