package config

import "errors"

// Loader errors. All are surfaced wrapped in a *LoadError carrying the
// offending file path.
var (
	// ErrUnknownExtension indicates the file extension is not .json,
	// .yml or .yaml.
	ErrUnknownExtension = errors.New("config file extension not recognized")

	// ErrNotFound indicates the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrValidation indicates schema validation reported one or more errors.
	ErrValidation = errors.New("error(s) occurred while validating the config file")

	// ErrVersion indicates header.version is outside the compatible window.
	ErrVersion = errors.New("incompatible config file version")
)

// LoadError reports a configuration file that could not be loaded:
// unrecognized extension, unreadable or malformed bytes, schema violations,
// or an out-of-range file version.
type LoadError struct {
	Path string // location of the offending file
	Err  error  // underlying error
}

func (e *LoadError) Error() string {
	return e.Err.Error() + ": " + e.Path
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IncludeError reports a structural problem in the include mechanism:
// a non-mapping document body, a cross-repository include without its
// file key, an include cycle, or an attempt to merge non-mappings.
type IncludeError struct {
	Path string // offending document location, if known
	Msg  string
}

func (e *IncludeError) Error() string {
	if e.Path != "" {
		return e.Msg + ": " + e.Path
	}
	return e.Msg
}
