// Package project ties configuration loading, include resolution and
// repository management together. A Project starts from one or more top
// configuration files, expands their include graph (cloning referenced
// repositories on demand), and exposes the merged configuration and the
// repository set it describes.
package project
