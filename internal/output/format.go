// Package output encodes scan results for the binding generator.
package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format represents the output format type.
type Format string

const (
	// FormatYAML is the default human-readable output
	FormatYAML Format = "yaml"

	// FormatJSON is the JSON output format
	FormatJSON Format = "json"

	// FormatMsgpack is the compact binary snapshot read back by the generator
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a format string into a Format value.
// Accepts: "yaml", "json", "msgpack" (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("invalid format: %q (expected yaml, json, or msgpack)", s)
	}
}

// FormatForPath guesses the format from a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".msgpack", ".mp":
		return FormatMsgpack
	}
	return def
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsBinary reports whether the format should not be written to a terminal.
func (f Format) IsBinary() bool {
	return f == FormatMsgpack
}
