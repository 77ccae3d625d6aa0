package parser

import (
	"fmt"
	"strings"
)

// SyntaxError is returned when a tree could not be built from the
// (preprocessed) text.
type SyntaxError struct {
	Message string
	File    string
	Line    uint32
	Column  uint32
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// ToolchainError is returned when the external preprocessor failed:
// missing binary, missing header, bad flags or a timeout.
type ToolchainError struct {
	File    string
	Command []string
	Stderr  string
	Err     error
}

// Error implements the error interface.
func (e *ToolchainError) Error() string {
	msg := fmt.Sprintf("preprocess %s: %v", e.File, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		// First line is usually enough to tell a missing header apart
		// from a bad flag.
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[:i]
		}
		msg += ": " + s
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ToolchainError) Unwrap() error {
	return e.Err
}

// FileReadError is returned when a file cannot be read.
type FileReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileReadError) Unwrap() error {
	return e.Err
}
