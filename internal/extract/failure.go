package extract

import (
	"errors"

	"github.com/zprp/ffscan/internal/parser"
)

// ClassifyFailure maps a Provider error to a failure kind. Errors that are
// neither a read nor a syntax failure count as toolchain failures.
func ClassifyFailure(err error) FailureKind {
	var (
		syntaxErr *parser.SyntaxError
		readErr   *parser.FileReadError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return FailureSyntax
	case errors.As(err, &readErr):
		return FailureRead
	default:
		return FailureToolchain
	}
}

// NewParseFailure builds the failure record for file.
func NewParseFailure(file string, err error) ParseFailure {
	return ParseFailure{File: file, Kind: ClassifyFailure(err), Message: err.Error()}
}
