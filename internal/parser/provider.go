package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zprp/ffscan/internal/cast"
)

// Request describes one file to parse.
type Request struct {
	// File is the source path, relative to the provider directory or absolute.
	File string
	// IncludePaths are passed as -I in order.
	IncludePaths []string
	// Defines maps a macro name (possibly with a parameter list such as
	// "__attribute__(x)") to its replacement text.
	Defines map[string]string
	// ExtraIncludes are force-included with -include in order.
	ExtraIncludes []string
}

// Provider turns a C source file into a syntax tree.
type Provider interface {
	Parse(ctx context.Context, req Request) (*cast.TranslationUnit, error)
}

// TreeProvider is the Provider backed by an external preprocessor and the
// tree-sitter C grammar. It is safe for concurrent use: every call builds
// its own tree-sitter parser.
type TreeProvider struct {
	// Preprocessor runs before parsing. When nil the raw file text is parsed
	// and the request's include paths and defines are ignored.
	Preprocessor *Preprocessor
	// Dir resolves relative file paths when Preprocessor is nil.
	Dir string
	// Strict rejects trees that contain ERROR or MISSING nodes.
	Strict bool
}

// Parse implements Provider.
func (p *TreeProvider) Parse(ctx context.Context, req Request) (*cast.TranslationUnit, error) {
	var (
		source []byte
		err    error
	)
	if p.Preprocessor != nil {
		source, err = p.Preprocessor.Run(ctx, req)
	} else {
		source, err = p.readRaw(req.File)
	}
	if err != nil {
		return nil, err
	}

	return p.ParseSource(ctx, req.File, source)
}

// ParseSource parses already available text under the given file name.
func (p *TreeProvider) ParseSource(ctx context.Context, file string, source []byte) (*cast.TranslationUnit, error) {
	tsp := NewParser()
	defer tsp.Close()

	result, err := tsp.ParseCtx(ctx, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ToolchainError{File: file, Err: fmt.Errorf("parse interrupted: %w", ctxErr)}
		}
		if se, ok := err.(*SyntaxError); ok {
			se.File = file
		}
		return nil, err
	}
	defer result.Close()
	result.FilePath = file

	if p.Strict {
		if n := result.FirstError(); n != nil {
			pt := n.StartPoint()
			msg := "unexpected syntax"
			if n.IsMissing() {
				msg = "missing " + n.Type()
			}
			return nil, &SyntaxError{
				Message: msg,
				File:    file,
				Line:    pt.Row + 1,
				Column:  pt.Column + 1,
			}
		}
	}

	return Lower(result), nil
}

func (p *TreeProvider) readRaw(file string) ([]byte, error) {
	path := file
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: file, Err: err}
	}
	return data, nil
}
