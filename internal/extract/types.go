// Package extract recognizes the filter registration convention in parsed
// C translation units.
//
// Three visitors cooperate: Scanner collects the registered filter
// identifiers from the registration module, Locator finds concrete filter
// definitions in an implementation file and OptionExtractor reads the
// option table of one located filter. Each visitor owns its results; none
// keeps state between calls to its entry point.
package extract

import (
	"fmt"

	"github.com/zprp/ffscan/internal/cast"
)

// Convention names the declarations the visitors look for.
type Convention struct {
	// BaseType is the plugin struct type (AVFilter).
	BaseType string
	// OptionType is the option-descriptor struct type (AVOption).
	OptionType string
	// InstancePrefix marks registered plugin identifiers (ff_).
	InstancePrefix string
	// OptionsSuffix is appended to a filter name to find its option table.
	OptionsSuffix string
	// ConstTag is the type tag of named constants of a flags option.
	ConstTag string
}

// DefaultConvention returns the libavfilter naming convention.
func DefaultConvention() Convention {
	return Convention{
		BaseType:       "AVFilter",
		OptionType:     "AVOption",
		InstancePrefix: "ff_",
		OptionsSuffix:  "_options",
		ConstTag:       "AV_OPT_TYPE_CONST",
	}
}

// FilterOption is one user-settable option of a filter.
type FilterOption struct {
	Name        string `yaml:"name" json:"name" msgpack:"name"`
	Type        string `yaml:"type" json:"type" msgpack:"type"`
	Description string `yaml:"description" json:"description" msgpack:"description"`
	// Offset is the storage token the option was deduplicated on.
	Offset string `yaml:"offset,omitempty" json:"offset,omitempty" msgpack:"offset,omitempty"`
	// Default is the raw default-value initializer, when present.
	Default string `yaml:"default,omitempty" json:"default,omitempty" msgpack:"default,omitempty"`
}

// Filter is one extracted filter definition.
type Filter struct {
	Name        string         `yaml:"name" json:"name" msgpack:"name"`
	Description string         `yaml:"description" json:"description" msgpack:"description"`
	Options     []FilterOption `yaml:"options" json:"options" msgpack:"options"`
	// Ident is the C identifier of the definition (ff_vf_flip).
	Ident string `yaml:"ident,omitempty" json:"ident,omitempty" msgpack:"ident,omitempty"`
	// File is the implementation file the filter was found in.
	File string `yaml:"file,omitempty" json:"file,omitempty" msgpack:"file,omitempty"`
}

// FailureKind classifies why a file produced no tree.
type FailureKind string

const (
	// FailureToolchain means the preprocessor failed.
	FailureToolchain FailureKind = "toolchain"
	// FailureSyntax means the preprocessed text did not parse.
	FailureSyntax FailureKind = "syntax"
	// FailureRead means the file could not be read.
	FailureRead FailureKind = "read"
)

// ParseFailure records one file that could not be parsed.
type ParseFailure struct {
	File    string      `yaml:"file" json:"file" msgpack:"file"`
	Kind    FailureKind `yaml:"kind" json:"kind" msgpack:"kind"`
	Message string      `yaml:"message,omitempty" json:"message,omitempty" msgpack:"message,omitempty"`
}

// Warning is a recognized but malformed declaration that was skipped.
type Warning struct {
	File   string
	Filter string
	Option string
	Reason string
	Pos    cast.Pos
}

// String renders the warning on one line.
func (w Warning) String() string {
	loc := w.File
	if w.Pos.Line > 0 {
		loc = fmt.Sprintf("%s:%d", w.File, w.Pos.Line)
	}
	switch {
	case w.Option != "":
		return fmt.Sprintf("%s: %s option %q: %s", loc, w.Filter, w.Option, w.Reason)
	case w.Filter != "":
		return fmt.Sprintf("%s: %s: %s", loc, w.Filter, w.Reason)
	default:
		return fmt.Sprintf("%s: %s", loc, w.Reason)
	}
}
