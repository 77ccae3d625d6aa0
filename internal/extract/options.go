package extract

import (
	"fmt"

	"github.com/zprp/ffscan/internal/cast"
)

// unresolvedOffset stands in for an offset expression no known shape
// matches. No literal or field name can produce it, so unresolved entries
// only alias each other.
const unresolvedOffset = "<unresolved>"

// OptionExtractor reads the option table of one filter:
//
//	static const AVOption flip_options[] = {
//	    { "mode", "set mode", OFFSET(mode), AV_OPT_TYPE_INT, {.i64=0}, 0, 1, FLAGS },
//	    { "m",    "set mode", OFFSET(mode), AV_OPT_TYPE_INT, {.i64=0}, 0, 1, FLAGS },
//	    { "fast", "",         0,            AV_OPT_TYPE_CONST, ... },
//	    { NULL }
//	};
//
// Entries that share a storage offset with an earlier entry are aliases and
// are dropped. Named constants of flags options are dropped as well.
type OptionExtractor struct {
	conv Convention
}

// NewOptionExtractor creates an extractor for the given convention.
func NewOptionExtractor(conv Convention) *OptionExtractor {
	return &OptionExtractor{conv: conv}
}

// Extract returns the options of the filter named filterName. found reports
// whether an option table was declared at all; a filter without one has an
// empty, non-nil option list.
func (x *OptionExtractor) Extract(tu *cast.TranslationUnit, filterName string) (opts []FilterOption, found bool, warnings []Warning) {
	opts = []FilterOption{}
	table := x.findTable(tu, filterName+x.conv.OptionsSuffix)
	if table == nil {
		return opts, false, nil
	}
	list := table.Init.(*cast.InitList)

	e := &entryReader{
		conv:    x.conv,
		file:    tu.File,
		filter:  filterName,
		offsets: make(map[string]bool),
		names:   make(map[string]string),
	}
	for _, el := range list.Elems {
		if d, ok := el.(*cast.Designated); ok {
			el = d.Value
		}
		entry, ok := el.(*cast.InitList)
		if !ok {
			e.warn("", el.Position(), "entry is not an initializer list: "+cast.Text(el))
			continue
		}
		if len(entry.Positional()) == 1 {
			break // { NULL } terminator
		}
		if opt, ok := e.read(entry); ok {
			opts = append(opts, opt)
		}
	}
	return opts, true, e.warnings
}

func (x *OptionExtractor) findTable(tu *cast.TranslationUnit, name string) *cast.Decl {
	var table *cast.Decl
	cast.Walk(tu, func(n cast.Node) bool {
		switch n := n.(type) {
		case *cast.TranslationUnit:
			return table == nil
		case *cast.Decl:
			if table != nil || n.Name != name || n.Kind != cast.ArrayDeclarator || n.TypeName != x.conv.OptionType {
				return false
			}
			if _, ok := n.Init.(*cast.InitList); ok {
				table = n
			}
			return false
		default:
			return false
		}
	})
	return table
}

// entryReader holds the dedup state of one option table.
type entryReader struct {
	conv     Convention
	file     string
	filter   string
	offsets  map[string]bool
	names    map[string]string // option name -> offset
	warnings []Warning
}

func (e *entryReader) read(entry *cast.InitList) (FilterOption, bool) {
	args := entry.Positional()
	if len(args) < 4 {
		e.warn("", entry.Pos, fmt.Sprintf("entry has %d fields, want at least 4", len(args)))
		return FilterOption{}, false
	}

	name, ok := stringValue(args[0])
	if !ok || name == "" {
		e.warn("", entry.Pos, "option name is not a string literal: "+cast.Text(args[0]))
		return FilterOption{}, false
	}
	desc, ok := stringValue(args[1])
	if !ok {
		if !isNull(args[1]) {
			e.warn(name, entry.Pos, "description is not a string literal: "+cast.Text(args[1]))
			return FilterOption{}, false
		}
		desc = ""
	}
	offset, ok := offsetToken(args[2])
	if !ok {
		e.warn(name, entry.Pos, "unresolvable offset: "+cast.Text(args[2]))
		offset = unresolvedOffset
	}
	typ, ok := typeTag(args[3])
	if !ok {
		e.warn(name, entry.Pos, "type tag is not an identifier: "+cast.Text(args[3]))
		return FilterOption{}, false
	}

	if e.offsets[offset] {
		return FilterOption{}, false // alias
	}
	e.offsets[offset] = true

	if typ == e.conv.ConstTag {
		return FilterOption{}, false
	}

	if prev, dup := e.names[name]; dup {
		e.warn(name, entry.Pos, fmt.Sprintf("duplicate option name (offsets %s and %s)", prev, offset))
		return FilterOption{}, false
	}
	e.names[name] = offset

	opt := FilterOption{
		Name:        name,
		Type:        typ,
		Description: desc,
		Offset:      offset,
	}
	if len(args) > 4 {
		opt.Default = defaultText(args[4])
	}
	return opt, true
}

func (e *entryReader) warn(option string, pos cast.Pos, reason string) {
	e.warnings = append(e.warnings, Warning{
		File:   e.file,
		Filter: e.filter,
		Option: option,
		Reason: reason,
		Pos:    pos,
	})
}
