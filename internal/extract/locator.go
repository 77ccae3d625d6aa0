package extract

import (
	"github.com/zprp/ffscan/internal/cast"
)

// Definition is one located plugin object definition.
type Definition struct {
	// Ident is the C identifier of the object.
	Ident       string
	Name        string
	Description string
	Pos         cast.Pos
}

// Locator finds concrete plugin object definitions in one file:
//
//	const AVFilter ff_vf_flip = {
//	    .name        = "flip",
//	    .description = NULL_IF_CONFIG_SMALL("..."),
//	    ...
//	};
type Locator struct {
	conv     Convention
	file     string
	defs     []Definition
	warnings []Warning
}

// NewLocator creates a locator for the given convention.
func NewLocator(conv Convention) *Locator {
	return &Locator{conv: conv}
}

// Locate returns the definitions of tu in source order. A definition that
// lacks a usable name or description is left out and reported as a warning.
func (l *Locator) Locate(tu *cast.TranslationUnit) ([]Definition, []Warning) {
	l.file = tu.File
	l.defs = nil
	l.warnings = nil

	cast.Walk(tu, l.visit)
	return l.defs, l.warnings
}

func (l *Locator) visit(n cast.Node) bool {
	switch n := n.(type) {
	case *cast.TranslationUnit:
		return true
	case *cast.Decl:
		if n.IsTypedef() || n.Kind != cast.ObjectDeclarator || n.TypeName != l.conv.BaseType {
			return false
		}
		list, ok := n.Init.(*cast.InitList)
		if !ok {
			// forward declarations and externs
			return false
		}
		l.definition(n, list)
		return false
	default:
		return false
	}
}

func (l *Locator) definition(d *cast.Decl, list *cast.InitList) {
	def := Definition{Ident: d.Name, Pos: d.Pos}

	var nameField, descField *cast.Designated
	for _, el := range list.Elems {
		f, ok := el.(*cast.Designated)
		if !ok {
			continue
		}
		switch f.Label() {
		case "name":
			nameField = f
		case "description":
			descField = f
		}
	}

	if nameField == nil {
		l.warn(d, "", "definition has no name field")
		return
	}
	name, ok := stringValue(nameField.Value)
	if !ok {
		l.warn(d, "", "name is not a string literal: "+cast.Text(nameField.Value))
		return
	}
	def.Name = name

	if descField == nil {
		l.warn(d, name, "definition has no description field")
		return
	}
	desc, ok := stringValue(descField.Value)
	if !ok && !isNull(descField.Value) {
		l.warn(d, name, "description is not a string literal: "+cast.Text(descField.Value))
		return
	}
	def.Description = desc

	l.defs = append(l.defs, def)
}

func (l *Locator) warn(d *cast.Decl, filter, reason string) {
	if filter == "" {
		filter = d.Name
	}
	l.warnings = append(l.warnings, Warning{
		File:   l.file,
		Filter: filter,
		Reason: reason,
		Pos:    d.Pos,
	})
}
