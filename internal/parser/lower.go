package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zprp/ffscan/internal/cast"
)

// preprocBlocks are conditional-compilation nodes whose bodies still belong
// to file scope. They only appear when a file is parsed without running the
// preprocessor first.
var preprocBlocks = map[string]bool{
	"preproc_if":      true,
	"preproc_ifdef":   true,
	"preproc_else":    true,
	"preproc_elif":    true,
	"preproc_elifdef": true,
}

// Lower converts a tree-sitter C tree into a cast.TranslationUnit holding
// every file-scope declaration. Function bodies are not lowered.
func Lower(r *ParseResult) *cast.TranslationUnit {
	l := &lowerer{r: r}
	tu := &cast.TranslationUnit{File: r.FilePath}
	if r.Root != nil {
		l.collect(r.Root, tu)
	}
	return tu
}

type lowerer struct {
	r *ParseResult
}

func (l *lowerer) collect(n *sitter.Node, tu *cast.TranslationUnit) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch t := child.Type(); {
		case t == "declaration":
			tu.Decls = append(tu.Decls, l.declaration(child)...)
		case preprocBlocks[t]:
			l.collect(child, tu)
		case t == "linkage_specification":
			if body := child.ChildByFieldName("body"); body != nil {
				if body.Type() == "declaration" {
					tu.Decls = append(tu.Decls, l.declaration(body)...)
				} else {
					l.collect(body, tu)
				}
			}
		case t == "ERROR":
			// Tolerant parses keep going inside error regions so a single
			// unknown construct does not hide the rest of the file.
			l.collect(child, tu)
		}
	}
}

// declaration lowers one declaration node into one Decl per declarator.
func (l *lowerer) declaration(n *sitter.Node) []*cast.Decl {
	var (
		typeName   string
		storage    []string
		qualifiers []string
		declNodes  []*sitter.Node
	)

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch n.FieldNameForChild(i) {
		case "type":
			typeName = l.typeName(child)
			continue
		case "declarator":
			declNodes = append(declNodes, child)
			continue
		}
		switch child.Type() {
		case "storage_class_specifier":
			storage = append(storage, l.text(child))
		case "type_qualifier":
			qualifiers = append(qualifiers, l.text(child))
		}
	}

	decls := make([]*cast.Decl, 0, len(declNodes))
	for _, dn := range declNodes {
		d := &cast.Decl{
			TypeName:   typeName,
			Storage:    storage,
			Qualifiers: qualifiers,
			Pos:        pos(dn),
		}
		target := dn
		if dn.Type() == "init_declarator" {
			target = dn.ChildByFieldName("declarator")
			if v := dn.ChildByFieldName("value"); v != nil {
				d.Init = l.expr(v)
			}
		}
		l.declarator(target, d, true)
		if d.Name == "" {
			continue
		}
		decls = append(decls, d)
	}
	return decls
}

// declarator fills in the name and the outermost declarator kind.
func (l *lowerer) declarator(n *sitter.Node, d *cast.Decl, outer bool) {
	if n == nil {
		return
	}
	setKind := func(k cast.DeclaratorKind) {
		if outer {
			d.Kind = k
		}
	}
	switch n.Type() {
	case "identifier":
		d.Name = l.text(n)
	case "array_declarator":
		setKind(cast.ArrayDeclarator)
		if outer {
			if size := n.ChildByFieldName("size"); size != nil {
				d.ArraySize = l.text(size)
			}
		}
		l.declarator(n.ChildByFieldName("declarator"), d, false)
	case "pointer_declarator":
		setKind(cast.PointerDeclarator)
		l.declarator(n.ChildByFieldName("declarator"), d, false)
	case "function_declarator":
		setKind(cast.FunctionDeclarator)
		l.declarator(n.ChildByFieldName("declarator"), d, false)
	case "parenthesized_declarator":
		if n.NamedChildCount() > 0 {
			l.declarator(n.NamedChild(0), d, outer)
		}
	case "attributed_declarator":
		if n.NamedChildCount() > 0 {
			l.declarator(n.NamedChild(0), d, outer)
		}
	}
}

func (l *lowerer) typeName(n *sitter.Node) string {
	switch n.Type() {
	case "struct_specifier", "union_specifier", "enum_specifier":
		keyword := strings.TrimSuffix(n.Type(), "_specifier")
		if name := n.ChildByFieldName("name"); name != nil {
			return keyword + " " + l.text(name)
		}
		return keyword
	default:
		return strings.Join(strings.Fields(l.text(n)), " ")
	}
}

// expr lowers an expression or initializer node.
func (l *lowerer) expr(n *sitter.Node) cast.Expr {
	p := pos(n)
	switch n.Type() {
	case "string_literal":
		return &cast.StringLit{Text: l.text(n), Pos: p}
	case "concatenated_string":
		return l.concatenated(n)
	case "number_literal":
		return &cast.NumberLit{Text: l.text(n), Pos: p}
	case "identifier", "field_identifier", "null", "true", "false":
		return &cast.Ident{Name: l.text(n), Pos: p}
	case "call_expression":
		call := &cast.Call{Pos: p}
		if fn := n.ChildByFieldName("function"); fn != nil {
			call.Func = l.expr(fn)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for _, a := range namedChildren(args) {
				call.Args = append(call.Args, l.expr(a))
			}
		}
		return call
	case "offsetof_expression":
		off := &cast.Offsetof{Pos: p}
		if t := n.ChildByFieldName("type"); t != nil {
			off.Type = l.text(t)
		}
		if m := n.ChildByFieldName("member"); m != nil {
			off.Member = l.text(m)
		}
		return off
	case "cast_expression":
		c := &cast.Cast{Pos: p}
		if t := n.ChildByFieldName("type"); t != nil {
			c.Type = strings.Join(strings.Fields(l.text(t)), " ")
		}
		if v := n.ChildByFieldName("value"); v != nil {
			c.X = l.expr(v)
		} else {
			c.X = &cast.Raw{Kind: "missing", Pos: p}
		}
		return c
	case "parenthesized_expression":
		inner := namedChildren(n)
		if len(inner) == 1 {
			return l.expr(inner[0])
		}
	case "initializer_list":
		list := &cast.InitList{Pos: p}
		for _, el := range namedChildren(n) {
			list.Elems = append(list.Elems, l.expr(el))
		}
		return list
	case "initializer_pair":
		return l.designated(n)
	}
	return &cast.Raw{Kind: n.Type(), Text: l.text(n), Pos: p}
}

// concatenated joins adjacent literals into one literal. A literal run that
// contains anything else (a PRId64 style macro) stays Raw.
func (l *lowerer) concatenated(n *sitter.Node) cast.Expr {
	var b strings.Builder
	for _, part := range namedChildren(n) {
		if part.Type() != "string_literal" {
			return &cast.Raw{Kind: n.Type(), Text: l.text(n), Pos: pos(n)}
		}
		lit := cast.StringLit{Text: l.text(part)}
		b.WriteString(lit.Unquoted())
	}
	return &cast.StringLit{Text: `"` + b.String() + `"`, Pos: pos(n)}
}

func (l *lowerer) designated(n *sitter.Node) cast.Expr {
	d := &cast.Designated{Pos: pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "field_designator":
			for _, id := range namedChildren(child) {
				d.Path = append(d.Path, l.text(id))
			}
		case "subscript_designator", "subscript_range_designator":
			d.Path = append(d.Path, l.text(child))
		case "field_identifier":
			// GNU `name: value` designator
			d.Path = append(d.Path, l.text(child))
		}
	}
	if v := n.ChildByFieldName("value"); v != nil {
		d.Value = l.expr(v)
	} else {
		d.Value = &cast.Raw{Kind: "missing", Pos: d.Pos}
	}
	return d
}

func (l *lowerer) text(n *sitter.Node) string {
	return l.r.NodeText(n)
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func pos(n *sitter.Node) cast.Pos {
	p := n.StartPoint()
	return cast.Pos{Line: p.Row + 1, Column: p.Column + 1}
}
