// Package cast defines the read-only C syntax tree the extractors walk.
//
// The tree is a closed set of node variants lowered from a tree-sitter parse.
// Only the shapes used by plugin registration code are modelled precisely;
// every other expression is kept as Raw so that nothing is silently dropped.
package cast

import "strings"

// Pos is a 1-based source position.
type Pos struct {
	Line   uint32
	Column uint32
}

// TranslationUnit is the root of one parsed file.
type TranslationUnit struct {
	File  string
	Decls []*Decl
}

// DeclaratorKind tells what a declarator wraps around its identifier.
type DeclaratorKind int

const (
	// ObjectDeclarator is a plain identifier: `T name`.
	ObjectDeclarator DeclaratorKind = iota
	// ArrayDeclarator is `T name[...]`.
	ArrayDeclarator
	// PointerDeclarator is `T *name`.
	PointerDeclarator
	// FunctionDeclarator is `T name(...)`.
	FunctionDeclarator
)

// String returns the declarator kind name.
func (k DeclaratorKind) String() string {
	switch k {
	case ObjectDeclarator:
		return "object"
	case ArrayDeclarator:
		return "array"
	case PointerDeclarator:
		return "pointer"
	case FunctionDeclarator:
		return "function"
	default:
		return "unknown"
	}
}

// Decl is one declared identifier at file scope. A declaration with several
// declarators (`int a, b;`) lowers to one Decl per declarator.
type Decl struct {
	Name       string
	TypeName   string
	Storage    []string // static, extern, ...
	Qualifiers []string // const, volatile, ...
	Kind       DeclaratorKind
	ArraySize  string // raw text, empty for `[]`
	Init       Expr   // nil when the declarator has no initializer
	Pos        Pos
}

// IsTypedef reports whether the declaration is a typedef.
func (d *Decl) IsTypedef() bool {
	return hasWord(d.Storage, "typedef")
}

func hasWord(words []string, w string) bool {
	for _, s := range words {
		if s == w {
			return true
		}
	}
	return false
}

// Node is any tree node.
type Node interface {
	node()
}

// Expr is an expression or initializer node. The concrete types are
// exactly: *StringLit, *NumberLit, *Ident, *Call, *Offsetof, *Cast,
// *InitList, *Designated, *Raw.
type Expr interface {
	Node
	expr()
	Position() Pos
}

// StringLit is a string literal, with adjacent literals already joined.
// Text keeps the surrounding quote characters.
type StringLit struct {
	Text string
	Pos  Pos
}

// Unquoted strips one leading and one trailing quote character.
// Escape sequences are left as written in source.
func (s *StringLit) Unquoted() string {
	t := s.Text
	if len(t) >= 2 && t[0] == '"' && t[len(t)-1] == '"' {
		return t[1 : len(t)-1]
	}
	return strings.Trim(t, `"`)
}

// NumberLit is an integer or floating constant, kept as written.
type NumberLit struct {
	Text string
	Pos  Pos
}

// Ident is a bare identifier or field name.
type Ident struct {
	Name string
	Pos  Pos
}

// Call is a function or function-like macro call.
type Call struct {
	Func Expr
	Args []Expr
	Pos  Pos
}

// Offsetof is the dedicated `offsetof(Type, member)` form.
type Offsetof struct {
	Type   string
	Member string
	Pos    Pos
}

// Cast is `(type)expr`.
type Cast struct {
	Type string
	X    Expr
	Pos  Pos
}

// InitList is a brace-enclosed initializer. Elements keep source order;
// designated elements appear as *Designated.
type InitList struct {
	Elems []Expr
	Pos   Pos
}

// Positional returns the elements that carry no designator.
func (l *InitList) Positional() []Expr {
	var out []Expr
	for _, e := range l.Elems {
		if _, ok := e.(*Designated); !ok {
			out = append(out, e)
		}
	}
	return out
}

// Designated is `.a.b = value` or `[i] = value` inside an initializer list.
type Designated struct {
	Path  []string
	Value Expr
	Pos   Pos
}

// Label returns the last designator segment (`name` for `.p.name`).
func (d *Designated) Label() string {
	if len(d.Path) == 0 {
		return ""
	}
	return d.Path[len(d.Path)-1]
}

// Raw is any expression shape not modelled above.
type Raw struct {
	Kind string // tree-sitter node type
	Text string
	Pos  Pos
}

func (*TranslationUnit) node() {}
func (*Decl) node()            {}
func (*StringLit) node()       {}
func (*NumberLit) node()       {}
func (*Ident) node()           {}
func (*Call) node()            {}
func (*Offsetof) node()        {}
func (*Cast) node()            {}
func (*InitList) node()        {}
func (*Designated) node()      {}
func (*Raw) node()             {}

func (*StringLit) expr()  {}
func (*NumberLit) expr()  {}
func (*Ident) expr()      {}
func (*Call) expr()       {}
func (*Offsetof) expr()   {}
func (*Cast) expr()       {}
func (*InitList) expr()   {}
func (*Designated) expr() {}
func (*Raw) expr()        {}

func (e *StringLit) Position() Pos  { return e.Pos }
func (e *NumberLit) Position() Pos  { return e.Pos }
func (e *Ident) Position() Pos      { return e.Pos }
func (e *Call) Position() Pos       { return e.Pos }
func (e *Offsetof) Position() Pos   { return e.Pos }
func (e *Cast) Position() Pos       { return e.Pos }
func (e *InitList) Position() Pos   { return e.Pos }
func (e *Designated) Position() Pos { return e.Pos }
func (e *Raw) Position() Pos        { return e.Pos }
