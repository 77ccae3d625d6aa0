package cast

import "fmt"

// Walk visits n and its descendants depth-first. If fn returns false the
// children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *TranslationUnit:
		for _, d := range n.Decls {
			Walk(d, fn)
		}
	case *Decl:
		if n.Init != nil {
			Walk(n.Init, fn)
		}
	case *Call:
		Walk(n.Func, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Cast:
		Walk(n.X, fn)
	case *InitList:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *Designated:
		Walk(n.Value, fn)
	case *StringLit, *NumberLit, *Ident, *Offsetof, *Raw:
		// leaves
	default:
		panic(fmt.Sprintf("cast: unhandled node %T", n))
	}
}

// Strip removes casts around e: `(size_t)(x)` yields x.
// Parentheses are already dropped during lowering.
func Strip(e Expr) Expr {
	for {
		c, ok := e.(*Cast)
		if !ok {
			return e
		}
		e = c.X
	}
}

// Text renders e back to a compact C-like form. It is used for logging
// and for raw values such as option defaults.
func Text(e Expr) string {
	switch e := e.(type) {
	case nil:
		return ""
	case *StringLit:
		return e.Text
	case *NumberLit:
		return e.Text
	case *Ident:
		return e.Name
	case *Call:
		s := Text(e.Func) + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += Text(a)
		}
		return s + ")"
	case *Offsetof:
		return "offsetof(" + e.Type + ", " + e.Member + ")"
	case *Cast:
		return "(" + e.Type + ")" + Text(e.X)
	case *InitList:
		s := "{"
		for i, el := range e.Elems {
			if i > 0 {
				s += ", "
			}
			s += Text(el)
		}
		return s + "}"
	case *Designated:
		s := ""
		for _, p := range e.Path {
			s += "." + p
		}
		return s + " = " + Text(e.Value)
	case *Raw:
		return e.Text
	default:
		panic(fmt.Sprintf("cast: unhandled expression %T", e))
	}
}
