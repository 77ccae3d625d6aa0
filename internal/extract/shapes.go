package extract

import (
	"github.com/zprp/ffscan/internal/cast"
)

// Shape predicates used by the locator and the option extractor. Each one
// either reads the value it expects or reports a mismatch; none of them
// guesses.

// stringValue reads a string literal, looking through casts and a single
// argument wrapper call such as NULL_IF_CONFIG_SMALL("...").
func stringValue(e cast.Expr) (string, bool) {
	switch e := cast.Strip(e).(type) {
	case *cast.StringLit:
		return e.Unquoted(), true
	case *cast.Call:
		if len(e.Args) == 1 {
			if lit, ok := cast.Strip(e.Args[0]).(*cast.StringLit); ok {
				return lit.Unquoted(), true
			}
		}
	}
	return "", false
}

// isNull reports whether e is the NULL pointer constant or a literal zero.
func isNull(e cast.Expr) bool {
	switch e := cast.Strip(e).(type) {
	case *cast.Ident:
		return e.Name == "NULL"
	case *cast.NumberLit:
		return e.Text == "0"
	}
	return false
}

// offsetToken reads the storage-offset expression of an option entry:
//
//	0                        -> "0"
//	offsetof(Ctx, field)     -> "field"
//	OFFSET(field)            -> "field"
//	(int)offsetof(Ctx, f.x)  -> "f.x"
func offsetToken(e cast.Expr) (string, bool) {
	switch e := cast.Strip(e).(type) {
	case *cast.NumberLit:
		return e.Text, true
	case *cast.Offsetof:
		if e.Member != "" {
			return e.Member, true
		}
	case *cast.Call:
		switch len(e.Args) {
		case 1:
			if id, ok := cast.Strip(e.Args[0]).(*cast.Ident); ok {
				return id.Name, true
			}
		case 0:
		default:
			return fieldToken(e.Args[1])
		}
	}
	return "", false
}

// fieldToken names the struct member argument of an offset macro.
func fieldToken(e cast.Expr) (string, bool) {
	switch e := cast.Strip(e).(type) {
	case *cast.Ident:
		return e.Name, true
	case *cast.Raw:
		// member paths like `opts.x` or `arr[1]`
		if e.Text != "" {
			return e.Text, true
		}
	}
	return "", false
}

// typeTag reads the symbolic type enumeration value of an option entry.
func typeTag(e cast.Expr) (string, bool) {
	if id, ok := cast.Strip(e).(*cast.Ident); ok {
		return id.Name, true
	}
	return "", false
}

// defaultText renders the default-value initializer. The common
// `{ .i64 = 1 }` form is reduced to its value.
func defaultText(e cast.Expr) string {
	if list, ok := e.(*cast.InitList); ok && len(list.Elems) == 1 {
		if d, ok := list.Elems[0].(*cast.Designated); ok {
			return cast.Text(d.Value)
		}
		return cast.Text(list.Elems[0])
	}
	return cast.Text(e)
}
