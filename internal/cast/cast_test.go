package cast

import "testing"

func TestStringLitUnquoted(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`"flip"`, "flip"},
		{`""`, ""},
		{`"a\"b"`, `a\"b`},
		{`x`, "x"},
	}
	for _, tt := range tests {
		got := (&StringLit{Text: tt.text}).Unquoted()
		if got != tt.want {
			t.Errorf("Unquoted(%s) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDesignatedLabel(t *testing.T) {
	d := &Designated{Path: []string{"p", "name"}}
	if d.Label() != "name" {
		t.Errorf("Label() = %q, want name", d.Label())
	}
	if (&Designated{}).Label() != "" {
		t.Error("empty path should have empty label")
	}
}

func TestStrip(t *testing.T) {
	inner := &Call{Func: &Ident{Name: "offsetof"}}
	e := &Cast{Type: "size_t", X: &Cast{Type: "int", X: inner}}
	if Strip(e) != inner {
		t.Errorf("Strip did not remove nested casts: %T", Strip(e))
	}
	if Strip(inner) != inner {
		t.Error("Strip changed a non-cast expression")
	}
}

func TestText(t *testing.T) {
	e := &InitList{Elems: []Expr{
		&StringLit{Text: `"mode"`},
		&Call{Func: &Ident{Name: "OFFSET"}, Args: []Expr{&Ident{Name: "mode"}}},
		&Designated{Path: []string{"i64"}, Value: &NumberLit{Text: "0"}},
		&Offsetof{Type: "Ctx", Member: "m"},
	}}
	want := `{"mode", OFFSET(mode), .i64 = 0, offsetof(Ctx, m)}`
	if got := Text(e); got != want {
		t.Errorf("Text = %s, want %s", got, want)
	}
}

func TestWalk(t *testing.T) {
	tu := &TranslationUnit{Decls: []*Decl{
		{Name: "a", Init: &InitList{Elems: []Expr{&NumberLit{Text: "1"}, &Ident{Name: "x"}}}},
		{Name: "b"},
	}}

	var count int
	Walk(tu, func(n Node) bool {
		count++
		return true
	})
	// tu, a, list, 1, x, b
	if count != 6 {
		t.Errorf("visited %d nodes, want 6", count)
	}

	count = 0
	Walk(tu, func(n Node) bool {
		count++
		_, isDecl := n.(*Decl)
		return !isDecl
	})
	if count != 3 {
		t.Errorf("visited %d nodes with pruning, want 3", count)
	}
}
