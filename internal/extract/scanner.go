package extract

import (
	"strings"

	"github.com/zprp/ffscan/internal/cast"
)

// Scanner collects the plugin identifiers declared by the registration
// module, such as `extern const AVFilter ff_vf_flip;`.
type Scanner struct {
	conv Convention
	seen map[string]bool
	ids  []string
}

// NewScanner creates a scanner for the given convention.
func NewScanner(conv Convention) *Scanner {
	return &Scanner{conv: conv}
}

// Scan returns the declared identifiers in source order without duplicates.
// A tree with no matching declaration yields an empty slice.
func (s *Scanner) Scan(tu *cast.TranslationUnit) []string {
	s.seen = make(map[string]bool)
	s.ids = []string{}

	cast.Walk(tu, s.visit)
	return s.ids
}

func (s *Scanner) visit(n cast.Node) bool {
	switch n := n.(type) {
	case *cast.TranslationUnit:
		return true
	case *cast.Decl:
		if s.matches(n) && !s.seen[n.Name] {
			s.seen[n.Name] = true
			s.ids = append(s.ids, n.Name)
		}
		return false
	default:
		return false
	}
}

// matches accepts object, pointer and array declarators of the base type.
// Function prototypes are not plugin objects.
func (s *Scanner) matches(d *cast.Decl) bool {
	if d.IsTypedef() || d.Kind == cast.FunctionDeclarator {
		return false
	}
	if !strings.Contains(d.Name, s.conv.InstancePrefix) {
		return false
	}
	return d.TypeName == s.conv.BaseType
}
