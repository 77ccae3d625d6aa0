package batch

import (
	"strings"

	"github.com/zprp/ffscan/internal/extract"
)

// Coverage compares the registration scan with the extracted filters.
type Coverage struct {
	Registered int      `yaml:"registered" json:"registered" msgpack:"registered"`
	Extracted  int      `yaml:"extracted" json:"extracted" msgpack:"extracted"`
	Missing    []string `yaml:"missing,omitempty" json:"missing,omitempty" msgpack:"missing,omitempty"`
}

// Ratio returns the extracted share of registered filters, or 0 when
// nothing is registered.
func (c Coverage) Ratio() float64 {
	if c.Registered == 0 {
		return 0
	}
	return float64(c.Extracted) / float64(c.Registered)
}

// RegisteredName derives the filter name from a registered identifier:
// ff_vf_scale_cuda -> scale_cuda. Identifiers without a kind segment are
// returned with the prefix removed.
func RegisteredName(conv extract.Convention, ident string) string {
	name := ident
	if i := strings.Index(name, conv.InstancePrefix); i >= 0 {
		name = name[i+len(conv.InstancePrefix):]
	}
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}

// ComputeCoverage lists registered identifiers with no extracted filter of
// the derived name. The order of registered is kept.
func ComputeCoverage(conv extract.Convention, registered []string, filters []extract.Filter) Coverage {
	have := make(map[string]bool, len(filters))
	for _, f := range filters {
		have[f.Name] = true
		if f.Ident != "" {
			have[f.Ident] = true
		}
	}

	cov := Coverage{Registered: len(registered)}
	for _, id := range registered {
		if have[id] || have[RegisteredName(conv, id)] {
			cov.Extracted++
			continue
		}
		cov.Missing = append(cov.Missing, id)
	}
	return cov
}
