package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FilterChange is one filter row that differs between two commits.
type FilterChange struct {
	DiffType string `yaml:"diff_type" json:"diff_type"` // "added", "modified", "removed"
	Name     string `yaml:"name" json:"name"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
}

// FilterDiff groups the changes between two refs.
type FilterDiff struct {
	FromRef  string         `yaml:"from" json:"from"`
	ToRef    string         `yaml:"to" json:"to"`
	Added    []FilterChange `yaml:"added" json:"added"`
	Modified []FilterChange `yaml:"modified" json:"modified"`
	Removed  []FilterChange `yaml:"removed" json:"removed"`
}

// Total returns the number of changed filters.
func (d *FilterDiff) Total() int {
	return len(d.Added) + len(d.Modified) + len(d.Removed)
}

// Changes compares the filters and their options between two Dolt refs.
// A filter whose options changed is reported as modified. Empty refs
// default to HEAD~1 and HEAD. Missing history yields an empty diff.
func (c *Catalog) Changes(ctx context.Context, fromRef, toRef string) (*FilterDiff, error) {
	if c.backend != BackendDolt {
		return nil, fmt.Errorf("history: %w", ErrUnsupported)
	}
	if fromRef == "" {
		fromRef = "HEAD~1"
	}
	if toRef == "" {
		toRef = "HEAD"
	}
	if !isValidRef(fromRef) || !isValidRef(toRef) {
		return nil, fmt.Errorf("invalid ref format")
	}

	diff := &FilterDiff{
		FromRef:  fromRef,
		ToRef:    toRef,
		Added:    []FilterChange{},
		Modified: []FilterChange{},
		Removed:  []FilterChange{},
	}

	if strings.HasPrefix(fromRef, "HEAD~") {
		count, err := c.commitCount(ctx)
		if err != nil {
			return diff, nil
		}
		var n int
		if _, err := fmt.Sscanf(fromRef, "HEAD~%d", &n); err == nil && count <= n {
			return diff, nil
		}
	}

	// DOLT_DIFF does not take bind variables; refs are validated above.
	filterRows := fmt.Sprintf(`
		SELECT diff_type, COALESCE(to_name, from_name), COALESCE(to_file, from_file, '')
		FROM DOLT_DIFF('%s', '%s', 'filters')`, fromRef, toRef)
	optionRows := fmt.Sprintf(`
		SELECT DISTINCT COALESCE(to_filter_name, from_filter_name)
		FROM DOLT_DIFF('%s', '%s', 'filter_options')`, fromRef, toRef)

	changed := make(map[string]FilterChange)
	if err := c.collectDiff(ctx, filterRows, func(vals []string) {
		changed[vals[1]] = FilterChange{DiffType: vals[0], Name: vals[1], File: vals[2]}
	}, 3); err != nil {
		return noHistory(diff, err)
	}
	if err := c.collectDiff(ctx, optionRows, func(vals []string) {
		if _, ok := changed[vals[0]]; !ok {
			changed[vals[0]] = FilterChange{DiffType: "modified", Name: vals[0]}
		}
	}, 1); err != nil {
		return noHistory(diff, err)
	}

	for _, ch := range sortedChanges(changed) {
		switch ch.DiffType {
		case "added":
			diff.Added = append(diff.Added, ch)
		case "removed":
			diff.Removed = append(diff.Removed, ch)
		default:
			diff.Modified = append(diff.Modified, ch)
		}
	}
	return diff, nil
}

func (c *Catalog) collectDiff(ctx context.Context, query string, fn func([]string), n int) error {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		vals := make([]string, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan diff row: %w", err)
		}
		fn(vals)
	}
	return rows.Err()
}

// noHistory turns "ref does not exist" errors of a young repository into an
// empty diff.
func noHistory(diff *FilterDiff, err error) (*FilterDiff, error) {
	msg := err.Error()
	if strings.Contains(msg, "cannot resolve") ||
		strings.Contains(msg, "no such commit") ||
		strings.Contains(msg, "invalid ancestor spec") {
		return diff, nil
	}
	return nil, fmt.Errorf("dolt diff query: %w", err)
}

func (c *Catalog) commitCount(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dolt_log").Scan(&count)
	return count, err
}

// isValidRef checks if a ref string is safe to use in a query.
// Refs can contain alphanumeric, _, -, ., /, ~, and ^ characters.
func isValidRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, c := range ref {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_' || c == '-' ||
			c == '.' || c == '/' || c == '~' || c == '^') {
			return false
		}
	}
	return true
}

func sortedChanges(m map[string]FilterChange) []FilterChange {
	out := make([]FilterChange, 0, len(m))
	for _, ch := range m {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
