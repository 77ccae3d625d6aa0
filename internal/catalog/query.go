package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/extract"
	"github.com/zprp/ffscan/internal/output"
)

// likeEscaper quotes the LIKE wildcards of a user pattern. '!' is used as the
// escape character because MySQL treats a backslash inside a string literal
// as an escape of its own.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Filters returns the filters whose name contains pattern, ordered by name.
// An empty pattern matches every filter. Options are loaded.
func (c *Catalog) Filters(ctx context.Context, pattern string) ([]extract.Filter, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT name, description, ident, file FROM filters WHERE name LIKE ? ESCAPE '!' ORDER BY name",
		"%"+likeEscaper.Replace(pattern)+"%")
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	filters := []extract.Filter{}
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", err)
	}
	rows.Close()

	for i := range filters {
		opts, err := c.options(ctx, filters[i].Name)
		if err != nil {
			return nil, err
		}
		filters[i].Options = opts
	}
	return filters, nil
}

// Filter returns one filter by exact name, or ErrNotFound.
func (c *Catalog) Filter(ctx context.Context, name string) (*extract.Filter, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT name, description, ident, file FROM filters WHERE name = ?", name)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("filter %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	f.Options, err = c.options(ctx, name)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFilter(s scanner) (extract.Filter, error) {
	var (
		f           extract.Filter
		ident, file sql.NullString
	)
	if err := s.Scan(&f.Name, &f.Description, &ident, &file); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, err
		}
		return f, fmt.Errorf("scan filter: %w", err)
	}
	f.Ident = ident.String
	f.File = file.String
	return f, nil
}

func (c *Catalog) options(ctx context.Context, filter string) ([]extract.FilterOption, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, type_tag, description, offset_token, default_value
		 FROM filter_options WHERE filter_name = ? ORDER BY seq`, filter)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	opts := []extract.FilterOption{}
	for rows.Next() {
		var (
			o           extract.FilterOption
			offset, def sql.NullString
		)
		if err := rows.Scan(&o.Name, &o.Type, &o.Description, &offset, &def); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		o.Offset = offset.String
		o.Default = def.String
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// Failures returns the recorded parse failures ordered by file.
func (c *Catalog) Failures(ctx context.Context) ([]extract.ParseFailure, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT file, kind, message FROM parse_failures ORDER BY file")
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []extract.ParseFailure{}
	for rows.Next() {
		var (
			pf   extract.ParseFailure
			kind string
			msg  sql.NullString
		)
		if err := rows.Scan(&pf.File, &kind, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		pf.Kind = extract.FailureKind(kind)
		pf.Message = msg.String
		failures = append(failures, pf)
	}
	return failures, rows.Err()
}

// Registered returns the saved registration scan in its original order.
func (c *Catalog) Registered(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT ident FROM registered ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query registered: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan registered: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Document rebuilds the saved run as a result document. conv derives the
// coverage from the saved registration scan.
func (c *Catalog) Document(ctx context.Context, conv extract.Convention) (*output.Document, error) {
	info, err := c.runInfo(ctx)
	if err != nil {
		return nil, err
	}
	filters, err := c.Filters(ctx, "")
	if err != nil {
		return nil, err
	}
	failures, err := c.Failures(ctx)
	if err != nil {
		return nil, err
	}
	registered, err := c.Registered(ctx)
	if err != nil {
		return nil, err
	}

	version, _ := strconv.Atoi(info["version"])
	if version == 0 {
		version = output.SchemaVersion
	}
	return &output.Document{
		Version:    version,
		Source:     info["source"],
		Filters:    filters,
		Failures:   failures,
		Registered: registered,
		Coverage:   batch.ComputeCoverage(conv, registered, filters),
	}, nil
}

// Empty reports whether no run has been saved yet.
func (c *Catalog) Empty(ctx context.Context) (bool, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_info").Scan(&n); err != nil {
		return false, fmt.Errorf("count run info: %w", err)
	}
	return n == 0, nil
}

func (c *Catalog) runInfo(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name, value FROM run_info")
	if err != nil {
		return nil, fmt.Errorf("query run info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan run info: %w", err)
		}
		info[name] = value
	}
	return info, rows.Err()
}
