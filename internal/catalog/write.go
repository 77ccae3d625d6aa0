package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zprp/ffscan/internal/ctxlog"
	"github.com/zprp/ffscan/internal/output"
)

// SaveRun replaces the catalog contents with doc in one transaction. On the
// Dolt backend the run is committed with message; an unchanged run makes no
// commit.
func (c *Catalog) SaveRun(ctx context.Context, doc *output.Document, message string) error {
	logger := ctxlog.FromContext(ctx)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range dataTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	seen := make(map[string]bool, len(doc.Filters))
	for _, f := range doc.Filters {
		if seen[f.Name] {
			logger.Warn("duplicate filter name not saved", "filter", f.Name, "file", f.File)
			continue
		}
		seen[f.Name] = true

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO filters (name, description, ident, file) VALUES (?, ?, ?, ?)",
			f.Name, f.Description, f.Ident, f.File); err != nil {
			return fmt.Errorf("insert filter %s: %w", f.Name, err)
		}
		for i, o := range f.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO filter_options (filter_name, seq, name, type_tag, description, offset_token, default_value)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				f.Name, i, o.Name, o.Type, o.Description, o.Offset, o.Default); err != nil {
				return fmt.Errorf("insert option %s.%s: %w", f.Name, o.Name, err)
			}
		}
	}

	for _, pf := range doc.Failures {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO parse_failures (file, kind, message) VALUES (?, ?, ?)",
			pf.File, string(pf.Kind), pf.Message); err != nil {
			return fmt.Errorf("insert failure %s: %w", pf.File, err)
		}
	}

	for i, id := range doc.Registered {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO registered (seq, ident) VALUES (?, ?)", i, id); err != nil {
			return fmt.Errorf("insert registered %s: %w", id, err)
		}
	}

	info := map[string]string{
		"source":   doc.Source,
		"version":  strconv.Itoa(doc.Version),
		"filters":  strconv.Itoa(len(seen)),
		"failures": strconv.Itoa(len(doc.Failures)),
	}
	for name, value := range info {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_info (name, value) VALUES (?, ?)", name, value); err != nil {
			return fmt.Errorf("insert run info %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if c.backend == BackendDolt {
		if err := c.doltCommit(ctx, message); err != nil {
			return err
		}
	}

	logger.Debug("catalog saved", "backend", c.backend, "path", c.path, "filters", len(seen))
	return nil
}

func (c *Catalog) doltCommit(ctx context.Context, message string) error {
	if message == "" {
		message = "ffscan scan"
	}
	_, err := c.db.ExecContext(ctx, "CALL DOLT_COMMIT('-Am', ?)", message)
	if err != nil {
		if strings.Contains(err.Error(), "nothing to commit") {
			return nil
		}
		return fmt.Errorf("dolt commit: %w", err)
	}
	return nil
}
