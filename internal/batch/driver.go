// Package batch runs the extraction pipeline over a filter source tree.
//
// The driver enumerates implementation files, skips the ones that never
// mention the plugin base type, parses the rest through a parser.Provider
// and runs the Locator and the OptionExtractor per file. A file that fails
// to parse is recorded as a ParseFailure; only precondition failures abort
// a run.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zprp/ffscan/internal/cast"
	"github.com/zprp/ffscan/internal/ctxlog"
	"github.com/zprp/ffscan/internal/extract"
	"github.com/zprp/ffscan/internal/parser"
)

// ErrSourceRoot is returned when the source root or the filter directory
// does not exist.
var ErrSourceRoot = errors.New("source root not usable")

// Module is the preprocessor configuration of one kind of module. File is
// filled in per file.
type Module struct {
	IncludePaths  []string
	Defines       map[string]string
	ExtraIncludes []string
}

func (m Module) request(file string) parser.Request {
	return parser.Request{
		File:          file,
		IncludePaths:  m.IncludePaths,
		Defines:       m.Defines,
		ExtraIncludes: m.ExtraIncludes,
	}
}

// Options configures a Driver.
type Options struct {
	// Root is the source tree root. Every other path is relative to it.
	Root string
	// Registration is the module declaring every registered filter. Empty
	// disables the registration scan.
	Registration string
	// FilterDir holds the implementation files. It is not searched
	// recursively.
	FilterDir string
	// Extension selects implementation files (".c").
	Extension string
	// Exclude holds glob patterns matched against file base names.
	Exclude []string
	// Marker is the substring a file must contain to be parsed.
	Marker string

	Convention extract.Convention

	RegistrationModule Module
	FilterModule       Module

	// Jobs bounds the worker pool; 0 means GOMAXPROCS.
	Jobs int
	// FileTimeout bounds parsing of one file; 0 means no limit.
	FileTimeout time.Duration

	// Prepare, when set, runs before any file is processed.
	Prepare *Prepare

	// Progress is called after each candidate file, from worker goroutines.
	Progress func(done, total int)
}

// Result is the outcome of one run.
type Result struct {
	Filters  []extract.Filter
	Failures []extract.ParseFailure
	Warnings []extract.Warning

	// Registered is the registration scan output.
	Registered []string
	Coverage   Coverage

	// Files counts the candidate files, Skipped the ones the marker
	// pre-filter rejected.
	Files   int
	Skipped int
}

// OptionCount returns the number of options over all filters.
func (r *Result) OptionCount() int {
	n := 0
	for _, f := range r.Filters {
		n += len(f.Options)
	}
	return n
}

// Driver runs the pipeline. A Driver may be reused for several runs.
type Driver struct {
	provider parser.Provider
	opts     Options
}

// New creates a driver.
func New(provider parser.Provider, opts Options) *Driver {
	if opts.Extension == "" {
		opts.Extension = ".c"
	}
	if opts.Convention == (extract.Convention{}) {
		opts.Convention = extract.DefaultConvention()
	}
	if opts.Marker == "" {
		opts.Marker = opts.Convention.BaseType + " "
	}
	return &Driver{provider: provider, opts: opts}
}

// fileResult is filled in by exactly one worker.
type fileResult struct {
	skipped  bool
	filters  []extract.Filter
	failure  *extract.ParseFailure
	warnings []extract.Warning
}

// Run processes the source tree. The returned error is nil unless a
// precondition failed or ctx was cancelled.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := d.checkRoot(); err != nil {
		return nil, err
	}
	if d.opts.Prepare != nil {
		if err := d.opts.Prepare.Run(ctx, d.opts.Root); err != nil {
			return nil, err
		}
	}

	files, err := d.listFiles()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Filters:  []extract.Filter{},
		Failures: []extract.ParseFailure{},
		Files:    len(files),
	}
	res.Registered = d.scanRegistration(ctx)

	logger.Info("scanning filter sources", "dir", d.opts.FilterDir, "files", len(files))

	results := make([]fileResult, len(files))
	if len(files) > 0 {
		jobs := d.opts.Jobs
		if jobs <= 0 {
			jobs = runtime.GOMAXPROCS(0)
		}

		var done atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(files)))

		for i, file := range files {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				// index i is owned by this goroutine
				results[i] = d.processFile(gctx, file)
				if d.opts.Progress != nil {
					d.opts.Progress(int(done.Add(1)), len(files))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.skipped {
			res.Skipped++
			continue
		}
		res.Filters = append(res.Filters, r.filters...)
		res.Warnings = append(res.Warnings, r.warnings...)
		if r.failure != nil {
			res.Failures = append(res.Failures, *r.failure)
		}
	}
	res.Coverage = ComputeCoverage(d.opts.Convention, res.Registered, res.Filters)

	logger.Info("scan finished",
		"filters", len(res.Filters),
		"options", res.OptionCount(),
		"skipped", res.Skipped,
		"failures", len(res.Failures),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func (d *Driver) checkRoot() error {
	for _, dir := range []string{d.opts.Root, filepath.Join(d.opts.Root, d.opts.FilterDir)} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceRoot, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrSourceRoot, dir)
		}
	}
	return nil
}

// listFiles returns the candidate files relative to Root, sorted.
func (d *Driver) listFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.opts.Root, d.opts.FilterDir))
	if err != nil {
		return nil, fmt.Errorf("list filter dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), d.opts.Extension) {
			continue
		}
		excluded, err := d.excluded(e.Name())
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		files = append(files, filepath.ToSlash(filepath.Join(d.opts.FilterDir, e.Name())))
	}
	sort.Strings(files)
	return files, nil
}

func (d *Driver) excluded(name string) (bool, error) {
	for _, pattern := range d.opts.Exclude {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ErrNoRegistration is returned by Registered when no registration module
// is configured.
var ErrNoRegistration = errors.New("no registration module configured")

// Registered parses the registration module and returns the registered
// identifiers in declaration order.
func (d *Driver) Registered(ctx context.Context) ([]string, error) {
	if err := d.checkRoot(); err != nil {
		return nil, err
	}
	if d.opts.Registration == "" {
		return nil, ErrNoRegistration
	}
	tu, err := d.parse(ctx, d.opts.RegistrationModule.request(d.opts.Registration))
	if err != nil {
		return nil, err
	}
	return extract.NewScanner(d.opts.Convention).Scan(tu), nil
}

// scanRegistration runs the Scanner for Run. Its output is advisory, so a
// failure is logged and yields an empty list.
func (d *Driver) scanRegistration(ctx context.Context) []string {
	if d.opts.Registration == "" {
		return []string{}
	}
	logger := ctxlog.FromContext(ctx)

	tu, err := d.parse(ctx, d.opts.RegistrationModule.request(d.opts.Registration))
	if err != nil {
		logger.Warn("registration module not parsed", "file", d.opts.Registration,
			"kind", extract.ClassifyFailure(err), "error", err)
		return []string{}
	}
	ids := extract.NewScanner(d.opts.Convention).Scan(tu)
	logger.Debug("registration scanned", "file", d.opts.Registration, "registered", len(ids))
	return ids
}

func (d *Driver) parse(ctx context.Context, req parser.Request) (*cast.TranslationUnit, error) {
	if d.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.FileTimeout)
		defer cancel()
	}
	return d.provider.Parse(ctx, req)
}

func (d *Driver) processFile(ctx context.Context, file string) fileResult {
	logger := ctxlog.FromContext(ctx).With("file", file)

	data, err := os.ReadFile(filepath.Join(d.opts.Root, file))
	if err != nil {
		f := extract.NewParseFailure(file, &parser.FileReadError{Path: file, Err: err})
		logger.Warn("file not read", "kind", f.Kind, "error", err)
		return fileResult{failure: &f}
	}
	if !bytes.Contains(data, []byte(d.opts.Marker)) {
		logger.Debug("skipped, no marker")
		return fileResult{skipped: true}
	}

	tu, err := d.parse(ctx, d.opts.FilterModule.request(file))
	if err != nil {
		f := extract.NewParseFailure(file, err)
		logger.Warn("parse failed", "kind", f.Kind, "error", err)
		return fileResult{failure: &f}
	}

	var r fileResult
	defs, warnings := extract.NewLocator(d.opts.Convention).Locate(tu)
	r.warnings = append(r.warnings, warnings...)
	if len(defs) == 0 {
		r.warnings = append(r.warnings, extract.Warning{File: file, Reason: "empty filter file"})
	}

	ox := extract.NewOptionExtractor(d.opts.Convention)
	for _, def := range defs {
		opts, found, warnings := ox.Extract(tu, def.Name)
		r.warnings = append(r.warnings, warnings...)
		if !found {
			logger.Debug("no option table", "filter", def.Name)
		}
		r.filters = append(r.filters, extract.Filter{
			Name:        def.Name,
			Description: def.Description,
			Options:     opts,
			Ident:       def.Ident,
			File:        file,
		})
	}

	for _, w := range r.warnings {
		logger.Warn("extraction warning", "filter", w.Filter, "option", w.Option, "line", w.Pos.Line, "reason", w.Reason)
	}
	return r
}
