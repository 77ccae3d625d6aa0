package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/catalog"
	"github.com/zprp/ffscan/internal/config"
	"github.com/zprp/ffscan/internal/extract"
	"github.com/zprp/ffscan/internal/parser"
)

// loadConfig reads --config when given, otherwise the nearest .ffscan
// directory above the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return config.Load(cwd)
}

func conventionFrom(c config.ConventionConfig) extract.Convention {
	return extract.Convention{
		BaseType:       c.BaseType,
		OptionType:     c.OptionType,
		InstancePrefix: c.InstancePrefix,
		OptionsSuffix:  c.OptionsSuffix,
		ConstTag:       c.ConstTag,
	}
}

func moduleFrom(m config.ModuleConfig) batch.Module {
	return batch.Module{
		IncludePaths:  m.IncludePaths,
		Defines:       m.Defines,
		ExtraIncludes: m.ExtraIncludes,
	}
}

// newProvider builds the tree provider for the source root.
func newProvider(cfg *config.Config) parser.Provider {
	p := &parser.TreeProvider{
		Dir:    cfg.Source.Root,
		Strict: cfg.Parse.IsStrict(),
	}
	if cfg.Preprocess.IsEnabled() {
		p.Preprocessor = &parser.Preprocessor{
			Command: cfg.Preprocess.Command,
			Args:    cfg.Preprocess.Args,
			Dir:     cfg.Source.Root,
			Timeout: cfg.Preprocess.Timeout,
		}
	}
	return p
}

// driverOptions maps the configuration onto the batch driver.
func driverOptions(cfg *config.Config) batch.Options {
	opts := batch.Options{
		Root:               cfg.Source.Root,
		Registration:       cfg.Source.Registration,
		FilterDir:          cfg.Source.FilterDir,
		Extension:          cfg.Source.Extension,
		Exclude:            cfg.Source.Exclude,
		Marker:             cfg.Convention.Marker,
		Convention:         conventionFrom(cfg.Convention),
		RegistrationModule: moduleFrom(cfg.Registration),
		FilterModule:       moduleFrom(cfg.Filters),
		Jobs:               cfg.Batch.Jobs,
		// preprocessing and parsing of one file
		FileTimeout: 2 * cfg.Preprocess.Timeout,
	}
	if cfg.Prepare.Configure {
		opts.Prepare = batch.NewPrepare(cfg.Prepare.Command, cfg.Prepare.Sentinel)
	}
	return opts
}

// openCatalog opens the configured catalog.
func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return cat, nil
}

// openSavedCatalog opens the catalog and fails when no run was saved.
func openSavedCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := openCatalog(cfg)
	if err != nil {
		return nil, err
	}
	empty, err := cat.Empty(ctx)
	if err != nil {
		cat.Close()
		return nil, err
	}
	if empty {
		cat.Close()
		return nil, fmt.Errorf("catalog %s is empty: run 'ffscan scan --save' first", relPath(cat.Path()))
	}
	return cat, nil
}

func relPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil {
		return rel
	}
	return path
}
