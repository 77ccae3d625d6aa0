package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the ffscan configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the ffscan configuration directory
const ConfigDirName = ".ffscan"

// Config holds all ffscan configuration
type Config struct {
	Source       SourceConfig     `yaml:"source" toml:"source"`
	Convention   ConventionConfig `yaml:"convention" toml:"convention"`
	Preprocess   PreprocessConfig `yaml:"preprocess" toml:"preprocess"`
	Registration ModuleConfig     `yaml:"registration" toml:"registration"`
	Filters      ModuleConfig     `yaml:"filters" toml:"filters"`
	Parse        ParseConfig      `yaml:"parse" toml:"parse"`
	Batch        BatchConfig      `yaml:"batch" toml:"batch"`
	Prepare      PrepareConfig    `yaml:"prepare" toml:"prepare"`
	Storage      StorageConfig    `yaml:"storage" toml:"storage"`
	Output       OutputConfig     `yaml:"output" toml:"output"`
}

// SourceConfig locates the filter sources
type SourceConfig struct {
	Root         string   `yaml:"root" toml:"root"`
	Registration string   `yaml:"registration" toml:"registration"`
	FilterDir    string   `yaml:"filter_dir" toml:"filter_dir"`
	Extension    string   `yaml:"extension" toml:"extension"`
	Exclude      []string `yaml:"exclude" toml:"exclude"`
}

// ConventionConfig names the declarations of the plugin convention
type ConventionConfig struct {
	BaseType       string `yaml:"base_type" toml:"base_type"`
	OptionType     string `yaml:"option_type" toml:"option_type"`
	InstancePrefix string `yaml:"instance_prefix" toml:"instance_prefix"`
	OptionsSuffix  string `yaml:"options_suffix" toml:"options_suffix"`
	ConstTag       string `yaml:"const_tag" toml:"const_tag"`
	// Marker is the pre-filter substring
	Marker string `yaml:"marker" toml:"marker"`
}

// PreprocessConfig configures the external preprocessor
type PreprocessConfig struct {
	// Enabled is a pointer so an explicit false survives the merge
	Enabled *bool         `yaml:"enabled" toml:"enabled"`
	Command string        `yaml:"command" toml:"command"`
	Args    []string      `yaml:"args" toml:"args"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// IsEnabled reports whether files are preprocessed before parsing
func (p PreprocessConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// ModuleConfig is the per-module preprocessor configuration
type ModuleConfig struct {
	IncludePaths  []string          `yaml:"include_paths" toml:"include_paths"`
	Defines       map[string]string `yaml:"defines" toml:"defines"`
	ExtraIncludes []string          `yaml:"extra_includes" toml:"extra_includes"`
}

// ParseConfig holds parser settings
type ParseConfig struct {
	Strict *bool `yaml:"strict" toml:"strict"`
}

// IsStrict reports whether trees with error nodes are rejected
func (p ParseConfig) IsStrict() bool {
	return p.Strict == nil || *p.Strict
}

// BatchConfig holds worker pool settings
type BatchConfig struct {
	// Jobs is the worker count; 0 uses GOMAXPROCS
	Jobs int `yaml:"jobs" toml:"jobs"`
}

// PrepareConfig holds the optional source tree configure step
type PrepareConfig struct {
	Configure bool   `yaml:"configure" toml:"configure"`
	Command   string `yaml:"command" toml:"command"`
	Sentinel  string `yaml:"sentinel" toml:"sentinel"`
}

// StorageConfig holds catalog settings
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
}

// OutputConfig holds result document settings
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"`
	// Path is the document destination; empty writes to stdout
	Path string `yaml:"path" toml:"path"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .ffscan/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if tomlPath := filepath.Join(configDir, "config.toml"); fileExists(tomlPath) {
			configPath = tomlPath
		}
	}
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path. A .toml extension is
// decoded as TOML, anything else as YAML.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, loaded); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .ffscan directory by walking up from startDir.
// Returns the path to the .ffscan directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .ffscan directory if it doesn't exist.
// Returns the path to the .ffscan directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	if !isOneOf(cfg.Output.Format, ValidFormats) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}

	if !isOneOf(cfg.Storage.Backend, ValidBackends) {
		return fmt.Errorf("%w: storage.backend must be one of %v, got %q",
			ErrInvalidConfig, ValidBackends, cfg.Storage.Backend)
	}

	conv := map[string]string{
		"base_type":       cfg.Convention.BaseType,
		"option_type":     cfg.Convention.OptionType,
		"instance_prefix": cfg.Convention.InstancePrefix,
		"options_suffix":  cfg.Convention.OptionsSuffix,
		"const_tag":       cfg.Convention.ConstTag,
		"marker":          cfg.Convention.Marker,
	}
	for _, key := range []string{"base_type", "option_type", "instance_prefix", "options_suffix", "const_tag", "marker"} {
		if strings.TrimSpace(conv[key]) == "" {
			return fmt.Errorf("%w: convention.%s must not be empty", ErrInvalidConfig, key)
		}
	}

	if cfg.Preprocess.Timeout <= 0 {
		return fmt.Errorf("%w: preprocess.timeout must be positive, got %s",
			ErrInvalidConfig, cfg.Preprocess.Timeout)
	}

	if cfg.Batch.Jobs < 0 {
		return fmt.Errorf("%w: batch.jobs must be non-negative, got %d",
			ErrInvalidConfig, cfg.Batch.Jobs)
	}

	for _, pattern := range cfg.Source.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: source.exclude pattern %q: %v", ErrInvalidConfig, pattern, err)
		}
	}

	if cfg.Prepare.Configure && strings.TrimSpace(cfg.Prepare.Command) == "" {
		return fmt.Errorf("%w: prepare.command must be set when prepare.configure is true", ErrInvalidConfig)
	}

	return nil
}

// SaveDefault writes the default configuration to .ffscan/config.yaml in workDir.
// Creates the .ffscan directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# ffscan configuration\n# Paths are relative to source.root.\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
