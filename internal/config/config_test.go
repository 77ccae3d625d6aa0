package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.Registration != "libavfilter/allfilters.c" {
		t.Errorf("expected registration libavfilter/allfilters.c, got %s", cfg.Source.Registration)
	}
	if cfg.Source.FilterDir != "libavfilter" {
		t.Errorf("expected filter_dir libavfilter, got %s", cfg.Source.FilterDir)
	}

	if cfg.Convention.Marker != "AVFilter " {
		t.Errorf("expected marker %q, got %q", "AVFilter ", cfg.Convention.Marker)
	}

	if !cfg.Preprocess.IsEnabled() {
		t.Error("expected preprocessing enabled by default")
	}
	if cfg.Preprocess.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Preprocess.Timeout)
	}

	if _, ok := cfg.Filters.Defines["__asm__(...)"]; !ok {
		t.Error("expected __asm__(...) neutralizer in filter defines")
	}
	if len(cfg.Filters.ExtraIncludes) != 1 || cfg.Filters.ExtraIncludes[0] != "libavfilter/avfilter.h" {
		t.Errorf("unexpected extra includes: %v", cfg.Filters.ExtraIncludes)
	}
	if len(cfg.Registration.Defines) != 2 {
		t.Errorf("expected 2 registration defines, got %d", len(cfg.Registration.Defines))
	}

	if !cfg.Parse.IsStrict() {
		t.Error("expected strict parsing by default")
	}

	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("expected backend sqlite, got %s", cfg.Storage.Backend)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected format yaml, got %s", cfg.Output.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid format",
			modify: func(c *Config) {
				c.Output.Format = "pickle"
			},
			wantErr: true,
		},
		{
			name: "invalid backend",
			modify: func(c *Config) {
				c.Storage.Backend = "postgres"
			},
			wantErr: true,
		},
		{
			name: "empty base type",
			modify: func(c *Config) {
				c.Convention.BaseType = " "
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			modify: func(c *Config) {
				c.Preprocess.Timeout = 0
			},
			wantErr: true,
		},
		{
			name: "negative jobs",
			modify: func(c *Config) {
				c.Batch.Jobs = -1
			},
			wantErr: true,
		},
		{
			name: "bad exclude pattern",
			modify: func(c *Config) {
				c.Source.Exclude = []string{"["}
			},
			wantErr: true,
		},
		{
			name: "configure without command",
			modify: func(c *Config) {
				c.Prepare.Configure = true
				c.Prepare.Command = ""
			},
			wantErr: true,
		},
		{
			name: "msgpack output to dolt",
			modify: func(c *Config) {
				c.Output.Format = "msgpack"
				c.Storage.Backend = "dolt"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	defaults := DefaultConfig()

	t.Run("empty loaded uses all defaults", func(t *testing.T) {
		merged := Merge(&Config{}, defaults)

		if merged.Convention.BaseType != defaults.Convention.BaseType {
			t.Errorf("expected base type %s, got %s", defaults.Convention.BaseType, merged.Convention.BaseType)
		}
		if merged.Preprocess.Timeout != defaults.Preprocess.Timeout {
			t.Errorf("expected timeout %s, got %s", defaults.Preprocess.Timeout, merged.Preprocess.Timeout)
		}
		if len(merged.Filters.IncludePaths) != len(defaults.Filters.IncludePaths) {
			t.Errorf("expected default filter include paths, got %v", merged.Filters.IncludePaths)
		}
		if err := Validate(merged); err != nil {
			t.Errorf("merged defaults invalid: %v", err)
		}
	})

	t.Run("loaded values take precedence", func(t *testing.T) {
		disabled := false
		loaded := &Config{
			Source:     SourceConfig{Root: "/src/ffmpeg"},
			Preprocess: PreprocessConfig{Enabled: &disabled, Timeout: 5 * time.Second},
			Filters:    ModuleConfig{IncludePaths: []string{}},
			Output:     OutputConfig{Format: "json"},
		}
		merged := Merge(loaded, defaults)

		if merged.Source.Root != "/src/ffmpeg" {
			t.Errorf("expected root /src/ffmpeg, got %s", merged.Source.Root)
		}
		if merged.Preprocess.IsEnabled() {
			t.Error("explicit enabled: false was lost")
		}
		if merged.Preprocess.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %s", merged.Preprocess.Timeout)
		}
		if len(merged.Filters.IncludePaths) != 0 {
			t.Errorf("explicit empty include list was replaced: %v", merged.Filters.IncludePaths)
		}
		if merged.Output.Format != "json" {
			t.Errorf("expected format json, got %s", merged.Output.Format)
		}

		// Unset values should use defaults
		if merged.Source.FilterDir != defaults.Source.FilterDir {
			t.Errorf("expected default filter dir %s, got %s", defaults.Source.FilterDir, merged.Source.FilterDir)
		}
		if merged.Preprocess.Command != "cpp" {
			t.Errorf("expected default command cpp, got %s", merged.Preprocess.Command)
		}
	})
}

func TestFindConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	// Create nested directories: tmpDir/project/subdir
	projectDir := filepath.Join(tmpDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("no config dir returns error", func(t *testing.T) {
		_, err := FindConfigDir(subDir)
		if err == nil {
			t.Error("expected error when no .ffscan directory exists")
		}
	})

	configDir := filepath.Join(projectDir, ConfigDirName)
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("finds config dir in current directory", func(t *testing.T) {
		found, err := FindConfigDir(projectDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})

	t.Run("finds config dir in parent directory", func(t *testing.T) {
		found, err := FindConfigDir(subDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	dir, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectedDir := filepath.Join(tmpDir, ConfigDirName)
	if dir != expectedDir {
		t.Errorf("expected %s, got %s", expectedDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("config directory not created: %v", err)
	}

	// Call again, should return same directory without error
	if again, err := EnsureConfigDir(tmpDir); err != nil || again != expectedDir {
		t.Errorf("second call = %s, %v", again, err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("loads valid yaml file", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		content := `
source:
  root: ../FFmpeg
  exclude:
    - "vsrc_*.c"
preprocess:
  enabled: false
  timeout: 2m
filters:
  defines:
    __inline: ""
batch:
  jobs: 3
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Source.Root != "../FFmpeg" {
			t.Errorf("expected root ../FFmpeg, got %s", cfg.Source.Root)
		}
		if len(cfg.Source.Exclude) != 1 {
			t.Errorf("expected 1 exclude pattern, got %d", len(cfg.Source.Exclude))
		}
		if cfg.Preprocess.IsEnabled() {
			t.Error("expected preprocessing disabled")
		}
		if cfg.Preprocess.Timeout != 2*time.Minute {
			t.Errorf("expected timeout 2m, got %s", cfg.Preprocess.Timeout)
		}
		if len(cfg.Filters.Defines) != 1 {
			t.Errorf("expected define set replaced, got %v", cfg.Filters.Defines)
		}
		if cfg.Batch.Jobs != 3 {
			t.Errorf("expected 3 jobs, got %d", cfg.Batch.Jobs)
		}

		// Check defaults were applied for missing values
		if cfg.Convention.OptionType != "AVOption" {
			t.Errorf("expected default option type, got %s", cfg.Convention.OptionType)
		}
		if len(cfg.Registration.IncludePaths) != 2 {
			t.Errorf("expected default registration include paths, got %v", cfg.Registration.IncludePaths)
		}
	})

	t.Run("loads valid toml file", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.toml")
		content := `
[source]
root = "/opt/ffmpeg"

[preprocess]
timeout = "10s"

[output]
format = "msgpack"
path = "filters.msgpack"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Source.Root != "/opt/ffmpeg" {
			t.Errorf("expected root /opt/ffmpeg, got %s", cfg.Source.Root)
		}
		if cfg.Preprocess.Timeout != 10*time.Second {
			t.Errorf("expected timeout 10s, got %s", cfg.Preprocess.Timeout)
		}
		if cfg.Output.Format != "msgpack" || cfg.Output.Path != "filters.msgpack" {
			t.Errorf("unexpected output config: %+v", cfg.Output)
		}
	})

	t.Run("returns defaults for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromPath(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.Output.Format != DefaultConfig().Output.Format {
			t.Errorf("expected default format, got %s", cfg.Output.Format)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadFromPath(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("returns error for invalid config values", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "bad-values.yaml")
		content := `
storage:
  backend: mongodb
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadFromPath(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("returns defaults when no config dir exists", func(t *testing.T) {
		cfg, err := Load(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.Storage.Backend != DefaultConfig().Storage.Backend {
			t.Errorf("expected default config")
		}
	})

	t.Run("loads config from .ffscan directory", func(t *testing.T) {
		configDir := filepath.Join(tmpDir, ConfigDirName)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			t.Fatal(err)
		}

		content := `
storage:
  backend: dolt
`
		configPath := filepath.Join(configDir, ConfigFileName)
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.Storage.Backend != "dolt" {
			t.Errorf("expected backend dolt, got %s", cfg.Storage.Backend)
		}
	})
}

func TestSaveDefault(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("creates default config file", func(t *testing.T) {
		configPath, err := SaveDefault(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expectedPath := filepath.Join(tmpDir, ConfigDirName, ConfigFileName)
		if configPath != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, configPath)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if cfg.Preprocess.Timeout != 30*time.Second {
			t.Errorf("saved timeout = %s, want 30s", cfg.Preprocess.Timeout)
		}
		if _, ok := cfg.Filters.Defines["__attribute__(x)"]; !ok {
			t.Error("saved config lost the attribute neutralizer")
		}
	})

	t.Run("fails if config already exists", func(t *testing.T) {
		if _, err := SaveDefault(tmpDir); err == nil {
			t.Error("expected error when config already exists")
		}
	})
}
