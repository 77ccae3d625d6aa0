package config

import "time"

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
//
// The preprocessor settings reproduce the flags the FFmpeg tree needs:
// fake libc headers, the configured tree root and macros that hide
// GCC attributes and keywords from the parser.
func DefaultConfig() *Config {
	enabled, strict := true, true
	return &Config{
		Source: SourceConfig{
			Root:         ".",
			Registration: "libavfilter/allfilters.c",
			FilterDir:    "libavfilter",
			Extension:    ".c",
			Exclude:      []string{},
		},
		Convention: ConventionConfig{
			BaseType:       "AVFilter",
			OptionType:     "AVOption",
			InstancePrefix: "ff_",
			OptionsSuffix:  "_options",
			ConstTag:       "AV_OPT_TYPE_CONST",
			Marker:         "AVFilter ",
		},
		Preprocess: PreprocessConfig{
			Enabled: &enabled,
			Command: "cpp",
			Args:    []string{"-P"},
			Timeout: 30 * time.Second,
		},
		Registration: ModuleConfig{
			IncludePaths: []string{".", "fake_libc_include"},
			Defines: map[string]string{
				"__attribute__(x)": "",
				"__restrict":       "",
			},
			ExtraIncludes: []string{},
		},
		Filters: ModuleConfig{
			IncludePaths: []string{"ffmpeg_patches", "fake_libc_include", "."},
			Defines: map[string]string{
				"__attribute__(x)": "",
				"__THROW":          "",
				"__END_DECLS":      "",
				"__inline":         "",
				"__extension__":    "",
				"__asm__(...)":     "",
			},
			ExtraIncludes: []string{"libavfilter/avfilter.h"},
		},
		Parse: ParseConfig{
			Strict: &strict,
		},
		Batch: BatchConfig{
			Jobs: 0,
		},
		Prepare: PrepareConfig{
			Configure: false,
			Command:   "./configure --disable-x86asm",
			Sentinel:  "libavutil/avconfig.h",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    ConfigDirName,
		},
		Output: OutputConfig{
			Format: "yaml",
			Path:   "",
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	result.Source = mergeSourceConfig(loaded.Source, defaults.Source)
	result.Convention = mergeConventionConfig(loaded.Convention, defaults.Convention)
	result.Preprocess = mergePreprocessConfig(loaded.Preprocess, defaults.Preprocess)
	result.Registration = mergeModuleConfig(loaded.Registration, defaults.Registration)
	result.Filters = mergeModuleConfig(loaded.Filters, defaults.Filters)

	result.Parse = defaults.Parse
	if loaded.Parse.Strict != nil {
		result.Parse.Strict = loaded.Parse.Strict
	}

	// Jobs: zero already means "use the default"
	result.Batch = loaded.Batch

	result.Prepare = PrepareConfig{
		Configure: loaded.Prepare.Configure,
		Command:   pick(loaded.Prepare.Command, defaults.Prepare.Command),
		Sentinel:  pick(loaded.Prepare.Sentinel, defaults.Prepare.Sentinel),
	}

	result.Storage = StorageConfig{
		Backend: pick(loaded.Storage.Backend, defaults.Storage.Backend),
		Path:    pick(loaded.Storage.Path, defaults.Storage.Path),
	}

	result.Output = OutputConfig{
		Format: pick(loaded.Output.Format, defaults.Output.Format),
		Path:   loaded.Output.Path,
	}

	return result
}

func mergeSourceConfig(loaded, defaults SourceConfig) SourceConfig {
	result := SourceConfig{
		Root:         pick(loaded.Root, defaults.Root),
		Registration: pick(loaded.Registration, defaults.Registration),
		FilterDir:    pick(loaded.FilterDir, defaults.FilterDir),
		Extension:    pick(loaded.Extension, defaults.Extension),
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}
	return result
}

func mergeConventionConfig(loaded, defaults ConventionConfig) ConventionConfig {
	return ConventionConfig{
		BaseType:       pick(loaded.BaseType, defaults.BaseType),
		OptionType:     pick(loaded.OptionType, defaults.OptionType),
		InstancePrefix: pick(loaded.InstancePrefix, defaults.InstancePrefix),
		OptionsSuffix:  pick(loaded.OptionsSuffix, defaults.OptionsSuffix),
		ConstTag:       pick(loaded.ConstTag, defaults.ConstTag),
		Marker:         pick(loaded.Marker, defaults.Marker),
	}
}

func mergePreprocessConfig(loaded, defaults PreprocessConfig) PreprocessConfig {
	result := PreprocessConfig{
		Enabled: defaults.Enabled,
		Command: pick(loaded.Command, defaults.Command),
		Args:    defaults.Args,
		Timeout: defaults.Timeout,
	}
	if loaded.Enabled != nil {
		result.Enabled = loaded.Enabled
	}
	if loaded.Args != nil {
		result.Args = loaded.Args
	}
	if loaded.Timeout != 0 {
		result.Timeout = loaded.Timeout
	}
	return result
}

// mergeModuleConfig replaces each list or the define set as a whole. An
// explicitly empty list in the file clears the default.
func mergeModuleConfig(loaded, defaults ModuleConfig) ModuleConfig {
	result := defaults
	if loaded.IncludePaths != nil {
		result.IncludePaths = loaded.IncludePaths
	}
	if loaded.Defines != nil {
		result.Defines = loaded.Defines
	}
	if loaded.ExtraIncludes != nil {
		result.ExtraIncludes = loaded.ExtraIncludes
	}
	return result
}

func pick(loaded, def string) string {
	if loaded != "" {
		return loaded
	}
	return def
}

// ValidFormats lists the valid values for output.format
var ValidFormats = []string{"yaml", "json", "msgpack"}

// ValidBackends lists the valid values for storage.backend
var ValidBackends = []string{"sqlite", "dolt"}

func isOneOf(value string, valid []string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
