// Package config layers server configuration from compiled defaults, an
// .qmlls.ini settings file, the QMLLS_BUILD_DIRS environment variable, and
// CLI flags, each layer overriding the previous.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"

	"github.com/SeleniaProject/qmlls/internal/registry"
)

// Config holds the resolved server configuration.
type Config struct {
	LogLevel       string
	BuildDirs      []string
	MaxWorkers     int
	IndexDepthBudget int
}

// Default returns the compiled-in defaults, the base layer every other
// source overrides.
func Default() Config {
	return Config{
		LogLevel:         "info",
		MaxWorkers:       4,
		IndexDepthBudget: 64,
	}
}

// LoadSettingsFile overlays path (an .qmlls.ini file) onto cfg, if path
// exists and parses.
func LoadSettingsFile(cfg Config, path string) Config {
	f, err := ini.Load(path)
	if err != nil {
		return cfg
	}

	section := f.Section("")

	if key := section.Key("buildDir"); key.String() != "" {
		cfg.BuildDirs = append(cfg.BuildDirs, key.Strings(string(os.PathListSeparator))...)
	}

	if key := section.Key("logLevel"); key.String() != "" {
		cfg.LogLevel = key.String()
	}

	return cfg
}

// LoadEnv overlays the QMLLS_BUILD_DIRS environment variable onto cfg.
func LoadEnv(cfg Config) Config {
	raw := os.Getenv(registry.BuildDirsEnvVar)
	if raw == "" {
		return cfg
	}

	cfg.BuildDirs = append(cfg.BuildDirs, splitPathList(raw)...)

	return cfg
}

func splitPathList(raw string) []string {
	sep := string(os.PathListSeparator)

	var out []string
	start := 0

	for i := 0; i < len(raw); i++ {
		if string(raw[i]) == sep {
			if i > start {
				out = append(out, raw[start:i])
			}

			start = i + 1
		}
	}

	if start < len(raw) {
		out = append(out, raw[start:])
	}

	return out
}

// ParseFlags overlays CLI flags onto cfg. args is typically os.Args[1:].
func ParseFlags(cfg Config, args []string) Config {
	fs := pflag.NewFlagSet("qmlls", pflag.ContinueOnError)

	logLevel := fs.String("log-level", cfg.LogLevel, "log verbosity (debug, info, warn, error)")
	maxWorkers := fs.Int("max-workers", cfg.MaxWorkers, "maximum concurrent request workers")
	buildDirs := fs.StringSlice("build-dir", nil, "additional build directory (repeatable)")

	_ = fs.Parse(args)

	cfg.LogLevel = *logLevel
	cfg.MaxWorkers = *maxWorkers
	cfg.BuildDirs = append(cfg.BuildDirs, *buildDirs...)

	return cfg
}
