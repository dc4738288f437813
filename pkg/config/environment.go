package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Environment holds every setting read from process environment variables.
type Environment struct {
	// LogFilter is the raw GLEAM_LOG value: a level, or comma separated
	// directives such as "gleam=debug".
	LogFilter string `env:"GLEAM_LOG"`

	// LogLevel is the level LogFilter selects for this tool. "off" disables
	// logging.
	LogLevel string `env:"-" validate:"oneof=off trace debug info warn error"`

	// NoColour is set when GLEAM_LOG_NOCOLOUR is present with any value.
	NoColour bool `env:"-"`

	// HexAPIKey authenticates registry-facing commands.
	HexAPIKey string `env:"HEXPM_API_KEY"`

	HexAPIURL  string `env:"HEXPM_API_URL" envDefault:"https://hex.pm/api" validate:"required,url"`
	HexRepoURL string `env:"HEXPM_REPO_URL" envDefault:"https://repo.hex.pm" validate:"required,url"`

	// Backend is the compiler backend executable.
	Backend string `env:"GLEAM_BACKEND" envDefault:"gleam-backend" validate:"required"`

	TraceExporter string `env:"GLEAM_TRACE_EXPORTER" envDefault:"none" validate:"oneof=none stdout otlp"`
	TraceEndpoint string `env:"GLEAM_TRACE_ENDPOINT" validate:"required_if=TraceExporter otlp"`

	// MetricsFile receives stage metrics in Prometheus text format on exit.
	MetricsFile string `env:"GLEAM_METRICS_FILE"`

	// CacheDir holds the package cache and stored credentials.
	CacheDir string `env:"GLEAM_CACHE_DIR"`
}

var validate = validator.New()

// Load reads the environment of the current process.
func Load() (*Environment, error) {
	return parse(env.Options{})
}

// LoadFrom reads settings from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Environment, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Environment, error) {
	var cfg Environment
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if opts.Environment != nil {
		_, cfg.NoColour = opts.Environment["GLEAM_LOG_NOCOLOUR"]
	} else {
		_, cfg.NoColour = os.LookupEnv("GLEAM_LOG_NOCOLOUR")
	}

	cfg.LogLevel = levelFromFilter(cfg.LogFilter)
	cfg.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.TraceExporter))

	if cfg.CacheDir == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = dir
	}

	if err := validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid value %q for %s", fe.Value(), envName(fe.StructField()))
		}
		return nil, err
	}

	return &cfg, nil
}

// RequireHexAPIKey returns the registry token or an error naming the variable
// that must be set.
func (e *Environment) RequireHexAPIKey() (string, error) {
	if e.HexAPIKey == "" {
		return "", errors.New("HEXPM_API_KEY is not set")
	}
	return e.HexAPIKey, nil
}

// PackageCacheDir is where downloaded package tarballs are kept.
func (e *Environment) PackageCacheDir() string {
	return filepath.Join(e.CacheDir, "hex", "hexpm", "packages")
}

// PackageIndexFile is the SQLite index of the package cache.
func (e *Environment) PackageIndexFile() string {
	return filepath.Join(e.CacheDir, "packages.db")
}

// CredentialsFile stores the key created by `hex authenticate`.
func (e *Environment) CredentialsFile() string {
	return filepath.Join(e.CacheDir, "hex", "credentials")
}

// logTarget is the log target name directives must match to apply here.
const logTarget = "gleam"

var levelVerbosity = map[string]int{
	"off":   0,
	"error": 1,
	"warn":  2,
	"info":  3,
	"debug": 4,
	"trace": 5,
}

// levelFromFilter reduces a log filter to a single level. Each directive is
// either a bare level, a target with a level ("gleam=debug"), or a bare
// target, which enables every level for it. Directives for other targets
// are ignored and the most verbose remaining level wins.
func levelFromFilter(filter string) string {
	level := "off"
	for _, directive := range strings.Split(filter, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "" {
			continue
		}

		var candidate string
		target, lvl, hasLevel := strings.Cut(directive, "=")
		switch {
		case hasLevel:
			if !matchesTarget(target) {
				continue
			}
			candidate = normaliseLevel(lvl)
		case normaliseLevel(directive) != "":
			candidate = normaliseLevel(directive)
		case matchesTarget(directive):
			candidate = "trace"
		}

		if candidate != "" && levelVerbosity[candidate] > levelVerbosity[level] {
			level = candidate
		}
	}
	return level
}

func matchesTarget(target string) bool {
	// Span filters such as "gleam[build]" apply to the target before them.
	if i := strings.IndexByte(target, '['); i >= 0 {
		target = target[:i]
	}
	return target == logTarget || strings.HasPrefix(target, logTarget+"_") || strings.HasPrefix(target, logTarget+"::")
}

func normaliseLevel(level string) string {
	switch strings.TrimSpace(level) {
	case "off", "error", "info", "debug", "trace":
		return strings.TrimSpace(level)
	case "warn", "warning":
		return "warn"
	}
	return ""
}

func defaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, "gleam"), nil
}

func envName(field string) string {
	switch field {
	case "LogLevel":
		return "GLEAM_LOG"
	case "HexAPIURL":
		return "HEXPM_API_URL"
	case "HexRepoURL":
		return "HEXPM_REPO_URL"
	case "Backend":
		return "GLEAM_BACKEND"
	case "TraceExporter":
		return "GLEAM_TRACE_EXPORTER"
	case "TraceEndpoint":
		return "GLEAM_TRACE_ENDPOINT"
	default:
		return field
	}
}
