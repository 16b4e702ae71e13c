// Package config builds the immutable run configuration from command line
// flags and OBJECT_METRICS_* environment variables.
//
// Precedence is flag, then environment, then built-in default. There are no
// configuration files. A Config is created once at startup and passed by value.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ironsheep/object-metrics/internal/detection"
	"github.com/ironsheep/object-metrics/internal/logger"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "OBJECT_METRICS_"

// DefaultDiagnosticsCeiling caps the run when diagnostics are on and no
// explicit ceiling was given.
const DefaultDiagnosticsCeiling = 10

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DiagnosticsMode controls per-image diagnostic panels.
type DiagnosticsMode int

const (
	DiagnosticsOff DiagnosticsMode = iota
	DiagnosticsSave
	DiagnosticsShow
)

func (m DiagnosticsMode) String() string {
	switch m {
	case DiagnosticsSave:
		return "save"
	case DiagnosticsShow:
		return "show"
	default:
		return "off"
	}
}

// ParseDiagnosticsMode maps "off", "save" or "show" to a mode.
func ParseDiagnosticsMode(name string) (DiagnosticsMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "off", "none":
		return DiagnosticsOff, nil
	case "save":
		return DiagnosticsSave, nil
	case "show":
		return DiagnosticsShow, nil
	default:
		return DiagnosticsOff, fmt.Errorf("%w: unknown diagnostics mode %q (want off, save or show)", ErrInvalid, name)
	}
}

// ResolveDiagnostics combines the two boolean switches. Saving wins when both
// are requested.
func ResolveDiagnostics(save, show bool) DiagnosticsMode {
	switch {
	case save:
		return DiagnosticsSave
	case show:
		return DiagnosticsShow
	default:
		return DiagnosticsOff
	}
}

// Config is the complete run configuration.
type Config struct {
	// Root is the directory searched for images.
	Root string

	// OutDir receives the CSV and manifest. Empty means the parent of Root.
	OutDir string

	Strategy    detection.Strategy
	Chain       detection.ChainApprox
	Backend     detection.Backend
	Diagnostics DiagnosticsMode

	// MaxImages is the ceiling on opened images; 0 means none.
	MaxImages int

	// Workers > 1 measures images concurrently.
	Workers int

	LogLevel string

	// Manifest enables the YAML run manifest next to the CSV.
	Manifest bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Strategy:    detection.AdaptiveMean,
		Chain:       detection.ChainNone,
		Backend:     detection.BackendNative,
		Diagnostics: DiagnosticsOff,
		Workers:     1,
		LogLevel:    "info",
		Manifest:    true,
	}
}

// Ceiling returns the effective number of images to open, 0 for no limit.
func (c Config) Ceiling() int {
	if c.MaxImages > 0 {
		return c.MaxImages
	}
	if c.Diagnostics != DiagnosticsOff {
		return DefaultDiagnosticsCeiling
	}
	return 0
}

// Validate checks the fields that Parse cannot enforce by construction.
func (c Config) Validate() error {
	if _, err := c.Strategy.Segmenter(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Chain != detection.ChainNone && c.Chain != detection.ChainSimple {
		return fmt.Errorf("%w: unknown chain approximation %d", ErrInvalid, int(c.Chain))
	}
	if c.Backend != detection.BackendNative && c.Backend != detection.BackendOpenCV {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.Diagnostics < DiagnosticsOff || c.Diagnostics > DiagnosticsShow {
		return fmt.Errorf("%w: unknown diagnostics mode %d", ErrInvalid, int(c.Diagnostics))
	}
	if c.MaxImages < 0 {
		return fmt.Errorf("%w: max images must be >= 0 (got %d)", ErrInvalid, c.MaxImages)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1 (got %d)", ErrInvalid, c.Workers)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Parse builds a Config from args (without the program name) and the
// environment lookup getenv, then validates it.
//
// The first positional argument, if any, is the root directory. When
// requireRoot is set a missing root is an error.
//
// flag.ErrHelp is returned unwrapped when -h or --help is given.
func Parse(name string, args []string, getenv func(string) string, output io.Writer, requireRoot bool) (Config, error) {
	cfg := Default()
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(EnvPrefix + key)); v != "" {
			return v
		}
		return def
	}

	maxImages, err := envInt(env, "MAX_IMAGES", 0)
	if err != nil {
		return Config{}, err
	}
	workers, err := envInt(env, "WORKERS", 1)
	if err != nil {
		return Config{}, err
	}
	manifest, err := envBool(env, "MANIFEST", true)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	strategy := fs.String("strategy", env("STRATEGY", "mean"), "thresholding strategy: mean (adaptive-mean) or fixed (original)")
	chain := fs.String("chain", env("CHAIN", "none"), "contour chain approximation: none or simple")
	backend := fs.String("backend", env("BACKEND", "native"), "shape analysis backend: native or opencv")
	diagnostics := fs.String("diagnostics", env("DIAGNOSTICS", "off"), "diagnostic panels: off, save or show")
	savePlots := fs.Bool("save-plots", false, "same as --diagnostics=save")
	showPlots := fs.Bool("show-plots", false, "same as --diagnostics=show (ignored with --save-plots)")
	fs.IntVar(&cfg.MaxImages, "max-images", maxImages, "open at most this many images, 0 for all (default 10 with diagnostics)")
	fs.IntVar(&cfg.Workers, "workers", workers, "number of images measured concurrently")
	fs.StringVar(&cfg.OutDir, "out", env("OUT", ""), "output directory for the CSV (default: parent of the root)")
	fs.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	fs.BoolVar(&cfg.Manifest, "manifest", manifest, "write a YAML run manifest next to the CSV")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch fs.NArg() {
	case 0:
		cfg.Root = env("ROOT", "")
	case 1:
		cfg.Root = fs.Arg(0)
	default:
		return Config{}, fmt.Errorf("%w: expected one root directory, got %d arguments", ErrInvalid, fs.NArg())
	}
	if requireRoot && cfg.Root == "" {
		return Config{}, fmt.Errorf("%w: no root directory given", ErrInvalid)
	}

	if cfg.Strategy, err = detection.ParseStrategy(*strategy); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.Chain, err = detection.ParseChainApprox(*chain); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.Backend, err = detection.ParseBackend(*backend); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if *savePlots || *showPlots {
		cfg.Diagnostics = ResolveDiagnostics(*savePlots, *showPlots)
	} else if cfg.Diagnostics, err = ParseDiagnosticsMode(*diagnostics); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envInt(env func(string, string) string, key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, EnvPrefix, key, raw)
	}
	return v, nil
}

func envBool(env func(string, string) string, key string, def bool) (bool, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, EnvPrefix, key, raw)
	}
	return v, nil
}
