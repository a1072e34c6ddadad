// Package config loads zcheck settings from flags, ZCHECK_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aalhour/zcheck/internal/bench"
	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
	"github.com/aalhour/zcheck/internal/logging"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "ZCHECK"

// Keys.
const (
	KeyCodec              = "codec"
	KeyExtended           = "extended"
	KeyVerbose            = "verbose"
	KeyStrict             = "strict"
	KeyLogLevel           = "log-level"
	KeyGzipDir            = "gzip-dir"
	KeyTruncateCompressed = "truncate-compressed"
	KeyChecksums          = "checksums"
	KeyBenchCodec         = "bench.codec"
	KeyBenchSize          = "bench.size"
	KeyBenchIterations    = "bench.iterations"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	Codec              string `mapstructure:"codec"`
	Extended           bool   `mapstructure:"extended"`
	Verbose            bool   `mapstructure:"verbose"`
	Strict             bool   `mapstructure:"strict"`
	LogLevel           string `mapstructure:"log-level"`
	GzipDir            string `mapstructure:"gzip-dir"`
	TruncateCompressed int      `mapstructure:"truncate-compressed"`
	Checksums          []string `mapstructure:"checksums"`
	Bench              Bench    `mapstructure:"bench"`
}

// Bench holds the settings of the bench subcommand.
type Bench struct {
	Codec      string `mapstructure:"codec"`
	Size       int    `mapstructure:"size"`
	Iterations int    `mapstructure:"iterations"`
}

// Loader resolves a Config. Each Loader owns its own viper instance.
type Loader struct {
	v      *viper.Viper
	logger logging.Logger
}

// NewLoader returns a Loader reading config files from fs.
func NewLoader(fs afero.Fs, logger logging.Logger) *Loader {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyCodec, "zlib")
	v.SetDefault(KeyExtended, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyGzipDir, "")
	v.SetDefault(KeyTruncateCompressed, 0)
	v.SetDefault(KeyChecksums, ChecksumNames())
	v.SetDefault(KeyBenchCodec, "zlib")
	v.SetDefault(KeyBenchSize, bench.DefaultSize)
	v.SetDefault(KeyBenchIterations, bench.DefaultIterations)

	if logging.IsNil(logger) {
		logger = logging.Discard
	}
	return &Loader{v: v, logger: logger}
}

// BindFlags binds every flag in flags to the key prefix+name.
func (l *Loader) BindFlags(flags *pflag.FlagSet, prefix string) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "config" || f.Name == "help" {
			return
		}
		if bindErr := l.v.BindPFlag(prefix+f.Name, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// Load reads path, if non-empty, and returns the validated Config.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		l.logger.Infof("%susing config file %s", logging.NSConfig, path)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l.logger.Debugf("%s%+v", logging.NSConfig, *cfg)
	return cfg, nil
}

// Validate checks that every field has a usable value.
func (c *Config) Validate() error {
	if _, err := compression.ParseType(c.Codec); err != nil {
		return fmt.Errorf("%w: codec: %w", ErrInvalid, err)
	}
	if _, err := compression.ParseType(c.Bench.Codec); err != nil {
		return fmt.Errorf("%w: bench.codec: %w", ErrInvalid, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for _, name := range c.Checksums {
		if _, err := checksum.ParseType(name); err != nil {
			return fmt.Errorf("%w: checksums: %w", ErrInvalid, err)
		}
	}
	if c.TruncateCompressed < 0 {
		return fmt.Errorf("%w: truncate-compressed must be >= 0, got %d", ErrInvalid, c.TruncateCompressed)
	}
	if c.Bench.Size < 0 {
		return fmt.Errorf("%w: bench.size must be >= 0, got %d", ErrInvalid, c.Bench.Size)
	}
	if c.Bench.Iterations <= 0 {
		return fmt.Errorf("%w: bench.iterations must be > 0, got %d", ErrInvalid, c.Bench.Iterations)
	}
	return nil
}

// CodecType returns the parsed suite codec. Call after Validate.
func (c *Config) CodecType() compression.Type {
	t, _ := compression.ParseType(c.Codec)
	return t
}

// ChecksumTypes returns the parsed checksum list. Call after Validate.
func (c *Config) ChecksumTypes() []checksum.Type {
	types := make([]checksum.Type, 0, len(c.Checksums))
	for _, name := range c.Checksums {
		t, _ := checksum.ParseType(name)
		types = append(types, t)
	}
	return types
}

// ChecksumNames returns the lower-case names of checksum.All.
func ChecksumNames() []string {
	return lo.Map(checksum.All, func(t checksum.Type, _ int) string {
		return strings.ToLower(t.String())
	})
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() logging.Level {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return lvl
}

// BenchOptions converts the bench settings into bench.Options.
func (c *Config) BenchOptions() bench.Options {
	opts := bench.DefaultOptions()
	opts.Codec, _ = compression.ParseType(c.Bench.Codec)
	opts.Size = c.Bench.Size
	opts.Iterations = c.Bench.Iterations
	return opts
}
