// Package config loads settings from flags and STATEMENT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-layout-parser/internal/parser"
)

const (
	ModeCLI    = "cli"
	ModeServer = "server"

	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultFormat      = "csv"
	DefaultMaxFileSize = 20 * 1024 * 1024 // 20MB

	EnvPrefix = "STATEMENT"

	periodLayout = "2006-01-02"
)

// ErrVersionRequested is returned by Load when --version is given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the CLI and the HTTP server.
type Config struct {
	Mode string // "cli" or "server"
	Host string
	Port int

	Issuer      string // empty means auto-detect
	Output      string
	Format      string // csv, xlsx or json
	Header      bool
	PeriodStart string // YYYY-MM-DD
	PeriodEnd   string // YYYY-MM-DD
	Strict      bool
	LineEpsilon float64

	LogLevel    string
	MaxFileSize int64

	// Inputs are the positional arguments: PDF files in CLI mode.
	Inputs []string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeCLI,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Format:      DefaultFormat,
		Header:      true,
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Load parses args (without the program name) on top of the defaults and the
// environment, then validates the result.
func Load(args []string, usage io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	fs := pflag.NewFlagSet("statement-parser", pflag.ContinueOnError)
	fs.SetOutput(usage)

	setupViperEnvironment(v, cfg)
	defineFlags(fs, cfg)
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() { printUsage(fs, usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *showVersion {
		return nil, ErrVersionRequested
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	populateFromViper(v, cfg)
	cfg.Inputs = fs.Args()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("issuer", cfg.Issuer)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("header", cfg.Header)
	v.SetDefault("period-start", cfg.PeriodStart)
	v.SetDefault("period-end", cfg.PeriodEnd)
	v.SetDefault("strict", cfg.Strict)
	v.SetDefault("line-epsilon", cfg.LineEpsilon)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
}

func defineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Run mode: 'cli' converts files, 'server' starts the HTTP API")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("issuer", cfg.Issuer, "Statement issuer: Citibank, OCBC, Unknown (auto-detected if omitted)")
	fs.StringP("output", "o", cfg.Output, "Output file path (defaults to input filename with the format's extension)")
	fs.String("format", cfg.Format, "Output format: csv, xlsx, json")
	fs.Bool("header", cfg.Header, "Include statement summary rows in the output")
	fs.String("period-start", cfg.PeriodStart, "Statement period start, YYYY-MM-DD (used to resolve years)")
	fs.String("period-end", cfg.PeriodEnd, "Statement period end, YYYY-MM-DD")
	fs.Bool("strict", cfg.Strict, "Fail the document on the first unparsable amount")
	fs.Float64("line-epsilon", cfg.LineEpsilon, "Snap text baselines to this step before grouping lines (0 = exact)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

func printUsage(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `Statement Layout Parser

Extracts card transactions from Citibank, OCBC and similar statement PDFs
using the position of each text run on the page.

Usage:
  statement-parser [flags] <input.pdf> [input2.pdf ...]
  statement-parser --mode=server [--host=0.0.0.0] [--port=8080]

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  statement-parser statement.pdf
  statement-parser --issuer=OCBC --format=xlsx statement.pdf
  statement-parser --period-start=2023-12-10 --period-end=2024-01-09 dec.pdf

Environment Variables:
  %[1]s_MODE, %[1]s_PORT, %[1]s_ISSUER, %[1]s_FORMAT, %[1]s_LOGLEVEL, ...
`, EnvPrefix)
}

func populateFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.Issuer = v.GetString("issuer")
	cfg.Output = v.GetString("output")
	cfg.Format = strings.ToLower(v.GetString("format"))
	cfg.Header = v.GetBool("header")
	cfg.PeriodStart = v.GetString("period-start")
	cfg.PeriodEnd = v.GetString("period-end")
	cfg.Strict = v.GetBool("strict")
	cfg.LineEpsilon = v.GetFloat64("line-epsilon")
	cfg.LogLevel = strings.ToLower(v.GetString("loglevel"))
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Mode != ModeCLI && c.Mode != ModeServer {
		return errors.New("mode must be either 'cli' or 'server'")
	}
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}
	switch c.Format {
	case "csv", "xlsx", "json":
	default:
		return fmt.Errorf("invalid format: %s (must be one of: csv, xlsx, json)", c.Format)
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.LineEpsilon < 0 {
		return errors.New("line epsilon cannot be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Years(); err != nil {
		return err
	}
	return nil
}

// Years returns the year resolver for the configured statement period, or
// nil when no period is set.
func (c *Config) Years() (parser.YearResolver, error) {
	if c.PeriodStart == "" && c.PeriodEnd == "" {
		return nil, nil
	}
	if c.PeriodStart == "" || c.PeriodEnd == "" {
		return nil, errors.New("period-start and period-end must be given together")
	}
	start, err := time.Parse(periodLayout, c.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("invalid period-start: %w", err)
	}
	end, err := time.Parse(periodLayout, c.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid period-end: %w", err)
	}
	p := parser.StatementPeriod{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsServerMode returns true if the HTTP API should be started.
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
}

// NewLogger builds a text logger writing to w at the given level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
