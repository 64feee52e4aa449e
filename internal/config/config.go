// Package config provides configuration management for the parley application.
//
// Configuration is parsed from CLI flags with sensible defaults. A YAML
// config file can supply values for any flag; explicitly set flags win over
// file values. The API key is only ever read from the environment so it
// never appears in process listings or config files checked into dotfiles.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// Version is the parley application version
	Version = "0.1.0"

	// APIKeyEnvVar is the environment variable holding the assistant API key.
	APIKeyEnvVar = "OPENAI_API_KEY"

	// Default values for CLI flags
	defaultPort            = 8080
	defaultBaseURL         = "https://api.openai.com/v1"
	defaultPollIntervalMS  = 1000
	defaultPollMaxIntMS    = 5000
	defaultPollMaxAttempts = 30
	defaultMaxUploadMB     = 10
	defaultAllowedOrigin   = "*"
	defaultLogLevel        = "info"

	// Validation constraints
	minPort        = 1024
	maxPort        = 65535
	minIntervalMS  = 100
	maxIntervalMS  = 60000
	minAttempts    = 1
	maxAttempts    = 600
	minUploadMB    = 1
	maxUploadMB    = 100
)

var (
	// ErrInvalidPort is returned when port is out of valid range
	ErrInvalidPort = errors.New("port must be between 1024 and 65535")
	// ErrMissingAssistantID is returned when no assistant ID is configured
	ErrMissingAssistantID = errors.New("assistant-id is required")
	// ErrMissingAPIKey is returned when the API key environment variable is unset
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")
	// ErrInvalidPollInterval is returned when a poll interval is out of range
	ErrInvalidPollInterval = errors.New("poll intervals must be between 100 and 60000 milliseconds")
	// ErrInvalidPollAttempts is returned when poll-max-attempts is out of range
	ErrInvalidPollAttempts = errors.New("poll-max-attempts must be between 1 and 600")
	// ErrInvalidUploadSize is returned when max-upload-mb is out of range
	ErrInvalidUploadSize = errors.New("max-upload-mb must be between 1 and 100")
	// ErrInvalidLogLevel is returned when log level is not recognized
	ErrInvalidLogLevel = errors.New("log-level must be one of: debug, info, warn, error")
	// ErrShowHelp is returned when --help flag is requested
	ErrShowHelp = errors.New("help requested")
	// ErrShowVersion is returned when --version flag is requested
	ErrShowVersion = errors.New("version requested")
)

// Config holds all configuration values for the parley application.
// Values are populated from CLI flags, an optional YAML config file,
// and the environment, with defaults applied.
type Config struct {
	// Server configuration
	Port          int
	AllowedOrigin string

	// Remote assistant configuration
	AssistantID string
	BaseURL     string
	APIKey      string

	// Run polling configuration
	PollIntervalMS    int
	PollMaxIntervalMS int
	PollMaxAttempts   int

	// Upload configuration
	MaxUploadMB     int
	TranscribeAudio bool

	// Storage configuration. Empty means in-memory only.
	DataPath string

	// Logging configuration
	LogLevel string

	// Internal flags
	configFile  string
	showHelp    bool
	showVersion bool
}

// fileConfig mirrors the YAML config file layout. Pointer fields so that
// absent keys can be told apart from zero values.
type fileConfig struct {
	Port              *int    `yaml:"port"`
	AllowedOrigin     *string `yaml:"allowed_origin"`
	AssistantID       *string `yaml:"assistant_id"`
	BaseURL           *string `yaml:"base_url"`
	PollIntervalMS    *int    `yaml:"poll_interval_ms"`
	PollMaxIntervalMS *int    `yaml:"poll_max_interval_ms"`
	PollMaxAttempts   *int    `yaml:"poll_max_attempts"`
	MaxUploadMB       *int    `yaml:"max_upload_mb"`
	TranscribeAudio   *bool   `yaml:"transcribe_audio"`
	DataPath          *string `yaml:"data_path"`
	LogLevel          *string `yaml:"log_level"`
}

// Parse parses CLI flags into a Config struct.
// It returns the parsed Config or an error if validation fails.
// If --help or --version is requested, it prints the output and
// returns ErrShowHelp or ErrShowVersion.
func Parse(args []string, output io.Writer) (*Config, error) {
	c := &Config{}

	fs := flag.NewFlagSet("parley", flag.ContinueOnError)
	fs.SetOutput(output)

	// Server flags
	fs.IntVar(&c.Port, "port", defaultPort, "HTTP server port")
	fs.StringVar(&c.AllowedOrigin, "allowed-origin", defaultAllowedOrigin, "Value for Access-Control-Allow-Origin")

	// Remote assistant flags
	fs.StringVar(&c.AssistantID, "assistant-id", "", "Remote assistant ID (required)")
	fs.StringVar(&c.BaseURL, "base-url", defaultBaseURL, "Assistant API base URL")

	// Polling flags
	fs.IntVar(&c.PollIntervalMS, "poll-interval-ms", defaultPollIntervalMS, "Initial run poll interval in milliseconds")
	fs.IntVar(&c.PollMaxIntervalMS, "poll-max-interval-ms", defaultPollMaxIntMS, "Maximum run poll interval in milliseconds")
	fs.IntVar(&c.PollMaxAttempts, "poll-max-attempts", defaultPollMaxAttempts, "Maximum run status checks before timing out")

	// Upload flags
	fs.IntVar(&c.MaxUploadMB, "max-upload-mb", defaultMaxUploadMB, "Maximum upload size in megabytes")
	fs.BoolVar(&c.TranscribeAudio, "transcribe-audio", false, "Transcribe uploaded audio via the remote API")

	// Storage flags
	fs.StringVar(&c.DataPath, "data", "", "Path to the SQLite database file (empty = in-memory)")

	// Logging flags
	fs.StringVar(&c.LogLevel, "log-level", defaultLogLevel, "Log level (debug, info, warn, error)")

	// Special flags
	fs.StringVar(&c.configFile, "config", "", "Path to YAML config file")
	fs.BoolVar(&c.showHelp, "help", false, "Show help message")
	fs.BoolVar(&c.showVersion, "version", false, "Show version information")

	// Parse flags
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Handle --help
	if c.showHelp {
		printHelp(output)
		return nil, ErrShowHelp
	}

	// Handle --version
	if c.showVersion {
		printVersion(output)
		return nil, ErrShowVersion
	}

	// Merge config file values under explicitly set flags
	if c.configFile != "" {
		if err := c.applyFile(c.configFile, setFlags(fs)); err != nil {
			return nil, err
		}
	}

	// The API key never comes from flags or the config file.
	c.APIKey = os.Getenv(APIKeyEnvVar)

	// Validate configuration
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// setFlags returns the names of flags that were explicitly set on the
// command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// applyFile loads a YAML config file and applies its values to fields whose
// flags were not explicitly set.
func (c *Config) applyFile(path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != nil && !set["port"] {
		c.Port = *fc.Port
	}
	if fc.AllowedOrigin != nil && !set["allowed-origin"] {
		c.AllowedOrigin = *fc.AllowedOrigin
	}
	if fc.AssistantID != nil && !set["assistant-id"] {
		c.AssistantID = *fc.AssistantID
	}
	if fc.BaseURL != nil && !set["base-url"] {
		c.BaseURL = *fc.BaseURL
	}
	if fc.PollIntervalMS != nil && !set["poll-interval-ms"] {
		c.PollIntervalMS = *fc.PollIntervalMS
	}
	if fc.PollMaxIntervalMS != nil && !set["poll-max-interval-ms"] {
		c.PollMaxIntervalMS = *fc.PollMaxIntervalMS
	}
	if fc.PollMaxAttempts != nil && !set["poll-max-attempts"] {
		c.PollMaxAttempts = *fc.PollMaxAttempts
	}
	if fc.MaxUploadMB != nil && !set["max-upload-mb"] {
		c.MaxUploadMB = *fc.MaxUploadMB
	}
	if fc.TranscribeAudio != nil && !set["transcribe-audio"] {
		c.TranscribeAudio = *fc.TranscribeAudio
	}
	if fc.DataPath != nil && !set["data"] {
		c.DataPath = *fc.DataPath
	}
	if fc.LogLevel != nil && !set["log-level"] {
		c.LogLevel = *fc.LogLevel
	}

	return nil
}

// validate checks that all configuration values are within valid ranges
func (c *Config) validate() error {
	// Validate port
	if c.Port < minPort || c.Port > maxPort {
		return ErrInvalidPort
	}

	// Validate assistant configuration
	if c.AssistantID == "" {
		return ErrMissingAssistantID
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	// Validate polling configuration
	if c.PollIntervalMS < minIntervalMS || c.PollIntervalMS > maxIntervalMS {
		return ErrInvalidPollInterval
	}
	if c.PollMaxIntervalMS < minIntervalMS || c.PollMaxIntervalMS > maxIntervalMS {
		return ErrInvalidPollInterval
	}
	if c.PollMaxAttempts < minAttempts || c.PollMaxAttempts > maxAttempts {
		return ErrInvalidPollAttempts
	}

	// Validate upload size
	if c.MaxUploadMB < minUploadMB || c.MaxUploadMB > maxUploadMB {
		return ErrInvalidUploadSize
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// printHelp prints usage information
func printHelp(w io.Writer) {
	fmt.Fprintf(w, `parley - Web chat relay for a remote assistant API

USAGE:
    parley [FLAGS]

FLAGS:
    --port <PORT>                   HTTP server port (default: %d)
    --allowed-origin <ORIGIN>       CORS allowed origin (default: %s)
    --assistant-id <ID>             Remote assistant ID (required)
    --base-url <URL>                Assistant API base URL (default: %s)
    --poll-interval-ms <MS>         Initial run poll interval (default: %d)
    --poll-max-interval-ms <MS>     Maximum run poll interval (default: %d)
    --poll-max-attempts <N>         Run status checks before timeout (default: %d)
    --max-upload-mb <MB>            Maximum upload size (default: %d)
    --transcribe-audio              Transcribe uploaded audio files
    --data <PATH>                   SQLite database file (default: in-memory)
    --log-level <LEVEL>             Log level: debug, info, warn, error (default: %s)
    --config <PATH>                 YAML config file
    --help                          Show this help message
    --version                       Show version information

ENVIRONMENT:
    %s    API key for the remote assistant (required)

EXAMPLES:
    # Start with defaults
    OPENAI_API_KEY=sk-... parley --assistant-id asst_abc123

    # Persist conversations across restarts
    parley --assistant-id asst_abc123 --data ~/.local/share/parley/parley.db

    # Load settings from a file
    parley --config /etc/parley/config.yaml
`,
		defaultPort, defaultAllowedOrigin, defaultBaseURL,
		defaultPollIntervalMS, defaultPollMaxIntMS, defaultPollMaxAttempts,
		defaultMaxUploadMB, defaultLogLevel, APIKeyEnvVar)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "parley %s\n", Version)
}
