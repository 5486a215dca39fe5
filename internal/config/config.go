package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/utils"
)

// Config holds all configuration settings.
type Config struct {
	// OutputPath is the directory where offline item folders are created.
	OutputPath string `mapstructure:"output_path"`
	// DatabaseDriver selects the offline library backend: "sqlite" or "postgres".
	DatabaseDriver string `mapstructure:"database_driver"`
	// DatabaseDSN is the data source name for the offline library database.
	// For sqlite it is a file path and defaults to <output_path>/library.db.
	DatabaseDSN string `mapstructure:"database_dsn"`
	// HistoryPath is the JSON file holding the last known status of every item download.
	HistoryPath string `mapstructure:"history_path"`
	// ManifestURL is the catalog manifest location: an http(s) URL or a local path.
	ManifestURL string `mapstructure:"manifest_url"`
	// MaxConcurrentDownloads is the maximum number of items downloading simultaneously.
	MaxConcurrentDownloads int64 `mapstructure:"max_concurrent_downloads"`
	// RetryAttemptsCount is the number of retries after the first failed run of a job.
	RetryAttemptsCount int64 `mapstructure:"retry_attempts_count"`
	// RetryBasePause is the backoff before the first retry; it doubles with every attempt.
	RetryBasePause string `mapstructure:"retry_base_pause"`
	// DownloadSpeedLimit sets the maximum download speed per transfer (e.g., "1MB", "500KB").
	DownloadSpeedLimit string `mapstructure:"download_speed_limit"`
	// HTTPTimeout bounds a single manifest request (e.g., "30s").
	HTTPTimeout string `mapstructure:"http_timeout"`
	// UserAgent overrides the User-Agent header sent with every request.
	UserAgent string `mapstructure:"user_agent"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// MaxLogLength limits HTTP dumps written at debug level (e.g., "64KB").
	MaxLogLength string `mapstructure:"max_log_length"`
	// HistoryProgressStep is the progress delta, in percent, that triggers a history write.
	HistoryProgressStep int64 `mapstructure:"history_progress_step"`
	// ConfigFilename is the file the configuration was read from (set automatically).
	ConfigFilename string `mapstructure:"-"`
	// ParsedRetryBasePause is the parsed retry base pause.
	ParsedRetryBasePause time.Duration
	// ParsedDownloadSpeedLimit is the parsed download speed limit in bytes per second, 0 means unlimited.
	ParsedDownloadSpeedLimit int64
	// ParsedHTTPTimeout is the parsed HTTP timeout.
	ParsedHTTPTimeout time.Duration
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
	// ParsedMaxLogLength is the parsed maximum HTTP dump length in bytes.
	ParsedMaxLogLength uint64
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".songbook-offline.yaml"

	// DefaultMaxLogLength is the default maximum size (in bytes) of a logged HTTP dump.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// DefaultOutputPath is the default offline library folder.
	DefaultOutputPath = "songbook"

	// DefaultDatabaseFilename is the sqlite file created inside the output folder.
	DefaultDatabaseFilename = "library.db"

	// DefaultHistoryFilename is the history file created inside the output folder.
	DefaultHistoryFilename = "history.json"

	// DefaultHTTPTimeout is used when http_timeout is not set.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultHistoryProgressStep is used when history_progress_step is not set.
	DefaultHistoryProgressStep = 10

	// DriverSQLite selects the embedded sqlite backend.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL backend.
	DriverPostgres = "postgres"

	// DefaultEnvFilename is the dotenv file loaded into the environment before the configuration is read.
	DefaultEnvFilename = ".env"

	// EnvPrefix prefixes environment variables that override configuration keys, e.g. SONGBOOK_DATABASE_DSN.
	EnvPrefix = "SONGBOOK"

	// KeyManifestURL is the configuration key of the manifest location.
	KeyManifestURL = "manifest_url"
	// KeyOutputPath is the configuration key of the output folder.
	KeyOutputPath = "output_path"

	maxHistoryProgressStep = 100
)

// Static error definitions for better error handling.
var (
	// ErrEmptyOutputPath indicates that the output folder is missing.
	ErrEmptyOutputPath = errors.New("output_path cannot be empty")
	// ErrUnknownDatabaseDriver indicates that the database driver is not supported.
	ErrUnknownDatabaseDriver = errors.New("unknown database driver")
	// ErrEmptyDatabaseDSN indicates that a postgres DSN is missing.
	ErrEmptyDatabaseDSN = errors.New("database_dsn is required for postgres")
	// ErrInvalidManifestURL indicates that the manifest location cannot be used.
	ErrInvalidManifestURL = errors.New("invalid manifest_url")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidRetryAttempts indicates that the retry attempts count is invalid.
	ErrInvalidRetryAttempts = errors.New("retry attempts count cannot be negative")
	// ErrInvalidRetryBasePause indicates that the retry base pause is invalid.
	ErrInvalidRetryBasePause = errors.New("retry_base_pause must be positive")
	// ErrInvalidHTTPTimeout indicates that the HTTP timeout is invalid.
	ErrInvalidHTTPTimeout = errors.New("http_timeout must be positive")
	// ErrInvalidConcurrentDownloads indicates that the concurrent downloads count is invalid.
	ErrInvalidConcurrentDownloads = errors.New("max concurrent downloads must be a positive integer")
	// ErrInvalidHistoryProgressStep indicates that the history progress step is out of range.
	ErrInvalidHistoryProgressStep = errors.New("history_progress_step must be between 1 and 100")
	// ErrUnknownConfigKey indicates that SaveConfig was asked to persist an unsupported key.
	ErrUnknownConfigKey = errors.New("unknown config key")
)

//nolint:gochecknoglobals // Immutable list of keys that can be overridden from the environment.
var envKeys = []string{
	KeyOutputPath,
	"database_driver",
	"database_dsn",
	"history_path",
	KeyManifestURL,
	"max_concurrent_downloads",
	"retry_attempts_count",
	"retry_base_pause",
	"download_speed_limit",
	"http_timeout",
	"user_agent",
	"log_level",
	"max_log_length",
	"history_progress_step",
}

// LoadEnvFile adds the variables of a dotenv file to the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(filename string) error {
	if filename == "" {
		filename = DefaultEnvFilename
	}

	err := godotenv.Load(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load environment file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration settings from a YAML file.
// Environment variables named EnvPrefix + "_" + upper-cased key take precedence over the file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	v := viper.New()
	v.SetConfigFile(configFilename)
	v.SetEnvPrefix(EnvPrefix)
	setDefaults(v)

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable of %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConfigFilename = configFilename

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutputPath, DefaultOutputPath)
	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("max_concurrent_downloads", 2)
	v.SetDefault("retry_attempts_count", 3)
	v.SetDefault("retry_base_pause", "1s")
	v.SetDefault("http_timeout", DefaultHTTPTimeout.String())
	v.SetDefault("log_level", "info")
	v.SetDefault("history_progress_step", DefaultHistoryProgressStep)
}

// ValidateConfig checks the configuration for validity and sets derived fields.
//
//nolint:funlen,gocognit,cyclop // Validation functions naturally have high complexity and length due to sequential checks.
func ValidateConfig(cfg *Config) error {
	var (
		downloadSpeedLimit       = strings.TrimSpace(cfg.DownloadSpeedLimit)
		parsedDownloadSpeedLimit uint64
		err                      error
	)

	cfg.OutputPath = strings.TrimSpace(cfg.OutputPath)
	if cfg.OutputPath == "" {
		return ErrEmptyOutputPath
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverSQLite
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DatabaseDSN) == "" {
			cfg.DatabaseDSN = filepath.Join(cfg.OutputPath, DefaultDatabaseFilename)
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseDSN) == "" {
			return ErrEmptyDatabaseDSN
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownDatabaseDriver, cfg.DatabaseDriver)
	}

	if strings.TrimSpace(cfg.HistoryPath) == "" {
		cfg.HistoryPath = filepath.Join(cfg.OutputPath, DefaultHistoryFilename)
	}

	cfg.ManifestURL = strings.TrimSpace(cfg.ManifestURL)
	if err = validateManifestURL(cfg.ManifestURL); err != nil {
		return err
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !(isLogLevelCorrect) {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	if downloadSpeedLimit != "" && downloadSpeedLimit != "0" {
		parsedDownloadSpeedLimit, err = humanize.ParseBytes(downloadSpeedLimit)
		if err != nil {
			return fmt.Errorf("failed to parse download speed limit: %w", err)
		}
	}

	// io.CopyN accepts only int64 so we transform it safely in order to use it later.
	cfg.ParsedDownloadSpeedLimit = utils.SafeUint64ToInt64(parsedDownloadSpeedLimit)

	cfg.ParsedMaxLogLength = DefaultMaxLogLength
	if maxLogLength := strings.TrimSpace(cfg.MaxLogLength); maxLogLength != "" {
		cfg.ParsedMaxLogLength, err = humanize.ParseBytes(maxLogLength)
		if err != nil {
			return fmt.Errorf("failed to parse max log length: %w", err)
		}
	}

	if cfg.RetryAttemptsCount < 0 {
		return ErrInvalidRetryAttempts
	}

	cfg.ParsedRetryBasePause, err = time.ParseDuration(cfg.RetryBasePause)
	if err != nil {
		return fmt.Errorf("failed to parse retry base pause: %w", err)
	}

	if cfg.ParsedRetryBasePause <= 0 {
		return ErrInvalidRetryBasePause
	}

	cfg.ParsedHTTPTimeout = DefaultHTTPTimeout
	if cfg.HTTPTimeout != "" {
		cfg.ParsedHTTPTimeout, err = time.ParseDuration(cfg.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("failed to parse http timeout: %w", err)
		}

		if cfg.ParsedHTTPTimeout <= 0 {
			return ErrInvalidHTTPTimeout
		}
	}

	if cfg.MaxConcurrentDownloads <= 0 {
		return ErrInvalidConcurrentDownloads
	}

	if cfg.HistoryProgressStep == 0 {
		cfg.HistoryProgressStep = DefaultHistoryProgressStep
	}

	if cfg.HistoryProgressStep < 0 || cfg.HistoryProgressStep > maxHistoryProgressStep {
		return ErrInvalidHistoryProgressStep
	}

	return nil
}

// validateManifestURL accepts an empty value, a local path or an absolute http(s) URL.
func validateManifestURL(manifestURL string) error {
	if manifestURL == "" || !strings.Contains(manifestURL, "://") {
		return nil
	}

	parsedURL, err := url.Parse(manifestURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifestURL, err)
	}

	if (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return fmt.Errorf("%w: '%s'", ErrInvalidManifestURL, manifestURL)
	}

	return nil
}

// SaveConfig writes the given keys of cfg back to its file while preserving the original format and order.
// Keys missing from the file are appended; a missing file is created.
func SaveConfig(cfg *Config, keys ...string) error {
	values := make(map[string]string, len(keys))

	for _, key := range keys {
		value, ok := persistableValue(cfg, key)
		if !ok {
			return fmt.Errorf("%w: '%s'", ErrUnknownConfigKey, key)
		}

		values[key] = value
	}

	configFile := cfg.ConfigFilename
	if configFile == "" {
		configFile = DefaultConfigFilename
	}

	// Read the original file content.
	originalContent, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return handleMissingConfigFile(configFile, keys, values, err)
	}

	// Parse YAML while preserving order using yaml.Node.
	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, key := range keys {
		setValueInNode(&node, key, values[key])
	}

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func persistableValue(cfg *Config, key string) (string, bool) {
	switch key {
	case KeyManifestURL:
		return cfg.ManifestURL, true
	case KeyOutputPath:
		return cfg.OutputPath, true
	case "max_concurrent_downloads":
		return strconv.FormatInt(cfg.MaxConcurrentDownloads, 10), true
	case "download_speed_limit":
		return cfg.DownloadSpeedLimit, true
	default:
		return "", false
	}
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile string, keys []string, values map[string]string, err error) error {
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	for _, key := range keys {
		v.Set(key, values[key])
	}

	if err = v.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// setValueInNode updates or appends a scalar value in the YAML node tree.
func setValueInNode(node *yaml.Node, key, value string) {
	if len(node.Content) == 0 {
		node.Kind = yaml.DocumentNode
		node.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	// The root node is a document node, content[0] is the actual map.
	mapNode := node.Content[0]
	if mapNode.Kind != yaml.MappingNode {
		return
	}

	// Iterate through key-value pairs (stored as alternating nodes).
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value != key {
			continue
		}

		valueNode := mapNode.Content[i+1]
		valueNode.Kind = yaml.ScalarNode
		valueNode.Tag = ""
		valueNode.Value = value

		// Ensure it's quoted if it contains special characters.
		if valueNode.Style == 0 {
			valueNode.Style = yaml.DoubleQuotedStyle
		}

		return
	}

	mapNode.Content = append(mapNode.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: yaml.DoubleQuotedStyle},
	)
}
