package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the namespace of every environment variable read by Load.
const EnvPrefix = "METROLOG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" envconfig:"SNAPSHOT"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/metrolog.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// AnalysisConfig holds the tunables of the measurement pipeline.
type AnalysisConfig struct {
	// ComparisonPrefix is stripped from dimension names of the second batch.
	ComparisonPrefix string `yaml:"comparison_prefix" envconfig:"COMPARISON_PREFIX" default:"Cire_"`
	LabelA           string `yaml:"label_a" envconfig:"LABEL_A" default:"Métal"`
	LabelB           string `yaml:"label_b" envconfig:"LABEL_B" default:"Cire"`
	// ComparisonThreshold flags a dimension when |meanA - meanB| exceeds it.
	ComparisonThreshold float64 `yaml:"comparison_threshold" envconfig:"COMPARISON_THRESHOLD" default:"0.05"`
	SlotCount           int     `yaml:"slot_count" envconfig:"SLOT_COUNT" default:"12"`
	// BoundsPolicy is "strict" or "first_row".
	BoundsPolicy   string `yaml:"bounds_policy" envconfig:"BOUNDS_POLICY" default:"strict"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
}

// SessionConfig bounds the in-memory analysis sessions.
type SessionConfig struct {
	IdleTTL         time.Duration `yaml:"idle_ttl" envconfig:"IDLE_TTL" default:"2h"`
	MaxSessions     int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"64"`
	JanitorInterval time.Duration `yaml:"janitor_interval" envconfig:"JANITOR_INTERVAL" default:"1m"`
}

// SnapshotConfig selects where exported registry documents are kept.
type SnapshotConfig struct {
	Backend  string `yaml:"backend" envconfig:"BACKEND" default:"file"`
	Dir      string `yaml:"dir" envconfig:"DIR" default:"data/snapshots"`
	Bucket   string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix   string `yaml:"prefix" envconfig:"PREFIX" default:"registry/"`
	Region   string `yaml:"region" envconfig:"REGION"`
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"54s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg, lookupEnv)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func lookupEnv(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeConfigs overlays file values on the env-processed config. A value from
// the file wins unless the matching variable was set in the environment; the
// envconfig defaults only fill what neither source provided.
func mergeConfigs(fileConfig, envConfig Config, isSet func(string) bool) Config {
	out := envConfig

	setString := func(key string, dst *string, v string) {
		if v != "" && !isSet(key) {
			*dst = v
		}
	}
	setInt := func(key string, dst *int, v int) {
		if v != 0 && !isSet(key) {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64, v float64) {
		if v != 0 && !isSet(key) {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration, v time.Duration) {
		if v != 0 && !isSet(key) {
			*dst = v
		}
	}

	setInt("SERVER_PORT", &out.Server.Port, fileConfig.Server.Port)
	setDuration("SERVER_READ_TIMEOUT", &out.Server.ReadTimeout, fileConfig.Server.ReadTimeout)
	setDuration("SERVER_WRITE_TIMEOUT", &out.Server.WriteTimeout, fileConfig.Server.WriteTimeout)
	setDuration("SERVER_IDLE_TIMEOUT", &out.Server.IdleTimeout, fileConfig.Server.IdleTimeout)
	setInt("SERVER_MAX_HEADER_BYTES", &out.Server.MaxHeaderBytes, fileConfig.Server.MaxHeaderBytes)
	setDuration("SERVER_SHUTDOWN_TIMEOUT", &out.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout)
	setDuration("SERVER_REQUEST_TIMEOUT", &out.Server.RequestTimeout, fileConfig.Server.RequestTimeout)

	if len(fileConfig.Security.AllowedOrigins) > 0 && !isSet("SECURITY_ALLOWED_ORIGINS") {
		out.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	setFloat("SECURITY_RATE_LIMIT_RPS", &out.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS)
	setInt("SECURITY_RATE_LIMIT_BURST", &out.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst)

	setString("LOGGING_LEVEL", &out.Logging.Level, fileConfig.Logging.Level)
	setString("LOGGING_OUTPUT", &out.Logging.Output, fileConfig.Logging.Output)
	setString("LOGGING_FILE_PATH", &out.Logging.FilePath, fileConfig.Logging.FilePath)

	setString("ANALYSIS_COMPARISON_PREFIX", &out.Analysis.ComparisonPrefix, fileConfig.Analysis.ComparisonPrefix)
	setString("ANALYSIS_LABEL_A", &out.Analysis.LabelA, fileConfig.Analysis.LabelA)
	setString("ANALYSIS_LABEL_B", &out.Analysis.LabelB, fileConfig.Analysis.LabelB)
	setFloat("ANALYSIS_COMPARISON_THRESHOLD", &out.Analysis.ComparisonThreshold, fileConfig.Analysis.ComparisonThreshold)
	setInt("ANALYSIS_SLOT_COUNT", &out.Analysis.SlotCount, fileConfig.Analysis.SlotCount)
	setString("ANALYSIS_BOUNDS_POLICY", &out.Analysis.BoundsPolicy, fileConfig.Analysis.BoundsPolicy)
	if fileConfig.Analysis.MaxUploadBytes != 0 && !isSet("ANALYSIS_MAX_UPLOAD_BYTES") {
		out.Analysis.MaxUploadBytes = fileConfig.Analysis.MaxUploadBytes
	}

	setDuration("SESSION_IDLE_TTL", &out.Session.IdleTTL, fileConfig.Session.IdleTTL)
	setInt("SESSION_MAX_SESSIONS", &out.Session.MaxSessions, fileConfig.Session.MaxSessions)
	setDuration("SESSION_JANITOR_INTERVAL", &out.Session.JanitorInterval, fileConfig.Session.JanitorInterval)

	setString("SNAPSHOT_BACKEND", &out.Snapshot.Backend, fileConfig.Snapshot.Backend)
	setString("SNAPSHOT_DIR", &out.Snapshot.Dir, fileConfig.Snapshot.Dir)
	setString("SNAPSHOT_BUCKET", &out.Snapshot.Bucket, fileConfig.Snapshot.Bucket)
	setString("SNAPSHOT_PREFIX", &out.Snapshot.Prefix, fileConfig.Snapshot.Prefix)
	setString("SNAPSHOT_REGION", &out.Snapshot.Region, fileConfig.Snapshot.Region)
	setString("SNAPSHOT_ENDPOINT", &out.Snapshot.Endpoint, fileConfig.Snapshot.Endpoint)

	setInt("WEBSOCKET_READ_BUFFER_SIZE", &out.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize)
	setInt("WEBSOCKET_WRITE_BUFFER_SIZE", &out.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize)
	setDuration("WEBSOCKET_PING_PERIOD", &out.WebSocket.PingPeriod, fileConfig.WebSocket.PingPeriod)
	setDuration("WEBSOCKET_PONG_WAIT", &out.WebSocket.PongWait, fileConfig.WebSocket.PongWait)

	setString("TELEMETRY_ENVIRONMENT", &out.Telemetry.Environment, fileConfig.Telemetry.Environment)
	setString("TELEMETRY_TRACE_EXPORTER", &out.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter)
	setString("TELEMETRY_METRIC_EXPORTER", &out.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter)
	setFloat("TELEMETRY_SAMPLE_RATIO", &out.Telemetry.SampleRatio, fileConfig.Telemetry.SampleRatio)

	return out
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Analysis.SlotCount <= 0 {
		return fmt.Errorf("analysis slot count must be positive, got %d", c.Analysis.SlotCount)
	}

	if c.Analysis.ComparisonThreshold < 0 {
		return fmt.Errorf("comparison threshold must not be negative")
	}

	switch c.Analysis.BoundsPolicy {
	case BoundsPolicyStrict, BoundsPolicyFirstRow:
	default:
		return fmt.Errorf("unknown bounds policy %q", c.Analysis.BoundsPolicy)
	}

	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}

	switch c.Snapshot.Backend {
	case SnapshotBackendFile:
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot directory is required for the file backend")
		}
	case SnapshotBackendS3:
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot bucket is required for the s3 backend")
		}
	case SnapshotBackendNone:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	// JSON logs only
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "metrolog.log")
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join(DefaultLogsDir, "metrolog.log"),
		},
		Analysis: AnalysisConfig{
			ComparisonPrefix:    DefaultComparisonPrefix,
			LabelA:              DefaultLabelA,
			LabelB:              DefaultLabelB,
			ComparisonThreshold: DefaultComparisonThreshold,
			SlotCount:           DefaultSlotCount,
			BoundsPolicy:        BoundsPolicyStrict,
			MaxUploadBytes:      DefaultMaxUploadBytes,
		},
		Session: SessionConfig{
			IdleTTL:         2 * time.Hour,
			MaxSessions:     64,
			JanitorInterval: time.Minute,
		},
		Snapshot: SnapshotConfig{
			Backend: SnapshotBackendFile,
			Dir:     DefaultSnapshotDir,
			Prefix:  "registry/",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      54 * time.Second,
			PongWait:        60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
