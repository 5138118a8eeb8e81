package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentbridge.yaml"

// DefaultEnvFile is the optional dotenv file loaded before the environment
// overlay. Variables already set in the process environment win.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile, DefaultEnvFile)
}

// LoadFrom returns a Config loaded from the given YAML and dotenv paths.
func LoadFrom(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator supplied
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadDotEnv populates the process environment from a dotenv file without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTBRIDGE_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTBRIDGE_CORS_ORIGIN")
	setString(&cfg.Server.PublicURL, "AGENTBRIDGE_PUBLIC_URL")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AGENTBRIDGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AGENTBRIDGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AGENTBRIDGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AGENTBRIDGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "AGENTBRIDGE_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "AGENTBRIDGE_PG_AUTO_MIGRATE")
	setString(&cfg.NATS.URL, "NATS_URL")

	// Completion
	setString(&cfg.Completion.BaseURL, "COMPLETION_BASE_URL")
	setString(&cfg.Completion.Model, "COMPLETION_MODEL")
	setFloat64(&cfg.Completion.Temperature, "COMPLETION_TEMPERATURE")
	setInt64(&cfg.Completion.MaxTokens, "COMPLETION_MAX_TOKENS")
	setDuration(&cfg.Completion.Timeout, "COMPLETION_TIMEOUT")

	setString(&cfg.Webhook.SignatureHeader, "AGENTBRIDGE_SIGNATURE_HEADER")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "AGENTBRIDGE_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "AGENTBRIDGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "AGENTBRIDGE_CACHE_L2_TTL")

	setString(&cfg.Logging.Level, "AGENTBRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTBRIDGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGENTBRIDGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "AGENTBRIDGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTBRIDGE_BREAKER_TIMEOUT")

	// Telemetry
	setBool(&cfg.OTEL.Enabled, "AGENTBRIDGE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "AGENTBRIDGE_OTEL_INSECURE")

	setBool(&cfg.MCP.Enabled, "AGENTBRIDGE_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "AGENTBRIDGE_MCP_API_KEY")
	setInt64(&cfg.Limits.MaxRequestBodySize, "AGENTBRIDGE_MAX_BODY_SIZE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Completion.Timeout <= 0 {
		return errors.New("completion.timeout must be > 0")
	}
	if cfg.Completion.MaxTokens < 1 {
		return errors.New("completion.max_tokens must be >= 1")
	}
	if cfg.Webhook.SignatureHeader == "" {
		return errors.New("webhook.signature_header is required")
	}
	if cfg.Limits.MaxRequestBodySize < 1 {
		return errors.New("limits.max_request_body_size must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
