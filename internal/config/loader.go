package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "stackforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("STACKFORGE_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
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

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "STACKFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "STACKFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "STACKFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "STACKFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "STACKFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "STACKFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "STACKFORGE_PG_HEALTH_CHECK")

	// GitLab
	setString(&cfg.GitLab.URL, "GITLAB_URL")
	setString(&cfg.GitLab.Token, "GITLAB_TOKEN")
	setInt64(&cfg.GitLab.GroupID, "GITLAB_GROUP_ID")
	setString(&cfg.GitLab.DefaultBranch, "GITLAB_DEFAULT_BRANCH")
	setDuration(&cfg.GitLab.Timeout, "GITLAB_TIMEOUT")
	setInt(&cfg.GitLab.MemberAccess, "GITLAB_MEMBER_ACCESS")
	setInt(&cfg.GitLab.OwnerAccess, "GITLAB_OWNER_ACCESS")

	setString(&cfg.Templates.Dir, "STACKFORGE_TEMPLATE_DIR")
	setInt64(&cfg.Templates.CacheSizeMB, "STACKFORGE_TEMPLATE_CACHE_MB")
	setDuration(&cfg.Templates.CacheTTL, "STACKFORGE_TEMPLATE_CACHE_TTL")
	setString(&cfg.Deploy.Domain, "STACKFORGE_DEPLOY_DOMAIN")

	// Auth
	setString(&cfg.Auth.JWTSecret, "STACKFORGE_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "STACKFORGE_ACCESS_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "STACKFORGE_BCRYPT_COST")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "STACKFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "STACKFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "STACKFORGE_LOG_ASYNC")
	setInt(&cfg.Logging.Buffer, "STACKFORGE_LOG_BUFFER")
	setInt(&cfg.Breaker.MaxFailures, "STACKFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "STACKFORGE_BREAKER_TIMEOUT")
	setInt(&cfg.Rate.RequestsPerWindow, "STACKFORGE_RATE_REQUESTS")
	setDuration(&cfg.Rate.Window, "STACKFORGE_RATE_WINDOW")
	setString(&cfg.Rate.RedisURL, "REDIS_URL")

	// OpenTelemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "STACKFORGE_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "STACKFORGE_OTEL_SAMPLE_RATE")
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
	if u, err := url.Parse(cfg.GitLab.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("gitlab.url must be an absolute URL")
	}
	if cfg.GitLab.GroupID < 0 {
		return errors.New("gitlab.group_id must be >= 0")
	}
	if cfg.GitLab.DefaultBranch == "" {
		return errors.New("gitlab.default_branch is required")
	}
	if cfg.GitLab.Timeout <= 0 {
		return errors.New("gitlab.timeout must be > 0")
	}
	if cfg.Templates.CacheSizeMB < 1 {
		return errors.New("templates.cache_size_mb must be >= 1")
	}
	if cfg.Deploy.Domain == "" {
		return errors.New("deploy.domain is required")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerWindow < 1 || cfg.Rate.Window <= 0 {
		return errors.New("rate.requests_per_window and rate.window must be positive")
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
