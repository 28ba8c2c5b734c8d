package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Insight InsightConfig `yaml:"insight"`
	Dive    DiveConfig    `yaml:"dive"`
	Auth    AuthConfig    `yaml:"auth"`
	Geocode GeocodeConfig `yaml:"geocode"`
	Photos  PhotosConfig  `yaml:"photos"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the per-IP request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains text-completion backend settings.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"maxTokens"`
	Seed           int           `yaml:"seed"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// InsightConfig controls the dive insight pipeline.
type InsightConfig struct {
	CreditLimit  int           `yaml:"creditLimit"`
	CreditWindow time.Duration `yaml:"creditWindow"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
}

// DiveConfig contains the row-store and cache connection settings.
type DiveConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the insight read-through cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuthConfig drives bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// GeocodeConfig points at the forward-geocoding upstream.
type GeocodeConfig struct {
	BaseURL string `yaml:"baseUrl"`
}

// PhotosConfig contains the S3-compatible object store for dive photos.
type PhotosConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"accessKey"`
	SecretKey string        `yaml:"secretKey"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	URLTTL    time.Duration `yaml:"urlTtl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = parsed
		}
	}
	if v := os.Getenv("LLM_SEED"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Seed = parsed
		}
	}
	if v := os.Getenv("LLM_REQUEST_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.RequestTimeout = parsed
		}
	}
	if v := os.Getenv("INSIGHT_CREDIT_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Insight.CreditLimit = parsed
		}
	}
	if v := os.Getenv("INSIGHT_CREDIT_WINDOW"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Insight.CreditWindow = parsed
		}
	}
	if v := os.Getenv("INSIGHT_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Insight.CacheTTL = parsed
		}
	}
	if v := os.Getenv("DIVE_POSTGRES_DSN"); v != "" {
		cfg.Dive.Postgres.DSN = v
	}
	if v := os.Getenv("DIVE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Dive.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("DIVE_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Dive.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("DIVE_VALKEY_ENABLED"); v != "" {
		cfg.Dive.Valkey.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DIVE_VALKEY_ADDR"); v != "" {
		cfg.Dive.Valkey.Addr = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("GEOCODE_BASE_URL"); v != "" {
		cfg.Geocode.BaseURL = v
	}
	if v := os.Getenv("PHOTOS_ENDPOINT"); v != "" {
		cfg.Photos.Endpoint = v
	}
	if v := os.Getenv("PHOTOS_ACCESS_KEY"); v != "" {
		cfg.Photos.AccessKey = v
	}
	if v := os.Getenv("PHOTOS_SECRET_KEY"); v != "" {
		cfg.Photos.SecretKey = v
	}
	if v := os.Getenv("PHOTOS_BUCKET"); v != "" {
		cfg.Photos.Bucket = v
	}
	if v := os.Getenv("PHOTOS_REGION"); v != "" {
		cfg.Photos.Region = v
	}
	if v := os.Getenv("PHOTOS_URL_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Photos.URLTTL = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			Temperature:    0.3,
			MaxTokens:      700,
			Seed:           7,
			RequestTimeout: 45 * time.Second,
		},
		Insight: InsightConfig{
			CreditLimit:  20,
			CreditWindow: 24 * time.Hour,
			CacheTTL:     12 * time.Hour,
		},
		Dive: DiveConfig{
			Postgres: PostgresConfig{
				DSN:      "",
				MaxConns: 4,
				MinConns: 0,
			},
			Valkey: ValkeyConfig{
				Enabled: false,
				Addr:    "",
			},
		},
		Auth: AuthConfig{
			JWTSecret: "dev-only-secret",
		},
		Geocode: GeocodeConfig{
			BaseURL: "https://nominatim.openstreetmap.org",
		},
		Photos: PhotosConfig{
			Region: "auto",
			URLTTL: 15 * time.Minute,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.maxTokens must be positive")
	}
	if c.LLM.RequestTimeout <= 0 {
		return errors.New("llm.requestTimeout must be positive")
	}
	if c.Insight.CreditLimit <= 0 {
		return errors.New("insight.creditLimit must be positive")
	}
	if c.Insight.CreditWindow <= 0 {
		return errors.New("insight.creditWindow must be positive")
	}
	if c.Insight.CacheTTL < 0 {
		return errors.New("insight.cacheTtl cannot be negative")
	}
	if c.Dive.Valkey.Enabled && strings.TrimSpace(c.Dive.Valkey.Addr) == "" {
		return errors.New("dive.valkey.addr cannot be empty when the valkey cache is enabled")
	}
	if c.Auth.JWTSecret == "" && c.Auth.Issuer == "" {
		return errors.New("auth requires either jwtSecret or issuer")
	}
	if c.Geocode.BaseURL == "" {
		return errors.New("geocode.baseUrl cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
