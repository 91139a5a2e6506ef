package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Redis struct {
		Host       string
		Port       int
		Password   string
		CacheTTLMs int // TTL for the recent-incident cache window
	}
	GraphHopper struct {
		BaseURL   string
		APIKey    string
		TimeoutMs int
		Locale    string
	}
	WebSocket struct {
		Port int
	}
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.CacheTTLMs == 0 {
		cfg.Redis.CacheTTLMs = 15000
	}

	// GraphHopper
	if cfg.GraphHopper.BaseURL == "" {
		cfg.GraphHopper.BaseURL = "https://graphhopper.com/api/1"
	}
	if cfg.GraphHopper.TimeoutMs == 0 {
		cfg.GraphHopper.TimeoutMs = 10000
	}
	if cfg.GraphHopper.Locale == "" {
		cfg.GraphHopper.Locale = "en"
	}

	// WebSocket
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = 8080
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Redis
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		problems = append(problems, "redis.port must be in 1..65535")
	}
	if c.Redis.CacheTTLMs < 0 {
		problems = append(problems, "redis.cache_ttl_ms cannot be negative")
	}

	// GraphHopper
	if !strings.HasPrefix(c.GraphHopper.BaseURL, "http://") && !strings.HasPrefix(c.GraphHopper.BaseURL, "https://") {
		problems = append(problems, "graphhopper.base_url must be an http(s) URL")
	}
	if c.GraphHopper.TimeoutMs <= 0 {
		problems = append(problems, "graphhopper.timeout_ms must be positive")
	}

	// WebSocket
	if c.WebSocket.Port <= 0 || c.WebSocket.Port > 65535 {
		problems = append(problems, "websocket.port must be in 1..65535")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// RouteTimeout returns the per-call deadline for routing-engine requests.
func (c *Config) RouteTimeout() time.Duration {
	return time.Duration(c.GraphHopper.TimeoutMs) * time.Millisecond
}

// IncidentCacheTTL returns the TTL for the recent-incident cache.
func (c *Config) IncidentCacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLMs) * time.Millisecond
}
