package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config is the resolved service configuration
type Config struct {
	Server         ServerConfig   `yaml:"server"`
	Database       DatabaseConfig `yaml:"database"`
	Redis          RedisConfig    `yaml:"redis"`
	JWT            JWTConfig      `yaml:"jwt"`
	CORS           CORSConfig     `yaml:"cors"`
	Chat           ChatConfig     `yaml:"chat"`
	I18nDir        string         `yaml:"i18n_dir"`
	InternalAPIKey string         `yaml:"internal_api_key"`
}

type ServerConfig struct {
	Mode string `yaml:"mode"` // debug, release, test
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	Port            int    `yaml:"port"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN returns the MySQL DSN. Times are stored and read as UTC.
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"` // comma separated
}

// ChatConfig tunes the messaging core
type ChatConfig struct {
	DefaultPageSize       int           `yaml:"default_page_size"`
	MaxPageSize           int           `yaml:"max_page_size"`
	MaxContentLength      int           `yaml:"max_content_length"`
	SendRatePerMinute     int           `yaml:"send_rate_per_minute"`
	SubscriberBuffer      int           `yaml:"subscriber_buffer"`
	ResubscribeMaxElapsed time.Duration `yaml:"resubscribe_max_elapsed"`
	ImageHosts            []string      `yaml:"image_hosts"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{Mode: "debug", Env: "local", Port: 8090},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            3306,
			User:            "courtside",
			DBName:          "courtside",
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379, PoolSize: 20},
		JWT:   JWTConfig{ExpiresIn: 3600},
		CORS:  CORSConfig{AllowOrigins: "http://localhost:3000"},
		Chat: ChatConfig{
			DefaultPageSize:       50,
			MaxPageSize:           100,
			MaxContentLength:      2000,
			SendRatePerMinute:     30,
			SubscriberBuffer:      64,
			ResubscribeMaxElapsed: 30 * time.Second,
		},
		I18nDir: "i18n",
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		pkglogger.Warn("config file %s not found, using defaults and environment", path)
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Mode, "GIN_MODE")
	setString(&cfg.Server.Env, "APP_ENV")
	setInt(&cfg.Server.Port, "SERVER_PORT")

	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")

	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")
	setString(&cfg.InternalAPIKey, "INTERNAL_API_KEY")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		pkglogger.Warn("ignoring %s=%q: not a number", key, v)
		return
	}
	*dst = n
}

// Validate checks the values the service cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return errors.New("jwt.secret (JWT_SECRET) is required outside development")
	}
	if c.Chat.DefaultPageSize <= 0 || c.Chat.MaxPageSize < c.Chat.DefaultPageSize {
		return fmt.Errorf("chat page sizes invalid: default=%d max=%d", c.Chat.DefaultPageSize, c.Chat.MaxPageSize)
	}
	if c.Chat.MaxContentLength <= 0 {
		return fmt.Errorf("chat.max_content_length must be positive")
	}
	if c.Chat.SubscriberBuffer <= 0 {
		c.Chat.SubscriberBuffer = 64
	}
	return nil
}

// IsDevelopment reports whether the service runs in a local/dev environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "", "local", "dev", "development", "test":
		return true
	}
	return false
}

// CORSOrigins splits the configured allow list
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORS.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LogResolved logs the effective configuration with secrets masked
func LogResolved(c *Config) {
	pkglogger.Info("config: env=%s mode=%s port=%d", c.Server.Env, c.Server.Mode, c.Server.Port)
	pkglogger.Info("config: db=%s@%s:%d/%s password=%s", c.Database.User, c.Database.Host, c.Database.Port, c.Database.DBName, mask(c.Database.Password))
	pkglogger.Info("config: redis=%s:%d db=%d password=%s", c.Redis.Host, c.Redis.Port, c.Redis.DB, mask(c.Redis.Password))
	pkglogger.Info("config: jwt.secret=%s internal_api_key=%s", mask(c.JWT.Secret), mask(c.InternalAPIKey))
	pkglogger.Info("config: chat page=%d/%d content<=%d rate=%d/min buffer=%d resubscribe<=%s",
		c.Chat.DefaultPageSize, c.Chat.MaxPageSize, c.Chat.MaxContentLength,
		c.Chat.SendRatePerMinute, c.Chat.SubscriberBuffer, c.Chat.ResubscribeMaxElapsed)
}

func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
