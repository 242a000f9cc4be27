package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"matching-backend/internal/middleware"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	AWS       AWSConfig       `yaml:"aws"`
	APNs      APNsConfig      `yaml:"apns"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustedProxies lists the IPs or CIDR ranges of reverse proxies whose
	// X-Forwarded-For header is believed. Empty means the peer address is used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig holds database configuration. URL takes precedence over
// the individual fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpiryDays int    `yaml:"expiry_days"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig holds registration settings
type AuthConfig struct {
	RequireInviteCode bool `yaml:"require_invite_code"`
	BcryptCost        int  `yaml:"bcrypt_cost"`
}

// StorageConfig selects where photos go
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	UploadDir   string `yaml:"upload_dir"`
	PublicPath  string `yaml:"public_path"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region        string `yaml:"region"`
	S3Bucket      string `yaml:"s3_bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// APNsConfig holds Apple push credentials. Push is off without a key file.
type APNsConfig struct {
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// RateLimitConfig limits auth endpoints per client IP
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// AdminConfig bootstraps the first admin account and a seed invite code
type AdminConfig struct {
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	Age            int    `yaml:"age"`
	SeedInviteCode string `yaml:"seed_invite_code"`
}

// Default returns the configuration used for anything a file leaves unset
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3001,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "matching",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		JWT: JWTConfig{
			ExpiryDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Auth: AuthConfig{
			RequireInviteCode: true,
			BcryptCost:        10,
		},
		Storage: StorageConfig{
			Driver:      "local",
			UploadDir:   "uploads",
			PublicPath:  "/uploads",
			MaxUploadMB: 5,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 20,
			Burst:             10,
		},
		Admin: AdminConfig{
			Name: "Admin",
			Age:  30,
		},
	}
}

// Load reads an optional .env file, the YAML file at path and then
// environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REQUIRE_INVITE_CODE"); v != "" {
		require, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REQUIRE_INVITE_CODE %q: %w", v, err)
		}
		c.Auth.RequireInviteCode = require
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.AWS.S3Bucket == "" {
			return errors.New("aws.s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.MaxUploadMB <= 0 {
		return errors.New("storage.max_upload_mb must be positive")
	}
	if _, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return fmt.Errorf("invalid server.trusted_proxies: %w", err)
	}
	if c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.requests_per_minute and rate_limit.burst must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
