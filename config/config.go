package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port            int           `toml:"port"`
	AssetDir        string        `toml:"asset_dir"`
	AssetBaseURL    string        `toml:"asset_base_url"`
	WorkDir         string        `toml:"work_dir"`
	FFmpegPath      string        `toml:"ffmpeg_path"`
	MaxUploadSizeMB int           `toml:"max_upload_size_mb"`
	BlobTTL         time.Duration `toml:"-"`
	BlobTTLRaw      string        `toml:"blob_ttl"`
	DBPath          string        `toml:"db_path"`
	LogLevel        string        `toml:"log_level"`
	LogFile         string        `toml:"log_file"`
	CSRFSecret      string        `toml:"csrf_secret"`
}

func defaults() *Config {
	return &Config{
		Port:            7891,
		AssetDir:        "./public/ffmpeg",
		WorkDir:         os.TempDir(),
		FFmpegPath:      "ffmpeg",
		MaxUploadSizeMB: 500,
		BlobTTLRaw:      "2m",
		DBPath:          ":memory:",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional TOML file named by
// FFPOC_CONFIG, and the environment (a .env file in the working directory is
// read first and never overrides variables that are already set).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("FFPOC_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	if c.MaxUploadSizeMB, err = getEnvInt("MAX_UPLOAD_SIZE_MB", c.MaxUploadSizeMB); err != nil {
		return err
	}
	c.AssetDir = getEnv("ASSET_DIR", c.AssetDir)
	c.AssetBaseURL = getEnv("ASSET_BASE_URL", c.AssetBaseURL)
	c.WorkDir = getEnv("WORK_DIR", c.WorkDir)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.BlobTTLRaw = getEnv("BLOB_TTL", c.BlobTTLRaw)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.CSRFSecret = getEnv("CSRF_SECRET", c.CSRFSecret)
	return nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: %d", c.MaxUploadSizeMB)
	}
	ttl, err := time.ParseDuration(c.BlobTTLRaw)
	if err != nil {
		return fmt.Errorf("invalid BLOB_TTL: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("invalid BLOB_TTL: must be positive")
	}
	c.BlobTTL = ttl
	if strings.TrimSpace(c.AssetDir) == "" {
		return fmt.Errorf("ASSET_DIR is required")
	}
	return nil
}

// ServerAssetBase returns the base URL the server bootstraps from: the
// configured one, or the server's own origin.
func (c *Config) ServerAssetBase() string {
	if c.AssetBaseURL != "" {
		return strings.TrimSuffix(c.AssetBaseURL, "/")
	}
	return fmt.Sprintf("http://127.0.0.1:%d/ffmpeg", c.Port)
}

// LocalAssetBase returns the base URL headless runs bootstrap from.
func (c *Config) LocalAssetBase() string {
	if c.AssetBaseURL != "" {
		return strings.TrimSuffix(c.AssetBaseURL, "/")
	}
	return "file:///"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
