// Package config loads and exposes application configuration (TOML).
package config

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultEnvPath        = ".env"
	DefaultHTTPAddr       = ":8080"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "ingestd"
	DefaultPGSSLMode      = "disable"
	DefaultTusEndpoint    = "http://127.0.0.1:1080/files/"
	DefaultTusUploadDir   = "/tmp/tusd"
	DefaultPrimaryAPI     = "http://127.0.0.1:5001"
	DefaultPrimaryGateway = "https://ipfs.io"
	DefaultFallbackAPI    = "http://127.0.0.1:5002"
	DefaultFallbackGW     = "http://127.0.0.1:8081"
	DefaultUploadTimeout  = "120s"
	DefaultMaxUploadBytes = 8 << 30
	DefaultTransferTTL    = "1h"
	DefaultEvictSchedule  = "@daily"
	DefaultRetention      = "168h"
	DefaultUnpinRate      = 5.0
	DefaultPurgeSchedule  = "@every 15m"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Tus      TusConfig      `toml:"tus"`
	Storage  StorageConfig  `toml:"storage"`
	Intake   IntakeConfig   `toml:"intake"`
	Eviction EvictionConfig `toml:"eviction"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TusConfig describes the resumable-upload server clients transfer to.
type TusConfig struct {
	Endpoint  string `toml:"endpoint"`
	UploadDir string `toml:"upload_dir"`
}

// NodeConfig addresses one content-addressed storage node.
type NodeConfig struct {
	APIURL     string `toml:"api_url"`
	GatewayURL string `toml:"gateway_url"`
}

// StorageConfig holds the primary and fallback nodes and upload limits.
type StorageConfig struct {
	Primary        NodeConfig `toml:"primary"`
	Fallback       NodeConfig `toml:"fallback"`
	UploadTimeout  string     `toml:"upload_timeout"`
	MaxUploadBytes int64      `toml:"max_upload_bytes"`
}

// IntakeConfig holds upload-first transfer settings.
type IntakeConfig struct {
	TransferTTL string `toml:"transfer_ttl"`
}

// EvictionConfig holds the retention sweep settings.
type EvictionConfig struct {
	Schedule      string  `toml:"schedule"`
	Retention     string  `toml:"retention"`
	UnpinRate     float64 `toml:"unpin_rate"`
	PurgeSchedule string  `toml:"transfer_purge_schedule"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Tus: TusConfig{
			Endpoint:  DefaultTusEndpoint,
			UploadDir: DefaultTusUploadDir,
		},
		Storage: StorageConfig{
			Primary: NodeConfig{
				APIURL:     DefaultPrimaryAPI,
				GatewayURL: DefaultPrimaryGateway,
			},
			Fallback: NodeConfig{
				APIURL:     DefaultFallbackAPI,
				GatewayURL: DefaultFallbackGW,
			},
			UploadTimeout:  DefaultUploadTimeout,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Intake: IntakeConfig{
			TransferTTL: DefaultTransferTTL,
		},
		Eviction: EvictionConfig{
			Schedule:      DefaultEvictSchedule,
			Retention:     DefaultRetention,
			UnpinRate:     DefaultUnpinRate,
			PurgeSchedule: DefaultPurgeSchedule,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
// A .env file next to the working directory is loaded first so env overrides can live there.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(DefaultEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
