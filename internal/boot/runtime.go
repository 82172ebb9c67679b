// Package boot turns the loaded configuration into parsed runtime settings.
package boot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hivecast/ingestd/internal/config"
)

// RuntimeConfig holds parsed runtime settings (durations, addresses, node URLs).
// Values may be overridden by environment variables (HTTP_ADDR, PRIMARY_NODE_URL, FALLBACK_NODE_URL).
type RuntimeConfig struct {
	ServerAddr      string
	TusEndpoint     string
	PrimaryAPIURL   string
	PrimaryGateway  string
	FallbackAPIURL  string
	FallbackGateway string
	UploadTimeout   time.Duration
	MaxUploadBytes  int64
	TransferTTL     time.Duration
	EvictSchedule   string
	PurgeSchedule   string
	Retention       time.Duration
	UnpinRate       float64
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	uploadTimeout, err := parsePositiveDuration("storage.upload_timeout", cfg.Storage.UploadTimeout)
	if err != nil {
		return nil, err
	}
	transferTTL, err := parsePositiveDuration("intake.transfer_ttl", cfg.Intake.TransferTTL)
	if err != nil {
		return nil, err
	}
	retention, err := parsePositiveDuration("eviction.retention", cfg.Eviction.Retention)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		return nil, errors.New("storage.max_upload_bytes must be positive")
	}
	if strings.TrimSpace(cfg.Tus.Endpoint) == "" {
		return nil, errors.New("tus.endpoint is required")
	}

	ret := &RuntimeConfig{
		ServerAddr:      cfg.Server.Addr,
		TusEndpoint:     cfg.Tus.Endpoint,
		PrimaryAPIURL:   cfg.Storage.Primary.APIURL,
		PrimaryGateway:  cfg.Storage.Primary.GatewayURL,
		FallbackAPIURL:  cfg.Storage.Fallback.APIURL,
		FallbackGateway: cfg.Storage.Fallback.GatewayURL,
		UploadTimeout:   uploadTimeout,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		TransferTTL:     transferTTL,
		EvictSchedule:   cfg.Eviction.Schedule,
		PurgeSchedule:   cfg.Eviction.PurgeSchedule,
		Retention:       retention,
		UnpinRate:       cfg.Eviction.UnpinRate,
	}

	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}
	if value := os.Getenv("PRIMARY_NODE_URL"); value != "" {
		ret.PrimaryAPIURL = value
	}
	if value := os.Getenv("FALLBACK_NODE_URL"); value != "" {
		ret.FallbackAPIURL = value
	}

	if strings.TrimSpace(ret.PrimaryAPIURL) == "" || strings.TrimSpace(ret.FallbackAPIURL) == "" {
		return nil, errors.New("both primary and fallback storage nodes are required")
	}
	return ret, nil
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", field)
	}
	return d, nil
}
