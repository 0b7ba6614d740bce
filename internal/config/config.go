// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	TelegramToken     string
	AdminIDs          []int64
	ClientSecretsPath string
	TokenPath         string
	RegistryPath      string
	ScratchDir        string
	FilePrefix        string
	PollTimeout       time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. SUBMAN_TELEGRAM_TOKEN and SUBMAN_ADMIN_IDS (comma-separated numeric
// chat ids) are required. Optional variables with defaults:
// SUBMAN_CLIENT_SECRETS (credentials.json), SUBMAN_TOKEN_PATH (token.json),
// SUBMAN_REGISTRY_PATH (subscriptions.json), SUBMAN_SCRATCH_DIR (os temp dir),
// SUBMAN_FILE_PREFIX (v2ray_sub), SUBMAN_POLL_TIMEOUT (30s).
func Load() (*Config, error) {
	token := os.Getenv("SUBMAN_TELEGRAM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("SUBMAN_TELEGRAM_TOKEN is required")
	}

	adminIDs, err := parseAdminIDs(os.Getenv("SUBMAN_ADMIN_IDS"))
	if err != nil {
		return nil, err
	}

	pollTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("SUBMAN_POLL_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SUBMAN_POLL_TIMEOUT has invalid duration %q: %w", v, err)
		}
		pollTimeout = parsed
	}

	return &Config{
		TelegramToken:     token,
		AdminIDs:          adminIDs,
		ClientSecretsPath: envOrDefault("SUBMAN_CLIENT_SECRETS", "credentials.json"),
		TokenPath:         envOrDefault("SUBMAN_TOKEN_PATH", "token.json"),
		RegistryPath:      envOrDefault("SUBMAN_REGISTRY_PATH", "subscriptions.json"),
		ScratchDir:        envOrDefault("SUBMAN_SCRATCH_DIR", os.TempDir()),
		FilePrefix:        envOrDefault("SUBMAN_FILE_PREFIX", "v2ray_sub"),
		PollTimeout:       pollTimeout,
	}, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SUBMAN_ADMIN_IDS has invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("SUBMAN_ADMIN_IDS is required (comma-separated chat ids)")
	}
	return ids, nil
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
