package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every SUBMAN_ env var that Load() reads.
var allConfigKeys = []string{
	"SUBMAN_TELEGRAM_TOKEN",
	"SUBMAN_ADMIN_IDS",
	"SUBMAN_CLIENT_SECRETS",
	"SUBMAN_TOKEN_PATH",
	"SUBMAN_REGISTRY_PATH",
	"SUBMAN_SCRATCH_DIR",
	"SUBMAN_FILE_PREFIX",
	"SUBMAN_POLL_TIMEOUT",
}

// isolateConfigEnv saves and unsets all SUBMAN_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("SUBMAN_ADMIN_IDS", "1001, 2002")
	t.Setenv("SUBMAN_CLIENT_SECRETS", "/etc/subman/credentials.json")
	t.Setenv("SUBMAN_TOKEN_PATH", "/var/lib/subman/token.json")
	t.Setenv("SUBMAN_REGISTRY_PATH", "/var/lib/subman/subscriptions.json")
	t.Setenv("SUBMAN_SCRATCH_DIR", "/var/tmp/subman")
	t.Setenv("SUBMAN_FILE_PREFIX", "mysub")
	t.Setenv("SUBMAN_POLL_TIMEOUT", "45s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "123456:test-token", cfg.TelegramToken)
	assert.Equal(t, []int64{1001, 2002}, cfg.AdminIDs)
	assert.Equal(t, "/etc/subman/credentials.json", cfg.ClientSecretsPath)
	assert.Equal(t, "/var/lib/subman/token.json", cfg.TokenPath)
	assert.Equal(t, "/var/lib/subman/subscriptions.json", cfg.RegistryPath)
	assert.Equal(t, "/var/tmp/subman", cfg.ScratchDir)
	assert.Equal(t, "mysub", cfg.FilePrefix)
	assert.Equal(t, 45*time.Second, cfg.PollTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("SUBMAN_ADMIN_IDS", "1001")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "credentials.json", cfg.ClientSecretsPath)
	assert.Equal(t, "token.json", cfg.TokenPath)
	assert.Equal(t, "subscriptions.json", cfg.RegistryPath)
	assert.Equal(t, os.TempDir(), cfg.ScratchDir)
	assert.Equal(t, "v2ray_sub", cfg.FilePrefix)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
}

func TestLoad_MissingTelegramToken(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_ADMIN_IDS", "1001")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMAN_TELEGRAM_TOKEN")
}

func TestLoad_MissingAdminIDs(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMAN_ADMIN_IDS")
}

func TestLoad_AdminIDs_NotNumeric(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("SUBMAN_ADMIN_IDS", "1001,bogus")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoad_AdminIDs_OnlySeparators(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("SUBMAN_ADMIN_IDS", " , ,")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMAN_ADMIN_IDS")
}

func TestLoad_InvalidPollTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBMAN_TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("SUBMAN_ADMIN_IDS", "1001")
	t.Setenv("SUBMAN_POLL_TIMEOUT", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBMAN_POLL_TIMEOUT")
}
