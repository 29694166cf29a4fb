// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  url: postgres://localhost:5432/propertynext
redis:
  url: redis://localhost:6379/0
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "PropertyNext API", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpire)
	assert.Equal(t, 168*time.Hour, cfg.JWT.RefreshTokenExpire)
	assert.Equal(t, "propertynext", cfg.JWT.Issuer)

	assert.Equal(t, 5, cfg.Auth.MaxFailedLogins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, 2, cfg.Auth.MaxActiveDevices)
	assert.False(t, cfg.Auth.EvictOnDeviceCap)
	assert.Equal(t, "/api/auth/refresh", cfg.Auth.RefreshCookiePath)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
auth:
  max_failed_logins: 3
  lockout_duration: 10m
  max_active_devices: 5
  evict_on_device_limit: true
server:
  port: 9000
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Auth.MaxFailedLogins)
	assert.Equal(t, 10*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, 5, cfg.Auth.MaxActiveDevices)
	assert.True(t, cfg.Auth.EvictOnDeviceCap)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("AUTH_MAX_ACTIVE_DEVICES", "7")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Auth.MaxActiveDevices)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, `
redis:
  url: redis://localhost:6379/0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsInvalidLockout(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
auth:
  max_failed_logins: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_failed_logins")
}

func TestLoadRejectsZeroDeviceCap(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
auth:
  max_active_devices: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_active_devices")
}

func TestLoadRejectsCredentialedWildcardCORS(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
cors:
  allowed_origins: ["*"]
  allow_credentials: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard")
}
