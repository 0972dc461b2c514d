package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: "9000"
database:
  driver: sqlite
  path: ":memory:"
auth:
  jwt_secret: "0123456789abcdef0123"
  token_ttl: 15m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_AppliesDefaults(t *testing.T) {
	cfg, v, err := LoadFile(writeConfig(t, baseYAML))
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, ":9000", cfg.Server.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 10, cfg.RateLimit.Login.Limit)
	assert.Equal(t, "1m", cfg.RateLimit.Login.Window)
	assert.Equal(t, 5*time.Minute, cfg.Cache.WalletTTL)
	assert.Equal(t, ":memory:", cfg.Database.DSN())
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoadFile_TrustedProxies(t *testing.T) {
	cfg, _, err := LoadFile(writeConfig(t, `
server:
  port: "9000"
  trusted_proxies:
    - "10.0.0.0/8"
    - "192.168.1.5"
auth:
  jwt_secret: "0123456789abcdef0123"
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.Server.TrustedProxies)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "overridden-secret-value")
	t.Setenv("SERVER_PORT", "9100")

	cfg, _, err := LoadFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "overridden-secret-value", cfg.Auth.JWTSecret)
	assert.Equal(t, "9100", cfg.Server.Port)
}

func TestLoadFile_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "unknown driver",
			body: `
database:
  driver: mysql
auth:
  jwt_secret: "0123456789abcdef0123"
`,
		},
		{
			name: "short jwt secret",
			body: `
auth:
  jwt_secret: "short"
`,
		},
		{
			name: "bot enabled without token",
			body: `
auth:
  jwt_secret: "0123456789abcdef0123"
bot:
  enabled: true
`,
		},
		{
			name: "malformed trusted proxy",
			body: `
server:
  trusted_proxies:
    - "10.0.0.0/33"
auth:
  jwt_secret: "0123456789abcdef0123"
`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := LoadFile(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     "5432",
		User:     "tracker",
		Password: "p@ss",
		Name:     "tracker",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://tracker:p%40ss@db:5432/tracker?sslmode=disable", cfg.DSN())
}
