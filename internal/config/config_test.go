package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(65536), cfg.Server.ReadLimit)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/battles.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "P", cfg.Battle.DefaultLand)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")

	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"
shutdown_timeout = "2s"

[logging]
level = "debug"
format = "json"

[battle]
default_land = "T"
max_sessions = 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "titan-battle", cfg.Server.Name, "unset keys keep their defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "T", cfg.Battle.DefaultLand)
	assert.Equal(t, 4, cfg.Battle.MaxSessions)
}

func TestLoad_EnvWins(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DB_PATH", "/tmp/other.db")

	cfg, err := Load(writeConfig(t, "[server]\naddr = \":9000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[server\naddr = 1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[battle]\nmax_sessions = 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[logging]\nformat = \"xml\"\n"))
	assert.Error(t, err)
}
