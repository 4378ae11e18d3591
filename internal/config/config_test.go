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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: mpf
  user: mpf
  password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 0.4, cfg.Match.MatchThreshold)
	assert.Equal(t, 0.8, cfg.Match.LowConfidenceThreshold)
	assert.Equal(t, "https://tabaarakict.so/SendSMS.aspx", cfg.SMS.GatewayURL)
	assert.Equal(t, 10*time.Second, cfg.SMS.SendTimeout)
	assert.Equal(t, 2, cfg.SMS.MaxRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
match:
  match_threshold: 0.35
  low_confidence_threshold: 0.9
sms:
  gateway_url: http://gateway.local/send
  username: acct
  password: pw
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.35, cfg.Match.MatchThreshold)
	assert.Equal(t, 0.9, cfg.Match.LowConfidenceThreshold)
	assert.Equal(t, "http://gateway.local/send", cfg.SMS.GatewayURL)
	assert.Equal(t, "acct", cfg.SMS.Username)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MPF_SERVER_PORT", "7070")
	t.Setenv("MPF_DB_HOST", "db.internal")
	t.Setenv("MPF_SMS_USERNAME", "envuser")

	path := writeConfig(t, `
server:
  port: 9090
database:
  host: localhost
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "envuser", cfg.SMS.Username)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, Name: "db", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@h:5433/db?sslmode=disable", d.DSN())
}
