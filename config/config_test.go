package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rvi-ar/casos-api/models"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
}

func TestLoadDefaultsBypassOff(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.False(t, conf.Auth.DevBypass)
	assert.Equal(t, 8*time.Second, conf.Auth.CallbackTimeout)
}

func TestLoadReadsBypassFromEnvironment(t *testing.T) {
	t.Setenv("DEV_BYPASS_AUTH", "true")
	conf, err := Load("")
	require.NoError(t, err)

	assert.True(t, conf.Auth.DevBypass)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "casos.yaml")
	content := `
env: development
dbUri: mongodb://yaml:27017
dbName: yaml-db
requestTimeout: 45s
auth:
  devBypass: true
mail:
  notifyEmails:
    - equipo@example.org
geo:
  cacheTTL: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DB_NAME", "env-db")
	t.Setenv("NOTIFY_EMAILS", "a@example.org, b@example.org")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://yaml:27017", conf.URL)
	assert.Equal(t, "env-db", conf.DatabaseName)
	assert.Equal(t, 45*time.Second, conf.RequestTimeout)
	assert.True(t, conf.Auth.DevBypass)
	assert.Equal(t, 2*time.Hour, conf.Geo.CacheTTL)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, conf.Mail.NotifyEmails)
	assert.Equal(t, "0 9 * * *", conf.Mail.AnniversarySchedule)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("no se pudo guardar", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "no se pudo guardar", body.Error)
	assert.Equal(t, "bad request", body.Details)
}

func TestErrorStatusWithoutError(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("falta el nombre", http.StatusBadRequest, rr, nil)

	assert.JSONEq(t, `{"error":"falta el nombre"}`, rr.Body.String())
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
