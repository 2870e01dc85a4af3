package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("ROSTER_HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestInitializeCreatesDefaults(t *testing.T) {
	dir := setupHome(t)

	require.NoError(t, Initialize())

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", AppConfig.APIURL)
	assert.Equal(t, "update", AppConfig.DefaultDecision)
	assert.Equal(t, time.Duration(0), AppConfig.RequestTimeout)
	assert.True(t, AppConfig.HistoryEnabled)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigPath())
}

func TestInitializeEnvOverride(t *testing.T) {
	setupHome(t)
	t.Setenv("ROSTER_API_TOKEN", "secret")
	t.Setenv("ROSTER_REQUEST_TIMEOUT", "15s")

	require.NoError(t, Initialize())
	assert.Equal(t, "secret", AppConfig.APIToken)
	assert.Equal(t, 15*time.Second, AppConfig.RequestTimeout)
}

func TestInitializeRejectsBadDecision(t *testing.T) {
	dir := setupHome(t)
	cfg := "api_url: http://x\ndefault_decision: merge\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0600))

	err := Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_decision")
}

func TestSetPersists(t *testing.T) {
	dir := setupHome(t)
	require.NoError(t, Initialize())

	require.NoError(t, Set("default_decision", "skip"))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "skip")
	assert.Equal(t, "skip", Get("default_decision"))
}

func TestSetKeepsEnvValuesOutOfFile(t *testing.T) {
	dir := setupHome(t)
	t.Setenv("ROSTER_API_TOKEN", "env-secret")
	require.NoError(t, Initialize())

	require.NoError(t, Set("default_decision", "skip"))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-secret")
	assert.Contains(t, string(data), "skip")
	assert.Equal(t, "env-secret", Get("api_token"))
}

func TestSetRejectsInvalidValue(t *testing.T) {
	dir := setupHome(t)
	require.NoError(t, Initialize())

	err := Set("request_timeout", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_timeout")

	require.Error(t, Set("default_decision", "merge"))
	assert.Equal(t, "update", Get("default_decision"))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "merge")
}

func TestIsKey(t *testing.T) {
	assert.True(t, IsKey("api_url"))
	assert.False(t, IsKey("openai_key"))
}
