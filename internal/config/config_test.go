package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points every config path at a temp dir so Load never touches the
// real home directory.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv("PUSHTRAY_CONFIG_PATH", "")
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	Load()

	require.Equal(t, "http://localhost:8080/api", Get("backend_url", ""))
	require.Equal(t, 3, GetInt("token_retry_attempts", 0))
	require.Equal(t, 1000, GetInt("token_retry_delay_ms", 0))
	require.Equal(t, 10, GetInt("feed_page_limit", 0))
	require.Equal(t, "v1", Get("cache_version", ""))
	require.True(t, GetBool("toast_enabled", false))
	require.False(t, GetBool("logging_enabled", true))
}

func TestEnvOverridesFile(t *testing.T) {
	tmp := isolate(t)

	configDir := filepath.Join(tmp, "config", "pushtray")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "config.toml"),
		[]byte("backend_url = \"http://from-file:9090/api\"\nfeed_page_limit = 25\n"),
		0644,
	))
	t.Setenv("PUSHTRAY_BACKEND_URL", "http://from-env:7070/api")

	Load()

	require.Equal(t, "http://from-env:7070/api", Get("backend_url", ""))
	require.Equal(t, 25, GetInt("feed_page_limit", 0))
}

func TestInvalidValueFallsBackToDefault(t *testing.T) {
	isolate(t)
	t.Setenv("PUSHTRAY_TOKEN_RETRY_ATTEMPTS", "-5")
	t.Setenv("PUSHTRAY_LOGGING_LEVEL", "loud")

	Load()

	require.Equal(t, 3, GetInt("token_retry_attempts", 0))
	require.Equal(t, "info", Get("logging_level", ""))
}

func TestBoolNormalization(t *testing.T) {
	isolate(t)
	t.Setenv("PUSHTRAY_TOAST_ENABLED", "off")
	t.Setenv("PUSHTRAY_DEBUG", "1")

	Load()

	require.False(t, GetBool("toast_enabled", true))
	require.True(t, GetBool("debug", false))
}

func TestGetList(t *testing.T) {
	isolate(t)
	t.Setenv("PUSHTRAY_OFFLINE_ASSETS", "/,/offline.html, /styles.css,")

	Load()

	require.Equal(t, []string{"/", "/offline.html", "/styles.css"}, GetList("offline_assets"))
	require.Nil(t, GetList("missing_key"))
}

func TestCreatesSampleConfig(t *testing.T) {
	tmp := isolate(t)
	Load()

	sample := filepath.Join(tmp, "config", "pushtray", "config.toml")
	_, err := os.Stat(sample)
	require.NoError(t, err)
}

func TestSetOverridesAtRuntime(t *testing.T) {
	isolate(t)
	Load()

	Set("backend_url", "http://override:1234/api")
	require.Equal(t, "http://override:1234/api", Get("backend_url", ""))
}
