package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears viper's global state between tests.
func resetViper() {
	viper.Reset()
}

func unsetEnvKeys(keys ...string) {
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper()
	unsetEnvKeys("SERVER_PORT", "SERVER_HOST", "CATALOG_METADATA_SOURCE_PATH")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, 8530, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Catalog.MetadataSourcePath)
	assert.False(t, cfg.ContentStoreConfigured())
	assert.JSONEq(t, `{}`, string(cfg.Properties))
}

func TestLoadConfig_File(t *testing.T) {
	resetViper()
	unsetEnvKeys("SERVER_PORT")

	jsonCfg := `{
		"server": {"port": 9090, "host": "127.0.0.1"},
		"log": {"level": "debug"},
		"catalog": {"metadata_source_path": "/var/lib/updates"},
		"content": {"content_dir": "/var/lib/content", "content_http_root": "http://srv:9090"}
	}`
	path := writeTempJSON(t, jsonCfg)

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/lib/updates", cfg.Catalog.MetadataSourcePath)
	assert.True(t, cfg.ContentStoreConfigured())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetViper()
	jsonCfg := `{"server": {"port": 8080}}`
	path := writeTempJSON(t, jsonCfg)

	require.NoError(t, os.Setenv("SERVER_PORT", "9091"))
	t.Cleanup(func() { unsetEnvKeys("SERVER_PORT") })

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9091, cfg.Server.Port, "env should override file")
}

func TestLoadConfig_ValidationError(t *testing.T) {
	resetViper()
	unsetEnvKeys("SERVER_PORT")

	jsonCfg := `{"server": {"port": -1}}`
	path := writeTempJSON(t, jsonCfg)

	cfg, err := LoadConfig(path, "")
	require.Error(t, err, "validation should fail for invalid server.port")
	assert.Nil(t, cfg)
}

func TestLoadConfig_ContentRootRequiresDir(t *testing.T) {
	resetViper()

	jsonCfg := `{"content": {"content_http_root": "http://srv:9090"}}`
	path := writeTempJSON(t, jsonCfg)

	cfg, err := LoadConfig(path, "")
	require.Error(t, err, "content_http_root without content_dir must fail validation")
	assert.Nil(t, cfg)
}

func TestLoadConfig_PropertiesPassthrough(t *testing.T) {
	resetViper()

	propsPath := writeTempJSON(t, `{"SomeSetting": "value", "Nested": {"A": 1}}`)

	cfg, err := LoadConfig("", propsPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"SomeSetting": "value", "Nested": {"A": 1}}`, string(cfg.Properties))
}

func TestLoadConfig_InvalidPropertiesJSON(t *testing.T) {
	resetViper()

	propsPath := writeTempJSON(t, `not json`)

	_, err := LoadConfig("", propsPath)
	require.Error(t, err)
}
