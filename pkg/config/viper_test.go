package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")

	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, 9999, v.GetInt("server.port"))
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	body := "server:\n  port: 7070\nwebsocket:\n  allowed_origins:\n    - http://a.example\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))

	v, err := Load(dir, "config")
	require.NoError(t, err)
	assert.Equal(t, 7070, v.GetInt("server.port"))
	assert.Equal(t, []string{"http://a.example"}, StringSlice(v, "websocket.allowed_origins"))
}

func TestLoad_BrokenYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := Load(dir, "config")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FANCHAT_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FANCHAT_TEST_VALUE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("FANCHAT_TEST_VALUE"))
}

func TestStringSlice(t *testing.T) {
	v := viper.New()
	v.Set("origins", "http://a.example, http://b.example,,")
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, StringSlice(v, "origins"))

	v.Set("empty", "")
	assert.Empty(t, StringSlice(v, "empty"))
}
