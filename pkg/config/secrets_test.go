package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{EnvAnthropicAPIKey: "sk-ant-test"}

	assert.False(t, SecretsFileExists(dir))
	require.NoError(t, EncryptSecretsFile(dir, "correct horse", secrets))
	assert.True(t, SecretsFileExists(dir))

	info, err := os.Stat(filepath.Join(dir, SecretsDir, "secrets.json.enc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := DecryptSecretsFile(dir, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, secrets, got)

	_, err = DecryptSecretsFile(dir, "wrong")
	assert.Error(t, err)
}

func TestDecryptRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SecretsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SecretsDir, "secrets.json.enc"), []byte("short"), 0o600))

	_, err := DecryptSecretsFile(dir, "pw")
	assert.Error(t, err)
}
