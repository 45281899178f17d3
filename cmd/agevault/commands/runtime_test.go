package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/agevault/internal/config"
	"github.com/systmms/agevault/internal/logging"
)

func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	dir := t.TempDir()
	logger := logging.New(false, true)
	return &Runtime{
		Config: config.Config{
			VaultDir:    dir,
			KeyFile:     filepath.Join(dir, "key.txt"),
			SecretsFile: filepath.Join(dir, "secrets.json.age"),
			Logger:      logger,
		},
		Logger: logger,
	}
}

func TestLoadSecrets_MissingFile(t *testing.T) {
	rt := testRuntime(t)

	_, err := loadSecrets(context.Background(), rt)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No secrets file found")
	assert.Contains(t, err.Error(), "agevault init")
}

func TestLoadSecrets_PlaintextSessionFile(t *testing.T) {
	rt := testRuntime(t)

	// A session exports AGEVAULT_SECRETS pointing at a decrypted file
	// without the .age suffix; that path skips the vault entirely.
	plain := filepath.Join(rt.Config.VaultDir, "secrets.json")
	require.NoError(t, os.WriteFile(plain, []byte(`{"env":{"API_KEY":"k"}}`), 0o600))
	rt.Config.SecretsFile = plain

	secrets, err := loadSecrets(context.Background(), rt)

	require.NoError(t, err)
	assert.Equal(t, "k", secrets["env"]["API_KEY"])
}

func TestLoadSecrets_RejectsMalformedDocument(t *testing.T) {
	rt := testRuntime(t)

	plain := filepath.Join(rt.Config.VaultDir, "secrets.json")
	require.NoError(t, os.WriteFile(plain, []byte(`["not","an","object"]`), 0o600))
	rt.Config.SecretsFile = plain

	_, err := loadSecrets(context.Background(), rt)

	assert.Error(t, err)
}
