package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/agevault/internal/config"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

// TestResolveDefaults verifies built-in defaults are derived from the
// home directory when nothing else is set
func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := config.Resolve(config.Options{
		Getenv: fakeEnv(nil),
		Home:   home,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".agevault"), cfg.VaultDir)
	assert.Equal(t, filepath.Join(home, ".agevault", "key.txt"), cfg.KeyFile)
	assert.Equal(t, filepath.Join(home, ".agevault", "secrets.json.age"), cfg.SecretsFile)
	assert.Equal(t, filepath.Join(home, ".config/agevault", "config.yaml"), cfg.ConfigFile)
	assert.False(t, cfg.YubiKeyEnabled)
	assert.Equal(t, "9a", cfg.YubiKeySlot)
	assert.True(t, cfg.YubiKeyRequireTouch)
	assert.True(t, cfg.YubiKeyPINPrompt)
	assert.NotNil(t, cfg.Logger)
}

// TestResolvePrecedence verifies override beats environment beats config
// file beats default for the same setting
func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	configFile := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"vault_dir: /from/file\nkey_file: /from/file/key.txt\nsecrets_file: /from/file/secrets.age\n"), 0o600))

	env := fakeEnv(map[string]string{
		config.EnvVaultDir: "/from/env",
		config.EnvKeyFile:  "/from/env/key.txt",
	})

	cfg, err := config.Resolve(config.Options{
		VaultDir:   "/from/override",
		ConfigFile: configFile,
		Getenv:     env,
		Home:       home,
	})
	require.NoError(t, err)

	// Override wins over env and file.
	assert.Equal(t, "/from/override", cfg.VaultDir)
	// Env wins over file.
	assert.Equal(t, "/from/env/key.txt", cfg.KeyFile)
	// File wins over default.
	assert.Equal(t, "/from/file/secrets.age", cfg.SecretsFile)
}

// TestResolveYubiKeyFromFile verifies the yubikey section of the config
// file is honored
func TestResolveYubiKeyFromFile(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	configFile := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"yubikey:\n  enabled: true\n  slot: 9c\n  require_touch: false\n"), 0o600))

	cfg, err := config.Resolve(config.Options{
		ConfigFile: configFile,
		Getenv:     fakeEnv(nil),
		Home:       home,
	})
	require.NoError(t, err)

	assert.True(t, cfg.YubiKeyEnabled)
	assert.Equal(t, "9c", cfg.YubiKeySlot)
	assert.False(t, cfg.YubiKeyRequireTouch)
	assert.True(t, cfg.YubiKeyPINPrompt, "unset file value keeps the default")
}

// TestResolveBoolEnvForms verifies the accepted truthy spellings and
// that anything else reads as false
func TestResolveBoolEnvForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"banana", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Resolve(config.Options{
				Getenv: fakeEnv(map[string]string{config.EnvYubiKeyEnabled: tt.value}),
				Home:   t.TempDir(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.YubiKeyEnabled)
		})
	}
}

// TestResolveEnvVarOverridesConfigLocation verifies AGEVAULT_CONFIG
// selects an alternate config file
func TestResolveEnvVarOverridesConfigLocation(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	altConfig := filepath.Join(home, "alt.yaml")
	require.NoError(t, os.WriteFile(altConfig, []byte("vault_dir: /alt/vault\n"), 0o600))

	cfg, err := config.Resolve(config.Options{
		Getenv: fakeEnv(map[string]string{config.EnvConfigFile: altConfig}),
		Home:   home,
	})
	require.NoError(t, err)

	assert.Equal(t, altConfig, cfg.ConfigFile)
	assert.Equal(t, "/alt/vault", cfg.VaultDir)
}

// TestResolveMissingConfigFileIsFine verifies a nonexistent config file
// is treated as empty, not as an error
func TestResolveMissingConfigFileIsFine(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := config.Resolve(config.Options{
		ConfigFile: filepath.Join(home, "does-not-exist.yaml"),
		Getenv:     fakeEnv(nil),
		Home:       home,
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".agevault"), cfg.VaultDir)
}

// TestResolveInvalidYAML verifies a malformed config file fails with a
// suggestion rather than a raw parser error
func TestResolveInvalidYAML(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	configFile := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("vault_dir: [unclosed\n"), 0o600))

	_, err := config.Resolve(config.Options{
		ConfigFile: configFile,
		Getenv:     fakeEnv(nil),
		Home:       home,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid YAML")
	assert.Contains(t, err.Error(), configFile)
}

// TestKeyPubFile verifies the companion public key path
func TestKeyPubFile(t *testing.T) {
	t.Parallel()

	cfg := config.Config{KeyFile: "/vault/key.txt"}
	assert.Equal(t, "/vault/key.txt.pub", cfg.KeyPubFile())
}

// TestEnsureDirectories verifies vault and config dirs are created with
// owner-only permissions
func TestEnsureDirectories(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := config.Config{
		VaultDir:  filepath.Join(base, "vault"),
		ConfigDir: filepath.Join(base, "config"),
	}

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.VaultDir, cfg.ConfigDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}
