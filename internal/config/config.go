// Package config resolves the vault's paths and feature flags.
//
// Resolution order is fixed: explicit override > environment variable >
// config file > built-in default. A Config is resolved once from an
// environment snapshot and is immutable afterwards; components receive
// it by value through their constructors. There is no process-wide
// singleton and no reset function; tests build a fresh Config from a
// fake environment instead.
package config

import (
	"os"
	"path/filepath"
	"strings"

	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/logging"
	"gopkg.in/yaml.v3"
)

// Environment variable names consulted during resolution.
const (
	EnvVaultDir            = "AGEVAULT_DIR"
	EnvConfigFile          = "AGEVAULT_CONFIG"
	EnvConfigDir           = "AGEVAULT_CONFIG_DIR"
	EnvKeyFile             = "AGEVAULT_KEY"
	EnvSecretsFile         = "AGEVAULT_SECRETS"
	EnvYubiKeyEnabled      = "AGEVAULT_YUBIKEY_ENABLED"
	EnvYubiKeySlot         = "AGEVAULT_YUBIKEY_SLOT"
	EnvYubiKeyRequireTouch = "AGEVAULT_YUBIKEY_REQUIRE_TOUCH"
	EnvYubiKeyPINPrompt    = "AGEVAULT_YUBIKEY_PIN_PROMPT"
)

// Built-in defaults, relative to the user's home directory.
const (
	defaultVaultDirName  = ".agevault"
	defaultConfigDirName = ".config/agevault"
	defaultConfigName    = "config.yaml"
	defaultKeyName       = "key.txt"
	defaultSecretsName   = "secrets.json.age"

	// DefaultSlot is the PIV slot used when none is configured.
	DefaultSlot = "9a"
)

// Config is the resolved, immutable runtime configuration.
type Config struct {
	VaultDir    string
	ConfigDir   string
	ConfigFile  string
	KeyFile     string
	SecretsFile string

	YubiKeyEnabled      bool
	YubiKeySlot         string
	YubiKeyRequireTouch bool
	YubiKeyPINPrompt    bool

	Logger *logging.Logger
}

// KeyPubFile returns the companion public-key file path for the key file.
func (c Config) KeyPubFile() string {
	return c.KeyFile + ".pub"
}

// Options holds explicit overrides, the highest-precedence source.
// Zero values mean "not overridden".
type Options struct {
	VaultDir    string
	ConfigFile  string
	KeyFile     string
	SecretsFile string

	// Getenv supplies the environment snapshot. Defaults to os.Getenv.
	// Tests inject a map-backed lookup here to get deterministic configs.
	Getenv func(string) string

	// Home overrides the home directory used for built-in defaults.
	Home string

	Logger *logging.Logger
}

// fileValues is the on-disk config file shape.
type fileValues struct {
	VaultDir    string `yaml:"vault_dir,omitempty"`
	KeyFile     string `yaml:"key_file,omitempty"`
	SecretsFile string `yaml:"secrets_file,omitempty"`
	YubiKey     struct {
		Enabled      *bool  `yaml:"enabled,omitempty"`
		Slot         string `yaml:"slot,omitempty"`
		RequireTouch *bool  `yaml:"require_touch,omitempty"`
		PINPrompt    *bool  `yaml:"pin_prompt,omitempty"`
	} `yaml:"yubikey,omitempty"`
}

// Resolve builds a Config from the given options and environment snapshot.
func Resolve(opts Options) (Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	home := opts.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	configDir := firstPath(getenv(EnvConfigDir), filepath.Join(home, defaultConfigDirName))

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = firstPath(getenv(EnvConfigFile), filepath.Join(configDir, defaultConfigName))
	}

	fv, err := readConfigFile(configFile)
	if err != nil {
		return Config{}, err
	}

	vaultDir := resolvePath(opts.VaultDir, getenv(EnvVaultDir), fv.VaultDir,
		filepath.Join(home, defaultVaultDirName))

	cfg := Config{
		VaultDir:   vaultDir,
		ConfigDir:  configDir,
		ConfigFile: configFile,
		KeyFile: resolvePath(opts.KeyFile, getenv(EnvKeyFile), fv.KeyFile,
			filepath.Join(vaultDir, defaultKeyName)),
		SecretsFile: resolvePath(opts.SecretsFile, getenv(EnvSecretsFile), fv.SecretsFile,
			filepath.Join(vaultDir, defaultSecretsName)),
		YubiKeyEnabled:      resolveBool(getenv(EnvYubiKeyEnabled), fv.YubiKey.Enabled, false),
		YubiKeySlot:         resolveString(getenv(EnvYubiKeySlot), fv.YubiKey.Slot, DefaultSlot),
		YubiKeyRequireTouch: resolveBool(getenv(EnvYubiKeyRequireTouch), fv.YubiKey.RequireTouch, true),
		YubiKeyPINPrompt:    resolveBool(getenv(EnvYubiKeyPINPrompt), fv.YubiKey.PINPrompt, true),
		Logger:              opts.Logger,
	}

	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, false)
	}

	return cfg, nil
}

// EnsureDirectories creates the vault and config directories with
// owner-only permissions.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.VaultDir, c.ConfigDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return averrors.UserError{
				Message:    "Failed to create vault directory",
				Details:    err.Error(),
				Suggestion: "Check permissions on " + filepath.Dir(dir),
				Err:        err,
			}
		}
	}
	return nil
}

func readConfigFile(path string) (fileValues, error) {
	var fv fileValues

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fv, nil
		}
		return fv, averrors.UserError{
			Message:    "Failed to read config file",
			Details:    err.Error(),
			Suggestion: "Check permissions on " + path,
			Err:        err,
		}
	}

	if err := yaml.Unmarshal(data, &fv); err != nil {
		return fv, averrors.UserError{
			Message:    "Invalid YAML in config file " + path,
			Details:    err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
			Err:        err,
		}
	}

	return fv, nil
}

func expand(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

func firstPath(values ...string) string {
	for _, v := range values {
		if v != "" {
			return expand(v)
		}
	}
	return ""
}

func resolvePath(override, env, file string, def string) string {
	if override != "" {
		return expand(override)
	}
	if env != "" {
		return expand(env)
	}
	if file != "" {
		return expand(file)
	}
	return def
}

func resolveString(env, file, def string) string {
	if env != "" {
		return env
	}
	if file != "" {
		return file
	}
	return def
}

func resolveBool(env string, file *bool, def bool) bool {
	if env != "" {
		switch strings.ToLower(env) {
		case "true", "yes", "1", "on":
			return true
		default:
			return false
		}
	}
	if file != nil {
		return *file
	}
	return def
}
