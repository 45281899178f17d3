package commands

import (
	"context"
	"os"
	"strings"

	"github.com/systmms/agevault/internal/config"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/logging"
	"github.com/systmms/agevault/internal/plugin"
	"github.com/systmms/agevault/internal/vault"
)

// Runtime carries the resolved configuration and logger into each
// command constructor. It is populated once by the root command's
// PersistentPreRun before any subcommand executes.
type Runtime struct {
	Config config.Config
	Logger *logging.Logger
}

// loadSecrets decrypts and parses the secrets document. Encrypted
// blobs (.age suffix) go through the vault's in-memory decryption so
// no plaintext file is created here; anything else is assumed to be an
// already-decrypted file, which a session exports for its children.
func loadSecrets(ctx context.Context, rt *Runtime) (map[string]map[string]interface{}, error) {
	path := rt.Config.SecretsFile

	if _, err := os.Stat(path); err != nil {
		return nil, averrors.UserError{
			Message:    "No secrets file found at " + path,
			Suggestion: "Run 'agevault init' to set up your vault",
			Err:        err,
		}
	}

	if strings.HasSuffix(path, vault.EncryptedSuffix) {
		v := vault.New(rt.Config)
		buf, err := v.DecryptToBuffer(ctx, path)
		if err != nil {
			return nil, err
		}
		defer buf.Destroy()

		locked, err := buf.Open()
		if err != nil {
			return nil, err
		}
		defer locked.Destroy()

		return plugin.ParseSecrets(locked.Bytes())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return plugin.ParseSecrets(data)
}
