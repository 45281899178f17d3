package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShredCommand_ForceDeletesFiles(t *testing.T) {
	rt := testRuntime(t)

	dir := t.TempDir()
	first := filepath.Join(dir, "token.txt")
	second := filepath.Join(dir, "backup.json")
	require.NoError(t, os.WriteFile(first, []byte("sk-live-123"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("{}"), 0o600))

	cmd := NewShredCommand(rt)
	cmd.SetArgs([]string{"--force", first, second})

	require.NoError(t, cmd.Execute())

	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
}

func TestShredCommand_MissingFileIsNotAnError(t *testing.T) {
	rt := testRuntime(t)

	cmd := NewShredCommand(rt)
	cmd.SetArgs([]string{"--force", filepath.Join(t.TempDir(), "already-gone")})

	assert.NoError(t, cmd.Execute())
}

func TestShredCommand_RequiresArguments(t *testing.T) {
	rt := testRuntime(t)

	cmd := NewShredCommand(rt)
	cmd.SetArgs([]string{"--force"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	assert.Error(t, cmd.Execute())
}
