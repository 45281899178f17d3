package secure_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/agevault/internal/secure"
	"github.com/systmms/agevault/tests/testutil"
)

// fakePlatform drives the locator and eraser deterministically without
// depending on the host's mount table.
type fakePlatform struct {
	name       string
	candidates []string
	ramPaths   map[string]bool
}

func (f fakePlatform) Name() string                   { return f.name }
func (f fakePlatform) SecureTempCandidates() []string { return f.candidates }
func (f fakePlatform) IsRAMBacked(path string) bool   { return f.ramPaths[path] }

// TestLocateTempDirPrefersFirstUsableCandidate verifies candidates are
// probed in order and unusable ones are skipped
func TestLocateTempDirPrefersFirstUsableCandidate(t *testing.T) {
	t.Parallel()

	usable := t.TempDir()

	// A regular file is not a usable directory candidate.
	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o600))

	platform := fakePlatform{candidates: []string{"/does/not/exist", notADir, usable}}

	assert.Equal(t, usable, secure.LocateTempDir(platform))
}

// TestLocateTempDirReturnsSentinelWhenNothingQualifies verifies the
// empty-string sentinel when no candidate is usable
func TestLocateTempDirReturnsSentinelWhenNothingQualifies(t *testing.T) {
	t.Parallel()

	platform := fakePlatform{candidates: []string{"/does/not/exist"}}
	assert.Equal(t, "", secure.LocateTempDir(platform))

	none := fakePlatform{}
	assert.Equal(t, "", secure.LocateTempDir(none))
}

// TestLocateTempDirLeavesNoProbeFiles verifies the writability probe
// cleans up after itself
func TestLocateTempDirLeavesNoProbeFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	platform := fakePlatform{candidates: []string{dir}}

	require.Equal(t, dir, secure.LocateTempDir(platform))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must not survive the probe")
}

// TestEraserUnlinksRAMBackedFiles verifies RAM-backed files are removed
// without invoking shred
func TestEraserUnlinksRAMBackedFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k":"v"}`), 0o600))

	executor := testutil.NewMockCommandExecutor()
	platform := fakePlatform{ramPaths: map[string]bool{path: true}}
	eraser := secure.NewEraser(platform, executor)

	require.NoError(t, eraser.Delete(context.Background(), path))

	assert.NoFileExists(t, path)
	executor.AssertNotCalled(t, "shred")
}

// TestEraserShredsDiskBackedFiles verifies durable-storage files go
// through shred -u exactly once
func TestEraserShredsDiskBackedFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(path, []byte("secret"), 0o600))

	executor := testutil.NewMockCommandExecutor()
	eraser := secure.NewEraser(fakePlatform{}, executor)

	require.NoError(t, eraser.Delete(context.Background(), path))

	executor.AssertCallCount(t, "shred", 1)
	calls := executor.GetCalls("shred")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-u", path}, calls[0].Args)
}

// TestEraserFallsBackToRemoveWhenShredFails verifies the plain-unlink
// fallback still destroys the file
func TestEraserFallsBackToRemoveWhenShredFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(path, []byte("secret"), 0o600))

	executor := testutil.NewMockCommandExecutor()
	executor.AddErrorResponse("shred", "shred: command not found", 127)
	eraser := secure.NewEraser(fakePlatform{}, executor)

	require.NoError(t, eraser.Delete(context.Background(), path))

	executor.AssertCalled(t, "shred")
	assert.NoFileExists(t, path)
}

// TestEraserMissingFileIsNoOp verifies deleting a nonexistent path
// succeeds without touching shred
func TestEraserMissingFileIsNoOp(t *testing.T) {
	t.Parallel()

	executor := testutil.NewMockCommandExecutor()
	eraser := secure.NewEraser(fakePlatform{}, executor)

	require.NoError(t, eraser.Delete(context.Background(), filepath.Join(t.TempDir(), "gone")))

	assert.Equal(t, 0, executor.CallCount())
}

// TestEphemeralLifecycle verifies creation in the platform's secure
// directory, owner-only permissions, and destruction on Release
func TestEphemeralLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	platform := fakePlatform{candidates: []string{dir}, ramPaths: map[string]bool{}}
	executor := testutil.NewMockCommandExecutor()
	eraser := secure.NewEraser(platform, executor)

	eph, err := secure.NewEphemeral(platform, eraser, "agevault-test-*.json")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(eph.Path()))
	assert.True(t, eph.RAMBacked())

	info, err := os.Stat(eph.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The fake platform does not report the file itself as RAM-backed,
	// so Release routes through the shred path.
	require.NoError(t, eph.Release(context.Background()))
	executor.AssertCalled(t, "shred")
}

// TestEphemeralReleaseIsIdempotent verifies a second Release does
// nothing
func TestEphemeralReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	platform := fakePlatform{
		candidates: []string{dir},
		ramPaths:   map[string]bool{},
	}
	executor := testutil.NewMockCommandExecutor()
	executor.AddErrorResponse("shred", "unavailable", 127)
	eraser := secure.NewEraser(platform, executor)

	eph, err := secure.NewEphemeral(platform, eraser, "agevault-test-*.json")
	require.NoError(t, err)

	require.NoError(t, eph.Release(context.Background()))
	assert.NoFileExists(t, eph.Path())

	shredCalls := len(executor.GetCalls("shred"))
	require.NoError(t, eph.Release(context.Background()))
	assert.Len(t, executor.GetCalls("shred"), shredCalls, "second Release must not re-erase")
}

// TestEphemeralFallsBackToSystemTemp verifies the ordinary temp
// directory is used when no secure candidate qualifies
func TestEphemeralFallsBackToSystemTemp(t *testing.T) {
	t.Parallel()

	platform := fakePlatform{}
	eraser := secure.NewEraser(platform, testutil.NewMockCommandExecutor())

	eph, err := secure.NewEphemeral(platform, eraser, "agevault-test-*.json")
	require.NoError(t, err)
	defer func() { _ = os.Remove(eph.Path()) }()

	assert.False(t, eph.RAMBacked())
	assert.False(t, eph.TryLock(), "locking is only attempted for RAM-backed files")
}

// TestLockFileInMemorySoftFailures verifies locking never errors, only
// reports false
func TestLockFileInMemorySoftFailures(t *testing.T) {
	t.Parallel()

	// Missing file.
	assert.False(t, secure.LockFileInMemory(filepath.Join(t.TempDir(), "missing")))

	// Empty file: nothing to pin.
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.False(t, secure.LockFileInMemory(empty))

	// Directory.
	assert.False(t, secure.LockFileInMemory(t.TempDir()))
}

// TestLockBudgetIsConsistent verifies CanLockMemory agrees with the
// reported budget
func TestLockBudgetIsConsistent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, secure.LockBudget() > 0, secure.CanLockMemory())
}

// TestWithinLockBudget verifies the size gate that decides whether a
// file may be pinned: the budget itself fits, one byte more does not
func TestWithinLockBudget(t *testing.T) {
	t.Parallel()

	budget := secure.LockBudget()
	if budget == 0 {
		assert.False(t, secure.WithinLockBudget(1))
		return
	}

	assert.True(t, secure.WithinLockBudget(budget))
	if budget < math.MaxUint64 {
		assert.False(t, secure.WithinLockBudget(budget+1))
	}
}

// TestBufferRoundTrip verifies sealed bytes come back intact
func TestBufferRoundTrip(t *testing.T) {
	t.Parallel()

	buf := secure.NewBuffer([]byte(`{"github":{"token":"tok"}}`))
	defer buf.Destroy()

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()

	assert.Equal(t, `{"github":{"token":"tok"}}`, locked.String())
}

// TestBufferDestroyIsIdempotentAndFinal verifies use-after-destroy is
// rejected and repeated Destroy is safe
func TestBufferDestroyIsIdempotentAndFinal(t *testing.T) {
	t.Parallel()

	buf := secure.NewBuffer([]byte("secret"))
	buf.Destroy()
	buf.Destroy()

	_, err := buf.Open()
	assert.ErrorIs(t, err, secure.ErrBufferDestroyed)
}

// TestCurrentPlatformMatchesHost verifies the selected capability set
// names a known platform
func TestCurrentPlatformMatchesHost(t *testing.T) {
	t.Parallel()

	platform := secure.CurrentPlatform()
	assert.Contains(t, []string{"linux", "darwin", "other"}, platform.Name())
}
