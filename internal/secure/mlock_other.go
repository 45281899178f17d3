//go:build !linux && !darwin

package secure

// Memory locking is a Unix-only optimization; on other platforms every
// query reports unavailable and callers proceed without it.

func CanLockMemory() bool { return false }

func LockBudget() uint64 { return 0 }

func WithinLockBudget(uint64) bool { return false }

func LockFileInMemory(string) bool { return false }
