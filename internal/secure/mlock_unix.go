//go:build linux || darwin

package secure

import (
	"os"

	"golang.org/x/sys/unix"
)

// CanLockMemory reports whether the current process is permitted to pin
// any memory at all (RLIMIT_MEMLOCK soft limit above zero).
func CanLockMemory() bool {
	return LockBudget() > 0
}

// LockBudget returns the maximum number of bytes this process may pin.
func LockBudget() uint64 {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &lim); err != nil {
		return 0
	}
	return lim.Cur
}

// WithinLockBudget reports whether n bytes fit under the process's
// memory-lock budget. This is the size gate LockFileInMemory applies,
// split out so it can be checked without a lockable file.
func WithinLockBudget(n uint64) bool {
	return CanLockMemory() && n <= LockBudget()
}

// LockFileInMemory maps the file read-only and pins the mapped pages so
// they cannot reach swap. Returns false (never an error) when locking
// is unavailable, the file is missing or empty, the file exceeds the
// lock budget, or any syscall fails. The mapping is released before
// returning; the kernel may keep the physical pages pinned until
// process exit, which is the effect we want.
func LockFileInMemory(path string) bool {
	if !CanLockMemory() {
		return false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}
	if !WithinLockBudget(uint64(info.Size())) {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Munmap(data) }()

	return unix.Mlock(data) == nil
}
