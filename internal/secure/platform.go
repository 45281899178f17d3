package secure

import "runtime"

// Platform abstracts the host-specific parts of secure storage:
// which directories are RAM-backed, and whether a given path sits on
// a RAM-backed filesystem. It is selected once at startup rather than
// checked inline at each call site.
type Platform interface {
	Name() string

	// SecureTempCandidates returns RAM-backed directory candidates in
	// preference order. Candidates may not exist or be writable; the
	// locator probes them.
	SecureTempCandidates() []string

	// IsRAMBacked reports whether the filesystem holding path lives
	// only in volatile memory. Errors during the query report false:
	// the caller then falls through to the durable-storage erase path,
	// which is the safe direction to fail.
	IsRAMBacked(path string) bool
}

type linuxPlatform struct{}

func (linuxPlatform) Name() string { return "linux" }

func (linuxPlatform) SecureTempCandidates() []string {
	// /dev/shm is a tmpfs mount on effectively every Linux system.
	// /run/shm is a legacy Debian alias kept for older installs.
	return []string{"/dev/shm", "/run/shm"}
}

func (linuxPlatform) IsRAMBacked(path string) bool {
	ram, err := statfsRAMBacked(path)
	if err != nil {
		return false
	}
	return ram
}

type darwinPlatform struct{}

func (darwinPlatform) Name() string { return "darwin" }

func (darwinPlatform) SecureTempCandidates() []string {
	// /private/tmp is periodically purged and commonly RAM-backed on
	// macOS. There is no tmpfs equivalent to probe for, so this is the
	// best candidate available.
	return []string{"/private/tmp"}
}

func (darwinPlatform) IsRAMBacked(path string) bool {
	ram, err := statfsRAMBacked(path)
	if err != nil {
		return false
	}
	return ram
}

type otherPlatform struct{}

func (otherPlatform) Name() string { return "other" }

func (otherPlatform) SecureTempCandidates() []string { return nil }

func (otherPlatform) IsRAMBacked(string) bool { return false }

// CurrentPlatform returns the capability set for the running OS.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return linuxPlatform{}
	case "darwin":
		return darwinPlatform{}
	default:
		return otherPlatform{}
	}
}
