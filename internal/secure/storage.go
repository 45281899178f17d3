package secure

import "os"

// LocateTempDir returns the most secure writable temp directory the
// platform offers, or "" when no RAM-backed candidate qualifies.
// Callers receiving "" fall back to ordinary temp storage and accept
// reduced guarantees; this is a sentinel, not an error.
func LocateTempDir(platform Platform) string {
	for _, candidate := range platform.SecureTempCandidates() {
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		if probeWritable(candidate) {
			return candidate
		}
	}
	return ""
}

// probeWritable performs a create-then-delete probe with a uniquely
// named marker file. Any error makes the candidate unusable; the probe
// file never survives the call.
func probeWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".agevault-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
