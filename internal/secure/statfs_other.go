//go:build !linux && !darwin

package secure

// statfsRAMBacked has no portable implementation outside Linux and
// macOS; reporting false routes erasure through the durable path.
func statfsRAMBacked(string) (bool, error) {
	return false, nil
}
