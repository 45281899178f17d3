package secure

import "golang.org/x/sys/unix"

// statfsRAMBacked checks the mounted filesystem's type name. macOS has
// no tmpfs; RAM disks mount as "mfs" or via a synthesized "tmpfs" under
// newer releases.
func statfsRAMBacked(path string) (bool, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false, err
	}
	name := fstypename(st.Fstypename)
	return name == "tmpfs" || name == "mfs", nil
}

func fstypename(raw [16]byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw[:])
}
