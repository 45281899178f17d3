package secure

import "golang.org/x/sys/unix"

// statfsRAMBacked queries the filesystem type of the mount containing
// path. tmpfs and ramfs never reach persistent media.
func statfsRAMBacked(path string) (bool, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false, err
	}
	switch st.Type {
	case unix.TMPFS_MAGIC, unix.RAMFS_MAGIC:
		return true, nil
	}
	return false, nil
}
