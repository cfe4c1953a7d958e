package workspace

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the free-space floor for the work directory. A vertical
// render plus its source clips and narration rarely exceeds a few hundred
// megabytes, so one gigabyte leaves comfortable headroom.
const minFreeBytes = 1 << 30

// CheckAccess verifies the directory exists and is readable and writable.
func CheckAccess(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions on %s: %w", path, err)
	}
	return nil
}

// CheckFreeSpace verifies the filesystem backing the path has enough free
// space for at least one render.
func CheckFreeSpace(path string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return fmt.Errorf("insufficient free space in %s: %d bytes available, need %d", path, free, uint64(minFreeBytes))
	}
	return nil
}
