//go:build unix

package rom

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the file read-only into memory. Empty files can not be mapped
// and are read instead.
func mapFile(path string, file *os.File) (*Image, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("getting file info of %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 || !info.Mode().IsRegular() {
		return readFile(path, file)
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("file %s with size %d is too large to map", path, size)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}

	img := New(path, data)
	img.release = func() error {
		return unix.Munmap(data)
	}
	return img, nil
}
