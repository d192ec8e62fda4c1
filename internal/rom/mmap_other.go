//go:build !unix

package rom

import "os"

func mapFile(path string, file *os.File) (*Image, error) {
	return readFile(path, file)
}
