// Package rom provides read-only access to ROM images from files or memory.
package rom

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrRegion is returned when a requested region is not inside of the image.
var ErrRegion = errors.New("region outside of image")

// Image is a read-only ROM image. Images that are backed by a memory mapped
// file have to be closed after use.
type Image struct {
	name    string
	data    []byte
	release func() error
}

// New returns an image for the given buffer. The buffer must not be modified
// while the image is in use.
func New(name string, data []byte) *Image {
	return &Image{
		name: name,
		data: data,
	}
}

// Open opens the ROM image file at the given path. Files ending in .zst or .gz
// are decompressed into memory, all other files are memory mapped if the
// platform supports it.
func Open(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return decompressZstd(path, file)
	case ".gz":
		return decompressGzip(path, file)
	default:
		return mapFile(path, file)
	}
}

// Name returns the name of the image.
func (i *Image) Name() string {
	return i.name
}

// Bytes returns the complete image.
func (i *Image) Bytes() []byte {
	return i.data
}

// Len returns the size of the image in bytes.
func (i *Image) Len() int {
	return len(i.data)
}

// Region returns length bytes starting at start. A negative length selects
// everything from start to the end of the image.
func (i *Image) Region(start, length int) ([]byte, error) {
	if start < 0 || start > len(i.data) {
		return nil, fmt.Errorf("start 0x%X of image with size 0x%X: %w", start, len(i.data), ErrRegion)
	}
	if length < 0 {
		return i.data[start:], nil
	}
	if length > len(i.data)-start {
		return nil, fmt.Errorf("length 0x%X at start 0x%X of image with size 0x%X: %w",
			length, start, len(i.data), ErrRegion)
	}
	return i.data[start : start+length], nil
}

// Close releases the resources of the image. The image data must not be
// accessed after closing.
func (i *Image) Close() error {
	release := i.release
	i.release = nil
	i.data = nil
	if release == nil {
		return nil
	}
	if err := release(); err != nil {
		return fmt.Errorf("releasing image %s: %w", i.name, err)
	}
	return nil
}

func decompressZstd(path string, reader io.Reader) (*Image, error) {
	decoder, err := zstd.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return New(path, data), nil
}

func decompressGzip(path string, reader io.Reader) (*Image, error) {
	decoder, err := gzip.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("creating gzip decoder: %w", err)
	}
	defer func() { _ = decoder.Close() }()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return New(path, data), nil
}

func readFile(path string, file *os.File) (*Image, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return New(path, data), nil
}
