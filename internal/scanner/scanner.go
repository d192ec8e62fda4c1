// Package scanner locates and decodes program records in a ROM image.
package scanner

import (
	"errors"
	"fmt"
	"iter"

	"github.com/retroenv/tiromscan/internal/header"
)

// DefaultWindowSize is the span that a 16 bit offset can address.
const DefaultWindowSize = 0x10000

// ErrInvalidConfig is returned for configurations that can not be scanned.
var ErrInvalidConfig = errors.New("invalid scan configuration")

// Config controls the scanned range and how locations are reported.
type Config struct {
	WindowSize  int // size of a scan window in bytes
	TotalLength int // number of bytes to scan from the start of the image
	BlockBase   int // added to the window index when reporting locations
}

// DefaultConfig returns a configuration that scans the first length bytes
// using 64K windows.
func DefaultConfig(length int) Config {
	return Config{
		WindowSize:  DefaultWindowSize,
		TotalLength: length,
	}
}

// Location is the position of a record, split into a window and the offset
// inside of the window.
type Location struct {
	Block    int // window index plus the configured block base
	Offset   int // offset inside of the window
	Position int // offset from the start of the scanned image
	Address  int // Block * window size + Offset
}

func (l Location) String() string {
	return fmt.Sprintf("0x%X:%04X", l.Block, l.Offset)
}

// Record is a decoded program record and where it was found.
type Record struct {
	header.Record

	Location Location
	Length   int // number of bytes from the marker through the end of the payload
}

// Stats contains the counters of a scan pass.
type Stats struct {
	Windows  int // windows entered
	Hits     int // magic markers found
	Records  int // records decoded and emitted
	Rejected int // markers that did not decode to a record
}

type decodeFunc func(image []byte, offset int) (header.Record, int, error)

// Scanner scans an image for program records.
type Scanner struct {
	image  []byte
	cfg    Config
	decode decodeFunc
	stats  Stats
}

// New returns a scanner for the given image. The image is borrowed and must
// not be modified while scanning.
func New(image []byte, cfg Config) (*Scanner, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size %d: %w", cfg.WindowSize, ErrInvalidConfig)
	}
	if cfg.TotalLength < 0 || cfg.TotalLength > len(image) {
		return nil, fmt.Errorf("total length %d for image of %d bytes: %w",
			cfg.TotalLength, len(image), ErrInvalidConfig)
	}
	if cfg.BlockBase < 0 {
		return nil, fmt.Errorf("block base %d: %w", cfg.BlockBase, ErrInvalidConfig)
	}

	return &Scanner{
		image:  image[:cfg.TotalLength],
		cfg:    cfg,
		decode: header.Decode,
	}, nil
}

// All returns a sequence of all records in address order. Every iteration
// starts a new scan from the first window.
func (s *Scanner) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		s.stats = Stats{}
		size := s.cfg.WindowSize

		cursor := 0
		for window := 0; window*size < len(s.image); window++ {
			end := min((window+1)*size, len(s.image))
			if cursor >= end {
				continue // covered by a record that started in an earlier window
			}
			s.stats.Windows++

			for cursor < end {
				rec, next, ok := s.scanAt(window, cursor)
				cursor = next
				if ok && !yield(rec) {
					return
				}
			}
		}
	}
}

// Stats returns the counters of the last scan pass.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// scanAt checks a single position of a window and returns the position to
// continue scanning at.
func (s *Scanner) scanAt(window, cursor int) (Record, int, bool) {
	if s.image[cursor] != header.Magic {
		return Record{}, cursor + 1, false
	}
	s.stats.Hits++

	hdr, length, err := s.decode(s.image, cursor)
	if err != nil || length <= 0 {
		// incidental marker value inside of unrelated data
		s.stats.Rejected++
		return Record{}, cursor + 1, false
	}
	s.stats.Records++

	offset := cursor - window*s.cfg.WindowSize
	block := window + s.cfg.BlockBase
	rec := Record{
		Record: hdr,
		Location: Location{
			Block:    block,
			Offset:   offset,
			Position: cursor,
			Address:  block*s.cfg.WindowSize + offset,
		},
		Length: length,
	}
	return rec, cursor + length, true
}
