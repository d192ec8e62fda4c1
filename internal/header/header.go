// Package header decodes the program record headers stored in calculator ROM images.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the marker byte that starts every program record.
const Magic byte = 0xFC

// Field positions relative to the magic marker. The name starts at NameOffset
// and everything after it is shifted by the encoded name length.
const (
	metaBodyLengthOffset = 1
	programTypeOffset    = 3
	subtypeOffset        = 4
	versionOffset        = 5
	programOffsetOffset  = 6
	relativeBlockOffset  = 8
	nameLengthOffset     = 9

	// NameOffset is the position of the first name byte.
	NameOffset = 10
)

// metaFieldEnd is the end of the meta body length field, the meta body length
// counts the bytes following it.
const metaFieldEnd = metaBodyLengthOffset + 2

// ErrOutOfBounds is returned when a header field or the declared record extent
// reaches past the end of the image.
var ErrOutOfBounds = errors.New("record exceeds image bounds")

// Record is a decoded program record header.
type Record struct {
	MetaBodyLength uint16      // declared length of the following header data and binary
	Type           ProgramType // type of program
	Subtype        uint8       // usually 0, passed through uninterpreted
	Version        uint8       // <= 6 in practice, not validated
	ProgramOffset  uint16      // relative block high part and load offset low part
	RelativeBlock  uint8       // block in memory relative to the record start
	Name           string      // raw name bytes, not terminated
	PayloadLength  uint16      // length of the trailing binary blob
}

// Length returns the number of bytes from the magic marker through the end
// of the payload, which is the distance a scanner skips after this record.
func (r Record) Length() int {
	return NameOffset + len(r.Name) + int(r.PayloadLength)
}

// ExpectedMetaBodyLength returns the meta body length that would match the
// record extent, counting the bytes after the meta body length field.
func (r Record) ExpectedMetaBodyLength() int {
	return r.Length() - metaFieldEnd
}

// MetaMismatch reports whether the stored meta body length disagrees with the
// record extent. It is a diagnostic only, decoding never depends on it.
func (r Record) MetaMismatch() bool {
	return int(r.MetaBodyLength) != r.ExpectedMetaBodyLength()
}

// Decode decodes the record whose magic marker is located at offset. The
// marker itself is not checked. It returns the record and its total length
// in bytes, or an error wrapping ErrOutOfBounds if the header or the declared
// extent does not fit into the image.
func Decode(image []byte, offset int) (Record, int, error) {
	if offset < 0 || offset >= len(image) {
		return Record{}, 0, fmt.Errorf("marker at offset %d of %d: %w", offset, len(image), ErrOutOfBounds)
	}

	r := fieldReader{image: image, base: offset}
	rec := Record{
		MetaBodyLength: r.uint16("meta body length", metaBodyLengthOffset),
		Type:           ProgramType(r.uint8("program type", programTypeOffset)),
		Subtype:        r.uint8("subtype", subtypeOffset),
		Version:        r.uint8("version", versionOffset),
		ProgramOffset:  r.uint16("program offset", programOffsetOffset),
		RelativeBlock:  r.uint8("relative block", relativeBlockOffset),
	}
	nameLength := int(r.uint8("name length", nameLengthOffset))
	name := r.bytes("name", NameOffset, nameLength)
	rec.PayloadLength = r.uint16("payload length", NameOffset+nameLength)
	if r.err != nil {
		return Record{}, 0, r.err
	}
	// string conversion copies, the image is not referenced after returning
	rec.Name = string(name)

	length := rec.Length()
	if length > len(image)-offset {
		return Record{}, 0, fmt.Errorf("record extent of %d bytes at offset %d: %w", length, offset, ErrOutOfBounds)
	}
	return rec, length, nil
}

// fieldReader reads little endian fields relative to a base offset. The first
// failing read is kept and all following reads return zero values.
type fieldReader struct {
	image []byte
	base  int
	err   error
}

func (r *fieldReader) bytes(field string, at, count int) []byte {
	if r.err != nil {
		return nil
	}
	start := r.base + at
	end := start + count
	if end > len(r.image) {
		r.err = fmt.Errorf("reading %s at offset %d (%d bytes): %w", field, start, count, ErrOutOfBounds)
		return nil
	}
	return r.image[start:end]
}

func (r *fieldReader) uint8(field string, at int) uint8 {
	b := r.bytes(field, at, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *fieldReader) uint16(field string, at int) uint16 {
	b := r.bytes(field, at, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
