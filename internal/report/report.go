// Package report writes found program records in text or JSON format.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/tiromscan/internal/scanner"
)

// Supported output formats.
const (
	Text = "text"
	JSON = "json"
)

// Formats lists all supported output formats.
var Formats = []string{Text, JSON}

// Entry is the reported form of a found program record.
type Entry struct {
	Location       string `json:"location"`
	Address        int    `json:"address"`
	Position       int    `json:"position"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	TypeID         uint8  `json:"type_id"`
	Subtype        uint8  `json:"subtype"`
	Version        uint8  `json:"version"`
	MetaBodyLength uint16 `json:"meta_body_length"`
	ProgramOffset  uint16 `json:"program_offset"`
	RelativeBlock  uint8  `json:"relative_block"`
	PayloadLength  uint16 `json:"payload_length"`
	Length         int    `json:"length"`
	MetaMismatch   bool   `json:"meta_mismatch,omitempty"`
	Digest         string `json:"digest,omitempty"`
}

// NewEntry returns the entry for a scanned record. The optional MetaMismatch
// and Digest fields are left for the caller to fill.
func NewEntry(rec scanner.Record) Entry {
	return Entry{
		Location:       rec.Location.String(),
		Address:        rec.Location.Address,
		Position:       rec.Location.Position,
		Name:           rec.Name,
		Type:           rec.Type.String(),
		TypeID:         uint8(rec.Type),
		Subtype:        rec.Subtype,
		Version:        rec.Version,
		MetaBodyLength: rec.MetaBodyLength,
		ProgramOffset:  rec.ProgramOffset,
		RelativeBlock:  rec.RelativeBlock,
		PayloadLength:  rec.PayloadLength,
		Length:         rec.Length,
	}
}

// Writer writes entries to an output stream.
type Writer struct {
	writer  io.Writer
	format  string
	encoder *json.Encoder
}

// New returns a writer for the given format.
func New(writer io.Writer, format string) (*Writer, error) {
	w := &Writer{
		writer: writer,
		format: strings.ToLower(format),
	}

	switch w.format {
	case Text:
	case JSON:
		w.encoder = json.NewEncoder(writer)
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
	return w, nil
}

// Write writes a single entry.
func (w *Writer) Write(entry Entry) error {
	if w.format == JSON {
		if err := w.encoder.Encode(entry); err != nil {
			return fmt.Errorf("encoding entry: %w", err)
		}
		return nil
	}
	return w.writeText(entry)
}

func (w *Writer) writeText(entry Entry) error {
	buf := &strings.Builder{}
	fmt.Fprintf(buf, "\nFound program!  0x%X\n", entry.Address)
	fmt.Fprintf(buf, "program_name:   %s\n", PrintableName(entry.Name))
	fmt.Fprintf(buf, "program_type:   %s (0x%02X)\n", entry.Type, entry.TypeID)
	fmt.Fprintf(buf, "meta_body_len:  0x%X\n", entry.MetaBodyLength)
	fmt.Fprintf(buf, "type2:          0x%02X\n", entry.Subtype)
	fmt.Fprintf(buf, "version:        0x%02X\n", entry.Version)
	fmt.Fprintf(buf, "program_offset: 0x%X\n", entry.ProgramOffset)
	fmt.Fprintf(buf, "relative_block: 0x%X\n", entry.RelativeBlock)
	fmt.Fprintf(buf, "binary_length:  0x%X\n", entry.PayloadLength)
	if entry.MetaMismatch {
		buf.WriteString("meta_mismatch:  yes\n")
	}
	if entry.Digest != "" {
		fmt.Fprintf(buf, "digest:         %s\n", entry.Digest)
	}

	if _, err := io.WriteString(w.writer, buf.String()); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

// PrintableName returns the name with all bytes outside of the printable
// ASCII range replaced by a dot.
func PrintableName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c < 0x20 || c > 0x7E {
			b[i] = '.'
		}
	}
	return string(b)
}
