package fileprocessor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/tiromscan/internal/header"
	"github.com/retroenv/tiromscan/internal/options"
	"github.com/retroenv/tiromscan/internal/report"
)

func TestGenerateOutputFilename(t *testing.T) {
	tests := []struct {
		input  string
		format string
		want   string
	}{
		{input: "ce.rom", format: report.Text, want: "ce.txt"},
		{input: "dumps/ce.rom", format: report.JSON, want: "dumps/ce.jsonl"},
		{input: "ce.rom.zst", format: report.Text, want: "ce.txt"},
		{input: "CE.ROM.GZ", format: report.Text, want: "CE.txt"},
		{input: "ce", format: report.Text, want: "ce.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateOutputFilename(tt.input, tt.format))
		})
	}
}

func TestGetFilesToProcess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.rom", "b.rom", "c.bin"} {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0600))
	}

	files, err := GetFilesToProcess(&options.Program{
		Parameters: options.Parameters{Batch: filepath.Join(dir, "*.rom")},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.rom"), filepath.Join(dir, "b.rom")}, files)

	files, err = GetFilesToProcess(&options.Program{
		Parameters: options.Parameters{Input: "ce.rom"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"ce.rom"}, files)
}

func createTestROM(t *testing.T, dir string) string {
	t.Helper()
	data := make([]byte, 0x100)
	copy(data[0x20:], []byte{header.Magic, 0x00, 0x00, byte(header.Program), 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 'H', 'I', 0x04, 0x00})

	path := filepath.Join(dir, "ce.rom")
	assert.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestProcessFileAndListCatalog(t *testing.T) {
	dir := t.TempDir()
	input := createTestROM(t, dir)

	opts := options.Program{
		Parameters: options.Parameters{
			Input:   input,
			Output:  GenerateOutputFilename(input, report.Text),
			Catalog: filepath.Join(dir, "scans.db"),
		},
		Flags: options.Flags{
			Window: 0x10000,
			Length: -1,
			Base:   -1,
			Quiet:  true,
		},
		OutputFlags: options.OutputFlags{
			Format: report.Text,
		},
	}

	logger := log.NewTestLogger(t)
	assert.NoError(t, ProcessFile(context.Background(), logger, opts))

	output, err := os.ReadFile(opts.Output)
	assert.NoError(t, err)
	assert.Contains(t, string(output), "Found program!  0x20\nprogram_name:   HI\n")

	var buf bytes.Buffer
	assert.NoError(t, ListCatalog(opts, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], input)
	assert.Contains(t, lines[0], "records: 1")
}

func TestProcessFileMissingInput(t *testing.T) {
	opts := options.Program{
		Parameters: options.Parameters{
			Input:  filepath.Join(t.TempDir(), "missing.rom"),
			Output: filepath.Join(t.TempDir(), "out.txt"),
		},
		Flags:       options.Flags{Window: 0x10000, Length: -1, Base: -1},
		OutputFlags: options.OutputFlags{Format: report.Text},
	}

	err := ProcessFile(context.Background(), log.NewTestLogger(t), opts)
	assert.ErrorContains(t, err, "loading image")

	_, err = os.Stat(opts.Output)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestProcessFileKeepsInputNamedLikeOutput(t *testing.T) {
	dir := t.TempDir()
	path := createTestROM(t, dir)
	input := filepath.Join(dir, "dump.txt")
	assert.NoError(t, os.Rename(path, input))
	data, err := os.ReadFile(input)
	assert.NoError(t, err)

	opts := options.Program{
		Parameters: options.Parameters{
			Input:  input,
			Output: GenerateOutputFilename(input, report.Text),
		},
		Flags:       options.Flags{Window: 0x10000, Length: -1, Base: -1, Quiet: true},
		OutputFlags: options.OutputFlags{Format: report.Text},
	}
	assert.Equal(t, input, opts.Output)

	err = ProcessFile(context.Background(), log.NewTestLogger(t), opts)
	assert.True(t, errors.Is(err, ErrOutputIsInput))

	kept, err := os.ReadFile(input)
	assert.NoError(t, err)
	assert.Equal(t, data, kept)
}
