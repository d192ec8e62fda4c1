// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/tiromscan/internal/catalog"
	"github.com/retroenv/tiromscan/internal/options"
	"github.com/retroenv/tiromscan/internal/pipeline"
	"github.com/retroenv/tiromscan/internal/report"
	"github.com/retroenv/tiromscan/internal/rom"
)

// ErrOutputIsInput is returned when the output file would overwrite the input file.
var ErrOutputIsInput = errors.New("output file is the input file")

// ProcessFile handles the complete file processing workflow
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program) error {
	img, err := rom.Open(opts.Input)
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	defer func() {
		if err := img.Close(); err != nil {
			logger.Error("Closing image failed", log.Err(err))
		}
	}()

	if err := checkOutputPath(opts.Input, opts.Output); err != nil {
		return err
	}

	writer, err := createWriter(opts)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if closer, ok := writer.(io.Closer); ok && writer != os.Stdout {
			_ = closer.Close()
		}
	}()

	pipe := pipeline.New(logger)
	if _, err := pipe.ExecuteWithImage(ctx, img, opts, writer); err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	return nil
}

// ListCatalog writes a summary line for every scan stored in the catalog.
func ListCatalog(opts options.Program, writer io.Writer) error {
	cat, err := catalog.Open(opts.Catalog)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	scans, err := cat.Scans()
	if err != nil {
		return fmt.Errorf("reading scans: %w", err)
	}

	for _, scan := range scans {
		if _, err := fmt.Fprintf(writer, "%s  %s  %-24s records: %d, markers: %d, rejected: %d\n",
			scan.ID, scan.Started.Format("2006-01-02 15:04:05"), scan.File,
			scan.Records, scan.Hits, scan.Rejected); err != nil {
			return fmt.Errorf("writing scan: %w", err)
		}
	}
	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file
func GenerateOutputFilename(inputFile, format string) string {
	base := inputFile
	// strip compression extensions first, ce.rom.zst results in ce.txt
	for _, ext := range []string{".zst", ".zstd", ".gz"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	base = base[:len(base)-len(filepath.Ext(base))]

	if format == report.JSON {
		return base + ".jsonl"
	}
	return base + ".txt"
}

// checkOutputPath returns an error if the output file is the input file.
func checkOutputPath(input, output string) error {
	if output == "" {
		return nil
	}
	outputInfo, err := os.Stat(output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading output file info: %w", err)
	}
	inputInfo, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("reading input file info: %w", err)
	}
	if os.SameFile(inputInfo, outputInfo) {
		return fmt.Errorf("output file %s: %w", output, ErrOutputIsInput)
	}
	return nil
}

func createWriter(opts options.Program) (io.Writer, error) {
	if opts.Output == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("tiromscan", log.String("version", buildinfo.Version(version, commit, date)))
}
