// Package pipeline orchestrates the scan workflow stages.
package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/tiromscan/internal/catalog"
	"github.com/retroenv/tiromscan/internal/config"
	"github.com/retroenv/tiromscan/internal/header"
	"github.com/retroenv/tiromscan/internal/options"
	"github.com/retroenv/tiromscan/internal/report"
	"github.com/retroenv/tiromscan/internal/rom"
	"github.com/retroenv/tiromscan/internal/scanner"
	"github.com/zeebo/blake3"
)

// Pipeline orchestrates the complete scan workflow.
type Pipeline struct {
	logger *log.Logger
}

// Result contains the summary and the reported entries of a scan.
type Result struct {
	Scan    catalog.Scan
	Entries []report.Entry
}

// New creates a new scan pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger: logger,
	}
}

// Execute runs the complete scan pipeline for the input file of the options.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, writer io.Writer) (*Result, error) {
	img, err := rom.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}
	defer func() {
		if err := img.Close(); err != nil {
			p.logger.Error("Closing image failed", log.Err(err))
		}
	}()

	return p.ExecuteWithImage(ctx, img, opts, writer)
}

// ExecuteWithImage runs the scan pipeline with a pre-loaded image.
// This is useful for testing and programmatic usage where the image is already in memory.
func (p *Pipeline) ExecuteWithImage(ctx context.Context, img *rom.Image, opts options.Program,
	writer io.Writer) (*Result, error) {

	region, err := img.Region(opts.Start, opts.Length)
	if err != nil {
		return nil, fmt.Errorf("selecting scan region: %w", err)
	}

	cfg, err := config.ScanConfig(opts, len(region))
	if err != nil {
		return nil, fmt.Errorf("creating scan configuration: %w", err)
	}
	filter, err := config.TypeFilter(opts.Types)
	if err != nil {
		return nil, err
	}
	out, err := report.New(writer, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("creating report writer: %w", err)
	}

	scan, err := scanner.New(region, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	p.printInfo(opts, img, cfg)

	result := &Result{
		Scan: catalog.Scan{
			ID:         catalog.NewScanID(),
			File:       img.Name(),
			Started:    time.Now().UTC(),
			Start:      opts.Start,
			Length:     len(region),
			WindowSize: cfg.WindowSize,
			BlockBase:  cfg.BlockBase,
		},
	}

	entries, err := p.runScan(ctx, scan, region, opts, filter, out)
	if err != nil {
		return nil, err
	}
	result.Entries = entries

	stats := scan.Stats()
	result.Scan.Hits = stats.Hits
	result.Scan.Records = stats.Records
	result.Scan.Rejected = stats.Rejected

	p.logger.Info("Scan finished",
		log.String("file", img.Name()),
		log.Int("windows", stats.Windows),
		log.Int("markers", stats.Hits),
		log.Int("records", stats.Records),
		log.Int("reported", len(entries)),
		log.Int("rejected", stats.Rejected))

	if opts.Catalog != "" {
		if err := p.storeScan(opts.Catalog, result); err != nil {
			return nil, fmt.Errorf("storing scan in catalog: %w", err)
		}
	}

	return result, nil
}

// runScan consumes the records of the scanner and writes the matching ones.
func (p *Pipeline) runScan(ctx context.Context, scan *scanner.Scanner, region []byte, opts options.Program,
	filter set.Set[header.ProgramType], out *report.Writer) ([]report.Entry, error) {

	var entries []report.Entry
	for rec := range scan.All() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		if filter != nil && !filter.Contains(rec.Type) {
			continue
		}

		entry := report.NewEntry(rec)
		if opts.CheckMeta && rec.MetaMismatch() {
			entry.MetaMismatch = true
			p.logger.Warn("Meta body length does not match record extent",
				log.String("location", entry.Location),
				log.String("name", report.PrintableName(rec.Name)),
				log.Uint16("meta_body_length", rec.MetaBodyLength),
				log.Int("expected", rec.ExpectedMetaBodyLength()))
		}
		if opts.Digest {
			entry.Digest = digest(region, rec)
		}

		if err := out.Write(entry); err != nil {
			return nil, fmt.Errorf("writing record at %s: %w", entry.Location, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// storeScan saves the scan result in the catalog database.
func (p *Pipeline) storeScan(path string, result *Result) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	if err := cat.PutScan(result.Scan, result.Entries); err != nil {
		return err
	}
	p.logger.Debug("Stored scan in catalog",
		log.String("catalog", path),
		log.String("scan", result.Scan.ID))
	return nil
}

// printInfo prints information about the image being scanned.
func (p *Pipeline) printInfo(opts options.Program, img *rom.Image, cfg scanner.Config) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Scanning ROM image",
		log.String("file", img.Name()),
		log.Hex("start", opts.Start),
		log.Hex("length", cfg.TotalLength),
		log.Hex("window", cfg.WindowSize),
		log.Hex("base", cfg.BlockBase),
	)
}

// digest returns the hex encoded BLAKE3 hash of the record extent.
func digest(region []byte, rec scanner.Record) string {
	start := rec.Location.Position
	sum := blake3.Sum256(region[start : start+rec.Length])
	return hex.EncodeToString(sum[:])
}
