// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/retroenv/tiromscan/internal/options"
	"github.com/retroenv/tiromscan/internal/report"
	"github.com/retroenv/tiromscan/internal/scanner"
)

// ParseFlags parses command line flags and returns the program options
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil {
		return opts, &UsageError{flags: flags}
	}
	if len(args) == 0 && opts.Input == "" && opts.Batch == "" && !opts.List {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, err
	}

	if opts.Input == "" && len(args) > 0 {
		opts.Input = args[0]
	}
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: tiromscan [options] <ROM image to scan>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to scan, please pass the file to scan as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Format = strings.ToLower(opts.Format)
	if !slices.Contains(report.Formats, opts.Format) {
		return fmt.Errorf("unsupported output format: %s. Valid options: %s",
			opts.Format, strings.Join(report.Formats, ", "))
	}

	if opts.Window <= 0 {
		return fmt.Errorf("window size must be positive: %d", opts.Window)
	}
	if opts.Start < 0 {
		return fmt.Errorf("start offset must not be negative: %d", opts.Start)
	}
	if opts.List && opts.Catalog == "" {
		return errors.New("listing scans requires a catalog")
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input ROM image file, .zst and .gz files are decompressed")
	flags.StringVar(&opts.Output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically output file naming, for example *.rom")
	flags.StringVar(&opts.Catalog, "catalog", "", "name of the catalog database to store scan results in")
	flags.IntVar(&opts.Window, "window", scanner.DefaultWindowSize, "scan window size in bytes")
	flags.IntVar(&opts.Start, "start", 0, "offset in the image to start scanning at, for example 0xC0000")
	flags.IntVar(&opts.Length, "length", -1, "number of bytes to scan, until the end of the image if negative")
	flags.IntVar(&opts.Base, "base", -1, "block base added to reported locations, derived from the start offset if negative")
	flags.StringVar(&opts.Types, "types", "", "comma separated program types to report (program/locked/group/app)")
	flags.BoolVar(&opts.List, "list", false, "list the scans stored in the catalog")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.StringVar(&opts.Format, "format", report.Text, "output format (text/json)")
	flags.BoolVar(&opts.Digest, "digest", false, "output a BLAKE3 digest of every record extent")
	flags.BoolVar(&opts.CheckMeta, "check-meta", false, "warn about records whose meta body length does not match the record extent")
}
