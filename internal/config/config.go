// Package config handles application configuration and setup
package config

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/tiromscan/internal/header"
	"github.com/retroenv/tiromscan/internal/options"
	"github.com/retroenv/tiromscan/internal/scanner"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// ScanConfig returns the scanner configuration for a region of regionLength
// bytes selected by the options. Unset base defaults to the window index of
// the region start, so that locations match addresses of the full image.
// This requires the start to be window aligned.
func ScanConfig(opts options.Program, regionLength int) (scanner.Config, error) {
	if opts.Window <= 0 {
		return scanner.Config{}, fmt.Errorf("window size %d: %w", opts.Window, scanner.ErrInvalidConfig)
	}

	cfg := scanner.Config{
		WindowSize:  opts.Window,
		TotalLength: regionLength,
		BlockBase:   opts.Base,
	}
	if cfg.BlockBase < 0 {
		if opts.Start%opts.Window != 0 {
			return scanner.Config{}, fmt.Errorf("start 0x%X is not aligned to window size 0x%X, pass a base: %w",
				opts.Start, opts.Window, scanner.ErrInvalidConfig)
		}
		cfg.BlockBase = opts.Start / opts.Window
	}
	return cfg, nil
}

// TypeFilter parses a comma separated list of program type names. An empty
// list returns a nil set which accepts all types.
func TypeFilter(types string) (set.Set[header.ProgramType], error) {
	if strings.TrimSpace(types) == "" {
		return nil, nil
	}

	filter := set.New[header.ProgramType]()
	for _, name := range strings.Split(types, ",") {
		typ, err := header.ParseProgramType(name)
		if err != nil {
			return nil, fmt.Errorf("parsing type filter: %w", err)
		}
		filter.Add(typ)
	}
	return filter, nil
}
