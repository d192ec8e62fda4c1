// Package options contains the program options.
package options

// Parameters contains file path options.
type Parameters struct {
	Input   string `flag:"i" usage:"input ROM image file (.zst and .gz are decompressed)"`
	Output  string `flag:"o" usage:"output file (default: stdout)"`
	Batch   string `flag:"batch" usage:"batch process files matching pattern (e.g. *.rom)"`
	Catalog string `flag:"catalog" usage:"bbolt catalog database to store scan results in"`
}

// Flags contains scan behavior options.
type Flags struct {
	Window int    `flag:"window" usage:"scan window size in bytes" default:"0x10000"`
	Start  int    `flag:"start" usage:"offset in the image to start scanning at"`
	Length int    `flag:"length" usage:"number of bytes to scan (default: until the end)" default:"-1"`
	Base   int    `flag:"base" usage:"block base added to reported locations (default: start / window)" default:"-1"`
	Types  string `flag:"types" usage:"comma separated program types to report: program, locked, group, app"`
	List   bool   `flag:"list" usage:"list the scans stored in the catalog"`
	Debug  bool   `flag:"debug" usage:"enable debug logging"`
	Quiet  bool   `flag:"q" usage:"quiet mode"`
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	Format    string `flag:"format" usage:"output format: text, json" default:"text"`
	Digest    bool   `flag:"digest" usage:"add a BLAKE3 digest of every record extent"`
	CheckMeta bool   `flag:"check-meta" usage:"warn about records whose meta body length does not match"`
}

// Program options of the scanner.
type Program struct {
	Parameters
	Flags
	OutputFlags
}
