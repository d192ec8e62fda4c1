// Package catalog persists scan runs and their found records in a bbolt database.
package catalog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/retroenv/tiromscan/internal/report"
	"github.com/segmentio/ksuid"
	bolt "go.etcd.io/bbolt"
)

// ErrScanNotFound is returned when a scan id is not stored in the catalog.
var ErrScanNotFound = errors.New("scan not found")

var (
	bucketScans   = []byte("scans")
	bucketRecords = []byte("records")
)

// Scan is the summary of a single scan run.
type Scan struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Started    time.Time `json:"started"`
	Start      int       `json:"start"`       // offset of the scanned region in the file
	Length     int       `json:"length"`      // size of the scanned region
	WindowSize int       `json:"window_size"` // scan window size
	BlockBase  int       `json:"block_base"`  // block base used for locations
	Hits       int       `json:"hits"`
	Records    int       `json:"records"`
	Rejected   int       `json:"rejected"`
}

// NewScanID returns a new sortable scan id.
func NewScanID() string {
	return ksuid.New().String()
}

// Catalog stores scans.
type Catalog struct {
	db *bolt.DB
}

// Open creates or opens the catalog database at the given path.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketScans, bucketRecords} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// PutScan stores a scan and its entries in a single transaction. An existing
// scan with the same id is replaced. Entries are keyed by their offset in the
// image file, the region start plus the entry position.
func (c *Catalog) PutScan(scan Scan, entries []report.Entry) error {
	if scan.ID == "" {
		return errors.New("missing scan id")
	}

	summary, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("encoding scan: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketScans).Put([]byte(scan.ID), summary); err != nil {
			return fmt.Errorf("storing scan: %w", err)
		}

		records := tx.Bucket(bucketRecords)
		if records.Bucket([]byte(scan.ID)) != nil {
			if err := records.DeleteBucket([]byte(scan.ID)); err != nil {
				return fmt.Errorf("deleting previous records: %w", err)
			}
		}
		bucket, err := records.CreateBucket([]byte(scan.ID))
		if err != nil {
			return fmt.Errorf("creating records bucket: %w", err)
		}

		for _, entry := range entries {
			value, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encoding entry: %w", err)
			}
			if err := bucket.Put(positionKey(scan.Start+entry.Position), value); err != nil {
				return fmt.Errorf("storing entry: %w", err)
			}
		}
		return nil
	})
}

// Scans returns all stored scans, oldest first.
func (c *Catalog) Scans() ([]Scan, error) {
	var scans []Scan
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketScans).ForEach(func(_, value []byte) error {
			var scan Scan
			if err := json.Unmarshal(value, &scan); err != nil {
				return fmt.Errorf("decoding scan: %w", err)
			}
			scans = append(scans, scan)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}

// Scan returns the stored scan with the given id.
func (c *Catalog) Scan(id string) (Scan, error) {
	var scan Scan
	err := c.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketScans).Get([]byte(id))
		if value == nil {
			return fmt.Errorf("scan '%s': %w", id, ErrScanNotFound)
		}
		return json.Unmarshal(value, &scan)
	})
	return scan, err
}

// Entries returns the entries of a scan in position order.
func (c *Catalog) Entries(id string) ([]report.Entry, error) {
	var entries []report.Entry
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRecords).Bucket([]byte(id))
		if bucket == nil {
			return fmt.Errorf("scan '%s': %w", id, ErrScanNotFound)
		}
		return bucket.ForEach(func(_, value []byte) error {
			var entry report.Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decoding entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// positionKey encodes an image offset big endian so that keys sort by offset.
func positionKey(position int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(position))
	return key
}
