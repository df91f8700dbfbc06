// Package importlog keeps an append-only CSV history of statement imports.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Import outcomes.
const (
	StatusImported = "imported"
	StatusEmpty    = "empty"
	StatusDryRun   = "dry_run"
	StatusFailed   = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp   time.Time
	File        string
	Institution string
	Status      string
	Accepted    int
	Duplicates  int
	Dropped     int
	Error       string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,file,institution,status,accepted,duplicates,dropped,error"

const (
	numFields      = 8
	logDir         = "logs"
	logFile        = "logs/import-log.csv"
	colTimestamp   = 0
	colFile        = 1
	colInstitution = 2
	colStatus      = 3
	colAccepted    = 4
	colDuplicates  = 5
	colDropped     = 6
	colError       = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colFile] = e.File
	row[colInstitution] = e.Institution
	row[colStatus] = e.Status
	row[colAccepted] = strconv.Itoa(e.Accepted)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colDropped] = strconv.Itoa(e.Dropped)
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 3)
	for i, col := range []int{colAccepted, colDuplicates, colDropped} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts[i] = n
	}

	return Entry{
		Timestamp:   ts,
		File:        record[colFile],
		Institution: record[colInstitution],
		Status:      record[colStatus],
		Accepted:    counts[0],
		Duplicates:  counts[1],
		Dropped:     counts[2],
		Error:       record[colError],
	}, nil
}

// Append writes entries to <dataDir>/logs/import-log.csv, creating the file and header if needed.
func Append(dataDir string, entries []Entry) error {
	dir := filepath.Join(dataDir, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dataDir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dataDir>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(dataDir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dataDir, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
