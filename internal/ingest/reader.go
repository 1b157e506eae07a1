// Package ingest reads CSV files into ordered raw records for the pipeline.
// It owns every ingestion concern the validation core is decoupled from:
// file access, CSV parsing, header handling, and read retries.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/carelake/ingest/internal/record"
)

// DuplicateHeaderPolicy decides what happens when the CSV header names the
// same column twice.
type DuplicateHeaderPolicy string

const (
	// DuplicateReject fails ingestion of the whole file.
	DuplicateReject DuplicateHeaderPolicy = "reject"
	// DuplicateFirstWins keeps the first occurrence and ignores the rest.
	DuplicateFirstWins DuplicateHeaderPolicy = "first-wins"
)

// ParsePolicy validates a configured duplicate-header policy string.
func ParsePolicy(s string) (DuplicateHeaderPolicy, error) {
	switch DuplicateHeaderPolicy(s) {
	case DuplicateReject, DuplicateFirstWins:
		return DuplicateHeaderPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown duplicate-header policy %q (want %q or %q)",
			s, DuplicateReject, DuplicateFirstWins)
	}
}

// Options configures a read.
type Options struct {
	MaxFileSize      int64 // bytes; 0 disables the check
	DuplicateHeaders DuplicateHeaderPolicy
	RetryAttempts    int           // total attempts for ReadFile; <=1 disables retry
	RetryDelay       time.Duration // pause between attempts
}

// Input is one fully read batch: the effective header and one raw record per
// data row, in source order.
type Input struct {
	Source  string
	Header  []string
	Records []record.RawRecord
}

// Read parses CSV from r. The first row is the header; cells are cleaned
// before matching. Fully empty rows are skipped. Rows may be ragged: short
// rows leave trailing columns absent, wide rows drop the extra cells.
func Read(r io.Reader, source string, opts Options) (*Input, error) {
	cr := csv.NewReader(WrapReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rawHeader, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}

	header, keep, err := resolveHeader(rawHeader, opts.DuplicateHeaders)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	in := &Input{Source: source, Header: header}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row at line %d: %w", source, line, err)
		}
		if isEmptyRow(row) {
			continue
		}
		in.Records = append(in.Records, record.NewRawRecord(line, header, project(row, keep)))
	}
	return in, nil
}

// ReadFile reads one CSV file, retrying transient failures per the options.
// The file size is checked against MaxFileSize before parsing.
func ReadFile(ctx context.Context, path string, opts Options) (*Input, error) {
	if opts.RetryAttempts <= 1 {
		return readFileOnce(path, opts)
	}

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(opts.RetryAttempts-1), retry.NewConstant(delay))

	var in *Input
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var readErr error
		in, readErr = readFileOnce(path, opts)
		if readErr != nil {
			return retry.RetryableError(readErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %s after %d attempts: %w", path, opts.RetryAttempts, err)
	}
	return in, nil
}

func readFileOnce(path string, opts Options) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.MaxFileSize > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > opts.MaxFileSize {
			return nil, fmt.Errorf("%s exceeds %d byte limit (%d bytes)", path, opts.MaxFileSize, info.Size())
		}
	}

	return Read(f, path, opts)
}

// resolveHeader cleans the header cells and applies the duplicate policy.
// keep maps effective header positions to source cell positions.
func resolveHeader(raw []string, policy DuplicateHeaderPolicy) (header []string, keep []int, err error) {
	if policy == "" {
		policy = DuplicateReject
	}

	seen := make(map[string]bool, len(raw))
	for i, cell := range raw {
		name := record.CleanCell(cell)
		key := strings.ToLower(name)
		if seen[key] {
			if policy == DuplicateReject {
				return nil, nil, fmt.Errorf("duplicate header column %q", name)
			}
			continue
		}
		seen[key] = true
		header = append(header, name)
		keep = append(keep, i)
	}
	return header, keep, nil
}

// project selects the kept cells of a row in effective header order.
func project(row []string, keep []int) []string {
	out := make([]string, 0, len(keep))
	for _, i := range keep {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			break
		}
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
