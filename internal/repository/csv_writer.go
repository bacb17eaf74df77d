package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"FundSignal/internal/domain/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Chinese headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter appends records to signals_<report date>.csv as each fund
// finishes. The file is truncated and the header written on first use.
type CSVWriter struct {
	path string

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

func NewCSVWriter(dir, reportDate string) *CSVWriter {
	return &CSVWriter{path: filepath.Join(dir, "signals_"+reportDate+".csv")}
}

func (c *CSVWriter) Name() string { return "csv" }

func (c *CSVWriter) Path() string { return c.path }

func (c *CSVWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return fmt.Errorf("write bom: %w", err)
	}
	c.file = f
	c.w = csv.NewWriter(f)
	return c.w.Write(reportHeader)
}

func (c *CSVWriter) Write(_ context.Context, records []models.SignalRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.w == nil {
		if err := c.open(); err != nil {
			return err
		}
	}
	for _, r := range records {
		if err := c.w.Write(reportRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file. A writer that never received records
// leaves no file behind.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	c.w.Flush()
	err := c.w.Error()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file, c.w = nil, nil
	return err
}
