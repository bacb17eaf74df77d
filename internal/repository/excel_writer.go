package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"FundSignal/internal/domain/models"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "signals"

// ExcelWriter streams records into the "signals" sheet of
// signals_<report date>.xlsx. The workbook is saved on Close.
type ExcelWriter struct {
	path string

	mu  sync.Mutex
	f   *excelize.File
	row int
}

func NewExcelWriter(dir, reportDate string) *ExcelWriter {
	return &ExcelWriter{path: filepath.Join(dir, "signals_"+reportDate+".xlsx")}
}

func (e *ExcelWriter) Name() string { return "excel" }

func (e *ExcelWriter) Path() string { return e.path }

func (e *ExcelWriter) init() error {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		f.Close()
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(excelSheet, "A1", &reportHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetPanes(excelSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		f.Close()
		return fmt.Errorf("freeze header: %w", err)
	}
	e.f, e.row = f, 1
	return nil
}

func (e *ExcelWriter) Write(_ context.Context, records []models.SignalRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.f == nil {
		if err := e.init(); err != nil {
			return err
		}
	}
	for _, r := range records {
		e.row++
		cell, err := excelize.CoordinatesToCellName(1, e.row)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.Code, r.Name, r.Category, r.Date.Format("2006-01-02"),
			r.MASignal.Display(), r.RSI, r.RSISignal.Display(),
			r.CCI, r.CCISignal.Display(),
			r.MACD, r.MACDSignal.Display(),
			r.BollLower, r.BollMid, r.BollUpper,
			r.BollSignal.Display(), r.ReportDate,
		}
		if err := e.f.SetSheetRow(excelSheet, cell, &row); err != nil {
			return fmt.Errorf("write excel row %d: %w", e.row, err)
		}
	}
	return nil
}

// Close saves the workbook if any record was written.
func (e *ExcelWriter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	defer func() { e.f.Close(); e.f = nil }()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := e.f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}
