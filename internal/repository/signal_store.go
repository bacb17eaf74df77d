package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FundSignal/internal/domain/models"
	pkgch "FundSignal/pkg/clickhouse"
	applogger "FundSignal/pkg/logger"
)

const insertChunk = 500

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ClickHouseSignalStore persists signal records into a ReplacingMergeTree table, so a
// rerun for the same report date replaces earlier rows.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseSignalStore(ch *pkgch.Client, table string, l *applogger.Logger) (*ClickHouseSignalStore, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseSignalStore{db: ch.DB(), table: table, l: l}, nil
}

// Schema returns the DDL creating the signal table.
func (s *ClickHouseSignalStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            code        String,
            name        String,
            category    LowCardinality(String),
            nav_date    Date,
            report_date Date,
            ma_signal   LowCardinality(String),
            rsi         Float64,
            rsi_signal  LowCardinality(String),
            cci         Float64,
            cci_signal  LowCardinality(String),
            macd        Float64,
            macd_signal LowCardinality(String),
            boll_lower  Float64,
            boll_mid    Float64,
            boll_upper  Float64,
            boll_signal LowCardinality(String),
            inserted_at DateTime DEFAULT now()
        )
        ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (code, report_date, nav_date)
    `, s.table)}
}

func (s *ClickHouseSignalStore) Name() string { return "clickhouse" }

func (s *ClickHouseSignalStore) Write(ctx context.Context, records []models.SignalRecord) error {
	start := time.Now()
	for i := 0; i < len(records); i += insertChunk {
		end := i + insertChunk
		if end > len(records) {
			end = len(records)
		}
		if err := s.insert(ctx, records[i:end]); err != nil {
			s.l.Error("clickhouse insert signals error",
				applogger.String("table", s.table),
				applogger.Int("rows", end-i),
				applogger.Error(err),
			)
			return err
		}
	}
	s.l.Debug("clickhouse insert signals ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(records)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *ClickHouseSignalStore) insert(ctx context.Context, records []models.SignalRecord) error {
	if len(records) == 0 {
		return nil
	}
	q, args, err := buildInsert(s.table, records)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert signals: %w", err)
	}
	return nil
}

const signalColumns = "code, name, category, nav_date, report_date, ma_signal, rsi, rsi_signal, " +
	"cci, cci_signal, macd, macd_signal, boll_lower, boll_mid, boll_upper, boll_signal"

func buildInsert(table string, records []models.SignalRecord) (string, []interface{}, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, signalColumns)
	args := make([]interface{}, 0, len(records)*16)
	for i, r := range records {
		rd, err := time.Parse("2006-01-02", r.ReportDate)
		if err != nil {
			return "", nil, fmt.Errorf("report date %q: %w", r.ReportDate, err)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.Code, r.Name, r.Category, r.Date, rd,
			string(r.MASignal), r.RSI, string(r.RSISignal),
			r.CCI, string(r.CCISignal), r.MACD, string(r.MACDSignal),
			r.BollLower, r.BollMid, r.BollUpper, string(r.BollSignal),
		)
	}
	return b.String(), args, nil
}

// Latest returns the newest limit rows stored for code, ascending by date.
func (s *ClickHouseSignalStore) Latest(ctx context.Context, code string, limit int) ([]models.SignalRecord, error) {
	q := fmt.Sprintf(`
        SELECT code, name, category, nav_date, toString(report_date), ma_signal, rsi, rsi_signal,
               cci, cci_signal, macd, macd_signal, boll_lower, boll_mid, boll_upper, boll_signal
        FROM %s FINAL
        WHERE code = ?
        ORDER BY report_date DESC, nav_date DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.SignalRecord, 0, limit)
	for rows.Next() {
		var (
			r                        models.SignalRecord
			ma, rsi, cci, macd, boll string
		)
		if err := rows.Scan(&r.Code, &r.Name, &r.Category, &r.Date, &r.ReportDate,
			&ma, &r.RSI, &rsi, &r.CCI, &cci, &r.MACD, &macd,
			&r.BollLower, &r.BollMid, &r.BollUpper, &boll); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		r.MASignal, r.RSISignal, r.CCISignal = models.Label(ma), models.Label(rsi), models.Label(cci)
		r.MACDSignal, r.BollSignal = models.Label(macd), models.Label(boll)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseSignalStore) Close() error { return nil }
