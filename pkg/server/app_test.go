package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/pkg/cache"
	"FundSignal/pkg/config"
	applogger "FundSignal/pkg/logger"
)

func newTestApp(t *testing.T) (*App, *cache.MemoryCache) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Report.OutputDir = t.TempDir()
	cfg.Report.ReportDate = "2024-03-20"
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })
	return New(cfg, applogger.Nop(), nil, mc, nil, nil, nil, nil, nil, nil, nil), mc
}

func TestOptionsAndMerge(t *testing.T) {
	app, _ := newTestApp(t)
	opts := app.Options()
	if opts.ReportDate != "2024-03-20" || opts.RetentionDays != 10 || len(opts.Codes) != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}

	zero := 0
	merged := opts.Merge(models.RunRequest{Codes: []string{"000001"}, RetentionDays: &zero})
	if merged.ReportDate != "2024-03-20" || merged.RetentionDays != 0 || merged.Codes[0] != "000001" {
		t.Fatalf("unexpected merge %+v", merged)
	}
	if same := opts.Merge(models.RunRequest{}); same.RetentionDays != 10 || len(same.Codes) != 2 {
		t.Fatalf("empty request should keep options, got %+v", same)
	}
}

func TestSinksFollowConfig(t *testing.T) {
	app, _ := newTestApp(t)
	sinks := app.sinks("2024-03-20")
	if len(sinks) != 2 || sinks[0].Name() != "csv" || sinks[1].Name() != "excel" {
		t.Fatalf("unexpected sinks %v", sinks)
	}
	app.cfg.Report.Excel = false
	if got := len(app.sinks("2024-03-20")); got != 1 {
		t.Fatalf("expected 1 sink, got %d", got)
	}
}

func TestRunOnceHonoursLock(t *testing.T) {
	app, mc := newTestApp(t)
	ctx := context.Background()
	ok, err := mc.TryLock(ctx, cache.GenerateKey("run", "2024-03-20"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("lock: %v %v", ok, err)
	}
	if _, err := app.RunOnce(ctx, app.Options()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestSendTestEmailWithoutNotifier(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.SendTestEmail(context.Background(), "2024-03-20"); err == nil {
		t.Fatalf("expected error")
	}
}
