package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FundSignal/internal/di"
	"FundSignal/internal/usecase"
	"FundSignal/pkg/config"
	"FundSignal/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	days := flag.Int("days", -1, "retention window in calendar days (default from config)")
	funds := flag.String("funds", "", "comma separated fund codes (default from config)")
	reportDate := flag.String("report-date", "", "report date YYYY-MM-DD (default today)")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of running a report")
	testEmail := flag.Bool("test-email", false, "send a sample report mail and exit")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("config %s not found, using defaults", path)
		path = ""
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *reportDate != "" {
		d, ok := util.ParseDate(*reportDate)
		if !ok {
			log.Fatalf("invalid -report-date: %q", *reportDate)
		}
		*reportDate = util.FormatDate(d)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer app.Close()

	opts := app.Options()
	if *funds != "" {
		opts.Codes = util.SplitList(*funds, ",")
	}
	if *days >= 0 {
		opts.RetentionDays = *days
	}
	if *reportDate != "" {
		opts.ReportDate = *reportDate
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		if err := app.Serve(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	case *testEmail:
		if err := app.SendTestEmail(ctx, opts.ReportDate); err != nil {
			log.Printf("test email failed: %v", err)
			os.Exit(1)
		}
	default:
		report, err := app.RunOnce(ctx, opts)
		if err != nil {
			log.Printf("run error: %v", err)
			if usecase.IsBatchFailure(err) || len(report.Succeeded()) == 0 {
				app.Close()
				os.Exit(1)
			}
		}
	}
}
