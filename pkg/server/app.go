package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FundSignal/internal/domain/models"
	drepo "FundSignal/internal/domain/repository"
	"FundSignal/internal/handler/api"
	"FundSignal/internal/repository"
	"FundSignal/internal/service/mailer"
	"FundSignal/internal/usecase"
	"FundSignal/pkg/cache"
	pkgch "FundSignal/pkg/clickhouse"
	"FundSignal/pkg/config"
	xhttp "FundSignal/pkg/http"
	pkgkafka "FundSignal/pkg/kafka"
	applogger "FundSignal/pkg/logger"
	"FundSignal/pkg/queue"
	"FundSignal/pkg/util"
)

// ErrRunInProgress is returned when another process holds the lock for a report date.
var ErrRunInProgress = errors.New("report run already in progress")

const runLockTTL = 30 * time.Minute

// App encapsulates the application lifecycle: one-shot report runs and the
// long-running HTTP API.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	analyzer *usecase.Analyzer
	cache    cache.Service
	metrics  drepo.Metrics
	notifier drepo.ReportNotifier
	producer *pkgkafka.Producer
	chClient *pkgch.Client
	store    *repository.ClickHouseSignalStore
	queue    *queue.RedisQueue
	handler  *api.SignalsHandler
}

// New creates a new App instance with all dependencies. producer, chClient,
// store, queue and notifier are nil when the matching integration is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	analyzer *usecase.Analyzer,
	c cache.Service,
	metrics drepo.Metrics,
	notifier drepo.ReportNotifier,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	store *repository.ClickHouseSignalStore,
	q *queue.RedisQueue,
	handler *api.SignalsHandler,
) *App {
	a := &App{
		cfg:      cfg,
		log:      log,
		analyzer: analyzer,
		cache:    c,
		metrics:  metrics,
		notifier: notifier,
		producer: producer,
		chClient: chClient,
		store:    store,
		queue:    q,
		handler:  handler,
	}
	if q != nil {
		q.Register(runJob{app: a})
	}
	return a
}

// RunOptions override the configured batch parameters.
type RunOptions struct {
	Codes         []string
	ReportDate    string
	RetentionDays int
}

// Options resolves the batch parameters from configuration and the current date.
func (a *App) Options() RunOptions {
	date := a.cfg.Report.ReportDate
	if date == "" {
		date = util.FormatDate(util.Today(a.cfg.Location()))
	}
	return RunOptions{
		Codes:         a.cfg.Funds.Codes,
		ReportDate:    date,
		RetentionDays: a.cfg.Report.RetentionDays,
	}
}

// sinks builds the record sinks for one run in the order they are written.
func (a *App) sinks(reportDate string) []drepo.SignalSink {
	var out []drepo.SignalSink
	if a.cfg.Report.CSV {
		out = append(out, repository.NewCSVWriter(a.cfg.Report.OutputDir, reportDate))
	}
	if a.cfg.Report.Excel {
		out = append(out, repository.NewExcelWriter(a.cfg.Report.OutputDir, reportDate))
	}
	if a.store != nil {
		out = append(out, a.store)
	}
	if a.producer != nil {
		out = append(out, repository.NewKafkaSignalPublisher(a.producer, a.cfg.Kafka.Topic))
	}
	return out
}

// RunOnce processes the fund list once. A lock keyed by report date keeps two
// processes sharing a Redis cache from producing the same report concurrently.
func (a *App) RunOnce(ctx context.Context, opts RunOptions) (models.BatchReport, error) {
	codes := make([]string, 0, len(opts.Codes))
	for _, c := range opts.Codes {
		if c = util.NormalizeFundCode(c); c != "" {
			codes = append(codes, c)
		}
	}

	lockKey := cache.GenerateKey("run", opts.ReportDate)
	ok, err := a.cache.TryLock(ctx, lockKey, runLockTTL)
	if err != nil {
		a.log.Warn("run lock unavailable, continuing without it", applogger.Error(err))
	} else if !ok {
		return models.BatchReport{ReportDate: opts.ReportDate}, ErrRunInProgress
	} else {
		defer func() {
			if err := a.cache.Unlock(context.Background(), lockKey); err != nil {
				a.log.Warn("run unlock failed", applogger.Error(err))
			}
		}()
	}

	p := usecase.NewPipeline(a.analyzer, a.sinks(opts.ReportDate), a.notifier, a.metrics, a.log, opts.RetentionDays)
	return p.Run(ctx, codes, opts.ReportDate)
}

// SendTestEmail mails a one-row sample report to check SMTP settings.
func (a *App) SendTestEmail(ctx context.Context, reportDate string) error {
	if a.notifier == nil {
		return fmt.Errorf("smtp disabled: %w", mailer.ErrNotConfigured)
	}
	return a.notifier.Notify(ctx, mailer.SampleReport(reportDate), nil)
}

// Serve runs the HTTP API until ctx is cancelled or an interrupt arrives.
func (a *App) Serve(ctx context.Context) error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	srv := xhttp.NewServer(a.log, []xhttp.Handler{a.handler},
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := srv.Start(); err != nil {
		return err
	}
	if a.queue != nil {
		if err := a.queue.Start(ctx); err != nil {
			a.log.Error("job queue start failed", applogger.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	if a.queue != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.queue.Stop(stopCtx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}
	return srv.Stop(context.Background())
}

// Close releases infrastructure clients and flushes collected logs.
func (a *App) Close() {
	a.log.Info("shutting down...")
	a.log.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
}
