package server

import (
	"context"
	"encoding/json"
	"errors"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/usecase"
	applogger "FundSignal/pkg/logger"
	"FundSignal/pkg/queue"
)

// runJob executes queued report runs.
type runJob struct {
	app *App
}

func (j runJob) Type() string { return models.JobReportRun }

func (j runJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.DecodePayload[models.RunRequest](payload)
	if err != nil {
		return err
	}
	opts := j.app.Options().Merge(*req)

	report, err := j.app.RunOnce(ctx, opts)
	switch {
	case errors.Is(err, ErrRunInProgress):
		j.app.log.Warn("queued run skipped, another run holds the lock", applogger.String("report_date", opts.ReportDate))
		return nil
	case usecase.IsBatchFailure(err):
		// Every fund failed; a retry may find the source back up.
		return err
	case err != nil:
		return err
	}
	j.app.log.Info("queued run finished",
		applogger.String("run_id", report.RunID),
		applogger.Int("succeeded", len(report.Succeeded())))
	return nil
}

// Merge overlays the non-zero fields of req.
func (o RunOptions) Merge(req models.RunRequest) RunOptions {
	if len(req.Codes) > 0 {
		o.Codes = req.Codes
	}
	if req.ReportDate != "" {
		o.ReportDate = req.ReportDate
	}
	if req.RetentionDays != nil {
		o.RetentionDays = *req.RetentionDays
	}
	return o
}
