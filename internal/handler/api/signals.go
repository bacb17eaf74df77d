package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/service/metrics"
	"FundSignal/internal/service/ratelimit"
	"FundSignal/internal/usecase"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/http/middleware"
	xlogger "FundSignal/pkg/logger"
	"FundSignal/pkg/queue"
	"FundSignal/pkg/util"

	"github.com/labstack/echo/v4"
)

// Analyzer computes the signal state of one fund.
type Analyzer interface {
	Analyze(ctx context.Context, code string) (usecase.Analysis, error)
}

// SignalReader returns persisted signal rows.
type SignalReader interface {
	Latest(ctx context.Context, code string, limit int) ([]models.SignalRecord, error)
}

type storedRequest struct {
	Code  string `param:"code" validate:"required,max=16"`
	Limit int    `query:"limit" default:"30" validate:"gte=1,lte=1000"`
}

type signalsRequest struct {
	Code       string `param:"code" validate:"required,max=16"`
	Days       int    `query:"days" validate:"gte=0,lte=3650"`
	ReportDate string `query:"report_date" validate:"omitempty,datetime=2006-01-02"`
}

type latestResponse struct {
	Record   models.SignalRecord `json:"record"`
	Fallback bool                `json:"fallback"`
}

// SignalsHandler serves on-demand signal reports for single funds.
type SignalsHandler struct {
	logger   *xlogger.Logger
	analyzer Analyzer
	rl       *ratelimit.Limiter
	today    func() string
	days     int
	runs     queue.Enqueuer
	stored   SignalReader
}

// WithStore enables GET /api/signals/:code/stored.
func (h *SignalsHandler) WithStore(r SignalReader) *SignalsHandler {
	h.stored = r
	return h
}

// NewSignalsHandler creates the handler. today supplies the default report date
// and days the retention used when the query omits it. runs may be nil, which
// disables POST /api/runs.
func NewSignalsHandler(logger *xlogger.Logger, analyzer Analyzer, rl *ratelimit.Limiter, today func() string, days int, runs queue.Enqueuer) *SignalsHandler {
	metrics.Register()
	if today == nil {
		today = func() string { return util.FormatDate(time.Now()) }
	}
	return &SignalsHandler{logger: logger, analyzer: analyzer, rl: rl, today: today, days: days, runs: runs}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api", middleware.Metrics(metrics.APILatency, metrics.APIErrors), h.limit)
	g.GET("/signals/:code", h.Signals)
	g.GET("/signals/:code/latest", h.Latest)
	g.GET("/signals/:code/stored", h.Stored)
	g.POST("/runs", h.EnqueueRun)
}

func (h *SignalsHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			h.logger.Warn("signals rate limited", xlogger.String("remote", c.RealIP()))
			return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
		}
		return next(c)
	}
}

func (h *SignalsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SignalsHandler) analyze(c echo.Context) (*signalsRequest, usecase.Analysis, error) {
	req := &signalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, usecase.Analysis{}, xhttp.BadRequestResponse(c, verr)
	}
	req.Code = util.NormalizeFundCode(req.Code)
	if req.ReportDate == "" {
		req.ReportDate = h.today()
	}
	if c.QueryParam("days") == "" {
		req.Days = h.days
	}

	a, err := h.analyzer.Analyze(c.Request().Context(), req.Code)
	if err != nil {
		h.logger.Error("signals analyze error", xlogger.String("code", req.Code), xlogger.Error(err))
		return nil, usecase.Analysis{}, xhttp.AppErrorResponse(c, toAppError(req.Code, err))
	}
	return req, a, nil
}

// Signals returns the retained report rows of one fund.
func (h *SignalsHandler) Signals(c echo.Context) error {
	req, a, err := h.analyze(c)
	if req == nil {
		return err
	}
	rows := a.Records(req.ReportDate, req.Days)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Latest returns the row at the most recent observation date.
func (h *SignalsHandler) Latest(c echo.Context) error {
	req, a, err := h.analyze(c)
	if req == nil {
		return err
	}
	rows := a.Records(req.ReportDate, 0)
	if len(rows) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no observations for %s", req.Code))
	}
	return xhttp.SuccessResponse(c, latestResponse{Record: rows[len(rows)-1], Fallback: a.Fallback})
}

// Stored returns the newest persisted rows of one fund.
func (h *SignalsHandler) Stored(c echo.Context) error {
	if h.stored == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "signal store disabled", http.StatusServiceUnavailable))
	}
	req := &storedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	code := util.NormalizeFundCode(req.Code)
	rows, err := h.stored.Latest(c.Request().Context(), code, req.Limit)
	if err != nil {
		h.logger.Error("stored signals query error", xlogger.String("code", code), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("could not read stored signals for fund %s", code).WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// EnqueueRun schedules a full report run on the job queue.
func (h *SignalsHandler) EnqueueRun(c echo.Context) error {
	if h.runs == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "job queue disabled", http.StatusServiceUnavailable))
	}
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id, err := h.runs.Enqueue(c.Request().Context(), models.JobReportRun, req)
	if err != nil {
		h.logger.Error("enqueue run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("could not enqueue run").WithError(err))
	}
	h.logger.Info("run enqueued", xlogger.String("job_id", id), xlogger.Int("funds", len(req.Codes)))
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": id})
}

func toAppError(code string, err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrEmptyResult):
		return xhttp.NotFoundErrorf("no history for fund %s", code).WithError(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request cancelled", http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, models.ErrFetchFailed):
		return xhttp.BadGatewayErrorf("history source unavailable for fund %s", code).WithError(err)
	default:
		return xhttp.InternalErrorf("could not compute signals for fund %s", code).WithError(err)
	}
}
