package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/service/ratelimit"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/util"

	"github.com/shopspring/decimal"
)

var (
	trendRe = regexp.MustCompile(`var\s+Data_netWorthTrend\s*=\s*(\[[\s\S]*?\])\s*;`)
	nameRe  = regexp.MustCompile(`var\s+fS_name\s*=\s*"([^"]*)"\s*;`)
)

type trendPoint struct {
	X int64           `json:"x"` // epoch ms
	Y decimal.Decimal `json:"y"`
}

// TrendFetcher reads the full unit net value history from pingzhongdata/<code>.js.
type TrendFetcher struct {
	src     source
	baseURL string
}

func NewTrendFetcher(client *xhttp.Client, limiter *ratelimit.Limiter, baseURL string, loc *time.Location) *TrendFetcher {
	return &TrendFetcher{src: newSource(client, limiter, loc), baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *TrendFetcher) Name() string { return "eastmoney_trend" }

func (f *TrendFetcher) Fetch(ctx context.Context, code string) (models.TimeSeries, error) {
	code = util.NormalizeFundCode(code)
	body, err := f.src.get(ctx, fmt.Sprintf("%s/%s.js", f.baseURL, code), map[string]string{
		"v": time.Now().Format("20060102150405"),
	})
	if err != nil {
		return models.TimeSeries{}, fmt.Errorf("trend %s: %w", code, err)
	}
	return parseTrend(code, body, f.src.loc)
}

func parseTrend(code string, body []byte, loc *time.Location) (models.TimeSeries, error) {
	m := trendRe.FindSubmatch(body)
	if m == nil {
		return models.TimeSeries{}, fmt.Errorf("trend %s: Data_netWorthTrend not found", code)
	}
	var points []trendPoint
	if err := json.Unmarshal(m[1], &points); err != nil {
		return models.TimeSeries{}, fmt.Errorf("trend %s: decode: %w", code, err)
	}

	obs := make([]models.Observation, 0, len(points))
	for _, p := range points {
		obs = append(obs, models.Observation{Date: dateIn(time.UnixMilli(p.X), loc), NetValue: p.Y})
	}
	obs = normalize(obs)
	if len(obs) == 0 {
		return models.TimeSeries{}, fmt.Errorf("trend %s: %w", code, models.ErrEmptyResult)
	}

	series := models.TimeSeries{Code: code, Observations: obs}
	if n := nameRe.FindSubmatch(body); n != nil {
		series.Name = string(n[1])
	}
	return series, nil
}
