package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/service/ratelimit"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/util"

	"github.com/shopspring/decimal"
)

type historyResponse struct {
	Data struct {
		LSJZList []struct {
			FSRQ string `json:"FSRQ"` // date
			DWJZ string `json:"DWJZ"` // unit net value
		} `json:"LSJZList"`
	} `json:"Data"`
	ErrCode    int    `json:"ErrCode"`
	ErrMsg     string `json:"ErrMsg"`
	TotalCount int    `json:"TotalCount"`
}

// HistoryFetcher pages through the f10/lsjz history API, newest first, until
// maxPages pages or the whole history have been read.
type HistoryFetcher struct {
	src      source
	baseURL  string
	pageSize int
	maxPages int
}

func NewHistoryFetcher(client *xhttp.Client, limiter *ratelimit.Limiter, baseURL string, pageSize, maxPages int) *HistoryFetcher {
	if pageSize <= 0 {
		pageSize = 20
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &HistoryFetcher{src: newSource(client, limiter, time.UTC), baseURL: baseURL, pageSize: pageSize, maxPages: maxPages}
}

func (f *HistoryFetcher) Name() string { return "eastmoney_history" }

func (f *HistoryFetcher) Fetch(ctx context.Context, code string) (models.TimeSeries, error) {
	code = util.NormalizeFundCode(code)

	var obs []models.Observation
	for page := 1; page <= f.maxPages; page++ {
		var resp historyResponse
		body, err := f.src.get(ctx, f.baseURL, map[string]string{
			"fundCode":  code,
			"pageIndex": strconv.Itoa(page),
			"pageSize":  strconv.Itoa(f.pageSize),
		})
		if err != nil {
			return models.TimeSeries{}, fmt.Errorf("history %s page %d: %w", code, page, err)
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return models.TimeSeries{}, fmt.Errorf("history %s page %d: decode: %w", code, page, err)
		}
		if resp.ErrCode != 0 {
			return models.TimeSeries{}, fmt.Errorf("history %s: api error %d: %s", code, resp.ErrCode, resp.ErrMsg)
		}

		for _, row := range resp.Data.LSJZList {
			date, ok := util.ParseDate(row.FSRQ)
			if !ok {
				continue
			}
			v, err := decimal.NewFromString(row.DWJZ)
			if err != nil {
				continue
			}
			obs = append(obs, models.Observation{Date: date, NetValue: v})
		}
		if len(resp.Data.LSJZList) < f.pageSize || page*f.pageSize >= resp.TotalCount {
			break
		}
	}

	obs = normalize(obs)
	if len(obs) == 0 {
		return models.TimeSeries{}, fmt.Errorf("history %s: %w", code, models.ErrEmptyResult)
	}
	return models.TimeSeries{Code: code, Observations: obs}, nil
}
