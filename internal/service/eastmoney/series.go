// Package eastmoney reads fund net values and fund metadata from the public
// Eastmoney endpoints.
package eastmoney

import (
	"context"
	"net/url"
	"sort"
	"time"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/service/ratelimit"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/util"
)

const referer = "https://fund.eastmoney.com/"

// source bundles what every endpoint reader needs.
type source struct {
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	loc     *time.Location
}

func newSource(client *xhttp.Client, limiter *ratelimit.Limiter, loc *time.Location) source {
	if loc == nil {
		loc = time.UTC
	}
	return source{client: client, limiter: limiter, loc: loc}
}

// get waits for the per-host rate limit and fetches rawURL.
func (s source) get(ctx context.Context, rawURL string, query map[string]string) ([]byte, error) {
	if s.limiter != nil {
		host := rawURL
		if u, err := url.Parse(rawURL); err == nil {
			host = u.Host
		}
		if err := s.limiter.Wait(ctx, host); err != nil {
			return nil, err
		}
	}
	return s.client.Fetch(ctx, &xhttp.RequestOptions{
		URL:         rawURL,
		QueryParams: query,
		Headers:     map[string]string{"Referer": referer},
	})
}

// normalize sorts observations by date, keeps the last value published for a
// date and drops non-positive values.
func normalize(obs []models.Observation) []models.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	out := obs[:0]
	for _, o := range obs {
		if !o.NetValue.IsPositive() {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(o.Date) {
			out[n-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}

// dateIn converts an instant to the calendar date it falls on in loc.
func dateIn(t time.Time, loc *time.Location) time.Time {
	return util.DateOnly(t.In(loc))
}
