package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"FundSignal/internal/domain/models"
	"FundSignal/internal/service/ratelimit"
	xhttp "FundSignal/pkg/http"
	"FundSignal/pkg/util"
)

var directoryRe = regexp.MustCompile(`var\s+r\s*=\s*(\[[\s\S]*?\])\s*;`)

// Directory resolves fund names and categories from fundcode_search.js. Each
// entry is [code, abbreviation, name, category, pinyin]. The file is loaded on
// first use and kept; a failed load is retried on the next lookup.
type Directory struct {
	src source
	url string

	mu    sync.Mutex
	funds map[string]models.FundInfo
}

func NewDirectory(client *xhttp.Client, limiter *ratelimit.Limiter, url string) *Directory {
	return &Directory{src: newSource(client, limiter, nil), url: url}
}

func (d *Directory) Lookup(ctx context.Context, code string) (models.FundInfo, error) {
	code = util.NormalizeFundCode(code)
	funds, err := d.load(ctx)
	if err != nil {
		return models.FundInfo{}, err
	}
	info, ok := funds[code]
	if !ok {
		return models.FundInfo{}, fmt.Errorf("fund %s not in directory", code)
	}
	return info, nil
}

func (d *Directory) load(ctx context.Context) (map[string]models.FundInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.funds != nil {
		return d.funds, nil
	}

	body, err := d.src.get(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fund directory: %w", err)
	}
	funds, err := parseDirectory(body)
	if err != nil {
		return nil, err
	}
	d.funds = funds
	return funds, nil
}

func parseDirectory(body []byte) (map[string]models.FundInfo, error) {
	m := directoryRe.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("fund directory: array not found")
	}
	var rows [][]string
	if err := json.Unmarshal(m[1], &rows); err != nil {
		return nil, fmt.Errorf("fund directory: decode: %w", err)
	}
	funds := make(map[string]models.FundInfo, len(rows))
	for _, r := range rows {
		if len(r) < 4 {
			continue
		}
		funds[r[0]] = models.FundInfo{Code: r[0], Name: r[2], Category: r[3]}
	}
	return funds, nil
}
