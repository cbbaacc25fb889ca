package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"FundPilot/internal/model"
)

// DefaultIndices are the broad indices used for the market backdrop.
var DefaultIndices = []string{"sh000001", "sh000300", "sz399006", "sh000905"}

// SinaMarketFetcher implements MarketFetcher using the sina quote API.
type SinaMarketFetcher struct {
	BaseURL string // e.g. http://hq.sinajs.cn/list=
	Indices []string
	http    *httpClient
}

// NewSinaMarketFetcher creates a market fetcher; empty indices use DefaultIndices.
func NewSinaMarketFetcher(baseURL string, indices []string, opts HTTPOptions) *SinaMarketFetcher {
	if len(indices) == 0 {
		indices = DefaultIndices
	}
	return &SinaMarketFetcher{BaseURL: baseURL, Indices: indices, http: newHTTPClient(opts)}
}

func (f *SinaMarketFetcher) Name() string { return "sina" }

// FetchMarket returns the configured index quotes in configured order.
func (f *SinaMarketFetcher) FetchMarket(ctx context.Context) (*model.MarketContext, error) {
	quotes, err := f.FetchQuotes(ctx, f.Indices)
	if err != nil {
		return nil, fmt.Errorf("fetch market: %w", err)
	}
	mc := &model.MarketContext{FetchedAt: time.Now()}
	for _, code := range f.Indices {
		if q, ok := quotes[code]; ok {
			mc.Indices = append(mc.Indices, q)
		}
	}
	if len(mc.Indices) == 0 {
		return nil, ErrNoData
	}
	return mc, nil
}

// FetchQuotes returns quotes for any sina codes, indices or stocks. Codes
// without a usable quote are absent from the map.
func (f *SinaMarketFetcher) FetchQuotes(ctx context.Context, codes []string) (map[string]model.MarketIndex, error) {
	if len(codes) == 0 {
		return map[string]model.MarketIndex{}, nil
	}
	body, err := f.http.get(ctx, f.BaseURL+strings.Join(codes, ","), map[string]string{"Referer": "https://finance.sina.com.cn"})
	if err != nil {
		return nil, err
	}
	utf8, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode GBK: %w", err)
	}
	return parseSinaQuotes(utf8), nil
}

// normalizeStockCode adds the sina exchange prefix: 6xxxxx trades in
// Shanghai, everything else in Shenzhen.
func normalizeStockCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz") {
		return code
	}
	if strings.HasPrefix(code, "6") {
		return "sh" + code
	}
	return "sz" + code
}

// parseSinaQuotes reads lines like
// var hq_str_sh000001="上证指数,3000.10,2990.20,3010.50,...";
// (name, open, previous close, current). Rows without a positive previous
// close or current price are suspended or pre-open and are skipped.
func parseSinaQuotes(body []byte) map[string]model.MarketIndex {
	out := make(map[string]model.MarketIndex)
	for _, line := range bytes.Split(body, []byte("\n")) {
		s := strings.TrimSpace(string(line))
		_, rest, ok := strings.Cut(s, "hq_str_")
		if !ok {
			continue
		}
		code, quoted, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		quoted = strings.TrimSuffix(strings.TrimSpace(quoted), ";")
		fields := strings.Split(strings.Trim(quoted, `"`), ",")
		if len(fields) < 4 {
			continue
		}
		prev, err1 := parseNumber(fields[2])
		cur, err2 := parseNumber(fields[3])
		if err1 != nil || err2 != nil || prev <= 0 || cur <= 0 {
			continue
		}
		out[code] = model.MarketIndex{
			Code:      code,
			Name:      fields[0],
			PrevClose: prev,
			Current:   cur,
			ChangePct: (cur - prev) / prev * 100,
		}
	}
	return out
}
