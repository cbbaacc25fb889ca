package collector

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FundPilot/internal/model"
)

// DefaultHoldingsURL serves the quarterly top-ten holdings table.
const DefaultHoldingsURL = "https://fundf10.eastmoney.com/FundArchivesDatas.aspx"

const (
	holdingsTopN = 10
	// Holdings change once a quarter, so a month-old cache is still current.
	holdingsMaxAge = 30 * 24 * time.Hour
)

// HoldingsStore caches disclosed holdings between runs.
type HoldingsStore interface {
	SaveHoldings(code string, holdings []model.StockHolding) error
	// LoadHoldings returns the cached holdings and when they were saved.
	LoadHoldings(code string) ([]model.StockHolding, time.Time, error)
}

// FetchHoldings returns the latest disclosed top holdings, largest first.
func (f *EastmoneyFetcher) FetchHoldings(ctx context.Context, code string) ([]model.StockHolding, error) {
	q := url.Values{}
	q.Set("type", "jjcc")
	q.Set("code", code)
	q.Set("topline", fmt.Sprint(holdingsTopN))
	q.Set("year", "")
	q.Set("month", "")
	body, err := f.http.get(ctx, f.HoldingsURL+"?"+q.Encode(), map[string]string{"Referer": eastmoneyReferer})
	if err != nil {
		return nil, fmt.Errorf("fetch holdings %s: %w", code, err)
	}
	return parseHoldings(body, holdingsTopN)
}

// parseHoldings reads the HTML table embedded in
// var apidata={ content:"<div>...<table>...</table></div>",arryear:[...],curyear:2024};
// Columns are located by header text because newer quarters add price columns.
func parseHoldings(body []byte, limit int) ([]model.StockHolding, error) {
	start := bytes.Index(body, []byte(`content:"`))
	if start < 0 {
		return nil, fmt.Errorf("unexpected holdings payload: %.80s", body)
	}
	html := body[start+len(`content:"`):]
	if end := bytes.LastIndex(html, []byte(`",arryear`)); end >= 0 {
		html = html[:end]
	} else if end := bytes.LastIndexByte(html, '"'); end >= 0 {
		html = html[:end]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse holdings html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoData
	}

	codeCol, nameCol, weightCol := -1, -1, -1
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		text := strings.TrimSpace(th.Text())
		switch {
		case strings.Contains(text, "股票代码"):
			codeCol = i
		case strings.Contains(text, "股票名称"):
			nameCol = i
		case strings.Contains(text, "占净值"):
			weightCol = i
		}
	})
	if codeCol < 0 || nameCol < 0 || weightCol < 0 {
		return nil, fmt.Errorf("holdings table missing columns (code=%d name=%d weight=%d)", codeCol, nameCol, weightCol)
	}

	var out []model.StockHolding
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() <= max(codeCol, nameCol, weightCol) {
			return true
		}
		code := strings.TrimSpace(cells.Eq(codeCol).Text())
		weight, err := parseNumber(strings.TrimSuffix(strings.TrimSpace(cells.Eq(weightCol).Text()), "%"))
		if code == "" || err != nil {
			return true
		}
		out = append(out, model.StockHolding{
			Code:   code,
			Name:   strings.TrimSpace(cells.Eq(nameCol).Text()),
			Weight: weight,
		})
		return len(out) < limit
	})
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// WithHoldings enables holdings penetration. quotes and cache may be nil.
func (c *Collector) WithHoldings(src HoldingsFetcher, quotes QuoteFetcher, cache HoldingsStore) *Collector {
	c.holdings = src
	c.quotes = quotes
	c.holdingsCache = cache
	return c
}

// Holdings returns the fund's top holdings with today's moves. It returns
// nil, nil when no holdings source is configured.
func (c *Collector) Holdings(ctx context.Context, fund model.Fund) (*model.HoldingsInsight, error) {
	if c.holdings == nil {
		return nil, nil
	}
	holdings, err := c.loadHoldings(ctx, fund)
	if err != nil {
		return nil, err
	}
	holdings = append([]model.StockHolding(nil), holdings...)
	if c.quotes != nil {
		c.applyQuotes(ctx, fund.Code, holdings)
	}
	return model.NewHoldingsInsight(holdings), nil
}

func (c *Collector) loadHoldings(ctx context.Context, fund model.Fund) ([]model.StockHolding, error) {
	var cached []model.StockHolding
	if c.holdingsCache != nil {
		h, savedAt, err := c.holdingsCache.LoadHoldings(fund.Code)
		if err != nil {
			c.Log.Warn().Err(err).Str("fund", fund.Code).Msg("load cached holdings")
		}
		cached = h
		if len(h) > 0 && c.Now().Sub(savedAt) < holdingsMaxAge {
			c.Log.Debug().Str("fund", fund.Code).Int("stocks", len(h)).Msg("using cached holdings")
			return h, nil
		}
	}

	target := fund.HoldingsCode()
	holdings, err := c.holdings.FetchHoldings(ctx, target)
	if err != nil && target != fund.Code {
		c.Log.Warn().Err(err).Str("fund", fund.Code).Str("etf", target).Msg("etf holdings failed, trying fund")
		holdings, err = c.holdings.FetchHoldings(ctx, fund.Code)
	}
	if err == nil && len(holdings) == 0 {
		err = ErrNoData
	}
	if err != nil {
		if len(cached) > 0 {
			c.Log.Warn().Err(err).Str("fund", fund.Code).Msg("holdings fetch failed, using stale cache")
			return cached, nil
		}
		return nil, err
	}
	if c.holdingsCache != nil {
		if serr := c.holdingsCache.SaveHoldings(fund.Code, holdings); serr != nil {
			c.Log.Warn().Err(serr).Str("fund", fund.Code).Msg("save holdings cache")
		}
	}
	return holdings, nil
}

// applyQuotes sets Change on each holding with a live quote. Quote failures
// leave the holdings unquoted.
func (c *Collector) applyQuotes(ctx context.Context, fund string, holdings []model.StockHolding) {
	codes := make([]string, len(holdings))
	for i, h := range holdings {
		codes[i] = normalizeStockCode(h.Code)
	}
	quotes, err := c.quotes.FetchQuotes(ctx, codes)
	if err != nil {
		c.Log.Warn().Err(err).Str("fund", fund).Msg("fetch holding quotes")
		return
	}
	for i := range holdings {
		if q, ok := quotes[codes[i]]; ok {
			change := math.Round(q.ChangePct*100) / 100
			holdings[i].Change = &change
		}
	}
}
