package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/model"
)

const holdingsPage = `var apidata={ content:"<div class='box'><div class='boxitem w790'><h4 class='t'>2024年1季度股票投资明细</h4>` +
	`<table class='w782 comm tzxq'><thead><tr><th>序号</th><th>股票代码</th><th>股票名称</th><th class='tol'>最新价</th><th>涨跌幅</th>` +
	`<th>占净值<br/>比例</th><th>持股数（万股）</th></tr></thead><tbody>` +
	`<tr><td>1</td><td><a href='//quote.eastmoney.com/sh600519.html'>600519</a></td><td class='tol'><a>贵州茅台</a></td><td></td><td></td><td class='tor'>9.52%</td><td class='tor'>12.30</td></tr>` +
	`<tr><td>2</td><td><a>000858</a></td><td class='tol'><a>五粮液</a></td><td></td><td></td><td class='tor'>7.10%</td><td class='tor'>40.10</td></tr>` +
	`<tr><td>3</td><td><a>300750</a></td><td class='tol'><a>宁德时代</a></td><td></td><td></td><td class='tor'>---</td><td class='tor'>8.00</td></tr>` +
	`</tbody></table></div>` +
	`<div class='boxitem w790'><h4 class='t'>2023年4季度股票投资明细</h4><table><thead><tr><th>股票代码</th><th>股票名称</th><th>占净值比例</th></tr></thead>` +
	`<tbody><tr><td>601318</td><td>中国平安</td><td>5.00%</td></tr></tbody></table></div></div>",arryear:[2024,2023],curyear:2024};`

func TestParseHoldings(t *testing.T) {
	h, err := parseHoldings([]byte(holdingsPage), 10)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, model.StockHolding{Code: "600519", Name: "贵州茅台", Weight: 9.52}, h[0])
	assert.Equal(t, "五粮液", h[1].Name)
	assert.InDelta(t, 7.10, h[1].Weight, 1e-9)

	h, err = parseHoldings([]byte(holdingsPage), 1)
	require.NoError(t, err)
	assert.Len(t, h, 1)

	_, err = parseHoldings([]byte(`var apidata={ content:"",arryear:[],curyear:2024};`), 10)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = parseHoldings([]byte(`<html>404</html>`), 10)
	assert.Error(t, err)

	_, err = parseHoldings([]byte(`var apidata={ content:"<table><tr><th>名称</th></tr></table>",arryear:[]};`), 10)
	assert.ErrorContains(t, err, "missing columns")
}

func TestEastmoneyFetcher_Holdings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "jjcc", q.Get("type"))
		assert.Equal(t, "510300", q.Get("code"))
		assert.Equal(t, "10", q.Get("topline"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		fmt.Fprint(w, holdingsPage)
	}))
	defer srv.Close()

	f := NewEastmoneyFetcher(srv.URL+"/js", srv.URL+"/lsjz", HTTPOptions{Timeout: time.Second})
	assert.Equal(t, DefaultHoldingsURL, f.HoldingsURL)
	f.HoldingsURL = srv.URL + "/FundArchivesDatas.aspx"

	h, err := f.FetchHoldings(context.Background(), "510300")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "600519", h[0].Code)
}

func TestSinaMarketFetcher_Quotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sh600519,sz000858", r.URL.Query().Get("list"))
		fmt.Fprint(w, "var hq_str_sh600519=\"moutai,1700.00,1700.00,1734.00\";\nvar hq_str_sz000858=\"\";\n")
	}))
	defer srv.Close()

	f := NewSinaMarketFetcher(srv.URL+"/?list=", nil, HTTPOptions{})
	quotes, err := f.FetchQuotes(context.Background(), []string{"sh600519", "sz000858"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.InDelta(t, 2.0, quotes["sh600519"].ChangePct, 1e-9)

	quotes, err = f.FetchQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestNormalizeStockCode(t *testing.T) {
	assert.Equal(t, "sh600519", normalizeStockCode("600519"))
	assert.Equal(t, "sz000858", normalizeStockCode(" 000858 "))
	assert.Equal(t, "sz300750", normalizeStockCode("300750"))
	assert.Equal(t, "sh601318", normalizeStockCode("SH601318"))
}

type holdingsSource struct {
	byCode map[string][]model.StockHolding
	calls  []string
}

func (s *holdingsSource) FetchHoldings(_ context.Context, code string) ([]model.StockHolding, error) {
	s.calls = append(s.calls, code)
	h, ok := s.byCode[code]
	if !ok {
		return nil, ErrNoData
	}
	return h, nil
}

type quoteSource struct {
	quotes map[string]model.MarketIndex
	err    error
	asked  []string
}

func (q *quoteSource) FetchQuotes(_ context.Context, codes []string) (map[string]model.MarketIndex, error) {
	q.asked = codes
	return q.quotes, q.err
}

type memHoldings struct {
	data    map[string][]model.StockHolding
	savedAt time.Time
	saves   int
}

func (m *memHoldings) SaveHoldings(code string, h []model.StockHolding) error {
	m.saves++
	m.data[code] = h
	return nil
}

func (m *memHoldings) LoadHoldings(code string) ([]model.StockHolding, time.Time, error) {
	return m.data[code], m.savedAt, nil
}

func TestCollectorHoldings_NotConfigured(t *testing.T) {
	c := NewCollector(&MockFetcher{}, nil, 0, zerolog.Nop())
	h, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestCollectorHoldings_UnderlyingETFAndQuotes(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 45, 0, 0, chinaTime)
	src := &holdingsSource{byCode: map[string][]model.StockHolding{
		"510300": {{Code: "600519", Name: "贵州茅台", Weight: 6}, {Code: "000858", Name: "五粮液", Weight: 3}},
	}}
	quotes := &quoteSource{quotes: map[string]model.MarketIndex{
		"sh600519": {ChangePct: 1.234},
		"sz000858": {ChangePct: -2.5},
	}}
	cache := &memHoldings{data: map[string][]model.StockHolding{}}
	c := newTestCollector(&MockFetcher{}, nil, now).WithHoldings(src, quotes, cache)

	h, err := c.Holdings(context.Background(), model.Fund{Code: "460300", UnderlyingETF: "510300"})
	require.NoError(t, err)
	assert.Equal(t, []string{"510300"}, src.calls)
	assert.Equal(t, []string{"sh600519", "sz000858"}, quotes.asked)
	require.Len(t, h.Holdings, 2)
	require.NotNil(t, h.Holdings[0].Change)
	assert.InDelta(t, 1.23, *h.Holdings[0].Change, 1e-9)
	assert.Equal(t, []string{"贵州茅台 (+1.2%)"}, h.TopGainers)
	assert.Equal(t, []string{"五粮液 (-2.5%)"}, h.TopLosers)
	assert.Equal(t, 1, cache.saves)
	assert.Len(t, cache.data["460300"], 2)
	assert.Nil(t, cache.data["460300"][0].Change, "cached holdings carry no quotes")
}

func TestCollectorHoldings_ETFFallsBackToFund(t *testing.T) {
	src := &holdingsSource{byCode: map[string][]model.StockHolding{
		"000001": {{Code: "601318", Name: "中国平安", Weight: 5}},
	}}
	c := NewCollector(&MockFetcher{}, nil, 0, zerolog.Nop()).WithHoldings(src, nil, nil)

	h, err := c.Holdings(context.Background(), model.Fund{Code: "000001", UnderlyingETF: "159999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"159999", "000001"}, src.calls)
	require.Len(t, h.Holdings, 1)
	assert.Nil(t, h.Holdings[0].Change)
	assert.Empty(t, h.TopGainers)
}

func TestCollectorHoldings_Cache(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 45, 0, 0, chinaTime)
	cached := []model.StockHolding{{Code: "600519", Name: "贵州茅台", Weight: 9}}

	t.Run("fresh cache skips fetch", func(t *testing.T) {
		src := &holdingsSource{}
		cache := &memHoldings{data: map[string][]model.StockHolding{"000001": cached}, savedAt: now.Add(-24 * time.Hour)}
		c := newTestCollector(&MockFetcher{}, nil, now).WithHoldings(src, nil, cache)
		h, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
		require.NoError(t, err)
		assert.Empty(t, src.calls)
		assert.Len(t, h.Holdings, 1)
	})

	t.Run("stale cache covers fetch failure", func(t *testing.T) {
		src := &holdingsSource{}
		cache := &memHoldings{data: map[string][]model.StockHolding{"000001": cached}, savedAt: now.AddDate(0, -2, 0)}
		c := newTestCollector(&MockFetcher{}, nil, now).WithHoldings(src, nil, cache)
		h, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
		require.NoError(t, err)
		assert.Equal(t, []string{"000001"}, src.calls)
		assert.Equal(t, "贵州茅台", h.Holdings[0].Name)
		assert.Zero(t, cache.saves)
	})

	t.Run("no cache surfaces error", func(t *testing.T) {
		c := newTestCollector(&MockFetcher{}, nil, now).WithHoldings(&holdingsSource{}, nil, nil)
		_, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestCollectorHoldings_QuoteFailureKeepsHoldings(t *testing.T) {
	src := &holdingsSource{byCode: map[string][]model.StockHolding{
		"000001": {{Code: "600519", Name: "贵州茅台", Weight: 9}},
	}}
	quotes := &quoteSource{err: errors.New("sina down")}
	c := NewCollector(&MockFetcher{}, nil, 0, zerolog.Nop()).WithHoldings(src, quotes, nil)

	h, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
	require.NoError(t, err)
	require.Len(t, h.Holdings, 1)
	assert.Nil(t, h.Holdings[0].Change)
}

func TestMockFetcher_Holdings(t *testing.T) {
	m := &MockFetcher{Change: 1.5}
	c := NewCollector(m, nil, 0, zerolog.Nop()).WithHoldings(m, m, nil)
	h, err := c.Holdings(context.Background(), model.Fund{Code: "000001"})
	require.NoError(t, err)
	require.Len(t, h.Holdings, 2)
	assert.InDelta(t, 1.5, *h.Holdings[0].Change, 1e-9)
	assert.Len(t, h.TopGainers, 2)
}
