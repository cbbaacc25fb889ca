package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FundPilot/internal/model"
)

const (
	eastmoneyReferer = "https://fundf10.eastmoney.com/"
	historyPageSize  = 20
	// historyPadding covers holidays when asking for N trading days.
	historyPadding = 10
)

// chinaTime is used to read exchange-local timestamps without tzdata.
var chinaTime = time.FixedZone("CST", 8*3600)

// EastmoneyFetcher implements Fetcher using the eastmoney fund APIs.
type EastmoneyFetcher struct {
	ValuationURL string // e.g. http://fundgz.1234567.com.cn/js
	HistoryURL   string // e.g. https://api.fund.eastmoney.com/f10/lsjz
	HoldingsURL  string // defaults to DefaultHoldingsURL
	http         *httpClient
}

// NewEastmoneyFetcher creates a fetcher for the given endpoints.
func NewEastmoneyFetcher(valuationURL, historyURL string, opts HTTPOptions) *EastmoneyFetcher {
	return &EastmoneyFetcher{
		ValuationURL: strings.TrimRight(valuationURL, "/"),
		HistoryURL:   historyURL,
		HoldingsURL:  DefaultHoldingsURL,
		http:         newHTTPClient(opts),
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// fundgzPayload is the JSON inside the jsonpgz(...) wrapper. All values are strings.
type fundgzPayload struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	NAVDate  string `json:"jzrq"`
	NAV      string `json:"dwjz"`
	Estimate string `json:"gsz"`
	Change   string `json:"gszzl"`
	Time     string `json:"gztime"`
}

// FetchValuation returns the intraday NAV estimate.
func (f *EastmoneyFetcher) FetchValuation(ctx context.Context, code string) (*model.Valuation, error) {
	u := fmt.Sprintf("%s/%s.js?rt=%d", f.ValuationURL, url.PathEscape(code), time.Now().UnixMilli())
	body, err := f.http.get(ctx, u, map[string]string{"Referer": "https://fund.eastmoney.com/"})
	if err != nil {
		return nil, fmt.Errorf("fetch valuation %s: %w", code, err)
	}
	return parseFundgz(body)
}

func parseFundgz(body []byte) (*model.Valuation, error) {
	start := bytes.IndexByte(body, '(')
	end := bytes.LastIndexByte(body, ')')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("unexpected valuation payload: %.80s", body)
	}
	inner := bytes.TrimSpace(body[start+1 : end])
	if len(inner) == 0 {
		return nil, ErrNoData
	}

	var p fundgzPayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return nil, fmt.Errorf("decode valuation: %w", err)
	}

	v := &model.Valuation{Code: p.FundCode, Name: p.Name}
	var err error
	if v.LastNAV, err = parseNumber(p.NAV); err != nil {
		return nil, fmt.Errorf("parse dwjz: %w", err)
	}
	if v.EstimateNAV, err = parseNumber(p.Estimate); err != nil {
		return nil, fmt.Errorf("parse gsz: %w", err)
	}
	if v.EstimateChange, err = parseNumber(p.Change); err != nil {
		return nil, fmt.Errorf("parse gszzl: %w", err)
	}
	if v.EstimateTime, err = time.ParseInLocation("2006-01-02 15:04", p.Time, chinaTime); err != nil {
		return nil, fmt.Errorf("parse gztime: %w", err)
	}
	return v, nil
}

// lsjzResponse is the NAV history page returned by the lsjz API.
type lsjzResponse struct {
	Data struct {
		List []struct {
			Date string `json:"FSRQ"`
			NAV  string `json:"DWJZ"`
		} `json:"LSJZList"`
	} `json:"Data"`
	ErrCode    int    `json:"ErrCode"`
	ErrMsg     string `json:"ErrMsg"`
	TotalCount int    `json:"TotalCount"`
}

// FetchNAVHistory pages through the lsjz API until days points are collected.
func (f *EastmoneyFetcher) FetchNAVHistory(ctx context.Context, code string, days int) ([]model.NAVPoint, error) {
	points := make([]model.NAVPoint, 0, days)
	for page := 1; len(points) < days; page++ {
		q := url.Values{}
		q.Set("fundCode", code)
		q.Set("pageIndex", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(historyPageSize))
		body, err := f.http.get(ctx, f.HistoryURL+"?"+q.Encode(), map[string]string{"Referer": eastmoneyReferer})
		if err != nil {
			return nil, fmt.Errorf("fetch history %s page %d: %w", code, page, err)
		}

		var resp lsjzResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		if resp.ErrCode != 0 {
			return nil, fmt.Errorf("history API error %d: %s", resp.ErrCode, resp.ErrMsg)
		}
		if len(resp.Data.List) == 0 {
			break
		}
		for _, row := range resp.Data.List {
			nav, err := parseNumber(row.NAV)
			if err != nil || nav <= 0 {
				continue
			}
			date, err := time.ParseInLocation("2006-01-02", row.Date, chinaTime)
			if err != nil {
				continue
			}
			points = append(points, model.NAVPoint{Date: date, NAV: nav})
		}
		if page*historyPageSize >= resp.TotalCount {
			break
		}
	}
	if len(points) == 0 {
		return nil, ErrNoData
	}
	if len(points) > days {
		points = points[:days]
	}
	return points, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
