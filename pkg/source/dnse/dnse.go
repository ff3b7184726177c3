// Package dnse reads the listed-ticker directory and daily OHLC bars from
// the DNSE market and chart APIs.
package dnse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockpipe/pkg/source"
)

const (
	DefaultMarketURL = "https://api.dnse.com.vn"
	DefaultChartURL  = "https://services.entrade.com.vn"

	// defaultTickerLimit covers the whole exchange directory in one call.
	defaultTickerLimit = 2042

	typeStock = "STOCK"
)

// Ticker is one entry of the exchange directory.
type Ticker struct {
	Symbol         string `json:"symbol"`
	CompanyName    string `json:"companyName"`
	CompanyNameEng string `json:"companyNameEng"`
	CompanyNameVie string `json:"companyNameVie"`
	Type           string `json:"type"`
	IsListed       bool   `json:"isListed"`
	ListedDate     string `json:"listedDate"`
}

// ListedOn parses ListedDate. The zero time means unknown.
func (t Ticker) ListedOn() time.Time {
	s := strings.TrimSpace(t.ListedDate)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// Bar is one OHLC candle as returned by the chart API.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Client talks to both DNSE endpoints.
type Client struct {
	market      *source.Client
	chart       *source.Client
	tickerLimit int
}

// New builds a client. Nil arguments fall back to the public endpoints.
func New(market, chart *source.Client) *Client {
	if market == nil {
		market = source.NewClient(source.WithName("dnse_market"), source.WithBaseURL(DefaultMarketURL))
	}
	if chart == nil {
		chart = source.NewClient(source.WithName("dnse_chart"), source.WithBaseURL(DefaultChartURL))
	}
	return &Client{market: market, chart: chart, tickerLimit: defaultTickerLimit}
}

type tickersResponse struct {
	Data []Ticker `json:"data"`
}

// Tickers returns listed stocks only; ETFs, warrants and delisted entries
// are dropped.
func (c *Client) Tickers(ctx context.Context) ([]Ticker, error) {
	var resp tickersResponse
	req := source.Request{
		Path:  "/market-api/tickers",
		Query: url.Values{"_end": {strconv.Itoa(c.tickerLimit)}},
	}
	if err := c.market.GetJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	out := make([]Ticker, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.Type != typeStock || !t.IsListed || strings.TrimSpace(t.Symbol) == "" {
			continue
		}
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		out = append(out, t)
	}
	return out, nil
}

type ohlcResponse struct {
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

// OHLC fetches bars for symbol in [from, to]. resolution uses the chart
// API codes ("1D", "1W", ...). Bar times are UTC.
func (c *Client) OHLC(ctx context.Context, symbol string, from, to time.Time, resolution string) ([]Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if resolution == "" {
		resolution = "1D"
	}
	req := source.Request{
		Path: "/chart-api/v2/ohlcs/stock",
		Query: url.Values{
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"symbol":     {symbol},
			"resolution": {resolution},
		},
		Symbol: symbol,
	}
	var resp ohlcResponse
	if err := c.chart.GetJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.T) == 0 {
		return nil, c.chart.EmptyPayloadError(req)
	}
	n := len(resp.T)
	if len(resp.O) != n || len(resp.H) != n || len(resp.L) != n || len(resp.C) != n || len(resp.V) != n {
		return nil, &source.FetchError{
			Source: c.chart.Name(),
			Symbol: symbol,
			Status: 200,
			Err:    fmt.Errorf("ragged ohlc arrays: t=%d o=%d h=%d l=%d c=%d v=%d", n, len(resp.O), len(resp.H), len(resp.L), len(resp.C), len(resp.V)),
		}
	}
	bars := make([]Bar, n)
	for i := range resp.T {
		bars[i] = Bar{
			Time:   time.Unix(resp.T[i], 0).UTC(),
			Open:   resp.O[i],
			High:   resp.H[i],
			Low:    resp.L[i],
			Close:  resp.C[i],
			Volume: resp.V[i],
		}
	}
	return bars, nil
}
