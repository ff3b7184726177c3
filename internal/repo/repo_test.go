package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheutil "stockpipe/internal/cache"
	"stockpipe/internal/config"
	"stockpipe/internal/dividend"
	"stockpipe/internal/model"
)

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (c *memCache) GetCtx(_ context.Context, key string, val any) error {
	raw, ok := c.data[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(raw, val)
}

func (c *memCache) SetWithExpireCtx(_ context.Context, key string, val any, expire time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttl[key] = expire
	return nil
}

func (c *memCache) IsNotFound(err error) bool { return errors.Is(err, errCacheMiss) }

type fakeReports struct {
	docs  map[string]model.FinancialReport
	calls [][]string
}

func (f *fakeReports) Upsert(context.Context, model.ReportKind, string, bool, []byte) error {
	return nil
}

func (f *fakeReports) Find(_ context.Context, _ model.ReportKind, symbols []string, _ bool) ([]model.FinancialReport, error) {
	f.calls = append(f.calls, append([]string(nil), symbols...))
	var out []model.FinancialReport
	for _, s := range symbols {
		if d, ok := f.docs[s]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeCandles struct{ last model.CandleQuery }

func (f *fakeCandles) Find(_ context.Context, q model.CandleQuery) ([]model.Candle, error) {
	f.last = q
	return []model.Candle{{Symbol: q.Symbol}}, nil
}

type fakeTicks struct {
	model.StockPriceModel
	ticks    []model.Tick
	from, to time.Time
}

func (f *fakeTicks) FindRange(_ context.Context, _ string, from, to time.Time) ([]model.Tick, error) {
	f.from, f.to = from, to
	return f.ticks, nil
}

type fakeDividends struct {
	events []dividend.Event
	calls  int
	symbol string
}

func (f *fakeDividends) Replace(context.Context, []dividend.Event) (int, error) { return 0, nil }

func (f *fakeDividends) Find(_ context.Context, symbol string) ([]dividend.Event, error) {
	f.calls++
	f.symbol = symbol
	return f.events, nil
}

func newTestSet(t *testing.T, c Cache, reports *fakeReports, candles *fakeCandles, ticks *fakeTicks, divs dividend.Store) *Set {
	t.Helper()
	set, err := New(Dependencies{
		Cache:                c,
		TTL:                  cacheutil.NewTTLSet(config.CacheTTL{Short: 10, Medium: 60, Long: 300}),
		FinancialReportModel: reports,
		CandleModel:          candles,
		StockPriceModel:      ticks,
		Dividends:            divs,
	})
	require.NoError(t, err)
	return set
}

func TestNewRequiresModels(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)

	set := newTestSet(t, nil, &fakeReports{}, &fakeCandles{}, &fakeTicks{}, nil)
	assert.Nil(t, set.Dividends)
}

func TestFinancialsReadThroughCache(t *testing.T) {
	reports := &fakeReports{docs: map[string]model.FinancialReport{
		"ACB": {Symbol: "ACB", Yearly: true, Payload: json.RawMessage(`[{"year":2023}]`)},
		"FPT": {Symbol: "FPT", Yearly: true, Payload: json.RawMessage(`[{"year":2022}]`)},
	}}
	mem := newMemCache()
	set := newTestSet(t, mem, reports, &fakeCandles{}, &fakeTicks{}, nil)
	ctx := context.Background()

	docs, err := set.Financials.Find(ctx, model.BalanceSheet, []string{"FPT", "ACB", "ZZZ"}, true)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "FPT", docs[0].Symbol)
	assert.Equal(t, "ACB", docs[1].Symbol)
	assert.Equal(t, [][]string{{"FPT", "ACB", "ZZZ"}}, reports.calls)
	assert.Equal(t, 10*time.Minute, mem.ttl["stockpipe:scfa:balancesheet:yearly:ACB"])

	docs, err = set.Financials.Find(ctx, model.BalanceSheet, []string{"ACB", "ZZZ"}, true)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `[{"year":2023}]`, string(docs[0].Payload))
	// only the uncached symbol goes back to the database
	assert.Equal(t, []string{"ZZZ"}, reports.calls[1])
}

func TestFinancialsWithoutCache(t *testing.T) {
	reports := &fakeReports{docs: map[string]model.FinancialReport{"ACB": {Symbol: "ACB"}}}
	set := newTestSet(t, nil, reports, &fakeCandles{}, &fakeTicks{}, nil)

	for i := 0; i < 2; i++ {
		docs, err := set.Financials.Find(context.Background(), model.CashFlow, []string{"ACB"}, false)
		require.NoError(t, err)
		require.Len(t, docs, 1)
	}
	assert.Len(t, reports.calls, 2)
}

func TestFinancialsAllSymbols(t *testing.T) {
	reports := &fakeReports{}
	set := newTestSet(t, newMemCache(), reports, &fakeCandles{}, &fakeTicks{}, nil)

	_, err := set.Financials.Find(context.Background(), model.IncomeStatement, nil, true)
	require.NoError(t, err)
	require.Len(t, reports.calls, 1)
	assert.Empty(t, reports.calls[0])
}

func TestCandlesFromView(t *testing.T) {
	candles := &fakeCandles{}
	set := newTestSet(t, nil, &fakeReports{}, candles, &fakeTicks{}, nil)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	out, err := set.Candles.Candles(context.Background(), CandleQuery{Resolution: "1W", Symbol: "ACB", From: from, To: to, Countback: 30})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.CandleQuery{View: "one_week_candle", Symbol: "ACB", From: from, To: to, Countback: 30}, candles.last)
}

func TestCandlesAggregatesSubDaily(t *testing.T) {
	base := time.Date(2024, 3, 6, 2, 0, 0, 0, time.UTC)
	ticks := &fakeTicks{ticks: []model.Tick{
		{Symbol: "ACB", Time: base, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Symbol: "ACB", Time: base.Add(5 * time.Minute), Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 50},
		{Symbol: "ACB", Time: base.Add(20 * time.Minute), Open: 11, High: 11, Low: 8, Close: 9, Volume: 70},
	}}
	set := newTestSet(t, nil, &fakeReports{}, &fakeCandles{}, ticks, nil)

	out, err := set.Candles.Candles(context.Background(), CandleQuery{
		Resolution: "15",
		Symbol:     "ACB",
		From:       base.AddDate(0, 0, -10),
		To:         base.Add(time.Hour),
		Countback:  1,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 12.0, out[0].High)
	assert.Equal(t, 11.0, out[0].Close)
	assert.Equal(t, 8.0, out[1].Low)
	// countback narrows the raw tick window
	assert.Equal(t, base.Add(time.Hour).AddDate(0, 0, -1), ticks.from)
}

func TestCandlesUnknownResolution(t *testing.T) {
	set := newTestSet(t, nil, &fakeReports{}, &fakeCandles{}, &fakeTicks{}, nil)
	_, err := set.Candles.Candles(context.Background(), CandleQuery{Resolution: "7D"})
	assert.ErrorIs(t, err, ErrUnknownResolution)
}

func TestDividendsCached(t *testing.T) {
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeDividends{events: []dividend.Event{{Symbol: "ACB", Title: "Cash dividend", PublishedDate: &published}}}
	mem := newMemCache()
	set := newTestSet(t, mem, &fakeReports{}, &fakeCandles{}, &fakeTicks{}, store)

	for i := 0; i < 2; i++ {
		events, err := set.Dividends.Find(context.Background(), " acb ")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Cash dividend", events[0].Title)
	}
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "ACB", store.symbol)
	assert.Equal(t, time.Minute, mem.ttl["stockpipe:dividend:ACB"])
}
