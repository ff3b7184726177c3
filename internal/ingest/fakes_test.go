package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stockpipe/internal/dividend"
	"stockpipe/internal/model"
	"stockpipe/pkg/source"
	feed "stockpipe/pkg/source/dividend"
	"stockpipe/pkg/source/dnse"
	"stockpipe/pkg/source/tcbs"
)

type reportKey struct {
	kind   model.ReportKind
	symbol string
	yearly bool
}

type fakeReports struct {
	mu     sync.Mutex
	rows   map[reportKey]string
	writes int
	failOn int
	err    error
}

func newFakeReports() *fakeReports {
	return &fakeReports{rows: make(map[reportKey]string)}
}

func (f *fakeReports) Upsert(_ context.Context, kind model.ReportKind, symbol string, yearly bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failOn > 0 && f.writes == f.failOn {
		return f.err
	}
	f.rows[reportKey{kind, symbol, yearly}] = string(payload)
	return nil
}

func (f *fakeReports) Find(context.Context, model.ReportKind, []string, bool) ([]model.FinancialReport, error) {
	return nil, nil
}

type staticSymbols []string

func (s staticSymbols) Symbols(context.Context) ([]string, error) { return s, nil }

type fakeStatements struct {
	calls   int
	fail    map[string]error
	version int
}

func (f *fakeStatements) Statement(_ context.Context, kind tcbs.Kind, symbol string, yearly bool) (json.RawMessage, error) {
	f.calls++
	key := fmt.Sprintf("%s/%s/%t", kind, symbol, yearly)
	if err, ok := f.fail[key]; ok {
		return nil, err
	}
	return json.RawMessage(fmt.Sprintf(`[{"ticker":%q,"yearly":%t,"v":%d}]`, symbol, yearly, f.version)), nil
}

type fakeTickers struct {
	tickers []dnse.Ticker
	err     error
}

func (f fakeTickers) Tickers(context.Context) ([]dnse.Ticker, error) { return f.tickers, f.err }

type fakeStocks struct {
	rows map[string]model.Stock
	err  error
}

func (f *fakeStocks) Upsert(_ context.Context, s *model.Stock) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = make(map[string]model.Stock)
	}
	f.rows[s.Symbol] = *s
	return nil
}

func (f *fakeStocks) FindOneBySymbol(_ context.Context, symbol string) (*model.Stock, error) {
	s, ok := f.rows[symbol]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStocks) Symbols(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.rows))
	for k := range f.rows {
		out = append(out, k)
	}
	return out, nil
}

type fakeOHLC struct {
	fail map[string]bool
}

func (f fakeOHLC) OHLC(_ context.Context, symbol string, from, _ time.Time, _ string) ([]dnse.Bar, error) {
	if f.fail[symbol] {
		return nil, &source.FetchError{Source: "dnse_chart", Symbol: symbol, Status: 500}
	}
	return []dnse.Bar{
		{Time: from, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Time: from.AddDate(0, 0, 1), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	}, nil
}

type fakeTickSink struct {
	ticks []model.Tick
	err   error
}

func (f *fakeTickSink) Insert(_ context.Context, ticks []model.Tick) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.ticks = append(f.ticks, ticks...)
	return int64(len(ticks)), nil
}

type fakeFeed struct {
	items []feed.Announcement
	err   error
}

func (f fakeFeed) All(context.Context) ([]feed.Announcement, error) { return f.items, f.err }

type fakeDividendStore struct {
	docs     []dividend.Event
	replaces int
}

func (f *fakeDividendStore) Replace(_ context.Context, events []dividend.Event) (int, error) {
	f.replaces++
	f.docs = append([]dividend.Event(nil), events...)
	return len(events), nil
}

func (f *fakeDividendStore) Find(_ context.Context, symbol string) ([]dividend.Event, error) {
	var out []dividend.Event
	for _, ev := range f.docs {
		if symbol == "" || ev.Symbol == symbol {
			out = append(out, ev)
		}
	}
	return out, nil
}
