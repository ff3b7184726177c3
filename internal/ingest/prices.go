package ingest

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
	"stockpipe/internal/model"
	"stockpipe/pkg/source"
	"stockpipe/pkg/source/dnse"
)

// OHLCFetcher is satisfied by *dnse.Client.
type OHLCFetcher interface {
	OHLC(ctx context.Context, symbol string, from, to time.Time, resolution string) ([]dnse.Bar, error)
}

// TickWriter persists ticks into the live table.
type TickWriter interface {
	Insert(ctx context.Context, ticks []model.Tick) (int64, error)
}

// PriceJob pulls daily bars for every symbol over a date range. It is the
// incremental path; full history reloads go through the tick loader.
type PriceJob struct {
	Fetcher    OHLCFetcher
	Symbols    SymbolLister
	Ticks      TickWriter
	Metrics    *metrics.Metrics
	Resolution string
}

// Run fetches [from, to] per symbol. A fetch failure skips the symbol; a
// store failure stops the run.
func (j *PriceJob) Run(ctx context.Context, from, to time.Time) (Report, error) {
	start := time.Now()
	report := Report{Job: "prices"}
	symbols, err := j.Symbols.Symbols(ctx)
	if err != nil {
		return report, err
	}
	symbols = normaliseSymbols(symbols)
	logx.WithContext(ctx).Infof("ingest: prices start symbols=%d from=%s to=%s", len(symbols), from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	err = j.run(ctx, symbols, from, to, &report)
	j.Metrics.Job(report.Job, time.Since(start), err)
	logx.WithContext(ctx).Infof("ingest: %s", report)
	return report, err
}

func (j *PriceJob) run(ctx context.Context, symbols []string, from, to time.Time, report *Report) error {
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Processed++
		bars, err := j.Fetcher.OHLC(ctx, symbol, from, to, j.Resolution)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report.Skipped++
			j.Metrics.Fetch(source.ProviderDNSEChart, metrics.OutcomeError)
			j.Metrics.Skipped(report.Job, "fetch")
			logx.WithContext(ctx).Errorf("ingest: prices fetch symbol=%s err=%v", symbol, err)
			continue
		}
		j.Metrics.Fetch(source.ProviderDNSEChart, metrics.OutcomeOK)

		ticks := make([]model.Tick, 0, len(bars))
		for _, b := range bars {
			ticks = append(ticks, model.Tick{
				Symbol: symbol,
				Time:   b.Time.UTC(),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
		n, err := j.Ticks.Insert(ctx, ticks)
		if err != nil {
			logx.WithContext(ctx).Errorf("ingest: prices store symbol=%s err=%v", symbol, err)
			return err
		}
		report.Written += int(n)
		j.Metrics.Written("stockprice", int(n))
	}
	return nil
}
