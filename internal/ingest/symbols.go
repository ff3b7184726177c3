package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
	"stockpipe/internal/model"
	"stockpipe/pkg/source"
	"stockpipe/pkg/source/dnse"
)

// TickerFetcher is satisfied by *dnse.Client.
type TickerFetcher interface {
	Tickers(ctx context.Context) ([]dnse.Ticker, error)
}

// SymbolJob refreshes the stock directory from the exchange ticker list.
type SymbolJob struct {
	Fetcher TickerFetcher
	Stocks  model.StockModel
	Metrics *metrics.Metrics
}

// Run fetches the ticker list once and upserts each entry. The list is a
// single request, so a fetch failure fails the run.
func (j *SymbolJob) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Job: "symbols"}
	tickers, err := j.Fetcher.Tickers(ctx)
	if err != nil {
		j.Metrics.Fetch(source.ProviderDNSEMarket, metrics.OutcomeError)
		j.Metrics.Job(report.Job, time.Since(start), err)
		logx.WithContext(ctx).Errorf("ingest: symbols fetch err=%v", err)
		return report, err
	}
	j.Metrics.Fetch(source.ProviderDNSEMarket, metrics.OutcomeOK)

	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			j.Metrics.Job(report.Job, time.Since(start), err)
			return report, err
		}
		report.Processed++
		stock := &model.Stock{
			Symbol:   t.Symbol,
			Name:     t.CompanyName,
			EngName:  t.CompanyNameEng,
			VieName:  t.CompanyNameVie,
			IsListed: t.IsListed,
		}
		if listed := t.ListedOn(); !listed.IsZero() {
			stock.ListedDate = sql.NullTime{Time: listed, Valid: true}
		}
		if err := j.Stocks.Upsert(ctx, stock); err != nil {
			logx.WithContext(ctx).Errorf("ingest: symbols store symbol=%s err=%v", t.Symbol, err)
			j.Metrics.Job(report.Job, time.Since(start), err)
			return report, err
		}
		report.Written++
	}
	j.Metrics.Written("stock", report.Written)
	j.Metrics.Job(report.Job, time.Since(start), nil)
	logx.WithContext(ctx).Infof("ingest: %s", report)
	return report, nil
}
