package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
	"stockpipe/internal/model"
	"stockpipe/pkg/source"
	"stockpipe/pkg/source/tcbs"
)

// StatementFetcher is satisfied by *tcbs.Client.
type StatementFetcher interface {
	Statement(ctx context.Context, kind tcbs.Kind, symbol string, yearly bool) (json.RawMessage, error)
}

// SymbolLister yields the symbols to ingest.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// FinancialJob downloads statement documents for every known symbol, annual
// then quarterly, one request at a time.
type FinancialJob struct {
	Fetcher StatementFetcher
	Symbols SymbolLister
	Writer  *Writer
	Metrics *metrics.Metrics
	Source  string
}

// Run ingests kinds (all kinds when empty). Fetch and encode failures skip
// the (symbol, yearly) pair; a store failure stops the run.
func (j *FinancialJob) Run(ctx context.Context, kinds ...tcbs.Kind) (Report, error) {
	start := time.Now()
	report := Report{Job: "financials"}
	if len(kinds) == 0 {
		kinds = tcbs.Kinds
	}
	symbols, err := j.Symbols.Symbols(ctx)
	if err != nil {
		return report, err
	}
	symbols = normaliseSymbols(symbols)
	logx.WithContext(ctx).Infof("ingest: financials start symbols=%d kinds=%v", len(symbols), kinds)

	err = j.run(ctx, kinds, symbols, &report)
	j.Metrics.Job(report.Job, time.Since(start), err)
	logx.WithContext(ctx).Infof("ingest: %s", report)
	return report, err
}

func (j *FinancialJob) run(ctx context.Context, kinds []tcbs.Kind, symbols []string, report *Report) error {
	for _, kind := range kinds {
		for _, symbol := range symbols {
			for _, yearly := range []bool{true, false} {
				if err := ctx.Err(); err != nil {
					return err
				}
				report.Processed++
				payload, err := j.Fetcher.Statement(ctx, kind, symbol, yearly)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					j.skip(ctx, report, "fetch", kind, symbol, yearly, err)
					continue
				}
				j.Metrics.Fetch(j.source(), metrics.OutcomeOK)

				err = j.Writer.Write(ctx, model.ReportKind(kind), symbol, yearly, payload)
				switch {
				case err == nil:
					report.Written++
					j.Metrics.Written(string(kind), 1)
				case errors.Is(err, ErrEncode):
					j.skip(ctx, report, "encode", kind, symbol, yearly, err)
				default:
					logx.WithContext(ctx).Errorf("ingest: financials store kind=%s symbol=%s yearly=%t err=%v", kind, symbol, yearly, err)
					return err
				}
			}
		}
	}
	return nil
}

func (j *FinancialJob) skip(ctx context.Context, report *Report, reason string, kind tcbs.Kind, symbol string, yearly bool, err error) {
	report.Skipped++
	if reason == "fetch" {
		outcome := metrics.OutcomeError
		if errors.Is(err, source.ErrEmptyPayload) {
			outcome = metrics.OutcomeEmpty
		}
		j.Metrics.Fetch(j.source(), outcome)
	}
	j.Metrics.Skipped("financials", reason)
	logx.WithContext(ctx).Errorf("ingest: financials %s kind=%s symbol=%s yearly=%t err=%v", reason, kind, symbol, yearly, err)
}

func (j *FinancialJob) source() string {
	if j.Source != "" {
		return j.Source
	}
	return source.ProviderTCBS
}
