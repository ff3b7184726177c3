package repo

import (
	"errors"
	"time"

	cacheutil "stockpipe/internal/cache"
	"stockpipe/internal/dividend"
	"stockpipe/internal/model"
)

// Dependencies bundles the models and shared infrastructure required by
// repository implementations.
type Dependencies struct {
	Cache    Cache
	TTL      cacheutil.TTLSet
	Location *time.Location

	FinancialReportModel model.FinancialReportModel
	CandleModel          model.CandleModel
	StockPriceModel      model.StockPriceModel
	Dividends            dividend.Store
}

// Set exposes strongly typed repositories to the query layer.
type Set struct {
	Financials FinancialsRepo
	Candles    CandlesRepo
	Dividends  DividendsRepo
}

// New constructs the repository set, validating required dependencies.
// Dividends stays nil when no document store is configured.
func New(deps Dependencies) (*Set, error) {
	if deps.FinancialReportModel == nil {
		return nil, errors.New("repo: missing FinancialReportModel dependency")
	}
	if deps.CandleModel == nil || deps.StockPriceModel == nil {
		return nil, errors.New("repo: missing candle dependencies")
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	set := &Set{
		Financials: newFinancialsRepo(deps),
		Candles:    newCandlesRepo(deps),
	}
	if deps.Dividends != nil {
		set.Dividends = newDividendsRepo(deps)
	}
	return set, nil
}
