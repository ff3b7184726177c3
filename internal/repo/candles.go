package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockpipe/internal/model"
	"stockpipe/internal/rollup"
)

// ErrUnknownResolution is returned for a resolution code outside the
// rollup table.
var ErrUnknownResolution = errors.New("repo: unknown resolution")

// CandleQuery selects candles at a resolution code such as "1D" or "15".
type CandleQuery struct {
	Resolution string
	Symbol     string
	From       time.Time
	To         time.Time
	Countback  int
}

// CandlesRepo reads candles from materialized views, or aggregates raw ticks
// for resolutions without a view.
type CandlesRepo interface {
	Candles(ctx context.Context, q CandleQuery) ([]model.Candle, error)
}

type candlesRepo struct {
	candles model.CandleModel
	ticks   model.StockPriceModel
	loc     *time.Location
}

func newCandlesRepo(deps Dependencies) CandlesRepo {
	return &candlesRepo{
		candles: deps.CandleModel,
		ticks:   deps.StockPriceModel,
		loc:     deps.Location,
	}
}

func (r *candlesRepo) Candles(ctx context.Context, q CandleQuery) ([]model.Candle, error) {
	res, ok := rollup.Lookup(q.Resolution)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolution, q.Resolution)
	}
	if res.Active {
		return r.candles.Find(ctx, model.CandleQuery{
			View:      res.View,
			Symbol:    q.Symbol,
			From:      q.From,
			To:        q.To,
			Countback: q.Countback,
		})
	}

	from := q.From
	if q.Countback > 0 {
		if floor := q.To.AddDate(0, 0, -q.Countback); floor.After(from) {
			from = floor
		}
	}
	ticks, err := r.ticks.FindRange(ctx, q.Symbol, from, q.To)
	if err != nil {
		return nil, err
	}
	return rollup.Aggregate(ticks, res, r.loc), nil
}
