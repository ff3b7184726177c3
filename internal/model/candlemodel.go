package model

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ CandleModel = (*defaultCandleModel)(nil)

type (
	// CandleModel reads materialized candle views. View names come from the
	// rollup resolution table, never from user input.
	CandleModel interface {
		Find(ctx context.Context, q CandleQuery) ([]Candle, error)
	}

	defaultCandleModel struct {
		conn sqlx.SqlConn
	}

	// CandleQuery selects candles of one symbol within [From, To]. A positive
	// Countback additionally limits the window to the last Countback days
	// before To.
	CandleQuery struct {
		View      string
		Symbol    string
		From      time.Time
		To        time.Time
		Countback int
	}

	Candle struct {
		Bucket time.Time `db:"ts"`
		Symbol string    `db:"symbol"`
		Open   float64   `db:"open"`
		High   float64   `db:"high"`
		Low    float64   `db:"low"`
		Close  float64   `db:"close"`
		Volume float64   `db:"volume"`
	}
)

func NewCandleModel(conn sqlx.SqlConn) CandleModel {
	return &defaultCandleModel{conn: conn}
}

func (m *defaultCandleModel) Find(ctx context.Context, q CandleQuery) ([]Candle, error) {
	if q.View == "" {
		return nil, fmt.Errorf("candle.Find: empty view")
	}
	const baseQuery = `
SELECT ts, symbol, "open", high, low, "close", volume
FROM %s
WHERE symbol = $1 AND ts BETWEEN $2 AND $3
%s
ORDER BY ts ASC`

	from, to := q.From.UTC(), q.To.UTC()
	args := []any{q.Symbol, from, to}
	var clause string
	if q.Countback > 0 {
		clause = "AND ts >= $4"
		args = append(args, to.AddDate(0, 0, -q.Countback))
	}
	query := fmt.Sprintf(baseQuery, pq.QuoteIdentifier(q.View), clause)

	var candles []Candle
	if err := m.conn.QueryRowsCtx(ctx, &candles, query, args...); err != nil {
		return nil, fmt.Errorf("candle.Find %s query: %w", q.View, err)
	}
	return candles, nil
}
