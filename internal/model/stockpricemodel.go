package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

const (
	stockPriceTable = "stockprice"
	tickColumns     = `symbol, "time", "open", high, low, "close", volume`
	tickArity       = 7
	// staging-only column numbering rows in insert order
	stagingSeq = "load_seq"
	// postgres caps bind parameters per statement at 65535.
	maxTicksPerStatement = 65535 / tickArity
)

var _ StockPriceModel = (*defaultStockPriceModel)(nil)

type (
	// StockPriceModel owns the raw tick hypertable and its staging copies.
	StockPriceModel interface {
		Insert(ctx context.Context, ticks []Tick) (int64, error)
		FindRange(ctx context.Context, symbol string, from, to time.Time) ([]Tick, error)

		CreateStaging(ctx context.Context, name string) error
		InsertStaging(ctx context.Context, name string, ticks []Tick) (int64, error)
		SwapFromStaging(ctx context.Context, name string) (int64, error)
		DropStaging(ctx context.Context, name string) error
	}

	defaultStockPriceModel struct {
		conn sqlx.SqlConn
	}

	// Tick is one raw OHLCV observation.
	Tick struct {
		Symbol string    `db:"symbol"`
		Time   time.Time `db:"time"`
		Open   float64   `db:"open"`
		High   float64   `db:"high"`
		Low    float64   `db:"low"`
		Close  float64   `db:"close"`
		Volume float64   `db:"volume"`
	}
)

// NewStockPriceModel returns a model for the stockprice table.
func NewStockPriceModel(conn sqlx.SqlConn) StockPriceModel {
	return &defaultStockPriceModel{conn: conn}
}

// Insert writes ticks into the live table. A tick that already exists for
// (symbol, time) is overwritten.
func (m *defaultStockPriceModel) Insert(ctx context.Context, ticks []Tick) (int64, error) {
	const conflict = `
ON CONFLICT (symbol, "time") DO UPDATE SET
    "open" = EXCLUDED."open",
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    "close" = EXCLUDED."close",
    volume = EXCLUDED.volume`
	return m.insert(ctx, m.conn, pq.QuoteIdentifier(stockPriceTable), ticks, conflict)
}

func (m *defaultStockPriceModel) FindRange(ctx context.Context, symbol string, from, to time.Time) ([]Tick, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE symbol = $1 AND "time" BETWEEN $2 AND $3
ORDER BY "time" ASC`, tickColumns, pq.QuoteIdentifier(stockPriceTable))
	var ticks []Tick
	if err := m.conn.QueryRowsCtx(ctx, &ticks, query, symbol, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("stockprice.FindRange query: %w", err)
	}
	return ticks, nil
}

// CreateStaging (re)creates an empty staging table shaped like stockprice
// plus a sequence column recording insert order.
func (m *defaultStockPriceModel) CreateStaging(ctx context.Context, name string) error {
	staging, err := stagingIdent(name)
	if err != nil {
		return err
	}
	if _, err := m.conn.ExecCtx(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, staging)); err != nil {
		return fmt.Errorf("stockprice.CreateStaging drop: %w", err)
	}
	query := fmt.Sprintf(`CREATE UNLOGGED TABLE %s (LIKE %s INCLUDING DEFAULTS, %s BIGSERIAL)`,
		staging, pq.QuoteIdentifier(stockPriceTable), stagingSeq)
	if _, err := m.conn.ExecCtx(ctx, query); err != nil {
		return fmt.Errorf("stockprice.CreateStaging create: %w", err)
	}
	return nil
}

// InsertStaging appends ticks to the staging table.
func (m *defaultStockPriceModel) InsertStaging(ctx context.Context, name string, ticks []Tick) (int64, error) {
	staging, err := stagingIdent(name)
	if err != nil {
		return 0, err
	}
	return m.insert(ctx, m.conn, staging, ticks, "")
}

// SwapFromStaging replaces the whole live table with the staging content in
// one transaction. Readers see either the old or the new data set. Duplicate
// (symbol, time) rows in staging collapse to the one staged last.
func (m *defaultStockPriceModel) SwapFromStaging(ctx context.Context, name string) (int64, error) {
	staging, err := stagingIdent(name)
	if err != nil {
		return 0, err
	}
	live := pq.QuoteIdentifier(stockPriceTable)
	var copied int64
	err = m.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx, fmt.Sprintf(`DELETE FROM %s`, live)); err != nil {
			return fmt.Errorf("clear live: %w", err)
		}
		res, err := session.ExecCtx(ctx, fmt.Sprintf(`
INSERT INTO %s (%s)
SELECT DISTINCT ON (symbol, "time") %s
FROM %s
ORDER BY symbol, "time", %s DESC`, live, tickColumns, tickColumns, staging, stagingSeq))
		if err != nil {
			return fmt.Errorf("copy staging: %w", err)
		}
		copied, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("stockprice.SwapFromStaging: %w", err)
	}
	return copied, nil
}

func (m *defaultStockPriceModel) DropStaging(ctx context.Context, name string) error {
	staging, err := stagingIdent(name)
	if err != nil {
		return err
	}
	if _, err := m.conn.ExecCtx(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, staging)); err != nil {
		return fmt.Errorf("stockprice.DropStaging: %w", err)
	}
	return nil
}

func (m *defaultStockPriceModel) insert(ctx context.Context, session sqlx.Session, table string, ticks []Tick, suffix string) (int64, error) {
	var total int64
	for start := 0; start < len(ticks); start += maxTicksPerStatement {
		end := start + maxTicksPerStatement
		if end > len(ticks) {
			end = len(ticks)
		}
		query, args := buildTickInsert(table, ticks[start:end], suffix)
		res, err := session.ExecCtx(ctx, query, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// buildTickInsert renders one parameterized multi-row INSERT.
func buildTickInsert(table string, ticks []Tick, suffix string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(ticks)*tickArity)
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, tickColumns)
	for i, t := range ticks {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * tickArity
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, t.Symbol, t.Time.UTC(), t.Open, t.High, t.Low, t.Close, t.Volume)
	}
	b.WriteString(suffix)
	return b.String(), args
}

func stagingIdent(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == stockPriceTable {
		return "", fmt.Errorf("stockprice: invalid staging table %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}
