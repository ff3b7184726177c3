package model

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ StockModel = (*defaultStockModel)(nil)

type (
	// StockModel reads and writes the listed-company directory.
	StockModel interface {
		Upsert(ctx context.Context, data *Stock) error
		FindOneBySymbol(ctx context.Context, symbol string) (*Stock, error)
		Symbols(ctx context.Context) ([]string, error)
	}

	defaultStockModel struct {
		conn  sqlx.SqlConn
		table string
	}

	Stock struct {
		Id         int64        `db:"id"`
		Symbol     string       `db:"symbol"`
		Name       string       `db:"name"`
		EngName    string       `db:"eng_name"`
		VieName    string       `db:"vie_name"`
		IsListed   bool         `db:"is_listed"`
		ListedDate sql.NullTime `db:"listed_date"`
		CreatedAt  time.Time    `db:"created_at"`
		UpdatedAt  time.Time    `db:"updated_at"`
	}
)

// NewStockModel returns a model for the stock table.
func NewStockModel(conn sqlx.SqlConn) StockModel {
	return &defaultStockModel{conn: conn, table: `"public"."stock"`}
}

// Upsert inserts the stock or overwrites every descriptive column of the
// existing row with the same symbol.
func (m *defaultStockModel) Upsert(ctx context.Context, data *Stock) error {
	symbol := strings.ToUpper(strings.TrimSpace(data.Symbol))
	if symbol == "" {
		return fmt.Errorf("stock.Upsert: empty symbol")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (symbol, name, eng_name, vie_name, is_listed, listed_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (symbol) DO UPDATE SET
    name = EXCLUDED.name,
    eng_name = EXCLUDED.eng_name,
    vie_name = EXCLUDED.vie_name,
    is_listed = EXCLUDED.is_listed,
    listed_date = EXCLUDED.listed_date,
    updated_at = NOW()`, m.table)
	_, err := m.conn.ExecCtx(ctx, query, symbol, data.Name, data.EngName, data.VieName, data.IsListed, data.ListedDate)
	return err
}

func (m *defaultStockModel) FindOneBySymbol(ctx context.Context, symbol string) (*Stock, error) {
	query := fmt.Sprintf(`SELECT id, symbol, name, eng_name, vie_name, is_listed, listed_date, created_at, updated_at FROM %s WHERE symbol = $1 LIMIT 1`, m.table)
	var resp Stock
	err := m.conn.QueryRowCtx(ctx, &resp, query, strings.ToUpper(strings.TrimSpace(symbol)))
	switch err {
	case nil:
		return &resp, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// Symbols lists every known symbol in alphabetical order.
func (m *defaultStockModel) Symbols(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT symbol FROM %s WHERE symbol IS NOT NULL ORDER BY symbol`, m.table)
	var symbols []string
	if err := m.conn.QueryRowsCtx(ctx, &symbols, query); err != nil {
		return nil, fmt.Errorf("stock.Symbols query: %w", err)
	}
	return symbols, nil
}
