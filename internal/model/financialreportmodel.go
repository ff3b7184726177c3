package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// ReportKind names one financial statement family. Each kind lives in its
// own table with a single jsonb payload column.
type ReportKind string

const (
	BalanceSheet    ReportKind = "balancesheet"
	CashFlow        ReportKind = "cashflow"
	IncomeStatement ReportKind = "incomestatement"
	FinancialRatio  ReportKind = "financialratio"
)

type reportTable struct {
	table  string
	column string
}

var reportTables = map[ReportKind]reportTable{
	BalanceSheet:    {table: "balancesheet", column: "balance_sheet"},
	CashFlow:        {table: "cashflow", column: "cashflow"},
	IncomeStatement: {table: "incomestatement", column: "income_statement"},
	FinancialRatio:  {table: "financialratio", column: "financial_ratio"},
}

func lookupReportTable(kind ReportKind) (reportTable, error) {
	t, ok := reportTables[kind]
	if !ok {
		return reportTable{}, fmt.Errorf("financial report: unknown kind %q", kind)
	}
	return t, nil
}

var _ FinancialReportModel = (*defaultFinancialReportModel)(nil)

type (
	// FinancialReportModel stores statement documents keyed by (symbol, yearly).
	FinancialReportModel interface {
		Upsert(ctx context.Context, kind ReportKind, symbol string, yearly bool, payload []byte) error
		Find(ctx context.Context, kind ReportKind, symbols []string, yearly bool) ([]FinancialReport, error)
	}

	defaultFinancialReportModel struct {
		conn sqlx.SqlConn
	}

	// FinancialReport is one stored statement document.
	FinancialReport struct {
		Symbol    string          `db:"symbol" json:"symbol"`
		Yearly    bool            `db:"yearly" json:"yearly"`
		Payload   json.RawMessage `db:"payload" json:"data"`
		UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
	}
)

// NewFinancialReportModel returns a model over the four statement tables.
func NewFinancialReportModel(conn sqlx.SqlConn) FinancialReportModel {
	return &defaultFinancialReportModel{conn: conn}
}

// Upsert stores payload for (symbol, yearly), replacing any previous value.
// Writes are last-write-wins.
func (m *defaultFinancialReportModel) Upsert(ctx context.Context, kind ReportKind, symbol string, yearly bool, payload []byte) error {
	t, err := lookupReportTable(kind)
	if err != nil {
		return err
	}
	table := pq.QuoteIdentifier(t.table)
	column := pq.QuoteIdentifier(t.column)
	query := fmt.Sprintf(`
INSERT INTO %s (symbol, yearly, %s, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, NOW(), NOW())
ON CONFLICT (symbol, yearly) DO UPDATE SET
    %s = EXCLUDED.%s,
    updated_at = NOW()`, table, column, column, column)
	_, err = m.conn.ExecCtx(ctx, query, strings.ToUpper(strings.TrimSpace(symbol)), yearly, string(payload))
	return err
}

// Find returns the stored documents of kind for yearly. An empty symbols
// slice matches every symbol.
func (m *defaultFinancialReportModel) Find(ctx context.Context, kind ReportKind, symbols []string, yearly bool) ([]FinancialReport, error) {
	t, err := lookupReportTable(kind)
	if err != nil {
		return nil, err
	}
	const baseQuery = `
SELECT symbol, yearly, %s::text AS payload, updated_at
FROM %s
WHERE yearly = $1
%s
ORDER BY symbol`

	args := []any{yearly}
	var clause string
	if len(symbols) > 0 {
		clause = "AND symbol = ANY($2)"
		args = append(args, pq.Array(symbols))
	}
	query := fmt.Sprintf(baseQuery, pq.QuoteIdentifier(t.column), pq.QuoteIdentifier(t.table), clause)

	var rows []financialReportRow
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("financialreport.Find %s query: %w", kind, err)
	}
	out := make([]FinancialReport, 0, len(rows))
	for _, row := range rows {
		out = append(out, FinancialReport{
			Symbol:    row.Symbol,
			Yearly:    row.Yearly,
			Payload:   json.RawMessage(row.Payload),
			UpdatedAt: row.UpdatedAt,
		})
	}
	return out, nil
}

type financialReportRow struct {
	Symbol    string    `db:"symbol"`
	Yearly    bool      `db:"yearly"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}
