// Package tcbs fetches financial statements for listed companies.
package tcbs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"stockpipe/pkg/source"
)

// DefaultBaseURL is the public analysis API root.
const DefaultBaseURL = "https://apipubaws.tcbs.com.vn"

// Kind names one financial statement family.
type Kind string

const (
	BalanceSheet    Kind = "balancesheet"
	CashFlow        Kind = "cashflow"
	IncomeStatement Kind = "incomestatement"
	FinancialRatio  Kind = "financialratio"
)

// Kinds lists every statement family in ingestion order.
var Kinds = []Kind{BalanceSheet, CashFlow, IncomeStatement, FinancialRatio}

// ParseKind validates a user-supplied kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("tcbs: unknown statement kind %q", s)
}

// Client reads statements through a source.Client.
type Client struct {
	http *source.Client
}

// New wraps a configured source client.
func New(c *source.Client) *Client {
	if c == nil {
		c = source.NewClient(source.WithName("tcbs"), source.WithBaseURL(DefaultBaseURL))
	}
	return &Client{http: c}
}

// Statement returns the raw statement document for symbol. yearly selects
// annual periods, otherwise quarterly. A successful response with no data is
// reported as a *source.FetchError wrapping source.ErrEmptyPayload.
func (c *Client) Statement(ctx context.Context, kind Kind, symbol string, yearly bool) (json.RawMessage, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	req := source.Request{
		Path:   fmt.Sprintf("/tcanalysis/v1/finance/%s/%s", url.PathEscape(symbol), kind),
		Query:  url.Values{"yearly": {yearlyParam(yearly)}, "isAll": {"true"}},
		Symbol: symbol,
	}
	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, req, &raw); err != nil {
		return nil, err
	}
	if isEmpty(raw) {
		return nil, c.http.EmptyPayloadError(req)
	}
	return raw, nil
}

func yearlyParam(yearly bool) string {
	if yearly {
		return "1"
	}
	return "0"
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}
