package types

import (
	"stockpipe/internal/dividend"
	"stockpipe/internal/model"
)

type StockHistoryRequest struct {
	From       int64  `form:"from"`
	To         int64  `form:"to"`
	Resolution string `form:"resolution"`
	Symbol     string `form:"symbol"`
	Countback  int    `form:"countback,optional"`
}

// StockHistoryResponse is the column-oriented candle payload charting
// libraries expect. S is "ok" or "no_data".
type StockHistoryResponse struct {
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
	Symbol string    `json:"symbol"`
	S      string    `json:"s"`
}

type FinancialReportRequest struct {
	Kind    string `path:"kind"`
	Symbols string `form:"symbols,optional"`
	Yearly  bool   `form:"yearly"`
}

type FinancialReportResponse struct {
	Status bool                    `json:"status"`
	Data   []model.FinancialReport `json:"data"`
}

type DividendRequest struct {
	Symbol string `form:"symbol,optional"`
}

type DividendResponse struct {
	Status  bool             `json:"status"`
	Message string           `json:"message"`
	Data    []dividend.Event `json:"data"`
}

// HealthResponse is "ok", or "degraded" when the latest tick reload did not
// finish cleanly.
type HealthResponse struct {
	Status   string `json:"status"`
	LastLoad string `json:"last_load,omitempty"`
}

// ErrorResponse mirrors a rejected parameter.
type ErrorResponse struct {
	Msg   string `json:"msg"`
	Field string `json:"field,omitempty"`
}
