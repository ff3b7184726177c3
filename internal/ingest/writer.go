// Package ingest runs the sequential download jobs that move provider data
// into the relational and document stores.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockpipe/internal/model"
)

// ErrEncode marks a payload that could not be serialized for storage. Jobs
// skip the item and continue.
var ErrEncode = errors.New("ingest: encode payload")

// Writer persists statement payloads keyed by (kind, symbol, yearly).
type Writer struct {
	reports model.FinancialReportModel
}

func NewWriter(reports model.FinancialReportModel) *Writer {
	return &Writer{reports: reports}
}

// Write serializes payload and upserts it. Raw JSON is stored as-is after a
// validity check. Encoding failures wrap ErrEncode; store errors are
// returned unchanged.
func (w *Writer) Write(ctx context.Context, kind model.ReportKind, symbol string, yearly bool, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("%w: kind=%s symbol=%s yearly=%t: %v", ErrEncode, kind, symbol, yearly, err)
	}
	return w.reports.Upsert(ctx, kind, symbol, yearly, data)
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, errors.New("nil payload")
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("invalid json document")
		}
		return p, nil
	case []byte:
		if !json.Valid(p) {
			return nil, errors.New("invalid json document")
		}
		return p, nil
	default:
		return json.Marshal(p)
	}
}
