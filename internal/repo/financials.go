package repo

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cacheutil "stockpipe/internal/cache"
	"stockpipe/internal/model"
)

// FinancialsRepo serves stored statement documents.
type FinancialsRepo interface {
	// Find returns the documents for symbols in the order requested.
	// Symbols without a stored document are omitted. No symbols means every
	// stored document, read uncached.
	Find(ctx context.Context, kind model.ReportKind, symbols []string, yearly bool) ([]model.FinancialReport, error)
}

type financialsRepo struct {
	cached
	model model.FinancialReportModel
	ttl   time.Duration
}

func newFinancialsRepo(deps Dependencies) FinancialsRepo {
	return &financialsRepo{
		cached: cached{cache: deps.Cache},
		model:  deps.FinancialReportModel,
		ttl:    cacheutil.FinancialReportTTL(deps.TTL),
	}
}

func (r *financialsRepo) Find(ctx context.Context, kind model.ReportKind, symbols []string, yearly bool) ([]model.FinancialReport, error) {
	if len(symbols) == 0 {
		return r.model.Find(ctx, kind, nil, yearly)
	}
	found := make(map[string]model.FinancialReport, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		var doc model.FinancialReport
		ok, err := r.getCache(ctx, cacheutil.FinancialReportKey(string(kind), symbol, yearly), &doc)
		if err != nil {
			logx.WithContext(ctx).Errorf("repo: get cache kind=%s symbol=%s err=%v", kind, symbol, err)
		}
		if ok {
			found[symbol] = doc
			continue
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		docs, err := r.model.Find(ctx, kind, missing, yearly)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			found[doc.Symbol] = doc
			r.setCache(ctx, cacheutil.FinancialReportKey(string(kind), doc.Symbol, yearly), r.ttl, doc)
		}
	}

	out := make([]model.FinancialReport, 0, len(found))
	for _, symbol := range symbols {
		if doc, ok := found[symbol]; ok {
			out = append(out, doc)
			delete(found, symbol)
		}
	}
	return out, nil
}
