package logic

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/model"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

type FinancialReportLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFinancialReportLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FinancialReportLogic {
	return &FinancialReportLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *FinancialReportLogic) FinancialReport(req *types.FinancialReportRequest) (*types.FinancialReportResponse, error) {
	kind := model.ReportKind(strings.ToLower(req.Kind))
	switch kind {
	case model.BalanceSheet, model.CashFlow, model.IncomeStatement, model.FinancialRatio:
	default:
		return nil, paramError("kind", "unknown statement kind")
	}
	if l.svcCtx.Repos == nil {
		return nil, ErrUnavailable
	}

	docs, err := l.svcCtx.Repos.Financials.Find(l.ctx, kind, splitSymbols(req.Symbols), req.Yearly)
	if err != nil {
		l.Errorf("handler: financial report kind=%s err=%v", kind, err)
		return nil, err
	}
	if docs == nil {
		docs = []model.FinancialReport{}
	}
	return &types.FinancialReportResponse{Status: len(docs) > 0, Data: docs}, nil
}

func splitSymbols(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		s := strings.ToUpper(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
