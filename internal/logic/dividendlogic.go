package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/dividend"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

type DividendLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewDividendLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DividendLogic {
	return &DividendLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *DividendLogic) Dividend(req *types.DividendRequest) (*types.DividendResponse, error) {
	if l.svcCtx.Repos == nil || l.svcCtx.Repos.Dividends == nil {
		return nil, ErrUnavailable
	}
	events, err := l.svcCtx.Repos.Dividends.Find(l.ctx, req.Symbol)
	if err != nil {
		l.Errorf("handler: dividend symbol=%s err=%v", req.Symbol, err)
		return nil, err
	}
	if events == nil {
		events = []dividend.Event{}
	}
	return &types.DividendResponse{Status: true, Message: "success", Data: events}, nil
}
