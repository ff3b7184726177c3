package logic

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/model"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

const healthTimeout = 2 * time.Second

type HealthLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Health pings Postgres when one is configured and reports the state of the
// latest tick reload.
func (l *HealthLogic) Health() (*types.HealthResponse, error) {
	if l.svcCtx.DBConn != nil {
		db, err := l.svcCtx.DBConn.RawDB()
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(l.ctx, healthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			l.Errorf("handler: health ping err=%v", err)
			return nil, err
		}
	}
	resp := &types.HealthResponse{Status: "ok"}
	if l.svcCtx.TickLoadModel == nil {
		return resp, nil
	}
	load, err := l.svcCtx.TickLoadModel.Latest(l.ctx)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		l.Errorf("handler: health last load err=%v", err)
	default:
		resp.LastLoad = load.Status
		if load.Status != model.TickLoadFinished {
			resp.Status = "degraded"
		}
	}
	return resp, nil
}
