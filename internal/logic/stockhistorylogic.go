package logic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/repo"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

type StockHistoryLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewStockHistoryLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StockHistoryLogic {
	return &StockHistoryLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *StockHistoryLogic) StockHistory(req *types.StockHistoryRequest) (*types.StockHistoryResponse, error) {
	if req.From > req.To {
		return nil, paramError("from", "from cannot be greater than to")
	}
	if req.Countback < 0 {
		return nil, paramError("countback", "countback cannot be negative")
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, paramError("symbol", "symbol is required")
	}
	if l.svcCtx.Repos == nil {
		return nil, ErrUnavailable
	}

	candles, err := l.svcCtx.Repos.Candles.Candles(l.ctx, repo.CandleQuery{
		Resolution: req.Resolution,
		Symbol:     symbol,
		From:       time.Unix(req.From, 0).UTC(),
		To:         time.Unix(req.To, 0).UTC(),
		Countback:  req.Countback,
	})
	if errors.Is(err, repo.ErrUnknownResolution) {
		return nil, paramError("resolution", "invalid resolution")
	}
	if err != nil {
		l.Errorf("handler: stock history symbol=%s resolution=%s err=%v", symbol, req.Resolution, err)
		return nil, err
	}

	resp := &types.StockHistoryResponse{
		T:      make([]int64, 0, len(candles)),
		O:      make([]float64, 0, len(candles)),
		H:      make([]float64, 0, len(candles)),
		L:      make([]float64, 0, len(candles)),
		C:      make([]float64, 0, len(candles)),
		V:      make([]float64, 0, len(candles)),
		Symbol: req.Symbol,
		S:      "ok",
	}
	if len(candles) == 0 {
		resp.S = "no_data"
		return resp, nil
	}
	for _, c := range candles {
		resp.T = append(resp.T, c.Bucket.Unix())
		resp.O = append(resp.O, c.Open)
		resp.H = append(resp.H, c.High)
		resp.L = append(resp.L, c.Low)
		resp.C = append(resp.C, c.Close)
		resp.V = append(resp.V, c.Volume)
	}
	return resp, nil
}
