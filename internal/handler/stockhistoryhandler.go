package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stockpipe/internal/logic"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

func StockHistoryHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StockHistoryRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(r.Context(), w, err, true)
			return
		}

		l := logic.NewStockHistoryLogic(r.Context(), svcCtx)
		resp, err := l.StockHistory(&req)
		if err != nil {
			writeError(r.Context(), w, err, false)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
