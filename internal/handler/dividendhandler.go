package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stockpipe/internal/logic"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

func DividendHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DividendRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(r.Context(), w, err, true)
			return
		}

		l := logic.NewDividendLogic(r.Context(), svcCtx)
		resp, err := l.Dividend(&req)
		if err != nil {
			writeError(r.Context(), w, err, false)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
