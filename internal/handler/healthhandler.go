package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stockpipe/internal/logic"
	"stockpipe/internal/svc"
	"stockpipe/internal/types"
)

func HealthHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewHealthLogic(r.Context(), svcCtx)
		resp, err := l.Health()
		if err != nil {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusServiceUnavailable, types.HealthResponse{Status: "unavailable"})
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
