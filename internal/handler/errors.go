package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"stockpipe/internal/logic"
	"stockpipe/internal/types"
)

// writeError maps logic errors onto status codes. Parse failures and
// rejected parameters are 400, missing stores 503, everything else 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error, parse bool) {
	var perr *logic.ParamError
	switch {
	case parse:
		httpx.WriteJsonCtx(ctx, w, http.StatusBadRequest, types.ErrorResponse{Msg: err.Error()})
	case errors.As(err, &perr):
		httpx.WriteJsonCtx(ctx, w, http.StatusBadRequest, types.ErrorResponse{Msg: perr.Msg, Field: perr.Field})
	case errors.Is(err, logic.ErrUnavailable):
		httpx.WriteJsonCtx(ctx, w, http.StatusServiceUnavailable, types.ErrorResponse{Msg: err.Error()})
	default:
		httpx.WriteJsonCtx(ctx, w, http.StatusInternalServerError, types.ErrorResponse{Msg: "internal error"})
	}
}
