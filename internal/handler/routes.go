package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"stockpipe/internal/metrics"
	"stockpipe/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/stock",
				Handler: StockHistoryHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/scfa/dividend",
				Handler: DividendHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/scfa/:kind",
				Handler: FinancialReportHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/v1"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/health-check",
				Handler: HealthHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/metrics",
				Handler: metrics.Handler().ServeHTTP,
			},
		},
	)
}
