package svc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cacheutil "stockpipe/internal/cache"
	"stockpipe/internal/config"
	"stockpipe/internal/dividend"
	"stockpipe/internal/ingest"
	"stockpipe/internal/metrics"
	"stockpipe/internal/model"
	"stockpipe/internal/repo"
	"stockpipe/internal/rollup"
	"stockpipe/internal/tickload"
	"stockpipe/pkg/objstore"
	"stockpipe/pkg/source"
	feed "stockpipe/pkg/source/dividend"
	"stockpipe/pkg/source/dnse"
	"stockpipe/pkg/source/tcbs"
)

// ErrNoDatabase is returned by operations that need Postgres when no DSN is set.
var ErrNoDatabase = errors.New("svc: postgres dsn not configured")

type ServiceContext struct {
	Config   config.Config
	Metrics  *metrics.Metrics
	Location *time.Location

	// Postgres-backed pieces; nil without a DSN.
	DBConn               sqlx.SqlConn
	StockModel           model.StockModel
	FinancialReportModel model.FinancialReportModel
	StockPriceModel      model.StockPriceModel
	TickLoadModel        model.TickLoadModel
	CandleModel          model.CandleModel
	Rollup               *rollup.Engine
	Repos                *repo.Set

	Cache     cache.Cache
	Dividends *dividend.MongoStore
}

// Option adjusts a ServiceContext under construction.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer sets where metrics are registered. The default is the
// global prometheus registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// NewServiceContext wires the configured stores. Each store is optional; the
// jobs and handlers that need a missing one report it when called.
func NewServiceContext(ctx context.Context, c config.Config, opts ...Option) (*ServiceContext, error) {
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	svc := &ServiceContext{
		Config:   c,
		Metrics:  metrics.NewMetrics(o.registerer),
		Location: config.Location(c.Rollup.Timezone),
	}

	if strings.TrimSpace(c.Redis.Host) != "" {
		svc.Cache = cache.New(cache.CacheConf{{RedisConf: c.Redis, Weight: 100}},
			syncx.NewSingleFlight(), cache.NewStat("stockpipe"), model.ErrNotFound)
	}

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if db, err := conn.RawDB(); err == nil {
			db.SetMaxOpenConns(c.Postgres.MaxOpen)
			db.SetMaxIdleConns(c.Postgres.MaxIdle)
		}
		svc.DBConn = conn
		svc.StockModel = model.NewStockModel(conn)
		svc.FinancialReportModel = model.NewFinancialReportModel(conn)
		svc.StockPriceModel = model.NewStockPriceModel(conn)
		svc.TickLoadModel = model.NewTickLoadModel(conn)
		svc.CandleModel = model.NewCandleModel(conn)
		svc.Rollup = rollup.NewEngine(conn, rollup.WithMetrics(svc.Metrics))
	}

	if c.Mongo.Configured() {
		store, err := dividend.Connect(ctx, c.Mongo)
		if err != nil {
			return nil, fmt.Errorf("svc: %w", err)
		}
		svc.Dividends = store
	}

	if svc.DBConn != nil {
		deps := repo.Dependencies{
			TTL:                  cacheutil.NewTTLSet(c.TTL),
			Location:             svc.Location,
			FinancialReportModel: svc.FinancialReportModel,
			CandleModel:          svc.CandleModel,
			StockPriceModel:      svc.StockPriceModel,
		}
		if svc.Cache != nil {
			deps.Cache = svc.Cache
		}
		if svc.Dividends != nil {
			deps.Dividends = svc.Dividends
		}
		set, err := repo.New(deps)
		if err != nil {
			return nil, err
		}
		svc.Repos = set
	}
	return svc, nil
}

// MustNewServiceContext is NewServiceContext that exits on error.
func MustNewServiceContext(c config.Config, opts ...Option) *ServiceContext {
	svc, err := NewServiceContext(context.Background(), c, opts...)
	logx.Must(err)
	return svc
}

// Close releases the document store and database pool.
func (s *ServiceContext) Close(ctx context.Context) {
	if s.Dividends != nil {
		if err := s.Dividends.Close(ctx); err != nil {
			logx.WithContext(ctx).Errorf("svc: close mongo err=%v", err)
		}
	}
	if s.DBConn != nil {
		if db, err := s.DBConn.RawDB(); err == nil {
			_ = db.Close()
		}
	}
}

func (s *ServiceContext) sourceClient(name string) (*source.Client, error) {
	return s.Config.SourceConfig().Client(name)
}

// FinancialJob builds the statement ingestion job.
func (s *ServiceContext) FinancialJob() (*ingest.FinancialJob, error) {
	if s.DBConn == nil {
		return nil, ErrNoDatabase
	}
	client, err := s.sourceClient(source.ProviderTCBS)
	if err != nil {
		return nil, err
	}
	return &ingest.FinancialJob{
		Fetcher: tcbs.New(client),
		Symbols: s.StockModel,
		Writer:  ingest.NewWriter(s.FinancialReportModel),
		Metrics: s.Metrics,
		Source:  source.ProviderTCBS,
	}, nil
}

func (s *ServiceContext) dnse() (*dnse.Client, error) {
	market, err := s.sourceClient(source.ProviderDNSEMarket)
	if err != nil {
		return nil, err
	}
	chart, err := s.sourceClient(source.ProviderDNSEChart)
	if err != nil {
		return nil, err
	}
	return dnse.New(market, chart), nil
}

// SymbolJob builds the listed-symbol refresh job.
func (s *ServiceContext) SymbolJob() (*ingest.SymbolJob, error) {
	if s.DBConn == nil {
		return nil, ErrNoDatabase
	}
	client, err := s.dnse()
	if err != nil {
		return nil, err
	}
	return &ingest.SymbolJob{Fetcher: client, Stocks: s.StockModel, Metrics: s.Metrics}, nil
}

// PriceJob builds the incremental daily-bar job.
func (s *ServiceContext) PriceJob() (*ingest.PriceJob, error) {
	if s.DBConn == nil {
		return nil, ErrNoDatabase
	}
	client, err := s.dnse()
	if err != nil {
		return nil, err
	}
	return &ingest.PriceJob{
		Fetcher:    client,
		Symbols:    s.StockModel,
		Ticks:      s.StockPriceModel,
		Metrics:    s.Metrics,
		Resolution: "1D",
	}, nil
}

// DividendJob builds the dividend replacement job.
func (s *ServiceContext) DividendJob() (*ingest.DividendJob, error) {
	if s.Dividends == nil {
		return nil, errors.New("svc: mongo uri not configured")
	}
	client, err := s.sourceClient(source.ProviderDividend)
	if err != nil {
		return nil, err
	}
	pageSize := feed.DefaultPageSize
	if p := s.Config.SourceConfig().Providers[source.ProviderDividend]; p != nil && p.PageSize > 0 {
		pageSize = p.PageSize
	}
	return &ingest.DividendJob{
		Fetcher: feed.New(client, pageSize),
		Store:   s.Dividends,
		Metrics: s.Metrics,
	}, nil
}

// TickLoader builds the full raw-tick reload.
func (s *ServiceContext) TickLoader(ctx context.Context) (*tickload.Loader, error) {
	if s.DBConn == nil {
		return nil, ErrNoDatabase
	}
	if !s.Config.ObjectStore.Configured() {
		return nil, objstore.ErrNotConfigured
	}
	store, err := objstore.NewS3(ctx, s.Config.ObjectStore)
	if err != nil {
		return nil, err
	}
	loader := &tickload.Loader{
		Objects:      store,
		Staging:      s.StockPriceModel,
		Marker:       s.TickLoadModel,
		Metrics:      s.Metrics,
		Parser:       tickload.Parser{Location: config.Location(s.Config.TickLoad.Timezone)},
		BatchSize:    s.Config.TickLoad.BatchSize,
		StagingTable: s.Config.TickLoad.StagingTable,
	}
	if s.Config.Rollup.RefreshOnLoad {
		loader.Refresher = s.Rollup
	}
	return loader, nil
}
