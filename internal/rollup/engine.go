package rollup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
)

const (
	pgUndefinedTable  = "42P01"
	pgDuplicateObject = "42710"
)

// Executor runs a statement. sqlx.SqlConn satisfies it.
type Executor interface {
	ExecCtx(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Result reports the outcome of refreshing one view.
type Result struct {
	View    string
	Start   *time.Time
	End     time.Time
	Elapsed time.Duration
	Err     error
}

// Engine refreshes the continuous aggregates.
type Engine struct {
	exec        Executor
	resolutions []Resolution
	metrics     *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithResolutions overrides the refreshed set.
func WithResolutions(res []Resolution) Option {
	return func(e *Engine) {
		if len(res) > 0 {
			e.resolutions = res
		}
	}
}

func NewEngine(exec Executor, opts ...Option) *Engine {
	e := &Engine{exec: exec, resolutions: ActiveResolutions()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type refreshOptions struct {
	full bool
}

// RefreshOption tunes a refresh call.
type RefreshOption func(*refreshOptions)

// FullHistory refreshes from the beginning of time instead of the trailing
// window.
func FullHistory() RefreshOption {
	return func(o *refreshOptions) { o.full = true }
}

// Window returns the refresh bounds of res for asOf. The end is asOf's UTC
// date; the start is end minus the resolution's start offset, or nil for
// full history.
func Window(res Resolution, asOf time.Time, full bool) (*time.Time, time.Time) {
	end := asOf.UTC().Truncate(24 * time.Hour)
	if full {
		return nil, end
	}
	start := res.StartOffset.Before(end)
	return &start, end
}

// Refresh recomputes res over its trailing window ending at asOf. Buckets
// are rebuilt from raw ticks, so repeating a refresh is harmless.
func (e *Engine) Refresh(ctx context.Context, res Resolution, asOf time.Time, opts ...RefreshOption) error {
	_, err := e.refresh(ctx, res, asOf, opts...)
	return err
}

func (e *Engine) refresh(ctx context.Context, res Resolution, asOf time.Time, opts ...RefreshOption) (Result, error) {
	var o refreshOptions
	for _, opt := range opts {
		opt(&o)
	}
	start, end := Window(res, asOf, o.full)
	result := Result{View: res.View, Start: start, End: end}

	var startArg any
	if start != nil {
		startArg = *start
	}
	began := time.Now()
	_, err := e.exec.ExecCtx(ctx,
		`CALL refresh_continuous_aggregate($1::regclass, $2::timestamptz, $3::timestamptz)`,
		res.View, startArg, end)
	result.Elapsed = time.Since(began)
	e.metrics.Refresh(res.View, result.Elapsed, err)
	if err != nil {
		err = fmt.Errorf("rollup: refresh %s: %w", res.View, err)
	}
	result.Err = err
	return result, err
}

// RefreshAll refreshes every configured resolution in order. A failing view
// is logged and the remaining views still refresh.
func (e *Engine) RefreshAll(ctx context.Context, asOf time.Time, opts ...RefreshOption) []Result {
	results := make([]Result, 0, len(e.resolutions))
	for _, res := range e.resolutions {
		if ctx.Err() != nil {
			results = append(results, Result{View: res.View, Err: ctx.Err()})
			continue
		}
		r, err := e.refresh(ctx, res, asOf, opts...)
		results = append(results, r)
		switch {
		case err == nil:
			logx.WithContext(ctx).Infof("rollup: refreshed view=%s end=%s elapsed=%s", res.View, r.End.Format(time.DateOnly), r.Elapsed)
		case IsMissingView(err):
			logx.WithContext(ctx).Errorf("rollup: view=%s does not exist, create it with `ingest views` err=%v", res.View, err)
		default:
			logx.WithContext(ctx).Errorf("rollup: refresh view=%s err=%v", res.View, err)
		}
	}
	return results
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// IsMissingView reports whether err comes from an undefined relation.
func IsMissingView(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// EnsureViews creates the continuous aggregates and their refresh policies
// when absent. A failure on one view is logged and the next is attempted;
// the joined errors are returned.
func (e *Engine) EnsureViews(ctx context.Context) error {
	var errs []error
	for _, res := range e.resolutions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.exec.ExecCtx(ctx, ViewDDL(res)); err != nil {
			logx.WithContext(ctx).Errorf("rollup: create view=%s err=%v", res.View, err)
			errs = append(errs, fmt.Errorf("create %s: %w", res.View, err))
			continue
		}
		if _, err := e.exec.ExecCtx(ctx, PolicyDDL(res)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateObject {
				continue
			}
			logx.WithContext(ctx).Errorf("rollup: policy view=%s err=%v", res.View, err)
			errs = append(errs, fmt.Errorf("policy %s: %w", res.View, err))
			continue
		}
		logx.WithContext(ctx).Infof("rollup: ensured view=%s bucket=%s volume=%s", res.View, res.Bucket.Interval(), res.Volume)
	}
	return errors.Join(errs...)
}

// ViewDDL renders the continuous aggregate definition of res.
func ViewDDL(res Resolution) string {
	volume := `LAST(volume, "time")`
	if res.Volume == VolumeSum {
		volume = `volume(candlestick_agg("time", volume, volume))`
	}
	return fmt.Sprintf(`
CREATE MATERIALIZED VIEW IF NOT EXISTS %s
WITH (timescaledb.continuous) AS
SELECT
    time_bucket(%s::interval, "time") AS ts,
    symbol,
    open(candlestick_agg("time", "open", volume)) AS "open",
    high(candlestick_agg("time", high, volume)) AS high,
    low(candlestick_agg("time", low, volume)) AS low,
    close(candlestick_agg("time", "close", volume)) AS "close",
    %s AS volume
FROM stockprice
GROUP BY ts, symbol
WITH NO DATA`, pq.QuoteIdentifier(res.View), pq.QuoteLiteral(res.Bucket.Interval()), volume)
}

// PolicyDDL renders the refresh policy of res.
func PolicyDDL(res Resolution) string {
	return fmt.Sprintf(`
SELECT add_continuous_aggregate_policy(%s,
    start_offset => %s::interval,
    end_offset => %s::interval,
    schedule_interval => %s::interval,
    if_not_exists => true)`,
		pq.QuoteLiteral(res.View),
		pq.QuoteLiteral(res.StartOffset.Interval()),
		pq.QuoteLiteral(res.EndOffset.Interval()),
		pq.QuoteLiteral(res.Schedule.Interval()))
}
