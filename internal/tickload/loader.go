package tickload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/metrics"
	"stockpipe/internal/model"
	"stockpipe/internal/rollup"
	"stockpipe/pkg/objstore"
)

const (
	DefaultBatchSize    = 1500
	DefaultStagingTable = "stockprice_staging"
	// rejected rows logged per object before going quiet
	maxRejectLogs = 5
)

type (
	// Staging is the subset of model.StockPriceModel used by a reload.
	Staging interface {
		CreateStaging(ctx context.Context, name string) error
		InsertStaging(ctx context.Context, name string, ticks []model.Tick) (int64, error)
		SwapFromStaging(ctx context.Context, name string) (int64, error)
		DropStaging(ctx context.Context, name string) error
	}

	// Marker records reload attempts.
	Marker interface {
		Start(ctx context.Context, startedAt time.Time) (int64, error)
		Finish(ctx context.Context, id int64, status string, stats model.TickLoadStats) error
		Latest(ctx context.Context) (*model.TickLoad, error)
	}

	// Refresher is satisfied by *rollup.Engine.
	Refresher interface {
		RefreshAll(ctx context.Context, asOf time.Time, opts ...rollup.RefreshOption) []rollup.Result
	}

	// Loader rebuilds stockprice from every CSV object in a bucket.
	Loader struct {
		Objects   objstore.Store
		Staging   Staging
		Marker    Marker
		Refresher Refresher
		Metrics   *metrics.Metrics
		Parser    Parser

		BatchSize    int
		StagingTable string

		now func() time.Time
	}

	// Stats summarises one reload.
	Stats struct {
		Objects  int
		Skipped  int
		Staged   int64
		Rows     int64
		Rejected int64
		Refresh  []rollup.Result
		// id of an earlier attempt that never finished, 0 if none
		Interrupted int64
	}
)

// ErrNothingStaged refuses a swap that would leave stockprice empty.
var ErrNothingStaged = errors.New("tickload: no rows staged, live table left untouched")

func (s Stats) String() string {
	return fmt.Sprintf("objects=%d skipped=%d staged=%d rows=%d rejected=%d",
		s.Objects, s.Skipped, s.Staged, s.Rows, s.Rejected)
}

func (l *Loader) batchSize() int {
	if l.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return l.BatchSize
}

func (l *Loader) stagingTable() string {
	if l.StagingTable == "" {
		return DefaultStagingTable
	}
	return l.StagingTable
}

func (l *Loader) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Run performs a full reload. The live table is only touched by the final
// swap; any error before it leaves stockprice as it was.
func (l *Loader) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if l.Objects == nil {
		return stats, objstore.ErrNotConfigured
	}
	start := l.clock()
	logger := logx.WithContext(ctx)

	stats.Interrupted = l.checkPrevious(ctx)

	id, err := l.Marker.Start(ctx, start.UTC())
	if err != nil {
		return stats, fmt.Errorf("tickload: start marker: %w", err)
	}

	err = l.load(ctx, &stats)
	status := model.TickLoadFinished
	switch {
	case err != nil:
		status = model.TickLoadFailed
	case stats.Skipped > 0:
		status = model.TickLoadPartial
	}
	// the marker must land even if ctx was cancelled
	finishCtx := context.WithoutCancel(ctx)
	if ferr := l.Marker.Finish(finishCtx, id, status, model.TickLoadStats{
		Objects:  int64(stats.Objects),
		Rows:     stats.Rows,
		Rejected: stats.Rejected,
	}); ferr != nil {
		logger.Errorf("tickload: finish marker id=%d err=%v", id, ferr)
		if err == nil {
			err = fmt.Errorf("tickload: finish marker: %w", ferr)
		}
	}
	l.Metrics.Ticks(stats.Rows, stats.Rejected)
	l.Metrics.Job("ticks", l.clock().Sub(start), err)
	if err != nil {
		logger.Errorf("tickload: reload failed %s err=%v", stats, err)
		return stats, err
	}
	if status == model.TickLoadPartial {
		logger.Errorf("tickload: reload partial %s", stats)
	} else {
		logger.Infof("tickload: reload done %s", stats)
	}

	if l.Refresher != nil {
		stats.Refresh = l.Refresher.RefreshAll(ctx, l.clock(), rollup.FullHistory())
		if failed := rollup.Failed(stats.Refresh); len(failed) > 0 {
			logger.Errorf("tickload: rollup refresh failed views=%d", len(failed))
		}
	}
	return stats, nil
}

func (l *Loader) load(ctx context.Context, stats *Stats) error {
	table := l.stagingTable()
	if err := l.Staging.CreateStaging(ctx, table); err != nil {
		return fmt.Errorf("tickload: create staging: %w", err)
	}

	if err := l.stageAll(ctx, table, stats); err != nil {
		l.dropStaging(ctx, table)
		return err
	}
	if stats.Staged == 0 {
		l.dropStaging(ctx, table)
		return ErrNothingStaged
	}

	rows, err := l.Staging.SwapFromStaging(ctx, table)
	if err != nil {
		l.dropStaging(ctx, table)
		return fmt.Errorf("tickload: swap: %w", err)
	}
	stats.Rows = rows
	l.dropStaging(ctx, table)
	return nil
}

// checkPrevious warns about an earlier reload that never reached Finish.
func (l *Loader) checkPrevious(ctx context.Context) int64 {
	logger := logx.WithContext(ctx)
	prev, err := l.Marker.Latest(ctx)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return 0
	case err != nil:
		logger.Errorf("tickload: read last marker err=%v", err)
		return 0
	case prev.Interrupted():
		logger.Errorf("tickload: previous reload id=%d started=%s was interrupted, stockprice may be stale",
			prev.Id, prev.StartedAt.Format(time.RFC3339))
		return prev.Id
	}
	return 0
}

func (l *Loader) dropStaging(ctx context.Context, table string) {
	if err := l.Staging.DropStaging(context.WithoutCancel(ctx), table); err != nil {
		logx.WithContext(ctx).Errorf("tickload: drop staging table=%s err=%v", table, err)
	}
}

func (l *Loader) stageAll(ctx context.Context, table string, stats *Stats) error {
	seen := make(map[string]struct{})
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := l.Objects.List(ctx, token)
		if err != nil {
			return fmt.Errorf("tickload: list objects: %w", err)
		}
		for _, key := range page.Keys {
			if err := l.stageObject(ctx, table, key, stats); err != nil {
				return err
			}
		}
		if page.NextToken == "" {
			return nil
		}
		if _, dup := seen[page.NextToken]; dup {
			return fmt.Errorf("tickload: list objects: repeated continuation token")
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}
}

// errStage wraps staging insert failures so they can be told apart from
// object read failures.
type errStage struct{ err error }

func (e errStage) Error() string { return e.err.Error() }
func (e errStage) Unwrap() error { return e.err }

func (l *Loader) stageObject(ctx context.Context, table, key string, stats *Stats) error {
	logger := logx.WithContext(ctx)
	ticks, rejected, err := l.readObject(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Skipped++
		l.Metrics.Skipped("ticks", "object")
		logger.Errorf("tickload: skip object key=%s err=%v", key, err)
		return nil
	}
	stats.Objects++
	stats.Rejected += rejected

	size := l.batchSize()
	for i := 0; i < len(ticks); i += size {
		end := min(i+size, len(ticks))
		n, err := l.Staging.InsertStaging(ctx, table, ticks[i:end])
		if err != nil {
			return errStage{fmt.Errorf("tickload: stage key=%s: %w", key, err)}
		}
		stats.Staged += n
	}
	return nil
}

// readObject parses an entire object before anything is staged so a broken
// object contributes no rows.
func (l *Loader) readObject(ctx context.Context, key string) ([]model.Tick, int64, error) {
	body, err := l.Objects.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	var (
		ticks    []model.Tick
		rejected int64
	)
	err = l.Parser.Parse(body, func(t model.Tick) error {
		ticks = append(ticks, t)
		return nil
	}, func(rerr *RowError) {
		rejected++
		if rejected <= maxRejectLogs {
			logx.WithContext(ctx).Infof("tickload: reject key=%s %v", key, rerr)
		}
	})
	if err != nil {
		return nil, 0, err
	}
	if rejected > maxRejectLogs {
		logx.WithContext(ctx).Infof("tickload: reject key=%s total=%d", key, rejected)
	}
	return ticks, rejected, nil
}

// IsStagingError reports whether err came from writing to the staging table.
func IsStagingError(err error) bool {
	var se errStage
	return errors.As(err, &se)
}
