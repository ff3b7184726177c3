package tickload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipe/internal/model"
	"stockpipe/internal/rollup"
	"stockpipe/pkg/objstore"
)

const header = "Ticker,Date,Open,High,Low,Close,Volume\n"

type fakeObjects struct {
	pages   []objstore.Listing
	objects map[string]string
	getErr  map[string]error
	listErr error
	tokens  []string
}

func (f *fakeObjects) List(_ context.Context, token string) (objstore.Listing, error) {
	f.tokens = append(f.tokens, token)
	if f.listErr != nil {
		return objstore.Listing{}, f.listErr
	}
	idx := 0
	if token != "" {
		fmt.Sscanf(token, "page-%d", &idx)
	}
	return f.pages[idx], nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := f.getErr[key]; err != nil {
		return nil, err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type fakeStaging struct {
	created   []string
	batches   [][]model.Tick
	swapped   bool
	dropped   int
	insertErr error
	swapErr   error
}

func (f *fakeStaging) CreateStaging(_ context.Context, name string) error {
	f.created = append(f.created, name)
	return nil
}

func (f *fakeStaging) InsertStaging(_ context.Context, _ string, ticks []model.Tick) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.batches = append(f.batches, append([]model.Tick(nil), ticks...))
	return int64(len(ticks)), nil
}

func (f *fakeStaging) SwapFromStaging(context.Context, string) (int64, error) {
	if f.swapErr != nil {
		return 0, f.swapErr
	}
	f.swapped = true
	var n int64
	for _, b := range f.batches {
		n += int64(len(b))
	}
	return n, nil
}

func (f *fakeStaging) DropStaging(context.Context, string) error {
	f.dropped++
	return nil
}

type fakeMarker struct {
	started  bool
	status   string
	stats    model.TickLoadStats
	finished int
	latest   *model.TickLoad
}

func (f *fakeMarker) Latest(context.Context) (*model.TickLoad, error) {
	if f.latest == nil {
		return nil, model.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeMarker) Start(context.Context, time.Time) (int64, error) {
	f.started = true
	return 7, nil
}

func (f *fakeMarker) Finish(_ context.Context, id int64, status string, stats model.TickLoadStats) error {
	if id != 7 {
		return fmt.Errorf("unexpected id %d", id)
	}
	f.finished++
	f.status = status
	f.stats = stats
	return nil
}

type fakeRefresher struct {
	calls int
	full  bool
}

func (f *fakeRefresher) RefreshAll(_ context.Context, _ time.Time, opts ...rollup.RefreshOption) []rollup.Result {
	f.calls++
	f.full = len(opts) == 1
	return []rollup.Result{{View: "one_day_candle"}}
}

func csvRows(symbol string, n int) string {
	var b strings.Builder
	b.WriteString(header)
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%s,1,2,0.5,1.5,10\n", symbol, day.AddDate(0, 0, i).Format("2006-01-02"))
	}
	return b.String()
}

func TestLoaderReloadAcrossPages(t *testing.T) {
	objects := &fakeObjects{
		pages: []objstore.Listing{
			{Keys: []string{"ACB.csv"}, NextToken: "page-1"},
			{Keys: []string{"FPT.csv", "VNM.csv"}},
		},
		objects: map[string]string{
			"ACB.csv": csvRows("ACB", 4),
			"FPT.csv": csvRows("FPT", 2) + "FPT,bad-date,1,1,1,1,1\n",
			"VNM.csv": csvRows("VNM", 1),
		},
	}
	staging := &fakeStaging{}
	marker := &fakeMarker{}
	refresher := &fakeRefresher{}

	l := &Loader{Objects: objects, Staging: staging, Marker: marker, Refresher: refresher, BatchSize: 3}
	stats, err := l.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "page-1"}, objects.tokens)
	assert.Equal(t, []string{DefaultStagingTable}, staging.created)
	// ACB splits 3+1, FPT and VNM fit one batch each
	require.Len(t, staging.batches, 4)
	assert.Len(t, staging.batches[0], 3)
	assert.Len(t, staging.batches[1], 1)
	assert.True(t, staging.swapped)
	assert.Equal(t, 1, staging.dropped)

	assert.Equal(t, 3, stats.Objects)
	assert.Equal(t, int64(7), stats.Rows)
	assert.Equal(t, int64(1), stats.Rejected)

	assert.Equal(t, model.TickLoadFinished, marker.status)
	assert.Equal(t, model.TickLoadStats{Objects: 3, Rows: 7, Rejected: 1}, marker.stats)

	assert.Equal(t, 1, refresher.calls)
	assert.True(t, refresher.full)
	require.Len(t, stats.Refresh, 1)
}

func TestLoaderSkipsBrokenObject(t *testing.T) {
	objects := &fakeObjects{
		pages: []objstore.Listing{{Keys: []string{"ACB.csv", "BAD.csv", "NOHEADER.csv"}}},
		objects: map[string]string{
			"ACB.csv":      csvRows("ACB", 2),
			"NOHEADER.csv": "Ticker,Date\nACB,2024-01-01\n",
		},
		getErr: map[string]error{"BAD.csv": errors.New("access denied")},
	}
	staging := &fakeStaging{}
	marker := &fakeMarker{}

	stats, err := (&Loader{Objects: objects, Staging: staging, Marker: marker}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Objects)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, int64(2), stats.Rows)
	assert.True(t, staging.swapped)
	assert.Equal(t, model.TickLoadPartial, marker.status)
}

func TestLoaderRefusesSwapWhenEveryObjectFails(t *testing.T) {
	objects := &fakeObjects{
		pages: []objstore.Listing{{Keys: []string{"ACB.csv", "FPT.csv"}}},
		getErr: map[string]error{
			"ACB.csv": errors.New("access denied"),
			"FPT.csv": errors.New("access denied"),
		},
	}
	staging := &fakeStaging{}
	marker := &fakeMarker{}
	refresher := &fakeRefresher{}

	stats, err := (&Loader{Objects: objects, Staging: staging, Marker: marker, Refresher: refresher}).Run(context.Background())
	require.ErrorIs(t, err, ErrNothingStaged)
	assert.Equal(t, 2, stats.Skipped)
	assert.False(t, staging.swapped)
	assert.Equal(t, 1, staging.dropped)
	assert.Equal(t, model.TickLoadFailed, marker.status)
	assert.Zero(t, refresher.calls)
}

func TestLoaderRefusesSwapOnEmptyListing(t *testing.T) {
	objects := &fakeObjects{pages: []objstore.Listing{{}}}
	staging := &fakeStaging{}
	marker := &fakeMarker{}

	_, err := (&Loader{Objects: objects, Staging: staging, Marker: marker}).Run(context.Background())
	require.ErrorIs(t, err, ErrNothingStaged)
	assert.False(t, staging.swapped)
	assert.Equal(t, model.TickLoadFailed, marker.status)
}

func TestLoaderReportsInterruptedPredecessor(t *testing.T) {
	objects := &fakeObjects{
		pages:   []objstore.Listing{{Keys: []string{"ACB.csv"}}},
		objects: map[string]string{"ACB.csv": csvRows("ACB", 1)},
	}
	marker := &fakeMarker{latest: &model.TickLoad{Id: 6, Status: model.TickLoadRunning}}

	stats, err := (&Loader{Objects: objects, Staging: &fakeStaging{}, Marker: marker}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Interrupted)

	marker.latest = &model.TickLoad{Id: 7, Status: model.TickLoadFinished}
	stats, err = (&Loader{Objects: objects, Staging: &fakeStaging{}, Marker: marker}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Interrupted)
}

func TestLoaderStagingErrorLeavesLiveTable(t *testing.T) {
	objects := &fakeObjects{
		pages:   []objstore.Listing{{Keys: []string{"ACB.csv"}}},
		objects: map[string]string{"ACB.csv": csvRows("ACB", 2)},
	}
	staging := &fakeStaging{insertErr: errors.New("disk full")}
	marker := &fakeMarker{}
	refresher := &fakeRefresher{}

	_, err := (&Loader{Objects: objects, Staging: staging, Marker: marker, Refresher: refresher}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsStagingError(err))
	assert.False(t, staging.swapped)
	assert.Equal(t, 1, staging.dropped)
	assert.Equal(t, model.TickLoadFailed, marker.status)
	assert.Zero(t, refresher.calls)
}

func TestLoaderListErrorAborts(t *testing.T) {
	objects := &fakeObjects{listErr: errors.New("throttled")}
	staging := &fakeStaging{}
	marker := &fakeMarker{}

	_, err := (&Loader{Objects: objects, Staging: staging, Marker: marker}).Run(context.Background())
	require.ErrorContains(t, err, "list objects")
	assert.False(t, staging.swapped)
	assert.Equal(t, 1, staging.dropped)
	assert.Equal(t, model.TickLoadFailed, marker.status)
	assert.Equal(t, 1, marker.finished)
}

func TestLoaderSwapError(t *testing.T) {
	objects := &fakeObjects{
		pages:   []objstore.Listing{{Keys: []string{"ACB.csv"}}},
		objects: map[string]string{"ACB.csv": csvRows("ACB", 1)},
	}
	staging := &fakeStaging{swapErr: errors.New("deadlock")}
	marker := &fakeMarker{}

	_, err := (&Loader{Objects: objects, Staging: staging, Marker: marker}).Run(context.Background())
	require.ErrorContains(t, err, "swap")
	assert.Equal(t, 1, staging.dropped)
	assert.Equal(t, model.TickLoadFailed, marker.status)
}

func TestLoaderCancelledMarksFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	objects := &fakeObjects{pages: []objstore.Listing{{}}}
	marker := &fakeMarker{}

	_, err := (&Loader{Objects: objects, Staging: &fakeStaging{}, Marker: marker}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.TickLoadFailed, marker.status)
}

func TestLoaderRequiresObjectStore(t *testing.T) {
	_, err := (&Loader{Staging: &fakeStaging{}, Marker: &fakeMarker{}}).Run(context.Background())
	assert.ErrorIs(t, err, objstore.ErrNotConfigured)
}
