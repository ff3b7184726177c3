package dividend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipe/pkg/source"
)

func newPagedServer(t *testing.T, pages int, failOn int) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		assert.Equal(t, "/v1/web/announcement/dividend-events", r.URL.Path)
		assert.Equal(t, "50", q.Get("per_page"))
		assert.Equal(t, "all", q.Get("type"))
		assert.Equal(t, "all", q.Get("floor"))
		page, _ := strconv.Atoi(q.Get("page"))
		if page == failOn {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if page > pages {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		fmt.Fprintf(w, `{"data":[{"symbol":"S%d","title":"cash dividend","company_name":"Co %d","type":"cash","floor":"HOSE","published_date":1700000000,"record_date":null,"exright_date":0,"payout_date":"1700600000"}]}`, page, page)
	}))
	t.Cleanup(srv.Close)
	c := New(source.NewClient(source.WithName("dividend"), source.WithBaseURL(srv.URL), source.WithDelay(0)), 50)
	return c, &calls
}

func TestAllStopsAtFirstEmptyPage(t *testing.T) {
	c, calls := newPagedServer(t, 3, -1)

	items, err := c.All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int32(4), atomic.LoadInt32(calls), "three data pages plus the terminating empty one")
	assert.Equal(t, "S1", items[0].Symbol)
	assert.Equal(t, "S3", items[2].Symbol)

	first := items[0]
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), first.PublishedDate.Time)
	assert.Nil(t, first.RecordDate.Ptr())
	assert.Nil(t, first.ExrightDate.Ptr())
	require.NotNil(t, first.PayoutDate.Ptr())
	assert.Equal(t, int64(1700600000), first.PayoutDate.Unix())
}

func TestAllAbortsOnPageFailure(t *testing.T) {
	c, _ := newPagedServer(t, 5, 2)

	items, err := c.All(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsFetchError(err))
	assert.Len(t, items, 1)
}

func TestEpochRoundTrip(t *testing.T) {
	var e Epoch
	require.NoError(t, json.Unmarshal([]byte(`1700000000`), &e))
	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", string(out))

	require.NoError(t, json.Unmarshal([]byte(`""`), &e))
	assert.True(t, e.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &e))
}
