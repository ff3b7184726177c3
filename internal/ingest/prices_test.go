package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceJobSkipsFailingSymbol(t *testing.T) {
	sink := &fakeTickSink{}
	job := &PriceJob{
		Fetcher: fakeOHLC{fail: map[string]bool{"BAD": true}},
		Symbols: staticSymbols{"FPT", "BAD", "VNM"},
		Ticks:   sink,
	}
	from := time.Date(2024, 10, 2, 1, 0, 0, 0, time.UTC)

	report, err := job.Run(context.Background(), from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 4, report.Written)
	require.Len(t, sink.ticks, 4)
	assert.Equal(t, "FPT", sink.ticks[0].Symbol)
	assert.Equal(t, "VNM", sink.ticks[3].Symbol)
}

func TestPriceJobStopsOnStoreError(t *testing.T) {
	boom := errors.New("deadlock detected")
	job := &PriceJob{Fetcher: fakeOHLC{}, Symbols: staticSymbols{"FPT", "VNM"}, Ticks: &fakeTickSink{err: boom}}

	report, err := job.Run(context.Background(), time.Now().AddDate(0, 0, -1), time.Now())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, report.Processed)
}
