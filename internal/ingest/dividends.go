package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/dividend"
	"stockpipe/internal/metrics"
	"stockpipe/pkg/source"
	feed "stockpipe/pkg/source/dividend"
)

// AnnouncementFetcher is satisfied by *feed.Client.
type AnnouncementFetcher interface {
	All(ctx context.Context) ([]feed.Announcement, error)
}

// DividendJob mirrors the dividend feed into the document store.
type DividendJob struct {
	Fetcher AnnouncementFetcher
	Store   dividend.Store
	Metrics *metrics.Metrics
}

// Run downloads every page first and only then replaces the collection, so
// a failed download leaves the previous run's documents in place.
func (j *DividendJob) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Job: "dividends"}

	items, err := j.Fetcher.All(ctx)
	if err != nil {
		j.Metrics.Fetch(source.ProviderDividend, metrics.OutcomeError)
		j.Metrics.Job(report.Job, time.Since(start), err)
		logx.WithContext(ctx).Errorf("ingest: dividends fetch fetched=%d err=%v; keeping previous data", len(items), err)
		return report, err
	}
	j.Metrics.Fetch(source.ProviderDividend, metrics.OutcomeOK)
	report.Processed = len(items)

	events := make([]dividend.Event, 0, len(items))
	for _, a := range items {
		events = append(events, EventFromAnnouncement(a))
	}
	n, err := j.Store.Replace(ctx, events)
	report.Written = n
	j.Metrics.Written("dividend_events", n)
	j.Metrics.Job(report.Job, time.Since(start), err)
	if err != nil {
		logx.WithContext(ctx).Errorf("ingest: dividends store inserted=%d err=%v", n, err)
		return report, err
	}
	logx.WithContext(ctx).Infof("ingest: %s", report)
	return report, nil
}

// EventFromAnnouncement maps a feed record onto the stored document.
func EventFromAnnouncement(a feed.Announcement) dividend.Event {
	return dividend.Event{
		Symbol:        strings.ToUpper(strings.TrimSpace(a.Symbol)),
		Title:         a.Title,
		CompanyName:   a.CompanyName,
		Type:          a.Type,
		Floor:         a.Floor,
		PublishedDate: a.PublishedDate.Ptr(),
		RecordDate:    a.RecordDate.Ptr(),
		ExrightDate:   a.ExrightDate.Ptr(),
		PayoutDate:    a.PayoutDate.Ptr(),
	}
}
