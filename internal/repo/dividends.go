package repo

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cacheutil "stockpipe/internal/cache"
	"stockpipe/internal/dividend"
)

// DividendsRepo serves dividend events newest first.
type DividendsRepo interface {
	Find(ctx context.Context, symbol string) ([]dividend.Event, error)
}

type dividendsRepo struct {
	cached
	store dividend.Store
	ttl   time.Duration
}

func newDividendsRepo(deps Dependencies) DividendsRepo {
	return &dividendsRepo{
		cached: cached{cache: deps.Cache},
		store:  deps.Dividends,
		ttl:    cacheutil.DividendTTL(deps.TTL),
	}
}

func (r *dividendsRepo) Find(ctx context.Context, symbol string) ([]dividend.Event, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := cacheutil.DividendKey(symbol)
	var events []dividend.Event
	ok, err := r.getCache(ctx, key, &events)
	if err != nil {
		logx.WithContext(ctx).Errorf("repo: get cache key=%s err=%v", key, err)
	}
	if ok {
		return events, nil
	}
	events, err = r.store.Find(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r.setCache(ctx, key, r.ttl, events)
	return events, nil
}
