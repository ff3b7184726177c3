package repo

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// Cache is the part of go-zero's cache.Cache the repositories use.
type Cache interface {
	GetCtx(ctx context.Context, key string, val any) error
	SetWithExpireCtx(ctx context.Context, key string, val any, expire time.Duration) error
	IsNotFound(err error) bool
}

type cached struct {
	cache Cache
}

// helper: get from redis into v
func (c cached) getCache(ctx context.Context, key string, v any) (bool, error) {
	if c.cache == nil {
		return false, nil
	}
	if err := c.cache.GetCtx(ctx, key, v); err != nil {
		if c.cache.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// helper: set redis from v
func (c cached) setCache(ctx context.Context, key string, ttl time.Duration, v any) {
	if c.cache == nil || ttl <= 0 {
		return
	}
	if err := c.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("repo: set cache key=%s err=%v", key, err)
	}
}
