// Package objstore enumerates and reads objects from a bucket.
package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured is returned when no bucket is set.
var ErrNotConfigured = errors.New("objstore: bucket not configured")

// Listing is one page of object keys. An empty NextToken ends the listing.
type Listing struct {
	Keys      []string
	NextToken string
}

// Store is the read side of an object store.
type Store interface {
	List(ctx context.Context, token string) (Listing, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config describes the bucket to read from.
type Config struct {
	Bucket          string `json:",optional"`
	Prefix          string `json:",optional"`
	Region          string `json:",default=ap-southeast-1"`
	Endpoint        string `json:",optional"`
	AccessKeyID     string `json:",optional"`
	SecretAccessKey string `json:",optional"`
	UsePathStyle    bool   `json:",optional"`
	PageSize        int32  `json:",default=1000"`
}

// Configured reports whether a bucket is set.
func (c Config) Configured() bool { return c.Bucket != "" }
