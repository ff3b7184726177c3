package objstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads objects from one S3 (or S3-compatible) bucket.
type S3Store struct {
	api      S3API
	bucket   string
	prefix   string
	pageSize int32
}

// NewS3 builds an S3Store from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg Config) (*S3Store, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3WithAPI(client, cfg), nil
}

// NewS3WithAPI wraps an existing client.
func NewS3WithAPI(api S3API, cfg Config) *S3Store {
	return &S3Store{api: api, bucket: cfg.Bucket, prefix: cfg.Prefix, pageSize: cfg.PageSize}
}

// List returns one page of keys starting at token.
func (s *S3Store) List(ctx context.Context, token string) (Listing, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix)
	}
	if s.pageSize > 0 {
		in.MaxKeys = aws.Int32(s.pageSize)
	}
	if token != "" {
		in.ContinuationToken = aws.String(token)
	}
	out, err := s.api.ListObjectsV2(ctx, in)
	if err != nil {
		return Listing{}, fmt.Errorf("objstore: list bucket=%s: %w", s.bucket, err)
	}
	listing := Listing{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == "" || key[len(key)-1] == '/' {
			continue
		}
		listing.Keys = append(listing.Keys, key)
	}
	if aws.ToBool(out.IsTruncated) {
		listing.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return listing, nil
}

// Get opens the object body. The caller closes it.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("objstore: get %s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}
