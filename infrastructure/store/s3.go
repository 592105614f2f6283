package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ahrav/gavel-bench/internal/ports"
)

const s3Scheme = "s3://"

// S3Options configures the S3 client used for s3:// locations. Empty
// fields fall back to the AWS default configuration chain.
type S3Options struct {
	// Endpoint overrides the service URL, e.g. a MinIO server. It enables
	// path-style addressing.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds an S3 client from opts.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// s3Backend stores each record as an object under bucket/prefix.
type s3Backend struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store returns a ResultStore writing objects under bucket/prefix.
func NewS3Store(client S3API, bucket, prefix string) ports.ResultStore {
	return &recordStore{b: &s3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}}
}

func (b *s3Backend) location() string {
	if b.prefix == "" {
		return s3Scheme + b.bucket
	}
	return s3Scheme + b.bucket + "/" + b.prefix
}

func (b *s3Backend) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *s3Backend) list(ctx context.Context) ([]string, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Delimiter: aws.String("/"),
	}
	if b.prefix != "" {
		in.Prefix = aws.String(b.prefix + "/")
	}

	var names []string
	p := s3.NewListObjectsV2Paginator(b.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", b.location(), err)
		}
		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if strings.EqualFold(path.Ext(name), ".json") {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (b *s3Backend) read(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Backend) write(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

// parseS3Location splits s3://bucket/prefix into its bucket and prefix.
func parseS3Location(location string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("bad s3 location (missing %s): %q", s3Scheme, location)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("bad s3 location (need bucket): %q", location)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
