// Package s3 reads input tables from AWS S3 (or an S3-compatible endpoint).
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Getter is the subset of *s3.Client used by Object.
type Getter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Object is one S3 object exposed as a datasource.Source.
type Object struct {
	client Getter
	bucket string
	key    string
}

// NewObject returns an Object for bucket/prefix/name.
func NewObject(client Getter, bucket, prefix, name string) *Object {
	key := name
	if p := strings.Trim(prefix, "/"); p != "" {
		key = path.Join(p, name)
	}
	return &Object{client: client, bucket: bucket, key: key}
}

// Name implements datasource.Source.
func (o *Object) Name() string { return fmt.Sprintf("s3://%s/%s", o.bucket, o.key) }

// Open streams the object body. The caller closes it.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", o.Name(), err)
	}
	return out.Body, nil
}

// NewClient builds an S3 client from the default AWS credential chain. An
// empty region defers to the environment; a non-empty endpoint switches to
// path-style addressing for MinIO and similar stores.
func NewClient(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
