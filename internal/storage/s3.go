package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"inkwell/internal/config"
	"inkwell/internal/services"
)

// S3 implements ObjectStore against any S3-compatible endpoint.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds the production object store from the storage configuration
// section. Static credentials and the endpoint override are both optional;
// when absent the default AWS resolution chain applies.
func NewS3(ctx context.Context, storageCfg config.Storage) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(storageCfg.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if storageCfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storageCfg.AccessKey, storageCfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "load aws configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(storageCfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = storageCfg.UsePathStyle
	})

	return &S3{client: client, bucket: storageCfg.Bucket}, nil
}

// Bucket returns the configured default bucket for new uploads.
func (c *S3) Bucket() string {
	return c.bucket
}

func (c *S3) Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return services.Wrap(services.ErrTransport, "storage", "put",
			fmt.Sprintf("upload s3://%s/%s", bucket, key), err)
	}
	return nil
}

func (c *S3) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "get",
				fmt.Sprintf("object s3://%s/%s does not exist", bucket, key), err)
		}
		return nil, services.Wrap(services.ErrTransport, "storage", "get",
			fmt.Sprintf("fetch s3://%s/%s", bucket, key), err)
	}
	return out.Body, nil
}

func (c *S3) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ObjectInfo{}, services.Wrap(services.ErrNotFound, "storage", "head",
				fmt.Sprintf("object s3://%s/%s does not exist", bucket, key), err)
		}
		return ObjectInfo{}, services.Wrap(services.ErrTransport, "storage", "head",
			fmt.Sprintf("stat s3://%s/%s", bucket, key), err)
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}
