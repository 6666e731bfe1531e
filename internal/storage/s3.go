package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 provider.
type S3Options struct {
	Bucket string
	Region string
	Prefix string
	// PublicBaseURL overrides the virtual-hosted bucket URL, e.g. for a CDN in front of the bucket.
	PublicBaseURL string
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Provider stores images in an S3 bucket.
type S3Provider struct {
	client s3API
	opts   S3Options
}

// NewS3Provider loads AWS credentials from the default chain.
func NewS3Provider(ctx context.Context, opts S3Options) (*S3Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3ProviderWithClient(s3.NewFromConfig(awsCfg), opts), nil
}

func newS3ProviderWithClient(client s3API, opts S3Options) *S3Provider {
	return &S3Provider{client: client, opts: opts}
}

func (p *S3Provider) Name() string { return "s3" }

// Upload puts the object under a unique key and returns its public URL.
func (p *S3Provider) Upload(ctx context.Context, obj Object) (*Result, error) {
	key := objectKey(p.opts.Prefix, obj.Filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(obj.Data),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return withMetadata(&Result{URL: p.publicURL(key)}, obj), nil
}

func (p *S3Provider) publicURL(key string) string {
	if p.opts.PublicBaseURL != "" {
		return strings.TrimRight(p.opts.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.opts.Bucket, p.opts.Region, key)
}
