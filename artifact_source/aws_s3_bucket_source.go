package artifact_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	typehelpers "github.com/turbot/go-kit/types"
)

func init() {
	Factory.RegisterArtifactSource(NewAwsS3BucketSource, "s3")
}

const AwsS3BucketSourceIdentifier = "aws_s3_bucket"

// AwsS3BucketSource is a [Source] implementation that streams a snapshot from s3://bucket/key
type AwsS3BucketSource struct {
	connection *AwsConnection
	http       *HttpConnection
}

func NewAwsS3BucketSource(opts *Options) (Source, error) {
	if err := opts.Aws.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aws config: %w", err)
	}
	return &AwsS3BucketSource{connection: opts.Aws, http: opts.Http}, nil
}

func (s *AwsS3BucketSource) Identifier() string {
	return AwsS3BucketSourceIdentifier
}

func (s *AwsS3BucketSource) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket, key, err := bucketAndKey(u)
	if err != nil {
		return nil, err
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object, %w", err)
	}
	slog.Debug("s3 download started", "bucket", bucket, "key", key, "content_length", aws.ToInt64(out.ContentLength))
	return out.Body, nil
}

func (s *AwsS3BucketSource) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := s.connection.GetClientConfiguration(ctx, s.http)
	if err != nil {
		return nil, err
	}

	endpoint := s.connection.endpointUrl()
	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = s.connection.forcePathStyle()
	})
	slog.Debug("created s3 client", "region", cfg.Region, "endpoint", endpoint, "profile", typehelpers.SafeString(s.connection.Profile))
	return client, nil
}

// bucketAndKey splits a <scheme>://bucket/key url
func bucketAndKey(u *url.URL) (string, string, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", errors.New("bucket is required")
	}
	if key == "" {
		return "", "", errors.New("object key is required")
	}
	return bucket, key, nil
}
