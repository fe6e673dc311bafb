package artifact_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"cloud.google.com/go/storage"
)

func init() {
	Factory.RegisterArtifactSource(NewGcpStorageBucketSource, "gs")
}

const GcpStorageBucketSourceIdentifier = "gcp_storage_bucket"

// GcpStorageBucketSource is a [Source] implementation that streams a snapshot from gs://bucket/object
type GcpStorageBucketSource struct {
	connection *GcpConnection
}

func NewGcpStorageBucketSource(opts *Options) (Source, error) {
	if err := opts.Gcp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gcp config: %w", err)
	}
	return &GcpStorageBucketSource{connection: opts.Gcp}, nil
}

func (s *GcpStorageBucketSource) Identifier() string {
	return GcpStorageBucketSourceIdentifier
}

func (s *GcpStorageBucketSource) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket, object, err := bucketAndKey(u)
	if err != nil {
		return nil, err
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	slog.Debug("gcs download started", "bucket", bucket, "object", object, "size", r.Attrs.Size)
	return &gcsObjectReader{Reader: r, client: client}, nil
}

func (s *GcpStorageBucketSource) getClient(ctx context.Context) (*storage.Client, error) {
	opts, err := s.connection.GetClientOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed setting GCP Storage client config: %w", err)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Storage client: %w", err)
	}
	return client, nil
}

// gcsObjectReader closes the storage client along with the object reader
type gcsObjectReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsObjectReader) Close() error {
	return errors.Join(r.Reader.Close(), r.client.Close())
}
