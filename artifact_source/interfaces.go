package artifact_source

import (
	"context"
	"io"
	"net/url"
)

// Source opens a remote snapshot archive as a byte stream.
// Sources provided: [HttpSource], [AwsS3BucketSource], [GcpStorageBucketSource], [FileSource]
type Source interface {
	Identifier() string

	// Open starts the download of u. The caller must close the returned body
	Open(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}
