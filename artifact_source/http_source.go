package artifact_source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/plerkle-io/snapshot-geyser/constants"
)

func init() {
	Factory.RegisterArtifactSource(NewHttpSource, "http", "https")
}

const HttpSourceIdentifier = "http"

// HttpSource is a [Source] implementation that streams a snapshot over http(s)
type HttpSource struct {
	client *http.Client
}

func NewHttpSource(opts *Options) (Source, error) {
	if err := opts.Http.Validate(); err != nil {
		return nil, fmt.Errorf("invalid http config: %w", err)
	}
	return &HttpSource{client: opts.Http.NewClient()}, nil
}

func (s *HttpSource) Identifier() string {
	return HttpSourceIdentifier
}

func (s *HttpSource) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constants.AppName)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	slog.Debug("http download started", "status", resp.StatusCode, "content_length", resp.ContentLength)
	return resp.Body, nil
}
