package artifact_source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/plerkle-io/snapshot-geyser/error_types"
)

// Factory is a global ArtifactSourceFactory instance
var Factory = newFactory()

// SourceCtor builds a source from the connection options
type SourceCtor func(*Options) (Source, error)

type ArtifactSourceFactory struct {
	// constructors keyed by url scheme
	artifactSources map[string]SourceCtor
}

func newFactory() ArtifactSourceFactory {
	return ArtifactSourceFactory{
		artifactSources: make(map[string]SourceCtor),
	}
}

// RegisterArtifactSource registers ctor for each of schemes
func (b *ArtifactSourceFactory) RegisterArtifactSource(ctor SourceCtor, schemes ...string) {
	for _, s := range schemes {
		b.artifactSources[strings.ToLower(s)] = ctor
	}
}

// SupportedSchemes returns the registered url schemes, sorted
func (b *ArtifactSourceFactory) SupportedSchemes() []string {
	schemes := maps.Keys(b.artifactSources)
	slices.Sort(schemes)
	return schemes
}

// ForURL parses rawURL and instantiates the source for its scheme. A url without a scheme is a local path
func (b *ArtifactSourceFactory) ForURL(rawURL string, opts ...Option) (Source, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid snapshot url '%s': %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = FileScheme
	}

	ctor, ok := b.artifactSources[scheme]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported url scheme '%s', supported schemes: %s", u.Scheme, strings.Join(b.SupportedSchemes(), ", "))
	}
	source, err := ctor(newOptions(opts...))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise %s source: %w", scheme, err)
	}
	return source, u, nil
}

// Open resolves the source for rawURL and opens it. All failures are DownloadErrors
func (b *ArtifactSourceFactory) Open(ctx context.Context, rawURL string, opts ...Option) (io.ReadCloser, error) {
	source, u, err := b.ForURL(rawURL, opts...)
	if err != nil {
		return nil, error_types.NewDownloadError("cannot fetch snapshot", err)
	}
	slog.Info("fetching snapshot", "source", source.Identifier(), "url", redactURL(u))

	body, err := source.Open(ctx, u)
	if err != nil {
		return nil, error_types.NewDownloadError(fmt.Sprintf("failed to fetch snapshot from %s", redactURL(u)), err)
	}
	return body, nil
}

// redactURL drops credentials and query parameters, which often hold signatures
func redactURL(u *url.URL) string {
	c := *u
	c.User = nil
	c.RawQuery = ""
	return c.String()
}
