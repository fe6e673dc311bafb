package artifact_loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// the number of bytes inspected to detect the compression format
const headerLength = 4

// Factory is a global ArtifactLoaderFactory instance
var Factory = newArtifactLoaderFactory()

type ArtifactLoaderFactory struct {
	artifactLoaders map[string]func() Loader
	// identifiers in registration order, which is also the detection order
	order []string
	// used when no registered loader matches
	fallback func() Loader
}

func newArtifactLoaderFactory() ArtifactLoaderFactory {
	return ArtifactLoaderFactory{
		artifactLoaders: make(map[string]func() Loader),
		fallback:        NewNullLoader,
	}
}

func (b *ArtifactLoaderFactory) RegisterArtifactLoaders(loaderFuncs ...func() Loader) {
	for _, ctor := range loaderFuncs {
		// create an instance of the loader to get the identifier
		c := ctor()
		if _, exists := b.artifactLoaders[c.Identifier()]; !exists {
			b.order = append(b.order, c.Identifier())
		}
		// register the loader
		b.artifactLoaders[c.Identifier()] = ctor
	}
}

// GetLoader returns the loader registered with the given identifier
func (b *ArtifactLoaderFactory) GetLoader(identifier string) (Loader, error) {
	ctor, ok := b.artifactLoaders[identifier]
	if !ok {
		return nil, fmt.Errorf("loader not registered: %s", identifier)
	}
	return ctor(), nil
}

// Open inspects the start of r to detect its compression format
// and returns a reader over the decompressed stream, along with the identifier of the loader used
func (b *ArtifactLoaderFactory) Open(r io.Reader) (io.ReadCloser, string, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(headerLength)
	// a stream shorter than the header can still be handed to the fallback loader
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("error reading archive header: %w", err)
	}

	loader := b.fallback()
	for _, id := range b.order {
		l := b.artifactLoaders[id]()
		if l.Matches(header) {
			loader = l
			break
		}
	}
	slog.Debug("detected archive format", "loader", loader.Identifier())

	rc, err := loader.Load(br)
	if err != nil {
		return nil, "", fmt.Errorf("error opening %s stream: %w", loader.Identifier(), err)
	}
	return rc, loader.Identifier(), nil
}
