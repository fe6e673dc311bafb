package artifact_loader

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

const GzipLoaderIdentifier = "gzip_loader"

var gzipMagic = []byte{0x1f, 0x8b}

func init() {
	// register loader
	Factory.RegisterArtifactLoaders(NewGzipLoader)
}

// GzipLoader is a Loader that decompresses a gzip stream
type GzipLoader struct {
}

func NewGzipLoader() Loader {
	return &GzipLoader{}
}

func (g GzipLoader) Identifier() string {
	return GzipLoaderIdentifier
}

func (g GzipLoader) Matches(header []byte) bool {
	return bytes.HasPrefix(header, gzipMagic)
}

// Load implements [Loader]
func (g GzipLoader) Load(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
