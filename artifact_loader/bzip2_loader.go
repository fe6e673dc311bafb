package artifact_loader

import (
	"bytes"
	"compress/bzip2"
	"io"
)

const Bzip2LoaderIdentifier = "bzip2_loader"

var bzip2Magic = []byte("BZh")

func init() {
	// register loader
	Factory.RegisterArtifactLoaders(NewBzip2Loader)
}

// Bzip2Loader is a Loader that decompresses a bzip2 stream, the format of older validator snapshots
type Bzip2Loader struct {
}

func NewBzip2Loader() Loader {
	return &Bzip2Loader{}
}

func (b Bzip2Loader) Identifier() string {
	return Bzip2LoaderIdentifier
}

func (b Bzip2Loader) Matches(header []byte) bool {
	return bytes.HasPrefix(header, bzip2Magic)
}

// Load implements [Loader]
func (b Bzip2Loader) Load(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}
