package artifact_loader

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

const ZstdLoaderIdentifier = "zstd_loader"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func init() {
	// register loader
	Factory.RegisterArtifactLoaders(NewZstdLoader)
}

// ZstdLoader is a Loader that decompresses a zstd stream, the format of current validator snapshots
type ZstdLoader struct {
}

func NewZstdLoader() Loader {
	return &ZstdLoader{}
}

func (z ZstdLoader) Identifier() string {
	return ZstdLoaderIdentifier
}

func (z ZstdLoader) Matches(header []byte) bool {
	return bytes.HasPrefix(header, zstdMagic)
}

// Load implements [Loader]
func (z ZstdLoader) Load(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}
