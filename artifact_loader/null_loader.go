package artifact_loader

import (
	"io"
)

const NullLoaderIdentifier = "null_loader"

// NullLoader is a Loader for uncompressed streams - it returns the stream unchanged
// it is used when no other loader recognises the stream header
type NullLoader struct {
}

func NewNullLoader() Loader {
	return &NullLoader{}
}

func (g NullLoader) Identifier() string {
	return NullLoaderIdentifier
}

func (g NullLoader) Matches(_ []byte) bool {
	return true
}

// Load implements [Loader]
func (g NullLoader) Load(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}
