package artifact_loader

import (
	"io"
)

// Loader is an interface which provides a method for decompressing a snapshot archive stream
// Loaders provided: [ZstdLoader], [GzipLoader], [Bzip2Loader], [NullLoader]
type Loader interface {
	Identifier() string
	// Matches reports whether a stream starting with header is in this loader's format
	Matches(header []byte) bool
	// Load wraps the compressed stream in a reader returning the decompressed bytes
	Load(io.Reader) (io.ReadCloser, error)
}
