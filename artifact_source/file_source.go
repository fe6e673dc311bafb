package artifact_source

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"

	"github.com/mitchellh/go-homedir"
)

func init() {
	Factory.RegisterArtifactSource(NewFileSource, FileScheme)
}

const (
	FileSourceIdentifier = "file"
	FileScheme           = "file"
)

// FileSource is a [Source] implementation that reads a snapshot from the local file system
type FileSource struct{}

func NewFileSource(*Options) (Source, error) {
	return &FileSource{}, nil
}

func (s *FileSource) Identifier() string {
	return FileSourceIdentifier
}

func (s *FileSource) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	path := u.Path
	if path == "" {
		return nil, errors.New("no file path given")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}
