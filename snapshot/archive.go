package snapshot

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/plerkle-io/snapshot-geyser/artifact_loader"
)

const (
	// SnapshotVersion is the only snapshot archive version understood by the extractor
	SnapshotVersion = "1.2.0"

	versionFileName  = "version"
	accountsDirName  = "accounts"
	maxVersionLength = 64
)

// ArchiveExtractor reads account records from a validator snapshot archive stream.
// The archive is a tar file, optionally compressed with zstd, gzip or bzip2.
// Entries are read strictly in order, nothing is buffered beyond the record being decoded.
// Each append-vec is read up to the live length the bank manifest gives it; append-vecs
// the manifest does not list are skipped
type ArchiveExtractor struct {
	archive io.ReadCloser
	tr      *tar.Reader
	// identifier of the loader used to decompress the stream
	Format string

	// shared by every append-vec of the archive
	buf         *bufio.Reader
	current     *AppendVecReader
	currentName string
	versionSeen bool
	manifest    *Manifest
	appendVecs  int
	skipped     int
}

// NewArchiveExtractor detects the compression of r and prepares to read its tar entries
func NewArchiveExtractor(r io.Reader) (*ArchiveExtractor, error) {
	archive, format, err := artifact_loader.Factory.Open(r)
	if err != nil {
		return nil, err
	}
	return &ArchiveExtractor{
		archive: archive,
		tr:      tar.NewReader(archive),
		Format:  format,
		buf:     bufio.NewReaderSize(nil, appendVecBufferSize),
	}, nil
}

// Next implements [Extractor]
func (e *ArchiveExtractor) Next() (*AccountRecord, error) {
	for {
		if e.current != nil {
			rec, err := e.current.Next()
			if err == nil {
				return rec, nil
			}
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("append-vec %s: %w", e.currentName, err)
			}
			e.current = nil
		}

		hdr, err := e.tr.Next()
		if errors.Is(err, io.EOF) {
			if !e.versionSeen {
				return nil, errors.New("archive does not contain a version file")
			}
			if e.manifest == nil {
				return nil, errors.New("archive does not contain a snapshot manifest")
			}
			slog.Debug("snapshot archive exhausted", "append_vecs", e.appendVecs, "skipped", e.skipped)
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("error reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := strings.TrimPrefix(path.Clean(hdr.Name), "./")
		if name == versionFileName {
			if err := e.readVersion(); err != nil {
				return nil, err
			}
			continue
		}

		if manifestSlot, ok := parseManifestName(name); ok {
			if err := e.readManifest(name, manifestSlot); err != nil {
				return nil, err
			}
			continue
		}

		slot, id, ok := parseAppendVecName(name)
		if !ok {
			slog.Debug("skipping archive entry", "name", name)
			continue
		}
		if !e.versionSeen {
			return nil, fmt.Errorf("append-vec %s precedes the version file", name)
		}
		if e.manifest == nil {
			return nil, fmt.Errorf("append-vec %s precedes the snapshot manifest", name)
		}
		liveLen, listed := e.manifest.LiveLength(slot, id)
		if !listed {
			slog.Debug("skipping append-vec not listed in the manifest", "name", name)
			e.skipped++
			continue
		}
		if liveLen > uint64(hdr.Size) {
			return nil, fmt.Errorf("append-vec %s holds %d bytes, the manifest gives it %d live bytes", name, hdr.Size, liveLen)
		}
		e.buf.Reset(io.LimitReader(e.tr, int64(liveLen)))
		e.current = newAppendVecReader(e.buf, slot, id)
		e.currentName = name
		e.appendVecs++
	}
}

// Close releases the decompressor
func (e *ArchiveExtractor) Close() error {
	return e.archive.Close()
}

func (e *ArchiveExtractor) readVersion() error {
	raw, err := io.ReadAll(io.LimitReader(e.tr, maxVersionLength))
	if err != nil {
		return fmt.Errorf("error reading version file: %w", err)
	}
	version := strings.TrimSpace(string(raw))
	if version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version '%s', expected '%s'", version, SnapshotVersion)
	}
	e.versionSeen = true
	return nil
}

func (e *ArchiveExtractor) readManifest(name string, slot uint64) error {
	if e.manifest != nil {
		return fmt.Errorf("archive contains more than one snapshot manifest, found %s", name)
	}
	raw, err := io.ReadAll(io.LimitReader(e.tr, maxManifestLength))
	if err != nil {
		return fmt.Errorf("error reading snapshot manifest %s: %w", name, err)
	}
	manifest, err := DecodeManifest(raw)
	if err != nil {
		return fmt.Errorf("invalid snapshot manifest %s: %w", name, err)
	}
	if manifest.Slot != slot {
		return fmt.Errorf("snapshot manifest %s describes bank slot %d", name, manifest.Slot)
	}
	slog.Debug("read snapshot manifest", "slot", slot, "append_vecs", manifest.AppendVecCount())
	e.manifest = manifest
	return nil
}

// parseAppendVecName parses an entry name of the form accounts/<slot>.<id>
func parseAppendVecName(name string) (slot uint64, id uint64, ok bool) {
	dir, file := path.Split(name)
	if dir != accountsDirName+"/" {
		return 0, 0, false
	}
	slotStr, idStr, found := strings.Cut(file, ".")
	if !found {
		return 0, 0, false
	}
	slot, err := strconv.ParseUint(slotStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	id, err = strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return slot, id, true
}
