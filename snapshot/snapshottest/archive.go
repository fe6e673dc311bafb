// Package snapshottest builds snapshot archives for tests of extractors and replays
package snapshottest

import (
	"archive/tar"
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// SnapshotVersion is the version file content of the archives built here
const SnapshotVersion = "1.2.0"

// Account is one stored account of an append-vec
type Account struct {
	WriteVersion uint64
	Pubkey       solana.PublicKey
	Owner        solana.PublicKey
	Lamports     uint64
	RentEpoch    uint64
	Executable   bool
	Data         []byte
}

// Storage is one entry of the manifest storage list
type Storage struct {
	Slot       uint64
	ID         uint64
	CurrentLen uint64
}

// Entry is one regular file of an archive
type Entry struct {
	Name string
	Data []byte
}

// AppendVec lays out accounts the way a validator stores them, including alignment padding
func AppendVec(accounts ...Account) []byte {
	var buf bytes.Buffer
	for _, a := range accounts {
		var header [136]byte
		binary.LittleEndian.PutUint64(header[0:8], a.WriteVersion)
		binary.LittleEndian.PutUint64(header[8:16], uint64(len(a.Data)))
		copy(header[16:48], a.Pubkey[:])
		binary.LittleEndian.PutUint64(header[48:56], a.Lamports)
		binary.LittleEndian.PutUint64(header[56:64], a.RentEpoch)
		copy(header[64:96], a.Owner[:])
		if a.Executable {
			header[96] = 1
		}
		buf.Write(header[:])
		buf.Write(a.Data)
		stored := len(header) + len(a.Data)
		buf.Write(make([]byte, (stored+7)&^7-stored))
	}
	return buf.Bytes()
}

// Version returns the version file entry
func Version() Entry {
	return Entry{Name: "version", Data: []byte(SnapshotVersion)}
}

// ManifestEntry returns the snapshots/<slot>/<slot> entry of a bank at slot listing storages
func ManifestEntry(slot uint64, storages ...Storage) Entry {
	return Entry{Name: manifestName(slot), Data: Manifest(slot, storages...)}
}

// Tar writes entries into an uncompressed tar archive
func Tar(entries ...Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		if err := tw.WriteHeader(&tar.Header{
			Name:     e.Name,
			Mode:     0644,
			Size:     int64(len(e.Data)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			return nil, err
		}
		if _, err := tw.Write(e.Data); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
