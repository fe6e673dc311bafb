package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
)

const (
	// StoredMeta: write_version u64, data_len u64, pubkey [32]
	storedMetaSize = 48
	// AccountMeta: lamports u64, rent_epoch u64, owner [32], executable u8, 7 bytes padding
	accountMetaSize = 56
	hashSize        = 32
	headerSize      = storedMetaSize + accountMetaSize + hashSize

	// records are aligned to 8 bytes within an append-vec
	alignment = 8

	// MaxPermittedDataLength is the largest account data size a validator allows
	MaxPermittedDataLength = 10 * 1024 * 1024

	appendVecBufferSize = 1 << 20
)

// AppendVecReader decodes the account records of a single append-vec file
type AppendVecReader struct {
	r    *bufio.Reader
	slot uint64
	id   uint64
	// bytes consumed so far, used in error messages
	offset uint64
	done   bool
}

// NewAppendVecReader reads records from r until its end or the zero filled tail of the append-vec
func NewAppendVecReader(r io.Reader, slot, id uint64) *AppendVecReader {
	return newAppendVecReader(bufio.NewReaderSize(r, appendVecBufferSize), slot, id)
}

func newAppendVecReader(r *bufio.Reader, slot, id uint64) *AppendVecReader {
	return &AppendVecReader{
		r:    r,
		slot: slot,
		id:   id,
	}
}

// Next returns the next account record in the append-vec, or io.EOF when there are no more
func (a *AppendVecReader) Next() (*AccountRecord, error) {
	if a.done {
		return nil, io.EOF
	}

	var header [headerSize]byte
	n, err := io.ReadFull(a.r, header[:])
	switch {
	case errors.Is(err, io.EOF):
		a.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// a short zeroed tail is unused space, anything else is a cut off record
		if isZero(header[:n]) {
			a.done = true
			return nil, io.EOF
		}
		return nil, fmt.Errorf("truncated account header at offset %d", a.offset)
	case err != nil:
		return nil, fmt.Errorf("error reading account header at offset %d: %w", a.offset, err)
	}

	// the unused tail of a pre-allocated append-vec is zero filled
	if isZero(header[:]) {
		a.done = true
		return nil, io.EOF
	}

	rec := &AccountRecord{
		Slot:         a.slot,
		WriteVersion: binary.LittleEndian.Uint64(header[0:8]),
		DataLen:      binary.LittleEndian.Uint64(header[8:16]),
		Pubkey:       solana.PublicKeyFromBytes(header[16:48]),
		Lamports:     binary.LittleEndian.Uint64(header[48:56]),
		RentEpoch:    binary.LittleEndian.Uint64(header[56:64]),
		Owner:        solana.PublicKeyFromBytes(header[64:96]),
	}
	switch header[96] {
	case 0:
	case 1:
		rec.Executable = true
	default:
		return nil, fmt.Errorf("invalid executable flag %d for account %s at offset %d", header[96], rec.Pubkey, a.offset)
	}

	if rec.DataLen > MaxPermittedDataLength {
		return nil, fmt.Errorf("account %s at offset %d declares %d bytes of data, more than the permitted %d", rec.Pubkey, a.offset, rec.DataLen, MaxPermittedDataLength)
	}
	rec.Data = make([]byte, rec.DataLen)
	if _, err := io.ReadFull(a.r, rec.Data); err != nil {
		return nil, fmt.Errorf("truncated data for account %s at offset %d: %w", rec.Pubkey, a.offset, err)
	}

	stored := uint64(headerSize) + rec.DataLen
	padding := alignUp(stored) - stored
	if padding > 0 {
		// the final record of a file may omit its padding
		if _, err := a.r.Discard(int(padding)); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error skipping padding at offset %d: %w", a.offset+stored, err)
		}
	}
	a.offset += stored + padding

	return rec, nil
}

func alignUp(n uint64) uint64 {
	return (n + alignment - 1) &^ (alignment - 1)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
