package snapshot

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/plerkle-io/snapshot-geyser/snapshot/snapshottest"
)

// encodeAppendVec lays out records the way a validator stores them, including alignment padding
func encodeAppendVec(records ...*AccountRecord) []byte {
	accounts := make([]snapshottest.Account, len(records))
	for i, r := range records {
		accounts[i] = snapshottest.Account{
			WriteVersion: r.WriteVersion,
			Pubkey:       r.Pubkey,
			Owner:        r.Owner,
			Lamports:     r.Lamports,
			RentEpoch:    r.RentEpoch,
			Executable:   r.Executable,
			Data:         r.Data,
		}
	}
	return snapshottest.AppendVec(accounts...)
}

// appendVecEntry returns the archive entry accounts/<slot>.<id> and the manifest storage giving it all of data
func appendVecEntry(slot, id uint64, data []byte) (snapshottest.Entry, snapshottest.Storage) {
	return snapshottest.Entry{Name: fmt.Sprintf("accounts/%d.%d", slot, id), Data: data},
		snapshottest.Storage{Slot: slot, ID: id, CurrentLen: uint64(len(data))}
}

func buildTar(t *testing.T, entries ...snapshottest.Entry) []byte {
	t.Helper()
	res, err := snapshottest.Tar(entries...)
	require.NoError(t, err)
	return res
}

func zstdCompress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func pubkey(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func testRecord(slot uint64, key byte, lamports uint64, data []byte) *AccountRecord {
	return &AccountRecord{
		Slot:         slot,
		WriteVersion: uint64(key) * 100,
		Pubkey:       pubkey(key),
		Owner:        solana.TokenProgramID,
		Lamports:     lamports,
		RentEpoch:    361,
		DataLen:      uint64(len(data)),
		Data:         data,
	}
}
