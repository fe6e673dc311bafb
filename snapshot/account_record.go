package snapshot

import (
	"github.com/gagliardetto/solana-go"
)

// AccountRecord is the state of one account as stored in a snapshot append-vec
type AccountRecord struct {
	// Slot is the slot of the append-vec the record was read from
	Slot         uint64
	WriteVersion uint64
	Pubkey       solana.PublicKey
	Owner        solana.PublicKey
	Lamports     uint64
	RentEpoch    uint64
	Executable   bool
	// DataLen is the data length declared in the stored header
	DataLen uint64
	Data    []byte
}

// Extractor yields the account records of a snapshot one at a time
type Extractor interface {
	// Next returns the next record, or io.EOF once the snapshot is exhausted.
	// Any other error is terminal
	Next() (*AccountRecord, error)
}
