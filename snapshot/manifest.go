package snapshot

import (
	"encoding/binary"
	"fmt"
	"path"
	"strconv"

	bin "github.com/gagliardetto/binary"
)

const (
	snapshotsDirName = "snapshots"

	// bank manifests of mainnet snapshots are a few hundred MiB at most
	maxManifestLength = 1 << 31

	hashLength   = 32
	pubkeyLength = 32
)

// Manifest is the part of a bank snapshot manifest needed to read the append-vecs of an archive
type Manifest struct {
	// Slot is the slot of the snapshotted bank
	Slot uint64
	// Storages maps slot and append-vec id to the number of live bytes of that append-vec
	Storages map[uint64]map[uint64]uint64
}

// LiveLength returns the number of bytes of append-vec <slot>.<id> holding records,
// and false if the manifest does not list that append-vec
func (m *Manifest) LiveLength(slot, id uint64) (uint64, bool) {
	n, ok := m.Storages[slot][id]
	return n, ok
}

// AppendVecCount returns the number of append-vecs the manifest lists
func (m *Manifest) AppendVecCount() int {
	var count int
	for _, ids := range m.Storages {
		count += len(ids)
	}
	return count
}

// DecodeManifest decodes the bincode serialized bank and accounts db fields of a snapshot manifest.
// Bank fields are skipped, only the bank slot and the append-vec storage list are kept
func DecodeManifest(data []byte) (*Manifest, error) {
	d := manifestDecoder{bin.NewBinDecoder(data)}

	slot, err := d.bankSlot()
	if err != nil {
		return nil, fmt.Errorf("error decoding bank fields: %w", err)
	}
	storages, err := d.storages()
	if err != nil {
		return nil, fmt.Errorf("error decoding account storages: %w", err)
	}
	return &Manifest{Slot: slot, Storages: storages}, nil
}

// parseManifestName parses an entry name of the form snapshots/<slot>/<slot>
func parseManifestName(name string) (uint64, bool) {
	dir, file := path.Split(name)
	parent, slotDir := path.Split(path.Clean(dir))
	if parent != snapshotsDirName+"/" || slotDir != file {
		return 0, false
	}
	slot, err := strconv.ParseUint(file, 10, 64)
	if err != nil {
		return 0, false
	}
	return slot, true
}

type manifestDecoder struct {
	*bin.Decoder
}

func (d manifestDecoder) u64() (uint64, error) {
	return d.ReadUint64(binary.LittleEndian)
}

func (d manifestDecoder) skip(n int) error {
	return d.SkipBytes(uint(n))
}

// length reads a collection length, rejecting lengths the remaining input cannot hold
func (d manifestDecoder) length(minElemSize int) (int, error) {
	n, err := d.u64()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && n > uint64(d.Remaining()/minElemSize) {
		return 0, fmt.Errorf("collection of %d elements exceeds the remaining %d bytes", n, d.Remaining())
	}
	return int(n), nil
}

// skipSlice skips a collection of fixed size elements
func (d manifestDecoder) skipSlice(elemSize int) error {
	n, err := d.length(elemSize)
	if err != nil {
		return err
	}
	return d.skip(n * elemSize)
}

func (d manifestDecoder) skipOption(size int) error {
	some, err := d.ReadOption()
	if err != nil || !some {
		return err
	}
	return d.skip(size)
}

// bankSlot walks the versioned bank fields and returns the bank slot
func (d manifestDecoder) bankSlot() (uint64, error) {
	if err := d.skipBlockhashQueue(); err != nil {
		return 0, fmt.Errorf("blockhash queue: %w", err)
	}
	// ancestors
	if err := d.skipSlice(8 + 8); err != nil {
		return 0, fmt.Errorf("ancestors: %w", err)
	}
	// hash, parent hash, parent slot
	if err := d.skip(hashLength + hashLength + 8); err != nil {
		return 0, err
	}
	// hard forks
	if err := d.skipSlice(8 + 8); err != nil {
		return 0, fmt.Errorf("hard forks: %w", err)
	}
	// transaction count, tick height, signature count, capitalization, max tick height
	if err := d.skip(5 * 8); err != nil {
		return 0, err
	}
	// hashes per tick
	if err := d.skipOption(8); err != nil {
		return 0, err
	}
	// ticks per slot, ns per slot (u128), genesis creation time, slots per year, accounts data len
	if err := d.skip(8 + 16 + 8 + 8 + 8); err != nil {
		return 0, err
	}
	slot, err := d.u64()
	if err != nil {
		return 0, err
	}
	// epoch, block height, collector id, collector fees, fee calculator
	if err := d.skip(8 + 8 + pubkeyLength + 8 + 8); err != nil {
		return 0, err
	}
	// fee rate governor, collected rent
	if err := d.skip(4*8 + 1 + 8); err != nil {
		return 0, err
	}
	// rent collector: epoch, epoch schedule, slots per year, rent
	if err := d.skip(8 + epochScheduleSize + 8 + rentSize); err != nil {
		return 0, err
	}
	// epoch schedule, inflation
	if err := d.skip(epochScheduleSize + 6*8); err != nil {
		return 0, err
	}
	if err := d.skipStakes(); err != nil {
		return 0, fmt.Errorf("stakes: %w", err)
	}
	// unused accounts: two pubkey sets and a pubkey to u64 map
	for _, size := range []int{pubkeyLength, pubkeyLength, pubkeyLength + 8} {
		if err := d.skipSlice(size); err != nil {
			return 0, fmt.Errorf("unused accounts: %w", err)
		}
	}
	if err := d.skipEpochStakes(); err != nil {
		return 0, fmt.Errorf("epoch stakes: %w", err)
	}
	// is delta
	if _, err := d.ReadBool(); err != nil {
		return 0, err
	}
	return slot, nil
}

const (
	// slots per epoch, leader schedule slot offset, warmup, first normal epoch, first normal slot
	epochScheduleSize = 8 + 8 + 1 + 8 + 8
	// lamports per byte year, exemption threshold, burn percent
	rentSize = 8 + 8 + 1
	// voter pubkey, stake, activation epoch, deactivation epoch, warmup cooldown rate
	delegationSize = pubkeyLength + 4*8
	// epoch, effective, activating, deactivating
	stakeHistoryEntrySize = 4 * 8
)

func (d manifestDecoder) skipBlockhashQueue() error {
	// last hash index
	if err := d.skip(8); err != nil {
		return err
	}
	if err := d.skipOption(hashLength); err != nil {
		return err
	}
	// ages: hash to fee calculator, hash index, timestamp
	if err := d.skipSlice(hashLength + 3*8); err != nil {
		return err
	}
	// max age
	return d.skip(8)
}

func (d manifestDecoder) skipStakes() error {
	// vote accounts: pubkey to (stake, account)
	n, err := d.length(pubkeyLength + 8)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		// pubkey, stake, lamports
		if err := d.skip(pubkeyLength + 8 + 8); err != nil {
			return err
		}
		// account data
		if err := d.skipSlice(1); err != nil {
			return err
		}
		// owner, executable, rent epoch
		if err := d.skip(pubkeyLength + 1 + 8); err != nil {
			return err
		}
	}
	// stake delegations
	if err := d.skipSlice(pubkeyLength + delegationSize); err != nil {
		return err
	}
	// unused, epoch
	if err := d.skip(8 + 8); err != nil {
		return err
	}
	return d.skipSlice(stakeHistoryEntrySize)
}

func (d manifestDecoder) skipEpochStakes() error {
	n, err := d.length(8)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		// epoch
		if err := d.skip(8); err != nil {
			return err
		}
		if err := d.skipStakes(); err != nil {
			return err
		}
		// total stake
		if err := d.skip(8); err != nil {
			return err
		}
		// node id to vote accounts
		nodes, err := d.length(pubkeyLength)
		if err != nil {
			return err
		}
		for j := 0; j < nodes; j++ {
			if err := d.skip(pubkeyLength); err != nil {
				return err
			}
			if err := d.skipSlice(pubkeyLength); err != nil {
				return err
			}
			// total stake
			if err := d.skip(8); err != nil {
				return err
			}
		}
		// epoch authorized voters
		if err := d.skipSlice(pubkeyLength + pubkeyLength); err != nil {
			return err
		}
	}
	return nil
}

// storages reads the slot to append-vec list map that opens the accounts db fields
func (d manifestDecoder) storages() (map[uint64]map[uint64]uint64, error) {
	slots, err := d.length(8 + 8)
	if err != nil {
		return nil, err
	}
	res := make(map[uint64]map[uint64]uint64, slots)
	for i := 0; i < slots; i++ {
		slot, err := d.u64()
		if err != nil {
			return nil, err
		}
		entries, err := d.length(8 + 8)
		if err != nil {
			return nil, err
		}
		ids := make(map[uint64]uint64, entries)
		for j := 0; j < entries; j++ {
			id, err := d.u64()
			if err != nil {
				return nil, err
			}
			currentLen, err := d.u64()
			if err != nil {
				return nil, err
			}
			ids[id] = currentLen
		}
		res[slot] = ids
	}
	return res, nil
}
