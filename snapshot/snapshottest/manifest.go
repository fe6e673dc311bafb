package snapshottest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

func manifestName(slot uint64) string {
	s := strconv.FormatUint(slot, 10)
	return "snapshots/" + s + "/" + s
}

type manifestWriter struct {
	bytes.Buffer
}

func (w *manifestWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func (w *manifestWriter) f64(v float64) {
	w.u64(math.Float64bits(v))
}

func (w *manifestWriter) u8(v byte) {
	w.WriteByte(v)
}

func (w *manifestWriter) key(b byte) {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	w.Write(k[:])
}

func (w *manifestWriter) epochSchedule() {
	w.u64(432000)
	w.u64(432000)
	w.u8(0)
	w.u64(0)
	w.u64(0)
}

// stakes writes one vote account with data, one delegation and one stake history entry
func (w *manifestWriter) stakes() {
	w.u64(1)
	w.key(0xa1)
	w.u64(5000)
	// vote account: lamports, data, owner, executable, rent epoch
	w.u64(27074400)
	w.u64(3)
	w.Write([]byte{1, 2, 3})
	w.Write(solana.VoteProgramID[:])
	w.u8(0)
	w.u64(361)
	// stake delegations
	w.u64(1)
	w.key(0xb1)
	w.key(0xa1)
	w.u64(5000)
	w.u64(10)
	w.u64(math.MaxUint64)
	w.f64(0.25)
	// unused, epoch
	w.u64(0)
	w.u64(500)
	// stake history
	w.u64(1)
	w.u64(499)
	w.u64(5000)
	w.u64(0)
	w.u64(0)
}

// Manifest encodes a bank manifest at slot listing storages. Bank fields other than the slot
// hold arbitrary values, with at least one element in every variable length collection
func Manifest(slot uint64, storages ...Storage) []byte {
	var w manifestWriter

	// blockhash queue: last hash index, last hash, ages, max age
	w.u64(7)
	w.u8(1)
	w.key(0x01)
	w.u64(1)
	w.key(0x01)
	w.u64(5000)
	w.u64(7)
	w.u64(1700000000)
	w.u64(300)
	// ancestors
	w.u64(1)
	w.u64(slot)
	w.u64(0)
	// hash, parent hash, parent slot
	w.key(0x02)
	w.key(0x03)
	w.u64(slot - 1)
	// hard forks
	w.u64(1)
	w.u64(12)
	w.u64(1)
	// transaction count, tick height, signature count, capitalization, max tick height
	for i := 0; i < 5; i++ {
		w.u64(uint64(i))
	}
	// hashes per tick
	w.u8(1)
	w.u64(12500)
	// ticks per slot, ns per slot, genesis creation time, slots per year, accounts data len
	w.u64(64)
	w.u64(400_000_000)
	w.u64(0)
	w.u64(1584368940)
	w.f64(78892314.98)
	w.u64(0)
	w.u64(slot)
	// epoch, block height, collector id, collector fees, fee calculator
	w.u64(500)
	w.u64(slot - 10)
	w.key(0x04)
	w.u64(0)
	w.u64(5000)
	// fee rate governor, collected rent
	w.u64(10000)
	w.u64(20000)
	w.u64(5000)
	w.u64(100000)
	w.u8(50)
	w.u64(0)
	// rent collector
	w.u64(500)
	w.epochSchedule()
	w.f64(78892314.98)
	w.u64(3480)
	w.f64(2.0)
	w.u8(50)
	// epoch schedule
	w.epochSchedule()
	// inflation
	for _, f := range []float64{0.08, 0.015, 0.15, 0.05, 7.0, 0} {
		w.f64(f)
	}
	w.stakes()
	// unused accounts
	w.u64(1)
	w.key(0x05)
	w.u64(0)
	w.u64(1)
	w.key(0x06)
	w.u64(9)
	// epoch stakes
	w.u64(1)
	w.u64(500)
	w.stakes()
	w.u64(5000)
	w.u64(1)
	w.key(0x07)
	w.u64(1)
	w.key(0xa1)
	w.u64(5000)
	w.u64(1)
	w.key(0xa1)
	w.key(0x08)
	// is delta
	w.u8(0)

	// accounts db storages, grouped by slot in ascending order
	bySlot := map[uint64][]Storage{}
	var slots []uint64
	for _, s := range storages {
		if _, ok := bySlot[s.Slot]; !ok {
			slots = append(slots, s.Slot)
		}
		bySlot[s.Slot] = append(bySlot[s.Slot], s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	w.u64(uint64(len(slots)))
	for _, slot := range slots {
		w.u64(slot)
		w.u64(uint64(len(bySlot[slot])))
		for _, s := range bySlot[slot] {
			w.u64(s.ID)
			w.u64(s.CurrentLen)
		}
	}
	// write version, slot, bank hash info
	w.u64(1000)
	w.u64(slot)
	w.key(0x09)
	w.key(0x0a)
	for i := 0; i < 9; i++ {
		w.u64(0)
	}
	// historical roots, historical roots with hash
	w.u64(0)
	w.u64(0)

	return w.Bytes()
}
