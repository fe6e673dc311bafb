package replay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/snapshot"
)

// PluginHandle is a loaded plugin owned by a Dumper. *loader.Handle implements it
type PluginHandle interface {
	geyser.Plugin
	RequireAccountNotifications() error
	PayloadLimit() (int, bool)
	Release()
}

// Dumper forwards decoded account records to a plugin, one UpdateAccount call per record
type Dumper struct {
	handle PluginHandle

	limit   int
	limited bool

	// number of records forwarded so far, the position of the next record
	forwarded uint64

	closeOnce sync.Once
	closed    bool
}

func NewDumper(handle PluginHandle) *Dumper {
	d := &Dumper{handle: handle}
	d.limit, d.limited = handle.PayloadLimit()
	return d
}

// Forward builds the notification payload for record and delivers it. The payload aliases the record bytes
func (d *Dumper) Forward(record *snapshot.AccountRecord) error {
	if d.closed {
		return errors.New("dumper is closed")
	}

	if uint64(len(record.Data)) != record.DataLen {
		return error_types.NewTranslationError(d.recordContext(record),
			fmt.Sprintf("record declares %d bytes of data but holds %d", record.DataLen, len(record.Data)))
	}
	if d.limited && len(record.Data) > d.limit {
		return error_types.NewTranslationError(d.recordContext(record),
			fmt.Sprintf("account data of %d bytes exceeds the plugin payload limit of %d bytes", len(record.Data), d.limit))
	}

	info := geyser.ReplicaAccountInfo{
		Pubkey:       record.Pubkey[:],
		Lamports:     record.Lamports,
		Owner:        record.Owner[:],
		Executable:   record.Executable,
		RentEpoch:    record.RentEpoch,
		Data:         record.Data,
		WriteVersion: record.WriteVersion,
	}
	if err := d.handle.UpdateAccount(info, record.Slot, true); err != nil {
		return error_types.NewPluginNotificationError(d.recordContext(record), err)
	}
	d.forwarded++
	return nil
}

// Finish tells the plugin the whole snapshot has been delivered
func (d *Dumper) Finish() error {
	if d.closed {
		return errors.New("dumper is closed")
	}
	if err := d.handle.NotifyEndOfStartup(); err != nil {
		return error_types.NewPluginNotificationError(nil, fmt.Errorf("end of startup: %w", err))
	}
	return nil
}

// Forwarded returns the number of records delivered
func (d *Dumper) Forwarded() uint64 {
	return d.forwarded
}

// Close releases the plugin. It is safe to call more than once
func (d *Dumper) Close() error {
	d.closeOnce.Do(func() {
		d.closed = true
		d.handle.Release()
	})
	return nil
}

func (d *Dumper) recordContext(record *snapshot.AccountRecord) *error_types.RecordContext {
	return &error_types.RecordContext{
		Position:     d.forwarded,
		Slot:         record.Slot,
		Pubkey:       record.Pubkey.String(),
		WriteVersion: record.WriteVersion,
	}
}
