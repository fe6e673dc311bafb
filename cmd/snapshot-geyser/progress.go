package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/plerkle-io/snapshot-geyser/events"
)

// progressPrinter reports the progress of a pass to the operator
type progressPrinter struct {
	w       io.Writer
	started time.Time
	now     func() time.Time
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, now: time.Now}
}

func (p *progressPrinter) Notify(e events.Event) error {
	var err error
	switch e := e.(type) {
	case *events.Started:
		p.started = p.now()
		_, err = fmt.Fprintf(p.w, "Replaying %s into plugin %s\n", e.SnapshotURL, e.Plugin)
	case *events.Status:
		_, err = fmt.Fprintf(p.w, "%s accounts replayed, slot %d, %s downloaded\n",
			humanize.Comma(int64(e.Records)), e.Slot, humanize.Bytes(uint64(e.BytesRead)))
	case *events.Complete:
		if e.Err != nil || p.started.IsZero() {
			return nil
		}
		_, err = fmt.Fprintf(p.w, "%s accounts replayed, %s downloaded in %s\n",
			humanize.Comma(int64(e.Records)), humanize.Bytes(uint64(e.BytesRead)),
			p.now().Sub(p.started).Round(time.Second))
	}
	return err
}
