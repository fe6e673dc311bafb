package replay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/plerkle-io/snapshot-geyser/artifact_source"
	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/events"
	"github.com/plerkle-io/snapshot-geyser/geyser"
	"github.com/plerkle-io/snapshot-geyser/geyser/geysertest"
	"github.com/plerkle-io/snapshot-geyser/loader"
	"github.com/plerkle-io/snapshot-geyser/observable"
	"github.com/plerkle-io/snapshot-geyser/rate_limiter"
	"github.com/plerkle-io/snapshot-geyser/snapshot"
	"github.com/plerkle-io/snapshot-geyser/snapshot/snapshottest"
)

// sliceExtractor yields records, then err (or io.EOF when err is nil)
type sliceExtractor struct {
	records []*snapshot.AccountRecord
	err     error
	pulls   int
	closed  bool
	onClose func()
}

func (s *sliceExtractor) Next() (*snapshot.AccountRecord, error) {
	s.pulls++
	if len(s.records) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, nil
}

func (s *sliceExtractor) Close() error {
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// harness wires a Replayer to a recording plugin, a fake download and a fake extractor
type harness struct {
	rec       *geysertest.Recorder
	extractor *sliceExtractor
	opens     int
	releases  int
	events    []events.Event
}

func newHarness(rec *geysertest.Recorder, extractor *sliceExtractor) *harness {
	return &harness{rec: rec, extractor: extractor}
}

func (h *harness) replayer(t require.TestingT, pluginConfig string) *Replayer {
	cfg := &Config{
		SnapshotURL:  "https://snapshots.example.com/snapshot-100-abc.tar.zst",
		PluginConfig: pluginConfig,
		LoadOptions: []loader.Option{loader.WithBackend(geyser.ProtocolNative,
			func(context.Context, *geyser.PluginConfig, *loader.LoadOptions) (geyser.Plugin, func(), error) {
				return h.rec, func() { h.releases++ }, nil
			})},
	}
	r, err := NewReplayer(cfg,
		WithSourceOpener(func(context.Context, string, ...artifact_source.Option) (io.ReadCloser, error) {
			h.opens++
			return io.NopCloser(strings.NewReader("")), nil
		}),
		WithExtractorFactory(func(io.Reader) (RecordExtractor, error) {
			return h.extractor, nil
		}))
	require.NoError(t, err)
	require.NoError(t, r.AddObserver(observable.ObserverFunc(func(e events.Event) error {
		h.events = append(h.events, e)
		return nil
	})))
	return r
}

func writePluginConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"libpath": "libdump.so"}`), 0600))
	return path
}

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func account(slot uint64, pubkey byte, lamports uint64, data []byte) *snapshot.AccountRecord {
	return &snapshot.AccountRecord{
		Slot:         slot,
		WriteVersion: slot*10 + uint64(pubkey),
		Pubkey:       key(pubkey),
		Owner:        solana.SystemProgramID,
		Lamports:     lamports,
		RentEpoch:    361,
		DataLen:      uint64(len(data)),
		Data:         data,
	}
}

func TestReplayer_CapabilityCheckedBeforeFetch(t *testing.T) {
	rec := geysertest.NewRecorder("transactions-only")
	rec.AccountData = false
	h := newHarness(rec, &sliceExtractor{records: []*snapshot.AccountRecord{account(1, 1, 10, nil)}})

	r := h.replayer(t, writePluginConfig(t))
	err := r.Run(context.Background())

	assert.Equal(t, error_types.KindPluginCapability, error_types.KindOf(err))
	assert.Equal(t, StateFailed, r.State())
	assert.Zero(t, h.opens)
	assert.Zero(t, h.extractor.pulls)
	assert.Zero(t, rec.UpdateCalls())
	assert.Zero(t, rec.EndOfStartupCalls())
	assert.Equal(t, 1, rec.Unloads())
	assert.Equal(t, 1, h.releases)
}

func TestReplayer_PluginLoadFailure(t *testing.T) {
	h := newHarness(geysertest.NewRecorder("dump"), &sliceExtractor{})

	r := h.replayer(t, filepath.Join(t.TempDir(), "missing.json"))
	err := r.Run(context.Background())

	assert.Equal(t, error_types.KindPluginLoad, error_types.KindOf(err))
	assert.Equal(t, StateFailed, r.State())
	assert.Zero(t, h.opens)
}

func TestReplayer_ForwardsEveryRecordInOrder(t *testing.T) {
	pluginConfig := writePluginConfig(t)

	genRecord := rapid.Custom(func(t *rapid.T) *snapshot.AccountRecord {
		data := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "data")
		rec := account(
			rapid.Uint64Range(1, 5).Draw(t, "slot"),
			// a small key space produces duplicate accounts
			rapid.ByteRange(1, 4).Draw(t, "pubkey"),
			rapid.Uint64().Draw(t, "lamports"),
			data)
		rec.Executable = rapid.Bool().Draw(t, "executable")
		return rec
	})

	rapid.Check(t, func(t *rapid.T) {
		records := rapid.SliceOfN(genRecord, 0, 50).Draw(t, "records")
		rec := geysertest.NewRecorder("dump")
		h := newHarness(rec, &sliceExtractor{records: append([]*snapshot.AccountRecord(nil), records...)})

		r := h.replayer(t, pluginConfig)
		require.NoError(t, r.Run(context.Background()))

		got := rec.Notifications()
		require.Len(t, got, len(records))
		for i, want := range records {
			assert.Equal(t, want.Pubkey[:], got[i].Account.Pubkey)
			assert.Equal(t, want.Lamports, got[i].Account.Lamports)
			assert.Equal(t, want.Slot, got[i].Slot)
			assert.True(t, got[i].IsStartup)
		}
		assert.Equal(t, uint64(len(records)), r.Records())
		assert.Equal(t, 1, rec.EndOfStartupCalls())
		assert.Equal(t, StateDone, r.State())
		assert.True(t, h.extractor.closed)
	})
}

func TestReplayer_PluginFailureStopsPass(t *testing.T) {
	records := []*snapshot.AccountRecord{
		account(1, 1, 10, nil),
		account(1, 2, 20, nil),
		account(2, 3, 30, []byte{1, 2, 3}),
		account(2, 4, 40, nil),
		account(3, 5, 50, nil),
	}
	rec := geysertest.NewRecorder("dump")
	rec.FailAt = 3
	h := newHarness(rec, &sliceExtractor{records: records})

	r := h.replayer(t, writePluginConfig(t))
	err := r.Run(context.Background())

	require.Equal(t, error_types.KindPluginNotification, error_types.KindOf(err))
	assert.ErrorIs(t, err, geysertest.ErrInjected)
	assert.Equal(t, &error_types.RecordContext{
		Position:     2,
		Slot:         2,
		Pubkey:       key(3).String(),
		WriteVersion: 23,
	}, error_types.RecordOf(err))

	assert.Equal(t, 3, rec.UpdateCalls())
	assert.Equal(t, 3, h.extractor.pulls)
	assert.Zero(t, rec.EndOfStartupCalls())
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, 1, rec.Unloads())
}

func TestReplayer_ExtractionFailureStopsPass(t *testing.T) {
	records := []*snapshot.AccountRecord{
		account(1, 1, 10, nil),
		account(1, 2, 20, nil),
	}
	rec := geysertest.NewRecorder("dump")
	h := newHarness(rec, &sliceExtractor{records: records, err: errors.New("append-vec accounts/1.0: unexpected EOF")})

	r := h.replayer(t, writePluginConfig(t))
	err := r.Run(context.Background())

	assert.Equal(t, error_types.KindExtraction, error_types.KindOf(err))
	assert.ErrorContains(t, err, "failed to extract record 2")
	assert.Len(t, rec.Notifications(), 2)
	assert.Equal(t, 3, h.extractor.pulls)
	assert.Zero(t, rec.EndOfStartupCalls())
	assert.Equal(t, StateFailed, r.State())
}

func TestReplayer_PayloadIsByteIdentical(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	want := account(7, 9, 1_000_000_000, data)
	want.Owner = solana.TokenProgramID
	want.Executable = true
	want.RentEpoch = 18446744073709551615

	rec := geysertest.NewRecorder("dump")
	h := newHarness(rec, &sliceExtractor{records: []*snapshot.AccountRecord{want}})
	r := h.replayer(t, writePluginConfig(t))
	require.NoError(t, r.Run(context.Background()))

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, geyser.ReplicaAccountInfo{
		Pubkey:       want.Pubkey[:],
		Lamports:     want.Lamports,
		Owner:        solana.TokenProgramID[:],
		Executable:   true,
		RentEpoch:    want.RentEpoch,
		Data:         data,
		WriteVersion: want.WriteVersion,
	}, got[0].Account)
	assert.Equal(t, uint64(7), got[0].Slot)
}

func TestReplayer_DuplicateAccountsAreNotMerged(t *testing.T) {
	records := []*snapshot.AccountRecord{
		account(1, 0xa, 10, nil),
		account(2, 0xb, 0, nil),
		account(1, 0xa, 5, nil),
	}
	rec := geysertest.NewRecorder("dump")
	h := newHarness(rec, &sliceExtractor{records: records})
	r := h.replayer(t, writePluginConfig(t))
	require.NoError(t, r.Run(context.Background()))

	got := rec.Notifications()
	require.Len(t, got, 3)
	var lamports []uint64
	for _, n := range got {
		lamports = append(lamports, n.Account.Lamports)
	}
	assert.Equal(t, []uint64{10, 0, 5}, lamports)
	assert.Equal(t, got[0].Account.Pubkey, got[2].Account.Pubkey)
}

func TestReplayer_EndOfStartupFailure(t *testing.T) {
	rec := geysertest.NewRecorder("dump")
	rec.EndOfStartupErr = errors.New("flush failed")
	h := newHarness(rec, &sliceExtractor{records: []*snapshot.AccountRecord{account(1, 1, 10, nil)}})

	r := h.replayer(t, writePluginConfig(t))
	err := r.Run(context.Background())

	assert.Equal(t, error_types.KindPluginNotification, error_types.KindOf(err))
	assert.ErrorContains(t, err, "flush failed")
	assert.Nil(t, error_types.RecordOf(err))
	assert.Equal(t, StateFailed, r.State())
}

func TestReplayer_Events(t *testing.T) {
	rec := geysertest.NewRecorder("dump")
	h := newHarness(rec, &sliceExtractor{records: []*snapshot.AccountRecord{account(1, 1, 10, nil), account(1, 2, 20, nil)}})

	r := h.replayer(t, writePluginConfig(t))
	r.cfg.ProgressInterval = 1
	require.NoError(t, r.Run(context.Background()))

	var states []string
	var statuses []uint64
	var started, completed int
	for _, e := range h.events {
		switch e := e.(type) {
		case *events.StateChanged:
			states = append(states, e.To)
		case *events.Status:
			statuses = append(statuses, e.Records)
		case *events.Started:
			started++
			assert.Equal(t, "dump", e.Plugin)
		case *events.Complete:
			completed++
			assert.NoError(t, e.Err)
			assert.Equal(t, uint64(2), e.Records)
		}
		assert.Equal(t, r.ExecutionId, executionId(e))
	}
	assert.Equal(t, []string{"fetching", "streaming", "done"}, states)
	assert.Equal(t, []uint64{1, 2}, statuses)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, completed)
}

func executionId(e events.Event) string {
	switch e := e.(type) {
	case *events.StateChanged:
		return e.ExecutionId
	case *events.Status:
		return e.ExecutionId
	case *events.Started:
		return e.ExecutionId
	case *events.Complete:
		return e.ExecutionId
	case *events.Error:
		return e.ExecutionId
	}
	return ""
}

func TestReplayer_ReleasesPluginLast(t *testing.T) {
	rec := geysertest.NewRecorder("dump")
	extractor := &sliceExtractor{records: []*snapshot.AccountRecord{account(1, 1, 10, nil)}}
	unloadsAtClose := -1
	extractor.onClose = func() { unloadsAtClose = rec.Unloads() }
	h := newHarness(rec, extractor)

	require.NoError(t, h.replayer(t, writePluginConfig(t)).Run(context.Background()))
	assert.Equal(t, 0, unloadsAtClose)
	assert.Equal(t, 1, rec.Unloads())
	assert.Equal(t, 1, h.releases)
}

func TestReplayer_RecordsWhileRunning(t *testing.T) {
	records := make([]*snapshot.AccountRecord, 500)
	for i := range records {
		records[i] = account(uint64(i), byte(i), uint64(i), []byte{byte(i)})
	}
	h := newHarness(geysertest.NewRecorder("dump"), &sliceExtractor{records: records})
	r := h.replayer(t, writePluginConfig(t))

	done := make(chan struct{})
	var last uint64
	go func() {
		defer close(done)
		for !r.State().Terminal() {
			n := r.Records()
			assert.GreaterOrEqual(t, n, last)
			last = n
		}
	}()
	require.NoError(t, r.Run(context.Background()))
	<-done
	assert.Equal(t, uint64(500), r.Records())
}

func TestReplayer_RunsOnce(t *testing.T) {
	h := newHarness(geysertest.NewRecorder("dump"), &sliceExtractor{})
	r := h.replayer(t, writePluginConfig(t))
	require.NoError(t, r.Run(context.Background()))
	assert.Error(t, r.Run(context.Background()))
	assert.Equal(t, 1, h.opens)
}

func TestNewReplayer_Validation(t *testing.T) {
	_, err := NewReplayer(&Config{PluginConfig: "plugin.json"})
	assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))

	_, err = NewReplayer(&Config{SnapshotURL: "https://snapshots.example.com/snapshot.tar.zst"})
	assert.Equal(t, error_types.KindConfiguration, error_types.KindOf(err))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestReplayer_TransportFailureIsDownloadError(t *testing.T) {
	rec := geysertest.NewRecorder("dump")
	r, err := NewReplayer(&Config{
		SnapshotURL:  "https://snapshots.example.com/snapshot.tar.zst",
		PluginConfig: writePluginConfig(t),
		LoadOptions: []loader.Option{loader.WithBackend(geyser.ProtocolNative,
			func(context.Context, *geyser.PluginConfig, *loader.LoadOptions) (geyser.Plugin, func(), error) {
				return rec, nil, nil
			})},
	}, WithSourceOpener(func(context.Context, string, ...artifact_source.Option) (io.ReadCloser, error) {
		return io.NopCloser(failingReader{}), nil
	}))
	require.NoError(t, err)

	err = r.Run(context.Background())
	assert.Equal(t, error_types.KindDownload, error_types.KindOf(err))
	assert.ErrorContains(t, err, "connection reset by peer")
}

// TestReplayer_FileSnapshot runs the real source, limiter and archive extractor over an archive on disk
func TestReplayer_FileSnapshot(t *testing.T) {
	account := snapshottest.Account{
		WriteVersion: 3,
		Pubkey:       solana.SysVarClockPubkey,
		Owner:        solana.SystemProgramID,
		Lamports:     1_169_280,
		Data:         []byte{1, 2, 3},
	}
	vec := snapshottest.AppendVec(account)
	tarball, err := snapshottest.Tar(
		snapshottest.Version(),
		snapshottest.ManifestEntry(100, snapshottest.Storage{Slot: 99, ID: 4, CurrentLen: uint64(len(vec))}),
		snapshottest.Entry{Name: "accounts/99.4", Data: vec},
		// not listed in the manifest
		snapshottest.Entry{Name: "accounts/98.1", Data: vec},
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot-100-abc.tar")
	require.NoError(t, os.WriteFile(path, tarball, 0600))

	limiter, err := rate_limiter.NewLimiter(&rate_limiter.Definition{Name: "download", MaxConcurrency: 1})
	require.NoError(t, err)

	rec := geysertest.NewRecorder("dump")
	r, err := NewReplayer(&Config{
		SnapshotURL:  path,
		PluginConfig: writePluginConfig(t),
		Limiter:      limiter,
		LoadOptions: []loader.Option{loader.WithBackend(geyser.ProtocolNative,
			func(context.Context, *geyser.PluginConfig, *loader.LoadOptions) (geyser.Plugin, func(), error) {
				return rec, nil, nil
			})},
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, uint64(1), r.Records())
	require.Equal(t, 1, rec.UpdateCalls())
	got := rec.Notifications()[0]
	assert.Equal(t, uint64(99), got.Slot)
	assert.True(t, got.IsStartup)
	assert.Equal(t, solana.SysVarClockPubkey[:], got.Account.Pubkey)
	assert.Equal(t, []byte{1, 2, 3}, got.Account.Data)
	assert.Equal(t, 1, rec.EndOfStartupCalls())
	// the download slot was released
	assert.True(t, limiter.TryToAcquire())
}
