// Package replay streams a snapshot archive into a geyser plugin.
//
// A pass is strictly sequential: each record is decoded, forwarded and acknowledged by the plugin before the
// next one is pulled from the archive. The first error of any kind ends the pass.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/plerkle-io/snapshot-geyser/artifact_source"
	"github.com/plerkle-io/snapshot-geyser/constants"
	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/events"
	"github.com/plerkle-io/snapshot-geyser/loader"
	"github.com/plerkle-io/snapshot-geyser/observable"
	"github.com/plerkle-io/snapshot-geyser/rate_limiter"
	"github.com/plerkle-io/snapshot-geyser/snapshot"
)

// Config holds everything a pass needs
type Config struct {
	SnapshotURL string
	// PluginConfig is the path of the plugin configuration file
	PluginConfig string
	// ProgressInterval is the number of records between progress reports, 0 for the default
	ProgressInterval uint64

	SourceOptions []artifact_source.Option
	LoadOptions   []loader.Option
	// Limiter throttles the download, nil for unlimited
	Limiter *rate_limiter.Limiter
}

func (c *Config) Validate() error {
	if c.SnapshotURL == "" {
		return error_types.NewConfigurationError("snapshot url must be set", nil)
	}
	if c.PluginConfig == "" {
		return error_types.NewConfigurationError("plugin config must be set", nil)
	}
	return nil
}

// RecordExtractor is a snapshot.Extractor holding resources
type RecordExtractor interface {
	snapshot.Extractor
	Close() error
}

type (
	PluginLoaderFunc     func(ctx context.Context, configPath string, opts ...loader.Option) (PluginHandle, error)
	SourceOpenerFunc     func(ctx context.Context, rawURL string, opts ...artifact_source.Option) (io.ReadCloser, error)
	ExtractorFactoryFunc func(r io.Reader) (RecordExtractor, error)
)

type ReplayerOption func(*Replayer)

// WithPluginLoader replaces loader.Load
func WithPluginLoader(f PluginLoaderFunc) ReplayerOption {
	return func(r *Replayer) {
		r.loadPlugin = f
	}
}

// WithSourceOpener replaces artifact_source.Factory.Open
func WithSourceOpener(f SourceOpenerFunc) ReplayerOption {
	return func(r *Replayer) {
		r.openSource = f
	}
}

// WithExtractorFactory replaces snapshot.NewArchiveExtractor
func WithExtractorFactory(f ExtractorFactoryFunc) ReplayerOption {
	return func(r *Replayer) {
		r.newExtractor = f
	}
}

func defaultPluginLoader(ctx context.Context, configPath string, opts ...loader.Option) (PluginHandle, error) {
	h, err := loader.Load(ctx, configPath, opts...)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func defaultExtractorFactory(r io.Reader) (RecordExtractor, error) {
	e, err := snapshot.NewArchiveExtractor(r)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Replayer runs a single replay pass. Observers receive events.Started, events.StateChanged,
// events.Status, events.Error and events.Complete
type Replayer struct {
	observable.Base

	ExecutionId string
	cfg         *Config

	loadPlugin   PluginLoaderFunc
	openSource   SourceOpenerFunc
	newExtractor ExtractorFactoryFunc

	stateLock sync.RWMutex
	state     State
	ran       bool

	status *events.Status
	body   *countingReader
}

func NewReplayer(cfg *Config, opts ...ReplayerOption) (*Replayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Replayer{
		ExecutionId:  uuid.NewString(),
		cfg:          cfg,
		loadPlugin:   defaultPluginLoader,
		openSource:   artifact_source.Factory.Open,
		newExtractor: defaultExtractorFactory,
		state:        StateConfiguring,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.status = events.NewStatusEvent(r.ExecutionId)
	return r, nil
}

// State returns the current stage of the pass
func (r *Replayer) State() State {
	r.stateLock.RLock()
	defer r.stateLock.RUnlock()
	return r.state
}

// Records returns the number of records forwarded so far. It is safe to call while Run is in progress
func (r *Replayer) Records() uint64 {
	r.stateLock.RLock()
	defer r.stateLock.RUnlock()
	return r.status.Records
}

// Run performs the pass. It may only be called once
func (r *Replayer) Run(ctx context.Context) (err error) {
	r.stateLock.Lock()
	if r.ran {
		r.stateLock.Unlock()
		return errors.New("replayer has already run")
	}
	r.ran = true
	r.stateLock.Unlock()

	slog.Info("starting replay", "execution_id", r.ExecutionId, "plugin_config", r.cfg.PluginConfig)

	defer func() {
		if err != nil {
			slog.Error("replay failed", "kind", error_types.KindOf(err).String(), "error", err)
			r.setState(StateFailed)
			r.notify(events.NewErrorEvent(r.ExecutionId, err))
		}
		r.notify(events.NewCompletedEvent(r.ExecutionId, r.Records(), r.bytesRead(), err))
	}()

	// configuring
	handle, err := r.loadPlugin(ctx, r.cfg.PluginConfig, r.cfg.LoadOptions...)
	if err != nil {
		return err
	}
	dumper := NewDumper(handle)
	// deferred first so that the plugin is released last, after the extractor and the download are closed
	defer dumper.Close()

	slog.Info("plugin capabilities",
		"plugin", handle.Name(),
		"account_data_notifications", handle.AccountDataNotificationsEnabled(),
		"transaction_notifications", handle.TransactionNotificationsEnabled())
	if err := handle.RequireAccountNotifications(); err != nil {
		return err
	}

	// fetching
	r.setState(StateFetching)
	body, err := r.open(ctx)
	if err != nil {
		return err
	}
	r.body = &countingReader{r: body}
	defer body.Close()

	extractor, err := r.newExtractor(r.body)
	if err != nil {
		return r.streamError(err, "failed to open snapshot archive")
	}
	defer extractor.Close()

	r.notify(events.NewStartedEvent(r.ExecutionId, r.cfg.SnapshotURL, handle.Name()))

	// streaming
	r.setState(StateStreaming)
	if err := r.stream(extractor, dumper); err != nil {
		return err
	}

	if err := dumper.Finish(); err != nil {
		return err
	}
	slog.Info("replay complete", "records", r.Records(), "bytes_read", r.bytesRead())
	r.setState(StateDone)
	return nil
}

func (r *Replayer) open(ctx context.Context) (io.ReadCloser, error) {
	body, err := r.openSource(ctx, r.cfg.SnapshotURL, r.cfg.SourceOptions...)
	if err != nil {
		if error_types.KindOf(err) == error_types.KindUnknown {
			err = error_types.NewDownloadError("failed to open snapshot", err)
		}
		return nil, err
	}
	if r.cfg.Limiter == nil {
		return body, nil
	}

	slog.Info("throttling snapshot download", "limiter", r.cfg.Limiter.String())
	throttled, err := rate_limiter.NewReader(ctx, body, r.cfg.Limiter)
	if err != nil {
		body.Close()
		return nil, error_types.NewDownloadError("failed to acquire download slot", err)
	}
	return throttled, nil
}

func (r *Replayer) stream(extractor snapshot.Extractor, dumper *Dumper) error {
	interval := r.cfg.ProgressInterval
	if interval == 0 {
		interval = constants.DefaultProgressInterval
	}

	for {
		record, err := extractor.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return r.streamError(err, fmt.Sprintf("failed to extract record %d", dumper.Forwarded()))
		}

		if err := dumper.Forward(record); err != nil {
			return err
		}

		if progress, due := r.recordForwarded(record.Slot, interval); due {
			slog.Info("replay progress", "records", progress.Records, "slot", progress.Slot, "bytes_read", progress.BytesRead)
			r.notify(progress)
		}
	}
}

// recordForwarded counts a forwarded record and returns a copy of the status every interval records
func (r *Replayer) recordForwarded(slot uint64, interval uint64) (*events.Status, bool) {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()
	r.status.Update(slot, r.bytesRead())
	if r.status.Records%interval != 0 {
		return nil, false
	}
	progress := *r.status
	return &progress, true
}

// streamError classifies a failure to read the archive: transport failures are download errors,
// everything else is an extraction error
func (r *Replayer) streamError(err error, msg string) error {
	if r.body != nil && r.body.err != nil {
		return error_types.NewDownloadError("snapshot download failed", err)
	}
	return error_types.NewExtractionError(msg, err)
}

func (r *Replayer) setState(to State) {
	r.stateLock.Lock()
	from := r.state
	if from.Terminal() {
		r.stateLock.Unlock()
		return
	}
	r.state = to
	r.stateLock.Unlock()

	if from == to {
		return
	}
	slog.Debug("replay state changed", "from", from.String(), "to", to.String())
	r.notify(events.NewStateChangedEvent(r.ExecutionId, from.String(), to.String()))
}

// notify delivers e to the observers. An observer failure never fails the pass
func (r *Replayer) notify(e events.Event) {
	if err := r.NotifyObservers(e); err != nil {
		slog.Warn("observer failed", "error", err)
	}
}

func (r *Replayer) bytesRead() int64 {
	if r.body == nil {
		return 0
	}
	return r.body.n
}

// countingReader counts the bytes read from the download and remembers the first transport error
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && c.err == nil {
		c.err = err
	}
	return n, err
}
