// Package loader loads geyser plugins described by a plugin configuration file.
//
// Native plugins are Go plugin shared objects mapped into the host process. Loading one is a trust
// decision made by the operator: the host cannot verify the memory safety of the module, and a
// misbehaving module can corrupt the host. Panics raised by the module are turned into errors, nothing
// else is contained. Out-of-process plugins are started as child processes and spoken to over gRPC.
//
// Callers only ever see a geyser.Plugin behind a Handle.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/plerkle-io/snapshot-geyser/error_types"
	"github.com/plerkle-io/snapshot-geyser/geyser"
)

// Backend instantiates the plugin described by cfg. The returned release func frees whatever the
// backend holds once the plugin has been unloaded
type Backend func(ctx context.Context, cfg *geyser.PluginConfig, opts *LoadOptions) (geyser.Plugin, func(), error)

var defaultBackends = map[geyser.Protocol]Backend{
	geyser.ProtocolNative: loadNative,
	geyser.ProtocolGRPC:   loadGRPC,
}

type LoadOptions struct {
	logger   hclog.Logger
	backends map[geyser.Protocol]Backend
}

type Option func(*LoadOptions)

// WithLogger sets the hclog logger used for out-of-process plugin clients
func WithLogger(logger hclog.Logger) Option {
	return func(o *LoadOptions) {
		o.logger = logger
	}
}

// WithBackend overrides the backend used for protocol
func WithBackend(protocol geyser.Protocol, backend Backend) Option {
	return func(o *LoadOptions) {
		o.backends[protocol] = backend
	}
}

// Load reads the plugin configuration at configPath, instantiates the plugin it names and calls OnLoad.
// All failures are PluginLoadErrors, and nothing is left running when Load fails
func Load(ctx context.Context, configPath string, opts ...Option) (*Handle, error) {
	o := &LoadOptions{backends: make(map[geyser.Protocol]Backend, len(defaultBackends))}
	for k, v := range defaultBackends {
		o.backends[k] = v
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := geyser.LoadPluginConfig(configPath)
	if err != nil {
		return nil, error_types.NewPluginLoadError("failed to load plugin config", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, error_types.NewPluginLoadError("plugin load cancelled", err)
	}

	backend, ok := o.backends[cfg.Protocol]
	if !ok {
		return nil, error_types.NewPluginLoadError(fmt.Sprintf("no loader for protocol '%s'", cfg.Protocol), nil)
	}
	slog.Info("loading plugin", "libpath", cfg.LibPath, "protocol", cfg.Protocol)

	p, release, err := backend(ctx, cfg, o)
	if err != nil {
		return nil, error_types.NewPluginLoadError(fmt.Sprintf("failed to load plugin %s", cfg.LibPath), err)
	}

	h := &Handle{
		Plugin:  &guardedPlugin{inner: p},
		Config:  cfg,
		release: release,
	}
	if limiter, ok := p.(geyser.PayloadLimiter); ok {
		h.limiter = limiter
	}
	if querier, ok := p.(geyser.CapabilityQuerier); ok {
		h.querier = querier
	}
	h.name = h.Plugin.Name()

	if err := h.Plugin.OnLoad(cfg.Path, false); err != nil {
		// OnLoad failed so the plugin is not unloaded, only the backend is released
		h.released = true
		if release != nil {
			release()
		}
		return nil, error_types.NewPluginLoadError(fmt.Sprintf("plugin %s failed to load", h.name), err)
	}
	slog.Info("plugin loaded", "name", h.name, "protocol", cfg.Protocol)
	return h, nil
}

// Handle owns a loaded plugin until Release
type Handle struct {
	geyser.Plugin
	Config *geyser.PluginConfig

	name     string
	limiter  geyser.PayloadLimiter
	querier  geyser.CapabilityQuerier
	release  func()
	mut      sync.Mutex
	released bool
}

// Name returns the name the plugin reported when it was loaded
func (h *Handle) Name() string {
	return h.name
}

// RequireAccountNotifications fails with a PluginCapabilityError when the plugin does not want account updates.
// A plugin that cannot be asked, such as a crashed plugin process, fails with a PluginLoadError
func (h *Handle) RequireAccountNotifications() error {
	enabled := false
	if h.querier != nil {
		var err error
		if enabled, err = queryAccountDataNotifications(h.querier); err != nil {
			return error_types.NewPluginLoadError(fmt.Sprintf("failed to query the capabilities of plugin %s", h.name), err)
		}
	} else {
		enabled = h.Plugin.AccountDataNotificationsEnabled()
	}
	if !enabled {
		return error_types.NewPluginCapabilityError(fmt.Sprintf("plugin %s does not accept account data notifications", h.name))
	}
	return nil
}

// PayloadLimit returns the largest account data the plugin transport can carry, if it has a limit
func (h *Handle) PayloadLimit() (int, bool) {
	if h.limiter == nil {
		return 0, false
	}
	return h.limiter.MaxAccountDataLen(), true
}

// Release unloads the plugin and frees the backend. It is safe to call more than once
func (h *Handle) Release() {
	h.mut.Lock()
	defer h.mut.Unlock()
	if h.released {
		return
	}
	h.released = true

	h.Plugin.OnUnload()
	if h.release != nil {
		h.release()
	}
	slog.Info("plugin released", "name", h.name)
}
