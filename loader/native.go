package loader

import (
	"context"
	"fmt"
	goplugin "plugin"

	"github.com/turbot/go-kit/helpers"

	"github.com/plerkle-io/snapshot-geyser/geyser"
)

const (
	// ABIVersionSymbol must be a uint32 variable holding geyser.ABIVersion
	ABIVersionSymbol = "GeyserPluginABIVersion"
	// ConstructorSymbol must be a func() geyser.Plugin
	ConstructorSymbol = "NewGeyserPlugin"
)

func loadNative(_ context.Context, cfg *geyser.PluginConfig, _ *LoadOptions) (geyser.Plugin, func(), error) {
	lib, err := goplugin.Open(cfg.LibPath)
	if err != nil {
		return nil, nil, err
	}
	ctor, err := resolveSymbols(lib.Lookup)
	if err != nil {
		return nil, nil, err
	}
	p, err := construct(ctor)
	if err != nil {
		return nil, nil, err
	}
	// a Go plugin cannot be unmapped, OnUnload is all there is
	return p, nil, nil
}

// resolveSymbols validates the ABI version exported by a module and returns its constructor
func resolveSymbols(lookup func(string) (goplugin.Symbol, error)) (func() geyser.Plugin, error) {
	sym, err := lookup(ABIVersionSymbol)
	if err != nil {
		return nil, fmt.Errorf("module does not export %s: %w", ABIVersionSymbol, err)
	}
	version, ok := sym.(*uint32)
	if !ok {
		return nil, fmt.Errorf("%s has type %T, expected *uint32", ABIVersionSymbol, sym)
	}
	if *version != geyser.ABIVersion {
		return nil, fmt.Errorf("module was built for plugin ABI version %d, host supports %d", *version, geyser.ABIVersion)
	}

	sym, err = lookup(ConstructorSymbol)
	if err != nil {
		return nil, fmt.Errorf("module does not export %s: %w", ConstructorSymbol, err)
	}
	// functions are looked up as values, not pointers
	ctor, ok := sym.(func() geyser.Plugin)
	if !ok {
		return nil, fmt.Errorf("%s has type %T, expected func() geyser.Plugin", ConstructorSymbol, sym)
	}
	return ctor, nil
}

func construct(ctor func() geyser.Plugin) (p geyser.Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %w", ConstructorSymbol, helpers.ToError(r))
		}
	}()
	p = ctor()
	if p == nil {
		return nil, fmt.Errorf("%s returned nil", ConstructorSymbol)
	}
	return p, nil
}
