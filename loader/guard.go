package loader

import (
	"fmt"
	"log/slog"

	"github.com/turbot/go-kit/helpers"

	"github.com/plerkle-io/snapshot-geyser/geyser"
)

// guardedPlugin turns panics raised inside a plugin into errors
type guardedPlugin struct {
	inner geyser.Plugin
}

func recoverTo(method string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("plugin panicked in %s: %w", method, helpers.ToError(r))
	}
}

func recoverAndLog(method string) {
	if r := recover(); r != nil {
		slog.Error("plugin panicked", "method", method, "error", helpers.ToError(r))
	}
}

func (g *guardedPlugin) Name() (name string) {
	defer recoverAndLog("Name")
	return g.inner.Name()
}

func (g *guardedPlugin) OnLoad(configFile string, isReload bool) (err error) {
	defer recoverTo("OnLoad", &err)
	return g.inner.OnLoad(configFile, isReload)
}

func (g *guardedPlugin) OnUnload() {
	defer recoverAndLog("OnUnload")
	g.inner.OnUnload()
}

func (g *guardedPlugin) UpdateAccount(account geyser.ReplicaAccountInfo, slot uint64, isStartup bool) (err error) {
	defer recoverTo("UpdateAccount", &err)
	return g.inner.UpdateAccount(account, slot, isStartup)
}

func (g *guardedPlugin) NotifyEndOfStartup() (err error) {
	defer recoverTo("NotifyEndOfStartup", &err)
	return g.inner.NotifyEndOfStartup()
}

func (g *guardedPlugin) AccountDataNotificationsEnabled() (enabled bool) {
	defer recoverAndLog("AccountDataNotificationsEnabled")
	return g.inner.AccountDataNotificationsEnabled()
}

func (g *guardedPlugin) TransactionNotificationsEnabled() (enabled bool) {
	defer recoverAndLog("TransactionNotificationsEnabled")
	return g.inner.TransactionNotificationsEnabled()
}

func queryAccountDataNotifications(q geyser.CapabilityQuerier) (enabled bool, err error) {
	defer recoverTo("QueryAccountDataNotifications", &err)
	return q.QueryAccountDataNotifications()
}
