// Package geyser defines the contract between the snapshot replay host and an observer plugin.
//
// A plugin receives one UpdateAccount call per account record found in the snapshot, in archive order,
// followed by a single NotifyEndOfStartup once the whole snapshot has been replayed.
package geyser

// ABIVersion is the plugin ABI version implemented by this host.
// Native modules must export a GeyserPluginABIVersion variable with this value,
// and out-of-process plugins must use it as their handshake protocol version.
const ABIVersion uint32 = 1

// Plugin is the interface that all observer plugins must implement
type Plugin interface {
	// Name returns the plugin name, used in logs
	Name() string

	// OnLoad is called once, immediately after the plugin is loaded.
	// configFile is the path of the plugin configuration file the host was started with;
	// the format of any settings in that file beyond libpath is defined by the plugin
	OnLoad(configFile string, isReload bool) error

	// OnUnload is called once, after the last notification call has returned
	OnUnload()

	// UpdateAccount is called for each account record.
	// The byte slices in account are only valid for the duration of the call and must be copied if retained
	UpdateAccount(account ReplicaAccountInfo, slot uint64, isStartup bool) error

	// NotifyEndOfStartup is called after the last account of the snapshot has been delivered
	NotifyEndOfStartup() error

	// AccountDataNotificationsEnabled reports whether the plugin wants UpdateAccount calls
	AccountDataNotificationsEnabled() bool

	// TransactionNotificationsEnabled reports whether the plugin wants transaction notifications.
	// The snapshot replay host never sends any, but the flag is logged
	TransactionNotificationsEnabled() bool
}

// PayloadLimiter may be implemented by a Plugin whose transport bounds the size of account data
type PayloadLimiter interface {
	MaxAccountDataLen() int
}

// CapabilityQuerier may be implemented by a Plugin whose capability queries can fail,
// such as a plugin served by another process
type CapabilityQuerier interface {
	QueryAccountDataNotifications() (bool, error)
}
