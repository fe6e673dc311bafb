package constants

const (
	// DefaultProgressInterval is the number of records between progress log lines
	DefaultProgressInterval = 1_000_000

	DefaultMaxConnsPerHost     = 16
	DefaultDNSCacheRefreshSecs = 300

	AppName = "snapshot-geyser"
)
