package constants

const (
	// EnvPrefix prefixes every environment variable read by snapshot-geyser
	EnvPrefix = "SNAPSHOT_GEYSER"

	EnvLogLevel = EnvPrefix + "_LOG_LEVEL"
	// EnvPprof enables the pprof listener in a served plugin
	EnvPprof = EnvPrefix + "_PPROF"
)
