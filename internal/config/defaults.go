package config

const (
	defaultDataDir              = "~/.local/share/courier"
	defaultLogDir               = "~/.local/share/courier/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTransportTimeout     = 30
	defaultGateCacheSize        = 1024
	defaultGateCacheTTLSeconds  = 60
	defaultGroupDebounceSeconds = 2
	defaultPageSize             = 10
	defaultSettleSeconds        = 3
	defaultStorageConnections   = 4
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Transport: Transport{
			RequestTimeout: defaultTransportTimeout,
		},
		Gate: Gate{
			CacheSize:       defaultGateCacheSize,
			CacheTTLSeconds: defaultGateCacheTTLSeconds,
		},
		Uploads: Uploads{
			GroupDebounceSeconds: defaultGroupDebounceSeconds,
		},
		Retrieval: Retrieval{
			PageSize:      defaultPageSize,
			SettleSeconds: defaultSettleSeconds,
		},
		Storage: Storage{
			MaxConnections: defaultStorageConnections,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Shares:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
