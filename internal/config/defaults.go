package config

const (
	defaultDataDir                      = "~/.local/share/liftdb"
	defaultLogDir                       = "~/.local/share/liftdb/logs"
	defaultRankingsBaseURL              = "https://rankings.example.org/api"
	defaultMembersBaseURL               = "https://rankings.example.org/api/members"
	defaultUserAgent                    = "liftdb/0.1"
	defaultSourceTimeoutSeconds         = 30
	defaultMembersPageSize              = 100
	defaultDateWindowDays               = 5
	defaultMinWindowDays                = 1
	defaultBodyweightToleranceKg        = 2.0
	defaultTotalToleranceKg             = 5.0
	defaultExtremeBodyweightDeltaKg     = 40.0
	defaultExtremeBodyweightDeltaHardKg = 50.0
	defaultRetryAttempts                = 3
	defaultRetryBackoffSeconds          = 2
	defaultTierTimeoutSeconds           = 30
	defaultNotifyTimeoutSeconds         = 10
	defaultLogFormat                    = "console"
	defaultLogLevel                     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Rankings: Rankings{
			BaseURL:        defaultRankingsBaseURL,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultSourceTimeoutSeconds,
		},
		Members: Members{
			BaseURL:        defaultMembersBaseURL,
			TimeoutSeconds: defaultSourceTimeoutSeconds,
			PageSize:       defaultMembersPageSize,
		},
		Resolver: Resolver{
			DateWindowDays:               defaultDateWindowDays,
			MinWindowDays:                defaultMinWindowDays,
			BodyweightToleranceKg:        defaultBodyweightToleranceKg,
			TotalToleranceKg:             defaultTotalToleranceKg,
			ExtremeBodyweightDeltaKg:     defaultExtremeBodyweightDeltaKg,
			ExtremeBodyweightDeltaHardKg: defaultExtremeBodyweightDeltaHardKg,
			RetryAttempts:                defaultRetryAttempts,
			RetryBackoffSeconds:          defaultRetryBackoffSeconds,
			TierTimeoutSeconds:           defaultTierTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
			Batch:          true,
			Conflicts:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
