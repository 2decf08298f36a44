package config

const (
	defaultDataDir              = "~/.local/share/bukkaku"
	defaultLogDir               = "~/.local/share/bukkaku/logs"
	defaultLogRetentionDays     = 60
	defaultAPIBind              = "127.0.0.1:7766"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultPortalFetchTimeout   = 20
	defaultPortalUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	defaultNameSimilarity       = 0.85
	defaultContainmentScore     = 0.5
	defaultAreaTolerance        = 1.0
	defaultBuildYearTolerance   = 1
	defaultFallbackThreshold    = 35.0
	defaultNavTimeout           = 30
	defaultLoginTimeout         = 60
	defaultQueryTimeout         = 90
	defaultSessionCheckInterval = 300
	defaultShutdownTimeout      = 15
	defaultInventoryRunTimeout  = 1800
	defaultInventoryRegion      = "東京都"
	defaultNotifyRequestTimeout = 10
	defaultPollInterval         = 2
	defaultErrorRetryInterval   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Portal: Portal{
			FetchTimeout: defaultPortalFetchTimeout,
			UserAgent:    defaultPortalUserAgent,
		},
		Matcher: Matcher{
			NameSimilarity:     defaultNameSimilarity,
			ContainmentScore:   defaultContainmentScore,
			AreaTolerance:      defaultAreaTolerance,
			BuildYearTolerance: defaultBuildYearTolerance,
			FallbackThreshold:  defaultFallbackThreshold,
		},
		Browser: Browser{
			Headless:             true,
			NavTimeout:           defaultNavTimeout,
			LoginTimeout:         defaultLoginTimeout,
			QueryTimeout:         defaultQueryTimeout,
			SessionCheckInterval: defaultSessionCheckInterval,
			ShutdownTimeout:      defaultShutdownTimeout,
		},
		Inventory: Inventory{
			Schedule:   []string{"00:00", "12:00"},
			RunTimeout: defaultInventoryRunTimeout,
			Region:     defaultInventoryRegion,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			CaseCompleted:  true,
			CaseNotFound:   true,
			Escalations:    true,
			Errors:         true,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
