package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePortal()
	c.normalizeBrowser()
	c.normalizePlatforms()
	c.normalizeInventory()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizePortal() {
	c.Portal.UserAgent = strings.TrimSpace(c.Portal.UserAgent)
	if c.Portal.UserAgent == "" {
		c.Portal.UserAgent = defaultPortalUserAgent
	}
	if c.Portal.FetchTimeout <= 0 {
		c.Portal.FetchTimeout = defaultPortalFetchTimeout
	}
}

func (c *Config) normalizeBrowser() {
	c.Browser.Bin = strings.TrimSpace(c.Browser.Bin)
	c.Browser.DebuggerURL = strings.TrimSpace(c.Browser.DebuggerURL)
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = defaultNavTimeout
	}
	if c.Browser.LoginTimeout <= 0 {
		c.Browser.LoginTimeout = defaultLoginTimeout
	}
	if c.Browser.QueryTimeout <= 0 {
		c.Browser.QueryTimeout = defaultQueryTimeout
	}
	if c.Browser.SessionCheckInterval <= 0 {
		c.Browser.SessionCheckInterval = defaultSessionCheckInterval
	}
	if c.Browser.ShutdownTimeout <= 0 {
		c.Browser.ShutdownTimeout = defaultShutdownTimeout
	}
	flags := make([]string, 0, len(c.Browser.LaunchFlags))
	for _, flag := range c.Browser.LaunchFlags {
		if trimmed := strings.TrimSpace(flag); trimmed != "" {
			flags = append(flags, trimmed)
		}
	}
	c.Browser.LaunchFlags = flags
}

func (c *Config) normalizePlatforms() {
	normalizeCredentials(&c.Platforms.Itandi, "ITANDIBB_PASSWORD")
	normalizeCredentials(&c.Platforms.Ielove, "IELOVE_PASSWORD")
	normalizeCredentials(&c.Platforms.EsSquare, "ES_SQUARE_PASSWORD")
}

func normalizeCredentials(creds *PlatformCredentials, passwordEnv string) {
	creds.Email = strings.TrimSpace(creds.Email)
	creds.Password = strings.TrimSpace(creds.Password)
	if creds.Password == "" {
		if value, ok := os.LookupEnv(passwordEnv); ok {
			creds.Password = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeInventory() {
	c.Inventory.CrawlerCommand = strings.TrimSpace(c.Inventory.CrawlerCommand)
	c.Inventory.Region = strings.TrimSpace(c.Inventory.Region)
	if c.Inventory.Region == "" {
		c.Inventory.Region = defaultInventoryRegion
	}
	if c.Inventory.RunTimeout <= 0 {
		c.Inventory.RunTimeout = defaultInventoryRunTimeout
	}
	times := make([]string, 0, len(c.Inventory.Schedule))
	for _, at := range c.Inventory.Schedule {
		if trimmed := strings.TrimSpace(at); trimmed != "" {
			times = append(times, trimmed)
		}
	}
	if len(times) == 0 {
		times = []string{"00:00", "12:00"}
	}
	c.Inventory.Schedule = times
}

func (c *Config) normalizeNotifications() {
	c.Notifications.LineChannelToken = strings.TrimSpace(c.Notifications.LineChannelToken)
	if c.Notifications.LineChannelToken == "" {
		if value, ok := os.LookupEnv("LINE_CHANNEL_ACCESS_TOKEN"); ok {
			c.Notifications.LineChannelToken = strings.TrimSpace(value)
		}
	}
	c.Notifications.LineTo = strings.TrimSpace(c.Notifications.LineTo)
	c.Notifications.SlackWebhookURL = strings.TrimSpace(c.Notifications.SlackWebhookURL)
	if c.Notifications.SlackWebhookURL == "" {
		if value, ok := os.LookupEnv("SLACK_WEBHOOK_URL"); ok {
			c.Notifications.SlackWebhookURL = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
