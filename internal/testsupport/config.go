package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/hazuki802/bukkaku/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.PollInterval = 1
	cfg.Notifications.LineChannelToken = ""
	cfg.Notifications.SlackWebhookURL = ""

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(c *config.Config) {
		c.Paths.APIToken = token
	}
}

// WithPlatform enables one verification platform with test credentials.
func WithPlatform(name, email, password string) ConfigOption {
	return func(c *config.Config) {
		creds := config.PlatformCredentials{Enabled: true, Email: email, Password: password}
		switch name {
		case "itandi":
			c.Platforms.Itandi = creds
		case "ielove":
			c.Platforms.Ielove = creds
		case "es_square":
			c.Platforms.EsSquare = creds
		}
	}
}

// WithCrawlerCommand points the inventory scheduler at a command line.
func WithCrawlerCommand(command string) ConfigOption {
	return func(c *config.Config) {
		c.Inventory.CrawlerCommand = command
	}
}
