package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	if err := c.validateInventory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatcher() error {
	if c.Matcher.NameSimilarity <= 0 || c.Matcher.NameSimilarity > 1 {
		return errors.New("matcher.name_similarity must be between 0 and 1")
	}
	if c.Matcher.ContainmentScore <= 0 || c.Matcher.ContainmentScore > 1 {
		return errors.New("matcher.containment_score must be between 0 and 1")
	}
	if c.Matcher.AreaTolerance <= 0 {
		return errors.New("matcher.area_tolerance must be positive")
	}
	if c.Matcher.BuildYearTolerance < 0 {
		return errors.New("matcher.build_year_tolerance must be >= 0")
	}
	if c.Matcher.FallbackThreshold <= 0 {
		return errors.New("matcher.fallback_threshold must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"portal.fetch_timeout":          c.Portal.FetchTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateBrowser() error {
	return ensurePositiveMap(map[string]int{
		"browser.nav_timeout":            c.Browser.NavTimeout,
		"browser.login_timeout":          c.Browser.LoginTimeout,
		"browser.query_timeout":          c.Browser.QueryTimeout,
		"browser.session_check_interval": c.Browser.SessionCheckInterval,
		"browser.shutdown_timeout":       c.Browser.ShutdownTimeout,
	})
}

func (c *Config) validatePlatforms() error {
	for _, entry := range []struct {
		name  string
		creds PlatformCredentials
	}{
		{"itandi", c.Platforms.Itandi},
		{"ielove", c.Platforms.Ielove},
		{"es_square", c.Platforms.EsSquare},
	} {
		if !entry.creds.Enabled {
			continue
		}
		if entry.creds.Email == "" {
			return fmt.Errorf("platforms.%s.email must be set when platforms.%s.enabled is true", entry.name, entry.name)
		}
		if entry.creds.Password == "" {
			return fmt.Errorf("platforms.%s.password must be set when platforms.%s.enabled is true (or set the matching env var)", entry.name, entry.name)
		}
	}
	return nil
}

func (c *Config) validateInventory() error {
	if c.Inventory.RunTimeout <= 0 {
		return errors.New("inventory.run_timeout must be positive (seconds)")
	}
	for _, at := range c.Inventory.Schedule {
		if err := validateClockTime(at); err != nil {
			return fmt.Errorf("inventory.schedule: %w", err)
		}
	}
	return nil
}

func validateClockTime(value string) error {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("%q is not a HH:MM time", value)
	}
	hour, minute := parts[0], parts[1]
	if len(hour) != 2 || len(minute) != 2 {
		return fmt.Errorf("%q is not a HH:MM time", value)
	}
	h := (int(hour[0]-'0') * 10) + int(hour[1]-'0')
	m := (int(minute[0]-'0') * 10) + int(minute[1]-'0')
	if hour[0] < '0' || hour[0] > '9' || hour[1] < '0' || hour[1] > '9' ||
		minute[0] < '0' || minute[0] > '9' || minute[1] < '0' || minute[1] > '9' ||
		h > 23 || m > 59 {
		return fmt.Errorf("%q is not a HH:MM time", value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
