package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Portal contains configuration for fetching listing pages from rental portals.
type Portal struct {
	FetchTimeout int    `toml:"fetch_timeout"`
	UserAgent    string `toml:"user_agent"`
}

// Matcher contains the empirically tuned matching thresholds. These are
// preserved as configuration rather than re-derived; the defaults are the
// values the system has run with in production.
type Matcher struct {
	NameSimilarity     float64 `toml:"name_similarity"`
	ContainmentScore   float64 `toml:"containment_score"`
	AreaTolerance      float64 `toml:"area_tolerance"`
	BuildYearTolerance int     `toml:"build_year_tolerance"`
	FallbackThreshold  float64 `toml:"fallback_threshold"`
}

// Browser contains configuration for the Chromium automation worker.
type Browser struct {
	Bin                  string   `toml:"bin"`
	Headless             bool     `toml:"headless"`
	DebuggerURL          string   `toml:"debugger_url"`
	LaunchFlags          []string `toml:"launch_flags"`
	NavTimeout           int      `toml:"nav_timeout"`
	LoginTimeout         int      `toml:"login_timeout"`
	QueryTimeout         int      `toml:"query_timeout"`
	SessionCheckInterval int      `toml:"session_check_interval"`
	ShutdownTimeout      int      `toml:"shutdown_timeout"`
}

// PlatformCredentials holds login credentials for one external platform.
type PlatformCredentials struct {
	Enabled  bool   `toml:"enabled"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// Platforms groups the per-platform credential sections.
type Platforms struct {
	Itandi   PlatformCredentials `toml:"itandi"`
	Ielove   PlatformCredentials `toml:"ielove"`
	EsSquare PlatformCredentials `toml:"es_square"`
}

// Inventory contains configuration for the trade-exchange inventory refresh.
type Inventory struct {
	CrawlerCommand string   `toml:"crawler_command"`
	Schedule       []string `toml:"schedule"`
	RunTimeout     int      `toml:"run_timeout"`
	Region         string   `toml:"region"`
}

// Notifications contains configuration for LINE and Slack delivery.
type Notifications struct {
	LineChannelToken string `toml:"line_channel_token"`
	LineTo           string `toml:"line_to"`
	SlackWebhookURL  string `toml:"slack_webhook_url"`
	RequestTimeout   int    `toml:"request_timeout"`
	CaseCompleted    bool   `toml:"case_completed"`
	CaseNotFound     bool   `toml:"case_not_found"`
	Escalations      bool   `toml:"escalations"`
	Errors           bool   `toml:"errors"`
}

// Workflow contains configuration for orchestrator timing.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for bukkaku.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Portal: listing-page fetch behavior
//   - Matcher: record-linkage thresholds
//   - Browser: Chromium automation worker settings
//   - Platforms: per-platform login credentials
//   - Inventory: crawler command and refresh schedule
//   - Notifications: LINE / Slack delivery settings
//   - Workflow: orchestrator polling intervals
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Portal        Portal        `toml:"portal"`
	Matcher       Matcher       `toml:"matcher"`
	Browser       Browser       `toml:"browser"`
	Platforms     Platforms     `toml:"platforms"`
	Inventory     Inventory     `toml:"inventory"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bukkaku/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bukkaku.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "bukkaku.db")
}

// PlatformCredentials returns the credential section for the named platform,
// or false when the name is unknown.
func (c *Config) PlatformCredentials(name string) (PlatformCredentials, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "itandi":
		return c.Platforms.Itandi, true
	case "ielove":
		return c.Platforms.Ielove, true
	case "es_square":
		return c.Platforms.EsSquare, true
	default:
		return PlatformCredentials{}, false
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
