package preflight

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/deps"
)

// CheckLINEFromConfig evaluates LINE status from config and connectivity.
func CheckLINEFromConfig(cfg *config.Config) Result {
	const name = "LINE"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.LineChannelToken) == "" {
		return Result{Name: name, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Notifications.LineTo) == "" {
		return Result{Name: name, Detail: "Missing recipient id"}
	}
	check := CheckLINE(context.Background(), "", cfg.Notifications.LineChannelToken, cfg.Notifications.LineTo)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckSlackFromConfig evaluates the Slack webhook shape without posting to
// it; an incoming-webhook URL cannot be probed without sending a message.
func CheckSlackFromConfig(cfg *config.Config) Result {
	const name = "Slack"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	raw := strings.TrimSpace(cfg.Notifications.SlackWebhookURL)
	if raw == "" {
		return Result{Name: name, Detail: "Disabled"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: "invalid webhook url"}
	}
	if parsed.Scheme != "https" {
		return Result{Name: name, Detail: "webhook url must use https"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

// BrowserProbe reports the automation browser install snapshot.
type BrowserProbe struct {
	Detected bool
	Binary   string
	Version  string
}

// ProbeBrowser resolves the automation browser binary and asks it for its
// version string.
func ProbeBrowser(bin string) BrowserProbe {
	resolved := deps.CheckChromeForWorker(bin, "")
	if !resolved.Available {
		return BrowserProbe{}
	}
	probe := BrowserProbe{Detected: true, Binary: resolved.Command}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, resolved.Command, "--version").Output()
	if err != nil {
		return probe
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return probe
	}
	probe.Version = strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	return probe
}

// Detail renders a display-friendly summary for status UIs.
func (p BrowserProbe) Detail() string {
	if !p.Detected {
		return "No Chrome or Chromium binary found"
	}
	if p.Version == "" {
		return p.Binary
	}
	return fmt.Sprintf("%s (%s)", p.Version, p.Binary)
}
