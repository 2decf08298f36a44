package main

import (
	"fmt"
	"strings"

	"github.com/hazuki802/bukkaku/internal/api"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/preflight"
)

func systemStatusLines(cfg *config.Config, status *api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 8)

	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running", colorize))
	}

	if cfg != nil {
		lines = append(lines,
			directoryStatusLine("Data directory", cfg.Paths.DataDir, colorize),
			directoryStatusLine("Log directory", cfg.Paths.LogDir, colorize),
		)
	}
	if strings.TrimSpace(status.StorePath) != "" {
		lines = append(lines, renderStatusLine("Store", statusInfo, status.StorePath, colorize))
	}

	lines = append(lines,
		lineStatusLine(cfg, colorize),
		slackStatusLine(cfg, colorize),
		browserStatusLine(cfg, colorize),
	)
	return lines
}

func lineStatusLine(cfg *config.Config, colorize bool) string {
	result := preflight.CheckLINEFromConfig(cfg)
	kind := statusWarn
	if result.Passed {
		kind = statusOK
	}
	if strings.EqualFold(result.Detail, "Disabled") {
		kind = statusInfo
	}
	return renderStatusLine("LINE", kind, result.Detail, colorize)
}

func slackStatusLine(cfg *config.Config, colorize bool) string {
	result := preflight.CheckSlackFromConfig(cfg)
	kind := statusWarn
	if result.Passed {
		kind = statusOK
	}
	if strings.EqualFold(result.Detail, "Disabled") {
		kind = statusInfo
	}
	return renderStatusLine("Slack", kind, result.Detail, colorize)
}

func browserStatusLine(cfg *config.Config, colorize bool) string {
	bin := ""
	if cfg != nil {
		if strings.TrimSpace(cfg.Browser.DebuggerURL) != "" {
			return renderStatusLine("Browser", statusOK, "Remote debugger configured", colorize)
		}
		bin = cfg.Browser.Bin
	}
	probe := preflight.ProbeBrowser(bin)
	if probe.Detected {
		return renderStatusLine("Browser", statusOK, probe.Detail(), colorize)
	}
	return renderStatusLine("Browser", statusWarn, probe.Detail(), colorize)
}

func directoryStatusLine(label, path string, colorize bool) string {
	result := preflight.CheckDirectoryAccess(label, path)
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}

func sessionLines(status *api.DaemonStatus, colorize bool) []string {
	if !status.Running {
		return []string{renderStatusLine("Sessions", statusInfo, "Unavailable (daemon not running)", colorize)}
	}
	if len(status.Sessions) == 0 {
		return []string{renderStatusLine("Sessions", statusInfo, "No platforms configured", colorize)}
	}

	lines := make([]string, 0, len(status.Sessions))
	for _, session := range status.Sessions {
		label := formatStatusLabel(session.Platform)
		detail := formatStatusLabel(session.State)
		kind := statusInfo
		switch session.State {
		case "ready":
			kind = statusOK
			if session.LoggedInAt != "" {
				detail = fmt.Sprintf("Ready (logged in %s)", formatDisplayTime(session.LoggedInAt))
			}
		case "degraded":
			kind = statusWarn
			if session.Failures > 0 {
				detail = fmt.Sprintf("Degraded (%d consecutive failures)", session.Failures)
			}
		case "logging_in":
			kind = statusInfo
			detail = "Logging in"
		}
		lines = append(lines, renderStatusLine(label, kind, detail, colorize))
	}
	return lines
}

func pendingTasksLine(count int, colorize bool) string {
	if count == 0 {
		return renderStatusLine("Phone tasks", statusOK, "None pending", colorize)
	}
	return renderStatusLine("Phone tasks", statusWarn, fmt.Sprintf("%d awaiting a call", count), colorize)
}

func inventoryLine(status *api.DaemonStatus, colorize bool) string {
	inv := status.Inventory
	if inv.Total == 0 {
		return renderStatusLine("Inventory", statusWarn, "Empty (run `bukkaku inventory import` or configure the crawler)", colorize)
	}
	detail := fmt.Sprintf("%d active / %d total", inv.Active, inv.Total)
	if inv.LastSeenAt != "" {
		detail = fmt.Sprintf("%s (last refresh %s)", detail, formatDisplayTime(inv.LastSeenAt))
	}
	return renderStatusLine("Inventory", statusOK, detail, colorize)
}
