package preflight

import (
	"context"
	"strings"

	"github.com/hazuki802/bukkaku/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding section is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data and log directories (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// LINE (when configured)
	if strings.TrimSpace(cfg.Notifications.LineChannelToken) != "" {
		results = append(results, CheckLINE(ctx, "", cfg.Notifications.LineChannelToken, cfg.Notifications.LineTo))
	}

	// Platform credentials (per enabled platform)
	results = append(results, CheckPlatformCredentials(cfg)...)

	return results
}

// CheckPlatformCredentials validates that every enabled platform has a
// complete login. Disabled platforms produce no result.
func CheckPlatformCredentials(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	platforms := []struct {
		name  string
		creds config.PlatformCredentials
	}{
		{"itandi", cfg.Platforms.Itandi},
		{"ielove", cfg.Platforms.Ielove},
		{"es_square", cfg.Platforms.EsSquare},
	}

	var results []Result
	for _, p := range platforms {
		if !p.creds.Enabled {
			continue
		}
		name := p.name + " credentials"
		if strings.TrimSpace(p.creds.Email) == "" || strings.TrimSpace(p.creds.Password) == "" {
			results = append(results, Result{Name: name, Detail: "email or password missing"})
			continue
		}
		results = append(results, Result{Name: name, Passed: true, Detail: "configured"})
	}
	return results
}
