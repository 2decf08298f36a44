package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/deps"
)

const lineAPIBase = "https://api.line.me"

// CheckLINE verifies that the LINE Messaging API is reachable and the channel
// token is valid. The bot-info endpoint validates the token without pushing a
// message to anyone. baseURL overrides the API host for tests; pass "" for
// the real service.
func CheckLINE(ctx context.Context, baseURL, token, to string) Result {
	const name = "LINE"

	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "channel token missing"}
	}
	if strings.TrimSpace(to) == "" {
		return Result{Name: name, Detail: "recipient id missing"}
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = lineAPIBase
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v2/bot/info", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid channel token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates all system-level dependencies for the given
// config. Both the daemon and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := []deps.Status{
		deps.CheckChromeForWorker(cfg.Browser.Bin, cfg.Browser.DebuggerURL),
	}
	if fields := strings.Fields(cfg.Inventory.CrawlerCommand); len(fields) > 0 {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{{
			Name:        "Inventory crawler",
			Command:     fields[0],
			Description: "Refreshes the trade-exchange snapshot",
			Optional:    true,
		}})...)
	}
	return statuses
}
