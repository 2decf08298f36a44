package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// CheckChromeForWorker reports the Chrome binary the automation worker will
// drive.
//
// The worker uses rod's launcher, which honors an explicitly configured
// binary and otherwise probes the usual Chrome and Chromium install
// locations. This helper mirrors that lookup so status output matches what
// the worker actually executes.
func CheckChromeForWorker(configuredBin, debuggerURL string) Status {
	result := Status{
		Name:        "Chrome",
		Description: "Drives B2B platform sessions",
	}

	if remote := strings.TrimSpace(debuggerURL); remote != "" {
		result.Command = remote
		result.Available = true
		result.Detail = "remote debugger"
		return result
	}

	if bin := strings.TrimSpace(configuredBin); bin != "" {
		if info, statErr := os.Stat(bin); statErr == nil && isExecutable(info) {
			result.Command = bin
			result.Available = true
			return result
		}
		if resolved, err := exec.LookPath(bin); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Command = bin
		result.Detail = fmt.Sprintf("binary %q not found", bin)
		return result
	}

	if path, has := launcher.LookPath(); has {
		result.Command = path
		result.Available = true
		return result
	}
	result.Command = "chrome"
	result.Detail = "no chrome or chromium install found"
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
