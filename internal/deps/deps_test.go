package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "   "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command failure, got %#v", results[2])
	}
}

func TestCheckChromeForWorkerRemoteDebugger(t *testing.T) {
	status := CheckChromeForWorker("", "ws://127.0.0.1:9222")
	if !status.Available {
		t.Fatalf("remote debugger should count as available, got %#v", status)
	}
	if status.Command != "ws://127.0.0.1:9222" {
		t.Fatalf("unexpected command: %s", status.Command)
	}
}

func TestCheckChromeForWorkerConfiguredPath(t *testing.T) {
	tmp := t.TempDir()
	chromePath := filepath.Join(tmp, "chromium")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(chromePath, script, 0o755); err != nil {
		t.Fatalf("write chromium stub: %v", err)
	}

	status := CheckChromeForWorker(chromePath, "")
	if !status.Available {
		t.Fatalf("expected configured binary to be available, got detail %q", status.Detail)
	}
	if status.Command != chromePath {
		t.Fatalf("expected command %q, got %q", chromePath, status.Command)
	}
}

func TestCheckChromeForWorkerPathLookup(t *testing.T) {
	tmp := t.TempDir()
	chromePath := filepath.Join(tmp, "my-chromium")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(chromePath, script, 0o755); err != nil {
		t.Fatalf("write chromium stub: %v", err)
	}
	t.Setenv("PATH", tmp)

	status := CheckChromeForWorker("my-chromium", "")
	if !status.Available {
		t.Fatalf("expected PATH lookup to succeed, got detail %q", status.Detail)
	}
	if status.Command != chromePath {
		t.Fatalf("expected command %q, got %q", chromePath, status.Command)
	}
}

func TestCheckChromeForWorkerMissingConfiguredBinary(t *testing.T) {
	t.Setenv("PATH", "")
	status := CheckChromeForWorker("definitely-not-a-browser", "")
	if status.Available {
		t.Fatal("expected missing configured binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
}
