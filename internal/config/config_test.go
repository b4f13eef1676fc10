package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Grocery.WindowDays != 7 {
		t.Errorf("window = %d, want 7", cfg.Grocery.WindowDays)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Dashboard.Port)
	}
	if cfg.Daemon.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Daemon.Debounce)
	}
	if cfg.Daemon.InboxDir != filepath.Join(cfg.DataDir, "inbox") {
		t.Errorf("inbox = %q", cfg.Daemon.InboxDir)
	}
	if filepath.Base(cfg.DBPath()) != "haven.db" {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
data_dir = "` + filepath.ToSlash(dir) + `"
owner = "family-1"

[grocery]
window_days = 3

[daemon]
debounce = "2s"

[log]
quiet = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HAVEN_DASHBOARD_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Owner != "family-1" || cfg.Grocery.WindowDays != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Daemon.Debounce != 2*time.Second {
		t.Errorf("debounce = %v", cfg.Daemon.Debounce)
	}
	if !cfg.Log.Quiet {
		t.Error("quiet not applied")
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("env override ignored: port = %d", cfg.Dashboard.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad window", "[grocery]\nwindow_days = 5\n", "window_days"},
		{"bad port", "[dashboard]\nport = 70000\n", "dashboard.port"},
		{"malformed", "data_dir = \n", "failed to read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written default failed: %v", err)
	}
	want := Default()
	if cfg.Grocery != want.Grocery || cfg.Dashboard != want.Dashboard || cfg.Daemon.Debounce != want.Daemon.Debounce {
		t.Errorf("round trip = %+v, want %+v", cfg, want)
	}

	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault() should refuse to overwrite")
	}
}
