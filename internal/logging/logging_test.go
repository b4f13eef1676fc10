package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haven-app/haven/internal/config"
)

func TestFactory_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "haven.log")
	f := NewFactory(config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 1, Quiet: true})

	f.New("reconcile").Printf("pass %d done", 3)
	f.New("daemon").Println("watching")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	got := string(data)
	for _, want := range []string{"[reconcile] ", "pass 3 done", "[daemon] ", "watching"} {
		if !strings.Contains(got, want) {
			t.Errorf("log missing %q:\n%s", want, got)
		}
	}
}

func TestFactory_QuietWithoutFile(t *testing.T) {
	f := NewFactory(config.LogConfig{Quiet: true})
	l := f.New("core")
	if l.Prefix() != "[core] " {
		t.Errorf("Prefix() = %q", l.Prefix())
	}
	l.Println("dropped")
	if err := f.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}
