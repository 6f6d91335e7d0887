package logger

import (
	"path/filepath"
	"testing"

	"github.com/quantpilot/quantpilot/internal/config"
)

func TestNew_Console(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Output: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "quantpilot.log")
	log, err := New(config.LogConfig{Level: "info", Output: "file", File: file, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.Info("written to file")
	if err := log.Sync(); err != nil {
		t.Logf("sync: %v", err)
	}
}

func TestNew_BadLevelFallsBack(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud", Output: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if !log.Core().Enabled(0) { // InfoLevel
		t.Error("expected info level to be enabled after fallback")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(config.LogConfig{Level: "info", Output: "console"})
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
