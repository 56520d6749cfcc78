package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Heap.SizeBytes <= 0 {
		t.Fatal("default heap size should be positive")
	}
	if cfg.Scheduler.MinTaskDelayMs <= 0 {
		t.Fatal("default min task delay should be positive")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m8r.toml")
	body := "[Heap]\nSizeBytes = 131072\n\n[GC]\nMaxObjectDiff = 5\nMaxStringDiff = 5\nMaxCallsSinceLastGC = 40\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Heap.SizeBytes != 131072 {
		t.Fatalf("Heap.SizeBytes = %d, want 131072", cfg.Heap.SizeBytes)
	}
	if cfg.GC.MaxCallsSinceLastGC != 40 {
		t.Fatalf("GC.MaxCallsSinceLastGC = %d, want 40", cfg.GC.MaxCallsSinceLastGC)
	}
	// Scheduler wasn't in the file, so its defaults should survive.
	if cfg.Scheduler.PollingRateMs != 50 {
		t.Fatalf("Scheduler.PollingRateMs = %d, want unchanged default 50", cfg.Scheduler.PollingRateMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m8r.toml")
	if err := os.WriteFile(path, []byte("[Heap]\nBogusField = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject an unknown TOML field")
	}
}
