package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Particles.Count != 250000 {
		t.Errorf("expected 250000 particles, got %d", cfg.Particles.Count)
	}
	if cfg.Derived.Gravity32[1] != float32(-9.80665) {
		t.Errorf("expected gravity y -9.80665, got %v", cfg.Derived.Gravity32[1])
	}
	if cfg.Derived.Origin32 != [4]float32{0, 0.5, 0, 0} {
		t.Errorf("unexpected origin %v", cfg.Derived.Origin32)
	}
	if cfg.Derived.Workers < 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Derived.Workers)
	}
	if cfg.Backend.Mode != "parallel" {
		t.Errorf("expected default mode parallel, got %q", cfg.Backend.Mode)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := []byte("particles:\n  count: 1000\nbackend:\n  mode: vector8\n  workers: 3\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading overlay: %v", err)
	}

	if cfg.Particles.Count != 1000 {
		t.Errorf("expected overlay count 1000, got %d", cfg.Particles.Count)
	}
	if cfg.Backend.Mode != "vector8" {
		t.Errorf("expected overlay mode vector8, got %q", cfg.Backend.Mode)
	}
	if cfg.Derived.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Derived.Workers)
	}
	// Fields absent from the overlay keep their defaults
	if cfg.Physics.Friction != 0.33 {
		t.Errorf("expected default friction 0.33, got %v", cfg.Physics.Friction)
	}
}

func TestLoadRejectsBadGravity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("physics:\n  gravity: [1.0]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for one-component gravity")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg := Defaults()
	cfg.Particles.Count = 4242

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading snapshot: %v", err)
	}
	if loaded.Particles.Count != 4242 {
		t.Errorf("expected 4242 after reload, got %d", loaded.Particles.Count)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected panic from Cfg before Init")
		}
	}()
	Cfg()
}

func TestLoadRejectsOriginBelowSpawnRadius(t *testing.T) {
	path := filepath.Join(t.TempDir(), "low.yaml")
	overlay := []byte("particles:\n  origin: [0, 0.05, 0]\n  spawn_radius: 0.1\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for origin below spawn radius")
	}
}
