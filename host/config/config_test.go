package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpeedPct != 100 {
		t.Fatalf("SpeedPct = %d, want default 100", cfg.SpeedPct)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.SpeedPct = 200
	cfg.CorePath = "/opt/cores/mgba_libretro.so"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SpeedPct != 200 || loaded.CorePath != cfg.CorePath {
		t.Fatalf("round trip mismatch: got %+v", loaded)
	}
}

func TestMissingKeysGetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// an old config file missing the "rewind" key entirely
	if err := os.WriteFile(path, []byte(`{"version":1,"speedPct":50}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpeedPct != 50 {
		t.Fatalf("present key should be honored: got %d, want 50", cfg.SpeedPct)
	}
	if cfg.Rewind.Capacity != Default().Rewind.Capacity {
		t.Fatalf("absent key should default: got capacity %d, want %d", cfg.Rewind.Capacity, Default().Rewind.Capacity)
	}
	if cfg.AudioBackend != Default().AudioBackend {
		t.Fatalf("absent audioBackend should default: got %q, want %q", cfg.AudioBackend, Default().AudioBackend)
	}
}

func TestExplicitAudioBackendIsHonored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"audioBackend":"sdl3"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AudioBackend != "sdl3" {
		t.Fatalf("explicit audioBackend should be honored, got %q", cfg.AudioBackend)
	}
}

func TestExplicitZeroIsHonoredNotDefaulted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"speedPct":0}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SpeedPct != 0 {
		t.Fatalf("explicit zero should be honored, got %d", cfg.SpeedPct)
	}
}
