// Package config implements the host's persisted configuration: a
// JSON-backed settings file written atomically, with a present-keys
// merge so files from an older version gain new defaults instead of
// zero values (grounded on the teacher's standalone/storage package).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the host's persisted, user-facing settings. Session state
// (loaded ROM, running flag, detected audio rate, ...) never belongs
// here — only what the client wants remembered across runs.
type Config struct {
	Version int `json:"version"`

	CorePath string  `json:"corePath"`
	SaveDir  string  `json:"saveDir"`
	SpeedPct int     `json:"speedPct"`
	Volume   float32 `json:"volume"`
	Muted    bool    `json:"muted"`

	// AudioBackend selects the playback sink: "oto" (default, pull-based)
	// or "sdl3" (push-based, for clients already linking SDL3 elsewhere).
	AudioBackend string `json:"audioBackend"`

	Rewind  RewindConfig  `json:"rewind"`
	Palette PaletteConfig `json:"palette"`

	RetroAchievements RetroAchievementsConfig `json:"retroAchievements"`
}

// RewindConfig mirrors the rewind ring's two free parameters.
type RewindConfig struct {
	Enabled  bool `json:"enabled"`
	Capacity int  `json:"capacity"`
	Interval int  `json:"interval"` // push every Nth emulated frame
}

// PaletteConfig is the optional four-shade remap applied by the pixel
// converter (spec.md §4.2).
type PaletteConfig struct {
	Enabled    bool      `json:"enabled"`
	Colors     [4]uint32 `json:"colors"` // 0xRRGGBB, lightest (c0) to darkest (c3)
	SGBBorders bool      `json:"sgbBorders"`
}

// RetroAchievementsConfig holds login and mode settings for the
// achievements bridge.
type RetroAchievementsConfig struct {
	Enabled  bool   `json:"enabled"`
	Hardcore bool   `json:"hardcore"`
	Encore   bool   `json:"encore"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"` // password is never stored
}

const currentVersion = 1

// Default returns a Config with sensible out-of-the-box values.
func Default() *Config {
	return &Config{
		Version:      currentVersion,
		SpeedPct:     100,
		Volume:       1.0,
		AudioBackend: "oto",
		Rewind: RewindConfig{
			Enabled:  false,
			Capacity: 120,
			Interval: 1,
		},
	}
}

// Load reads path, applying defaults for any top-level key absent from
// the file (not merely zero-valued — an explicit `"volume": 0` is
// honored). Presence is checked per top-level key only: a field missing
// inside a present object such as "rewind" keeps its zero value.
// A missing file returns Default() with no error.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyMissingDefaults(cfg, presentTopLevelKeys(raw))
	return cfg, nil
}

// Save writes cfg to path via a temp-file-then-rename, so a crash
// mid-write never corrupts the previous config.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", tmp, err)
	}
	return nil
}

// presentTopLevelKeys reports which top-level JSON keys were actually
// present in raw, so Load can distinguish "absent, take the default"
// from "present and explicitly zero."
func presentTopLevelKeys(raw []byte) map[string]bool {
	present := make(map[string]bool)
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return present
	}
	for k := range obj {
		present[k] = true
	}
	return present
}

// applyMissingDefaults fills in fields whose top-level key was absent
// from the file with the value from Default().
func applyMissingDefaults(cfg *Config, present map[string]bool) {
	def := Default()

	if !present["version"] {
		cfg.Version = def.Version
	}
	if !present["speedPct"] {
		cfg.SpeedPct = def.SpeedPct
	}
	if !present["volume"] {
		cfg.Volume = def.Volume
	}
	if !present["audioBackend"] {
		cfg.AudioBackend = def.AudioBackend
	}
	if !present["rewind"] {
		cfg.Rewind = def.Rewind
	}
}
