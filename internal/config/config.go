// Package config loads and persists the program configuration as JSON
// under the user config directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Config holds application configuration.
type Config struct {
	ProfileID string `json:"profile_id"`

	// DeviceName selects the MIDI input port; empty means first available.
	DeviceName string `json:"device_name"`

	// KeybindsPath points at the keybinds.json file. When the file is
	// missing the built-in table is used.
	KeybindsPath string `json:"keybinds_path"`

	// AssetsDir holds octave.png and held/<fullNote>.png overlays.
	// Missing assets are generated in-process.
	AssetsDir string `json:"assets_dir"`

	FrameRate   int     `json:"frame_rate"`
	Sensitivity int     `json:"sensitivity"`
	NumOctaves  int     `json:"num_octaves"`
	StartOctave int     `json:"start_octave"`
	Scale       float64 `json:"scale"`

	// PianoMode disables all input injection; the display still runs.
	PianoMode bool `json:"piano_mode"`

	// KeyLog prints every keystroke as it arrives.
	KeyLog bool `json:"key_log"`
}

// Default returns a fresh configuration with a generated profile ID.
func Default() *Config {
	return &Config{
		ProfileID:   uuid.New().String(),
		FrameRate:   60,
		Sensitivity: 12,
		NumOctaves:  5,
		StartOctave: 3,
		Scale:       1,
		KeyLog:      true,
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "piano-typer"), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default location, returning defaults if
// the file does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path. A missing file yields
// defaults; a malformed file is a startup error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if cfg.KeybindsPath == "" {
			cfg.KeybindsPath = filepath.Join(filepath.Dir(path), "keybinds.json")
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.fillDefaults(filepath.Dir(path))
	return &cfg, nil
}

// LoadOrInit reads the config from an explicit path, writing a fresh
// default config to disk when none exists yet. First launch therefore
// persists the generated profile ID and default settings, so later runs
// load the same profile instead of regenerating it.
func LoadOrInit(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.SaveTo(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// fillDefaults backfills fields that older or hand-edited config files may
// leave zero.
func (c *Config) fillDefaults(dir string) {
	if c.ProfileID == "" {
		c.ProfileID = uuid.New().String()
	}
	if c.KeybindsPath == "" {
		c.KeybindsPath = filepath.Join(dir, "keybinds.json")
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 60
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = 12
	}
	if c.NumOctaves <= 0 {
		c.NumOctaves = 5
	}
	if c.StartOctave <= 0 {
		c.StartOctave = 3
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
