package keybind

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileFormat mirrors the keybinds.json layout: one object per action
// variant keyed by full note, plus the quit note.
type fileFormat struct {
	Keyboard map[string]string `json:"keyboard"`
	Mouse    map[string]string `json:"mouse"`
	Cursor   map[string][]int  `json:"cursor"`
	Quit     string            `json:"quit"`
}

// Load reads a keybind table from a JSON file. A missing file is not an
// error; the built-in defaults are returned instead. Malformed or duplicate
// entries are startup errors, never runtime ones.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("keybinds %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a table from raw JSON.
func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return build(f.Keyboard, f.Mouse, f.Cursor, f.Quit)
}
