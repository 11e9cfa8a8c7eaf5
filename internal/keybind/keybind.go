// Package keybind maps full notes to the emulated input actions they
// trigger. The table is loaded once at startup and read-only afterwards.
package keybind

import (
	"fmt"
	"sort"

	"github.com/benkraft/piano-typer/internal/keystroke"
)

// Kind discriminates the action variants.
type Kind int

const (
	KindKey Kind = iota
	KindMouseButton
	KindCursor
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindMouseButton:
		return "mouse"
	case KindCursor:
		return "cursor"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Action describes one emulated input. Exactly the fields of its Kind are
// meaningful: Key for KindKey, Button for KindMouseButton, DX/DY for
// KindCursor.
type Action struct {
	Kind   Kind
	Key    string
	Button string
	DX, DY int
}

// Table is the immutable full-note to action mapping, plus the optional
// quit note that ends the session.
type Table struct {
	binds map[string]Action
	quit  string
}

// Lookup returns the action bound to a full note. Unbound notes are not an
// error; the second result is false.
func (t *Table) Lookup(fullNote string) (Action, bool) {
	a, ok := t.binds[fullNote]
	return a, ok
}

// Quit returns the full note that ends the session, or "" if none is bound.
func (t *Table) Quit() string {
	return t.quit
}

// Len returns the number of bound notes.
func (t *Table) Len() int {
	return len(t.binds)
}

// FullNotes returns the bound full notes in sorted order.
func (t *Table) FullNotes() []string {
	notes := make([]string, 0, len(t.binds))
	for n := range t.binds {
		notes = append(notes, n)
	}
	sort.Strings(notes)
	return notes
}

// MouseButtons the injection layer understands. "middle" is accepted as an
// alias for "center".
var mouseButtons = map[string]bool{
	"left":   true,
	"right":  true,
	"center": true,
	"middle": true,
}

// build assembles a table from per-variant maps, rejecting malformed
// entries and duplicate notes across variants.
func build(keyboard map[string]string, mouse map[string]string, cursor map[string][]int, quit string) (*Table, error) {
	binds := make(map[string]Action, len(keyboard)+len(mouse)+len(cursor))

	add := func(fullNote string, a Action) error {
		if _, err := keystroke.ParseFullNote(fullNote); err != nil {
			return err
		}
		if prev, dup := binds[fullNote]; dup {
			return fmt.Errorf("note %s bound twice (%s and %s)", fullNote, prev.Kind, a.Kind)
		}
		binds[fullNote] = a
		return nil
	}

	for fullNote, key := range keyboard {
		if key == "" {
			return nil, fmt.Errorf("empty key for note %s", fullNote)
		}
		if err := add(fullNote, Action{Kind: KindKey, Key: key}); err != nil {
			return nil, err
		}
	}
	for fullNote, button := range mouse {
		if !mouseButtons[button] {
			return nil, fmt.Errorf("unknown mouse button %q for note %s", button, fullNote)
		}
		if err := add(fullNote, Action{Kind: KindMouseButton, Button: button}); err != nil {
			return nil, err
		}
	}
	for fullNote, dir := range cursor {
		if len(dir) != 2 {
			return nil, fmt.Errorf("cursor direction for note %s must be [dx, dy], got %v", fullNote, dir)
		}
		if err := add(fullNote, Action{Kind: KindCursor, DX: dir[0], DY: dir[1]}); err != nil {
			return nil, err
		}
	}

	if quit != "" {
		if _, err := keystroke.ParseFullNote(quit); err != nil {
			return nil, fmt.Errorf("quit note: %w", err)
		}
	}

	return &Table{binds: binds, quit: quit}, nil
}

// Defaults returns the built-in table, aimed at WASD-style game controls on
// the middle of an 88-key piano, with cursor directions on the upper
// octaves and C8 as the quit note.
func Defaults() *Table {
	t, err := build(
		map[string]string{
			"A#4": "w",
			"A4":  "a",
			"B4":  "s",
			"C5":  "d",
			"D5":  "space",
			"F4":  "ctrl",
			"G4":  "shift",
			"G#4": "q",
			"C#5": "e",
			"E5":  "f",
			"F5":  "1",
			"F#5": "2",
			"G5":  "3",
			"G#5": "4",
			"A5":  "5",
			"A#5": "6",
			"B5":  "7",
			"C6":  "8",
			"C#6": "9",
			"D4":  "f3",
			"D#4": "tab",
			"C#4": "esc",
		},
		map[string]string{
			"G6":  "left",
			"A6":  "right",
			"G#6": "middle",
		},
		map[string][]int{
			"F6":  {-1, 0},
			"C7":  {1, 0},
			"A#6": {0, -1},
			"B6":  {0, 1},
		},
		"C8",
	)
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return t
}
