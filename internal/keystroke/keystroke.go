package keystroke

import (
	"fmt"
	"strconv"
	"strings"
)

// Names lists the twelve pitch classes, indexed by MIDI key number modulo 12.
var Names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Keystroke is one press or release of a single piano key. Identity is the
// full note (note name plus octave); the press flag is not part of identity.
type Keystroke struct {
	Note   string
	Octave int
	Press  bool
}

// New builds a Keystroke from a note name and octave, validating both.
func New(note string, octave int, press bool) (Keystroke, error) {
	note = strings.ToUpper(note)
	if !validNote(note) {
		return Keystroke{}, fmt.Errorf("invalid note %q, available notes: %v", note, Names)
	}
	if octave < 0 {
		return Keystroke{}, fmt.Errorf("invalid octave %d", octave)
	}
	return Keystroke{Note: note, Octave: octave, Press: press}, nil
}

// FromMIDIKey converts a raw MIDI key number (0-127) into a Keystroke.
func FromMIDIKey(key uint8, press bool) Keystroke {
	return Keystroke{
		Note:   Names[key%12],
		Octave: int(key / 12),
		Press:  press,
	}
}

// ParseFullNote parses a full-note string such as "C#4" back into a
// Keystroke with the press flag set.
func ParseFullNote(s string) (Keystroke, error) {
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 1 {
		return Keystroke{}, fmt.Errorf("invalid full note %q", s)
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return Keystroke{}, fmt.Errorf("invalid full note %q", s)
	}
	return New(s[:i], octave, true)
}

// FullNote returns the string identity of the key, e.g. "C#4".
func (k Keystroke) FullNote() string {
	return k.Note + strconv.Itoa(k.Octave)
}

// Inverted returns a copy with the press state flipped.
func (k Keystroke) Inverted() Keystroke {
	return Keystroke{Note: k.Note, Octave: k.Octave, Press: !k.Press}
}

// Same reports whether two keystrokes refer to the same physical key,
// ignoring press state.
func (k Keystroke) Same(other Keystroke) bool {
	return k.FullNote() == other.FullNote()
}

func (k Keystroke) String() string {
	action := "RELEASE"
	if k.Press {
		action = "PRESS"
	}
	return fmt.Sprintf("[ note %-4s | %-7s ]", k.FullNote(), action)
}

func validNote(note string) bool {
	for _, n := range Names {
		if n == note {
			return true
		}
	}
	return false
}
