// Package display renders a live picture of which piano keys are held. The
// Display owns the held-note bookkeeping and frame pacing; actual window
// work happens behind the Surface interface so the logic is testable
// without a window system.
package display

import (
	"errors"
	"sort"
	"time"

	"github.com/benkraft/piano-typer/internal/keystroke"
)

var (
	// ErrNotOpen is returned when the display is used before Open.
	ErrNotOpen = errors.New("display not open")
	// ErrClosed is returned when the display is used after Close. This is
	// a programmer error, distinct from the user dismissing the window.
	ErrClosed = errors.New("display already closed")
)

// Overlay is one highlighted key in a frame, positioned by its octave
// relative to the leftmost displayed octave.
type Overlay struct {
	FullNote     string
	OctaveOffset int
}

// Frame describes one rendered picture: the base instrument plus a sorted
// set of overlays. Identical held sets produce structurally identical
// frames.
type Frame struct {
	Overlays []Overlay
}

// Surface is the window-system boundary: create the window, draw a frame,
// report user closure, tear down.
type Surface interface {
	Open() error
	Draw(Frame) error
	Closed() bool
	Close() error
}

// Options configures the displayed octave window and frame pacing.
type Options struct {
	NumOctaves  int
	StartOctave int
	FrameRate   int
}

const (
	defaultNumOctaves  = 5
	defaultStartOctave = 3
	defaultFrameRate   = 60
)

func (o Options) withDefaults() Options {
	if o.NumOctaves <= 0 {
		o.NumOctaves = defaultNumOctaves
	}
	if o.StartOctave < 0 {
		o.StartOctave = defaultStartOctave
	}
	if o.FrameRate <= 0 {
		o.FrameRate = defaultFrameRate
	}
	return o
}

type state int

const (
	stateUninitialized state = iota
	stateOpen
	stateClosed
)

// Display reconstructs the held-note set from the keystroke stream and
// redraws it at a bounded rate. Its held set is independent of the
// dispatch engine's; the two never share storage.
type Display struct {
	surface  Surface
	opts     Options
	held     map[string]keystroke.Keystroke
	state    state
	lastTick time.Time
}

// New wires a display to a surface. Zero option fields get defaults.
func New(surface Surface, opts Options) *Display {
	return &Display{
		surface: surface,
		opts:    opts.withDefaults(),
		held:    make(map[string]keystroke.Keystroke),
	}
}

// Open creates the window. Valid only once, from the uninitialized state.
func (d *Display) Open() error {
	switch d.state {
	case stateOpen:
		return nil
	case stateClosed:
		return ErrClosed
	}
	if err := d.surface.Open(); err != nil {
		return err
	}
	d.state = stateOpen
	d.lastTick = time.Now()
	return nil
}

// UpdateKey folds one keystroke into the held set: a press adds the note
// if absent, a release removes it if present. Unbound notes update the
// picture like any other.
func (d *Display) UpdateKey(k keystroke.Keystroke) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if k.Press {
		d.held[k.FullNote()] = k
	} else {
		delete(d.held, k.FullNote())
	}
	return nil
}

// Refresh draws one frame reflecting the current held set. Idempotent:
// with no intervening updates two refreshes draw identical frames.
func (d *Display) Refresh() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	return d.surface.Draw(d.frame())
}

func (d *Display) frame() Frame {
	overlays := make([]Overlay, 0, len(d.held))
	for fullNote, k := range d.held {
		overlays = append(overlays, Overlay{
			FullNote:     fullNote,
			OctaveOffset: k.Octave - d.opts.StartOctave,
		})
	}
	sort.Slice(overlays, func(i, j int) bool {
		return overlays[i].FullNote < overlays[j].FullNote
	})
	return Frame{Overlays: overlays}
}

// Tick blocks until at least one frame interval has passed since the last
// tick, bounding the render loop's rate. It never draws by itself.
func (d *Display) Tick() {
	interval := time.Second / time.Duration(d.opts.FrameRate)
	if elapsed := time.Since(d.lastTick); elapsed < interval {
		time.Sleep(interval - elapsed)
	}
	d.lastTick = time.Now()
}

// IsClosed reports whether the window is gone, either because the user
// dismissed it or Close was called. Once true it stays true.
func (d *Display) IsClosed() bool {
	if d.state == stateClosed {
		return true
	}
	if d.state == stateOpen && d.surface.Closed() {
		d.state = stateClosed
	}
	return d.state == stateClosed
}

// Close tears the window down. Safe to call repeatedly or on a display
// that never opened.
func (d *Display) Close() error {
	if d.state == stateClosed {
		return nil
	}
	d.state = stateClosed
	return d.surface.Close()
}

// HeldNotes returns a sorted snapshot of the notes shown as held.
func (d *Display) HeldNotes() []string {
	notes := make([]string, 0, len(d.held))
	for n := range d.held {
		notes = append(notes, n)
	}
	sort.Strings(notes)
	return notes
}

func (d *Display) checkOpen() error {
	switch d.state {
	case stateUninitialized:
		return ErrNotOpen
	case stateClosed:
		return ErrClosed
	}
	if d.surface.Closed() {
		d.state = stateClosed
		return ErrClosed
	}
	return nil
}
