// Package dispatch translates keystrokes into injection-sink calls while
// tracking which bound notes are currently down, so the sink never sees a
// duplicate press or a release without a matching press.
package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/benkraft/piano-typer/internal/inject"
	"github.com/benkraft/piano-typer/internal/keybind"
	"github.com/benkraft/piano-typer/internal/keystroke"
)

// Engine consumes keystrokes and drives the injection sink. It owns its
// held-note set; the display keeps an independent copy.
type Engine struct {
	table   *keybind.Table
	sink    inject.Sink
	enabled bool
	held    map[string]keybind.Action
}

// New creates an engine. A disabled engine (piano mode) ignores every
// keystroke and never touches the sink.
func New(table *keybind.Table, sink inject.Sink, enabled bool) *Engine {
	return &Engine{
		table:   table,
		sink:    sink,
		enabled: enabled,
		held:    make(map[string]keybind.Action),
	}
}

// Dispatch processes one keystroke. Unbound notes and redundant presses or
// releases are silent no-ops; for a given note the sink strictly
// alternates activate/deactivate, starting with activate. Sink errors are
// returned for the caller to log; the engine's state is updated either
// way, so the alternation guarantee survives a failed injection.
func (e *Engine) Dispatch(k keystroke.Keystroke) error {
	if !e.enabled {
		return nil
	}
	action, bound := e.table.Lookup(k.FullNote())
	if !bound {
		return nil
	}

	fullNote := k.FullNote()
	_, held := e.held[fullNote]

	if k.Press {
		if held {
			return nil
		}
		e.held[fullNote] = action
		return e.activate(action)
	}
	if !held {
		return nil
	}
	delete(e.held, fullNote)
	return e.deactivate(action)
}

func (e *Engine) activate(a keybind.Action) error {
	switch a.Kind {
	case keybind.KindKey:
		return e.sink.PressKey(a.Key)
	case keybind.KindMouseButton:
		return e.sink.PressMouseButton(a.Button)
	case keybind.KindCursor:
		// Motion is applied per tick while the note stays held.
		return nil
	}
	return fmt.Errorf("unknown action kind %v", a.Kind)
}

func (e *Engine) deactivate(a keybind.Action) error {
	switch a.Kind {
	case keybind.KindKey:
		return e.sink.ReleaseKey(a.Key)
	case keybind.KindMouseButton:
		return e.sink.ReleaseMouseButton(a.Button)
	case keybind.KindCursor:
		return nil
	}
	return fmt.Errorf("unknown action kind %v", a.Kind)
}

// MoveHeldCursor sums the held cursor directions, scales them by
// sensitivity and issues a single cursor move. Opposing directions cancel
// through the sum. No-op when nothing nets out.
func (e *Engine) MoveHeldCursor(sensitivity int) error {
	var dx, dy int
	for _, a := range e.held {
		if a.Kind == keybind.KindCursor {
			dx += a.DX
			dy += a.DY
		}
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	return e.sink.MoveCursor(dx*sensitivity, dy*sensitivity)
}

// HeldNotes returns a sorted snapshot of the bound notes currently down.
func (e *Engine) HeldNotes() []string {
	notes := make([]string, 0, len(e.held))
	for n := range e.held {
		notes = append(notes, n)
	}
	sort.Strings(notes)
	return notes
}

// ReleaseAll deactivates everything still held. Used by the shutdown pass
// so no emulated key is left stuck down. Sink errors are collected, not
// fatal; the held set is always empty afterwards.
func (e *Engine) ReleaseAll() error {
	var errs []error
	for _, fullNote := range e.HeldNotes() {
		action := e.held[fullNote]
		delete(e.held, fullNote)
		if err := e.deactivate(action); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
