// Package program owns the run loop: poll MIDI, dispatch, update the
// display, pace the frame rate, and unwind cleanly on any exit path.
package program

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/benkraft/piano-typer/internal/dispatch"
	"github.com/benkraft/piano-typer/internal/display"
	"github.com/benkraft/piano-typer/internal/keybind"
	"github.com/benkraft/piano-typer/internal/keystroke"
)

// pollWait bounds how long one iteration blocks on the device, keeping the
// loop responsive to window-close requests.
const pollWait = 5 * time.Millisecond

// midiReads caps how many keystrokes one iteration drains.
const midiReads = 32

// Source is the MIDI ingestion boundary. Err reports the device-
// unavailable condition; Poll never blocks longer than its wait.
type Source interface {
	Poll(max int, wait time.Duration) []keystroke.Keystroke
	Err() error
}

// Options carries the loop's tunables out of the config.
type Options struct {
	PianoMode   bool
	KeyLog      bool
	Sensitivity int
}

// Program wires the components together and drives them.
type Program struct {
	source  Source
	engine  *dispatch.Engine
	display *display.Display
	table   *keybind.Table
	opts    Options
}

// New assembles a program. Every collaborator is passed in explicitly;
// nothing is ambient.
func New(source Source, engine *dispatch.Engine, disp *display.Display, table *keybind.Table, opts Options) *Program {
	return &Program{
		source:  source,
		engine:  engine,
		display: disp,
		table:   table,
		opts:    opts,
	}
}

// Run opens the display and loops until the window closes, the device
// disappears, the quit note is pressed, or ctx is cancelled. Whatever the
// exit path, every held note is released and the display is closed before
// returning. The returned error is the device loss, if that is what ended
// the session; everything else is a normal stop.
func (p *Program) Run(ctx context.Context) error {
	if err := p.display.Open(); err != nil {
		return err
	}

	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Exiting via interrupt...")
			break loop
		default:
		}
		if p.display.IsClosed() {
			log.Println("Exiting via display...")
			break loop
		}
		if err := p.source.Err(); err != nil {
			log.Printf("Exiting, device lost: %v", err)
			runErr = err
			break loop
		}

		for _, k := range p.source.Poll(midiReads, pollWait) {
			if p.opts.KeyLog {
				log.Print(k)
			}
			if p.isQuitStroke(k) {
				log.Println("Exiting via quit key...")
				break loop
			}
			// Dispatch before render, so the emulated input and the
			// picture never diverge by more than one frame.
			if err := p.engine.Dispatch(k); err != nil {
				// One refused injection must not end the session.
				log.Printf("Injection failed: %v", err)
			}
			if err := p.display.UpdateKey(k); err != nil {
				log.Printf("Exiting, display gone: %v", err)
				break loop
			}
		}

		if !p.opts.PianoMode {
			if err := p.engine.MoveHeldCursor(p.opts.Sensitivity); err != nil {
				log.Printf("Cursor move failed: %v", err)
			}
		}

		if err := p.display.Refresh(); err != nil {
			if errors.Is(err, display.ErrClosed) {
				break loop
			}
			log.Printf("Refresh failed: %v", err)
		}
		p.display.Tick()
	}

	p.shutdown()
	return runErr
}

// shutdown releases every note still held so no emulated key stays stuck,
// then tears the display down.
func (p *Program) shutdown() {
	if err := p.engine.ReleaseAll(); err != nil {
		log.Printf("Release on shutdown failed: %v", err)
	}
	if err := p.display.Close(); err != nil {
		log.Printf("Display close failed: %v", err)
	}
}

// isQuitStroke reports whether this keystroke is the configured quit note.
// Piano mode disables the quit note along with the other controls.
func (p *Program) isQuitStroke(k keystroke.Keystroke) bool {
	if p.opts.PianoMode || !k.Press {
		return false
	}
	quit := p.table.Quit()
	return quit != "" && k.FullNote() == quit
}
