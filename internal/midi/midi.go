// Package midi reads note events from a MIDI input port and normalizes
// them into keystrokes. The rtmidi driver delivers messages on its own
// thread; this package bridges them into a channel so the run loop can
// poll with a bounded wait.
package midi

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver

	"github.com/benkraft/piano-typer/internal/keystroke"
)

var (
	// ErrNoDevice is reported when no MIDI input port can be found at open.
	ErrNoDevice = errors.New("no MIDI input device found")
	// ErrDeviceGone is reported when the opened port disappears mid-run.
	ErrDeviceGone = errors.New("MIDI device disconnected")
)

// eventBuffer bounds the backlog between the driver thread and the run
// loop. A full buffer evicts the oldest event rather than blocking the
// driver.
const eventBuffer = 128

// Device is one opened MIDI input port.
type Device struct {
	port   drivers.In
	stop   func()
	events chan keystroke.Keystroke

	mu          sync.Mutex
	lastCheck   time.Time
	unavailable bool
}

// ListPorts returns the names of the available MIDI input ports.
func ListPorts() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Open connects to the named input port, or to the first available port
// when name is empty. Returns ErrNoDevice when nothing matches.
func Open(name string) (*Device, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, ErrNoDevice
	}

	var port drivers.In
	if name == "" {
		port = ins[0]
	} else {
		for _, in := range ins {
			if in.String() == name {
				port = in
				break
			}
		}
	}
	if port == nil {
		return nil, fmt.Errorf("%w: no port named %q", ErrNoDevice, name)
	}

	d := &Device{
		port:   port,
		events: make(chan keystroke.Keystroke, eventBuffer),
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if k, ok := classify(msg); ok {
			d.enqueue(k)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", port, err)
	}
	d.stop = stop
	return d, nil
}

// enqueue hands one keystroke to the run loop. When the buffer is full
// the oldest event is evicted to make room: the most recent event per
// note is what decides held state, so the stale one is the safe one to
// lose. Dropping the newest instead could lose a release and leave a key
// stuck until shutdown.
func (d *Device) enqueue(k keystroke.Keystroke) {
	for {
		select {
		case d.events <- k:
			return
		default:
		}
		select {
		case dropped := <-d.events:
			log.Printf("MIDI backlog full, dropped %v", dropped)
		default:
		}
	}
}

// Name returns the port name.
func (d *Device) Name() string {
	return d.port.String()
}

// Poll drains up to max keystrokes in device arrival order, waiting at
// most wait for the first one. An empty result is normal.
func (d *Device) Poll(max int, wait time.Duration) []keystroke.Keystroke {
	if max <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	var out []keystroke.Keystroke
	select {
	case k := <-d.events:
		out = append(out, k)
	case <-timer.C:
		return nil
	}
	for len(out) < max {
		select {
		case k := <-d.events:
			out = append(out, k)
		default:
			return out
		}
	}
	return out
}

// Err reports whether the device is still usable. Once the port vanishes
// from the driver's port list this returns ErrDeviceGone and keeps
// returning it. The port scan is throttled to once per second.
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unavailable {
		return ErrDeviceGone
	}
	if time.Since(d.lastCheck) < time.Second {
		return nil
	}
	d.lastCheck = time.Now()

	for _, in := range midi.GetInPorts() {
		if in.String() == d.port.String() {
			return nil
		}
	}
	d.unavailable = true
	return ErrDeviceGone
}

// Close stops the listener. The process-wide driver is shut down
// separately via CloseDriver.
func (d *Device) Close() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

// CloseDriver releases the MIDI driver. Call once at process exit.
func CloseDriver() {
	midi.CloseDriver()
}

// classify turns one raw MIDI message into zero or one keystroke. Note-on
// with velocity zero is a release, as is note-off; anything that is not a
// note message (control change, clock, sysex) is dropped.
func classify(msg midi.Message) (keystroke.Keystroke, bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return keystroke.FromMIDIKey(key, velocity > 0), true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return keystroke.FromMIDIKey(key, false), true
	}
	return keystroke.Keystroke{}, false
}
