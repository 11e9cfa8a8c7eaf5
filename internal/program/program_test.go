package program

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benkraft/piano-typer/internal/dispatch"
	"github.com/benkraft/piano-typer/internal/display"
	"github.com/benkraft/piano-typer/internal/keybind"
	"github.com/benkraft/piano-typer/internal/keystroke"
	"github.com/benkraft/piano-typer/internal/midi"
)

// scriptSource replays scripted poll batches, then reports a terminal
// error (or keeps returning empty batches when err is nil).
type scriptSource struct {
	batches [][]keystroke.Keystroke
	err     error
	onPoll  func()
}

func (s *scriptSource) Poll(max int, wait time.Duration) []keystroke.Keystroke {
	if s.onPoll != nil {
		s.onPoll()
	}
	if len(s.batches) == 0 {
		return nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	if len(b) > max {
		b = b[:max]
	}
	return b
}

func (s *scriptSource) Err() error {
	if len(s.batches) == 0 {
		return s.err
	}
	return nil
}

type recordingSink struct {
	calls []string
}

func (s *recordingSink) rec(f string, args ...any) error {
	s.calls = append(s.calls, fmt.Sprintf(f, args...))
	return nil
}

func (s *recordingSink) PressKey(c string) error           { return s.rec("press %s", c) }
func (s *recordingSink) ReleaseKey(c string) error         { return s.rec("release %s", c) }
func (s *recordingSink) PressMouseButton(b string) error   { return s.rec("mpress %s", b) }
func (s *recordingSink) ReleaseMouseButton(b string) error { return s.rec("mrelease %s", b) }
func (s *recordingSink) MoveCursor(dx, dy int) error       { return s.rec("move %d %d", dx, dy) }

type fakeSurface struct {
	userClosed bool
	closeCalls int
	draws      int
}

func (s *fakeSurface) Open() error              { return nil }
func (s *fakeSurface) Draw(display.Frame) error { s.draws++; return nil }
func (s *fakeSurface) Closed() bool             { return s.userClosed }
func (s *fakeSurface) Close() error             { s.closeCalls++; return nil }

func testTable(t *testing.T) *keybind.Table {
	t.Helper()
	table, err := keybind.Parse([]byte(`{
		"keyboard": {"G4": "g", "B4": "b"},
		"quit": "C8"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func press(t *testing.T, full string) keystroke.Keystroke {
	t.Helper()
	k, err := keystroke.ParseFullNote(full)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func newProgram(t *testing.T, source Source, sink *recordingSink, surface *fakeSurface) (*Program, *display.Display) {
	t.Helper()
	table := testTable(t)
	engine := dispatch.New(table, sink, true)
	disp := display.New(surface, display.Options{FrameRate: 1000})
	return New(source, engine, disp, table, Options{KeyLog: false, Sensitivity: 10}), disp
}

func TestRunReleasesHeldOnDeviceLoss(t *testing.T) {
	source := &scriptSource{
		batches: [][]keystroke.Keystroke{
			{press(t, "G4"), press(t, "B4")},
		},
		err: midi.ErrDeviceGone,
	}
	sink := &recordingSink{}
	surface := &fakeSurface{}
	prog, disp := newProgram(t, source, sink, surface)

	err := prog.Run(context.Background())
	if !errors.Is(err, midi.ErrDeviceGone) {
		t.Fatalf("Run = %v, want device-gone", err)
	}

	// Both notes pressed, then both released by the shutdown pass.
	want := map[string]bool{"press g": true, "press b": true, "release g": true, "release b": true}
	if len(sink.calls) != len(want) {
		t.Fatalf("calls = %v", sink.calls)
	}
	for _, c := range sink.calls[:2] {
		if c != "press g" && c != "press b" {
			t.Errorf("unexpected early call %q", c)
		}
	}
	for _, c := range sink.calls[2:] {
		if c != "release g" && c != "release b" {
			t.Errorf("unexpected late call %q", c)
		}
	}

	if surface.closeCalls != 1 {
		t.Errorf("display closed %d times", surface.closeCalls)
	}
	if !disp.IsClosed() {
		t.Error("display not closed after run")
	}
}

func TestRunStopsOnQuitNote(t *testing.T) {
	source := &scriptSource{
		batches: [][]keystroke.Keystroke{
			{press(t, "G4")},
			{press(t, "C8")},
		},
	}
	sink := &recordingSink{}
	surface := &fakeSurface{}
	prog, _ := newProgram(t, source, sink, surface)

	if err := prog.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v, want nil on quit", err)
	}
	// G4 was still held at quit time and must have been released.
	last := sink.calls[len(sink.calls)-1]
	if last != "release g" {
		t.Errorf("calls = %v, want trailing release", sink.calls)
	}
	if surface.closeCalls != 1 {
		t.Errorf("display closed %d times", surface.closeCalls)
	}
}

func TestRunStopsOnWindowClose(t *testing.T) {
	surface := &fakeSurface{}
	polls := 0
	source := &scriptSource{}
	source.onPoll = func() {
		polls++
		if polls >= 3 {
			surface.userClosed = true
		}
	}
	sink := &recordingSink{}
	prog, _ := newProgram(t, source, sink, surface)

	done := make(chan error, 1)
	go func() { done <- prog.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on window close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after window close")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &scriptSource{}
	sink := &recordingSink{}
	surface := &fakeSurface{}
	prog, _ := newProgram(t, source, sink, surface)

	done := make(chan error, 1)
	go func() { done <- prog.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if surface.closeCalls != 1 {
		t.Errorf("display closed %d times", surface.closeCalls)
	}
}

func TestRunRefreshesEachIteration(t *testing.T) {
	source := &scriptSource{
		batches: [][]keystroke.Keystroke{
			{press(t, "G4")},
			nil,
		},
		err: midi.ErrDeviceGone,
	}
	surface := &fakeSurface{}
	prog, _ := newProgram(t, source, &recordingSink{}, surface)

	prog.Run(context.Background())
	if surface.draws < 2 {
		t.Errorf("draws = %d, want one per iteration", surface.draws)
	}
}
