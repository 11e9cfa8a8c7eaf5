package midi

import (
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/benkraft/piano-typer/internal/keystroke"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		msg       midi.Message
		want      string
		wantPress bool
		wantOK    bool
	}{
		{"note on", midi.NoteOn(0, 60, 100), "C5", true, true},
		{"note on zero velocity", midi.NoteOn(0, 60, 0), "C5", false, true},
		{"note off", midi.NoteOff(0, 61), "C#5", false, true},
		{"control change", midi.ControlChange(0, 64, 127), "", false, false},
		{"clock", midi.TimingClock(), "", false, false},
		{"pitch bend", midi.Pitchbend(0, 0), "", false, false},
	}
	for _, tt := range tests {
		k, ok := classify(tt.msg)
		if ok != tt.wantOK {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if k.FullNote() != tt.want || k.Press != tt.wantPress {
			t.Errorf("%s: got %s press=%v, want %s press=%v",
				tt.name, k.FullNote(), k.Press, tt.want, tt.wantPress)
		}
	}
}

func TestPollOrderAndBounds(t *testing.T) {
	d := &Device{events: make(chan keystroke.Keystroke, eventBuffer)}

	notes := []uint8{60, 62, 64, 65}
	for _, n := range notes {
		d.events <- keystroke.FromMIDIKey(n, true)
	}

	got := d.Poll(3, time.Millisecond)
	if len(got) != 3 {
		t.Fatalf("Poll(3) returned %d keystrokes", len(got))
	}
	want := []string{"C5", "D5", "E5"}
	for i, k := range got {
		if k.FullNote() != want[i] {
			t.Errorf("event %d: got %s, want %s", i, k.FullNote(), want[i])
		}
	}

	// The fourth event is still queued for the next poll.
	rest := d.Poll(3, time.Millisecond)
	if len(rest) != 1 || rest[0].FullNote() != "F5" {
		t.Errorf("second Poll = %v", rest)
	}
}

func TestPollBoundedWait(t *testing.T) {
	d := &Device{events: make(chan keystroke.Keystroke, eventBuffer)}

	start := time.Now()
	got := d.Poll(3, 10*time.Millisecond)
	elapsed := time.Since(start)

	if len(got) != 0 {
		t.Fatalf("Poll on empty device returned %v", got)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("Poll blocked for %v, want bounded wait", elapsed)
	}
}

func TestEnqueueEvictsOldestWhenFull(t *testing.T) {
	d := &Device{events: make(chan keystroke.Keystroke, 2)}

	d.enqueue(keystroke.FromMIDIKey(60, true)) // C5 press, the one to evict
	d.enqueue(keystroke.FromMIDIKey(62, true)) // D5 press
	d.enqueue(keystroke.FromMIDIKey(60, false)) // C5 release must land

	got := d.Poll(4, time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("Poll returned %d keystrokes: %v", len(got), got)
	}
	if got[0].FullNote() != "D5" || !got[0].Press {
		t.Errorf("oldest surviving event = %v, want D5 press", got[0])
	}
	// The release arrived, so C5 cannot end up stuck held.
	if got[1].FullNote() != "C5" || got[1].Press {
		t.Errorf("newest event = %v, want C5 release", got[1])
	}
}

func TestPollZeroMax(t *testing.T) {
	d := &Device{events: make(chan keystroke.Keystroke, 1)}
	d.events <- keystroke.FromMIDIKey(60, true)

	if got := d.Poll(0, time.Millisecond); got != nil {
		t.Errorf("Poll(0) = %v, want nil", got)
	}
}
