package pattrns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
)

// NoteEvent is one concrete note emitted by a pattern. Instrument is -1 when
// unset; Volume, Panning and Delay are clamped to their ranges on
// construction helpers.
type NoteEvent struct {
	Note       note.Note
	Instrument int
	Volume     float64 // 0..1
	Panning    float64 // -1..1
	Delay      float64 // 0..1, offset within the step
	Params     map[string]float64
}

// NewNote returns a note event with default volume 1, centered panning and
// no delay.
func NewNote(n note.Note) NoteEvent {
	return NoteEvent{Note: n, Instrument: -1, Volume: 1}
}

// NewNoteWith builds a note event with explicit instrument/volume/panning,
// clamping each to its range.
func NewNoteWith(n note.Note, instrument int, volume, panning float64) NoteEvent {
	ev := NewNote(n)
	if instrument >= 0 {
		ev.Instrument = instrument
	}
	ev.Volume = clampFloat(volume, 0, 1)
	ev.Panning = clampFloat(panning, -1, 1)
	return ev
}

// ChordNotes builds simultaneous note events from a chord.
func ChordNotes(notes []note.Note) []NoteEvent {
	out := make([]NoteEvent, len(notes))
	for i, n := range notes {
		out[i] = NewNote(n)
	}
	return out
}

// String renders "C-4 #01 1.00 0.00 0.00" with the instrument column, or
// "---" style dashes for rests.
func (e NoteEvent) String() string {
	var b strings.Builder
	b.WriteString(e.Note.String())
	if e.Instrument >= 0 {
		fmt.Fprintf(&b, " #%02d", e.Instrument)
	} else {
		b.WriteString(" NA")
	}
	fmt.Fprintf(&b, " %.2f %.2f %.2f", e.Volume, e.Panning, e.Delay)
	return b.String()
}

// ParameterChange reports a parameter value emitted from within a pattern
// (a standalone target step in cycle notation).
type ParameterChange struct {
	ID    string
	Value float64
}

type EventKind int

const (
	EventNote EventKind = iota + 1
	EventParameter
)

// Event is the host-facing callback payload: one note or parameter change
// with sample-accurate timing. Time keeps the exact rational position so
// hosts can re-anchor on tempo changes.
type Event struct {
	Kind          EventKind
	TimeSamples   int64
	LengthSamples int64
	Channel       int
	Note          NoteEvent
	Change        ParameterChange
	Time          rational.Rat
	Length        rational.Rat
}

// EventSink receives events in non-decreasing start-time order.
type EventSink func(Event)

// sortEvents orders a batch by start time, breaking ties by channel then
// insertion order. sort.SliceStable keeps the per-channel insertion order
// intact.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if c := events[i].Time.Cmp(events[j].Time); c != 0 {
			return c < 0
		}
		return events[i].Channel < events[j].Channel
	})
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
