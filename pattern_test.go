package pattrns

import (
	"errors"
	"testing"

	"github.com/cbegin/pattrns-go/note"
)

// 120 BPM, 4/4, 44100 Hz: one whole note is 88200 samples.
func testBase() TimeBase {
	return TimeBase{BeatsPerMin: 120, BeatsPerBar: 4, SamplesPerSec: 44100}
}

func collect(t *testing.T, p *Pattern, deadline int64) []Event {
	t.Helper()
	var out []Event
	p.RunUntil(deadline, func(ev Event) {
		out = append(out, ev)
	})
	return out
}

func TestScenarioPlainSequence(t *testing.T) {
	p, err := FromSource("c4 d4 e4 f4", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	wantSamples := []int64{0, 22050, 44100, 66150}
	wantKeys := []note.Note{60, 62, 64, 65}
	for i, ev := range events {
		if ev.TimeSamples != wantSamples[i] {
			t.Errorf("event %d at sample %d, want %d", i, ev.TimeSamples, wantSamples[i])
		}
		if ev.Note.Note != wantKeys[i] {
			t.Errorf("event %d key %d, want %d", i, ev.Note.Note, wantKeys[i])
		}
		if ev.Channel != 1 {
			t.Errorf("event %d on channel %d, want 1", i, ev.Channel)
		}
	}
}

func TestScenarioStackChannels(t *testing.T) {
	p, err := FromSource("[c4, e4, g4]", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantKeys := []note.Note{60, 64, 67}
	for i, ev := range events {
		if ev.TimeSamples != 0 {
			t.Errorf("event %d at sample %d, want 0", i, ev.TimeSamples)
		}
		if ev.Channel != i+1 {
			t.Errorf("event %d on channel %d, want %d", i, ev.Channel, i+1)
		}
		if ev.Note.Note != wantKeys[i] {
			t.Errorf("event %d key %d, want %d", i, ev.Note.Note, wantKeys[i])
		}
	}
}

func TestScenarioEuclideanWithNameMap(t *testing.T) {
	p, err := FromSource("bd(3,8)", testBase(), WithNameMap(map[string]string{"bd": "c4"}))
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 3 {
		t.Fatalf("expected 3 onsets, got %d", len(events))
	}
	wantSamples := []int64{0, 33075, 66150}
	for i, ev := range events {
		if ev.TimeSamples != wantSamples[i] {
			t.Errorf("onset %d at %d, want %d", i, ev.TimeSamples, wantSamples[i])
		}
		if ev.Note.Note != 60 {
			t.Errorf("onset %d key %d, want 60", i, ev.Note.Note)
		}
	}
}

func TestScenarioAlternationAcrossRuns(t *testing.T) {
	p, err := FromSource("<c4 e4 g4>", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 3*88200)
	if len(events) != 3 {
		t.Fatalf("expected 3 events over 3 runs, got %d", len(events))
	}
	wantSamples := []int64{0, 88200, 176400}
	wantKeys := []note.Note{60, 64, 67}
	for i, ev := range events {
		if ev.TimeSamples != wantSamples[i] || ev.Note.Note != wantKeys[i] {
			t.Errorf("run %d: sample %d key %d, want %d / %d", i, ev.TimeSamples, ev.Note.Note, wantSamples[i], wantKeys[i])
		}
	}
}

func TestScenarioDegradeEdges(t *testing.T) {
	for seed := uint64(0); seed < 4; seed++ {
		p, err := FromSource("c4?0", testBase(), WithSeed(seed))
		if err != nil {
			t.Fatal(err)
		}
		if events := collect(t, p, 88200); len(events) != 1 || events[0].TimeSamples != 0 {
			t.Fatalf("c4?0 seed %d: expected one onset at 0, got %d events", seed, len(events))
		}
		p, err = FromSource("c4?1", testBase(), WithSeed(seed))
		if err != nil {
			t.Fatal(err)
		}
		if events := collect(t, p, 88200); len(events) != 0 {
			t.Fatalf("c4?1 seed %d: expected silence, got %d events", seed, len(events))
		}
	}
}

func TestScenarioTargetAttributes(t *testing.T) {
	p, err := FromSource("c4:v0.5:p-0.5", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Note.Volume != 0.5 || events[0].Note.Panning != -0.5 {
		t.Fatalf("volume %g panning %g, want 0.5 / -0.5", events[0].Note.Volume, events[0].Note.Panning)
	}
}

func TestChordEmitsSimultaneousNotes(t *testing.T) {
	p, err := FromSource("c4'maj", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 3 {
		t.Fatalf("expected 3 chord notes, got %d", len(events))
	}
	for i, want := range []note.Note{60, 64, 67} {
		if events[i].TimeSamples != 0 || events[i].Note.Note != want {
			t.Fatalf("chord note %d: sample %d key %d", i, events[i].TimeSamples, events[i].Note.Note)
		}
	}
}

func TestStandaloneTargetEmitsParameterChange(t *testing.T) {
	p, err := FromSource("v0.5 c4", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 2 {
		t.Fatalf("expected parameter change + note, got %d events", len(events))
	}
	if events[0].Kind != EventParameter || events[0].Change.ID != "volume" || events[0].Change.Value != 0.5 {
		t.Fatalf("unexpected parameter event %+v", events[0])
	}
	if events[1].Kind != EventNote {
		t.Fatalf("second event should be the note")
	}
}

func TestCloneParameterIndependence(t *testing.T) {
	gain, err := NewFloatParameter("gain", 0.5, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	params, err := NewParameterSet(gain)
	if err != nil {
		t.Fatal(err)
	}
	p, err := FromSource("c4", testBase(), WithParameters(params))
	if err != nil {
		t.Fatal(err)
	}
	clone, err := p.Clone(testBase())
	if err != nil {
		t.Fatal(err)
	}
	if err := clone.SetParameter("gain", 0.9); err != nil {
		t.Fatal(err)
	}
	orig, _ := p.Parameters().Get("gain")
	if orig.Value() != 0.5 {
		t.Fatalf("setting a clone parameter changed the original: %g", orig.Value())
	}
	cloned, _ := clone.Parameters().Get("gain")
	if cloned.Value() != 0.9 {
		t.Fatalf("clone parameter not set: %g", cloned.Value())
	}
}

func TestCloneReproducesSeededStream(t *testing.T) {
	p, err := FromSource("c4 | d4 | e4", testBase(), WithSeed(11))
	if err != nil {
		t.Fatal(err)
	}
	original := collect(t, p, 8*88200)
	clone, err := p.Clone(testBase())
	if err != nil {
		t.Fatal(err)
	}
	cloned := collect(t, clone, 8*88200)
	if len(original) != len(cloned) {
		t.Fatalf("clone event count differs: %d != %d", len(original), len(cloned))
	}
	for i := range original {
		if original[i].Note.Note != cloned[i].Note.Note {
			t.Fatalf("clone diverged at event %d", i)
		}
	}
}

func TestTempoChangeContinuity(t *testing.T) {
	p, err := FromSource("c4 d4", testBase())
	if err != nil {
		t.Fatal(err)
	}
	first := collect(t, p, 30000)
	if len(first) != 1 || first[0].TimeSamples != 0 {
		t.Fatalf("expected only the first onset before 30000, got %d events", len(first))
	}
	// Double the tempo: samples per whole note drop to 44100, so the
	// pending d4 at rational 1/2 re-anchors to sample 22050.
	fast := TimeBase{BeatsPerMin: 240, BeatsPerBar: 4, SamplesPerSec: 44100}
	if err := p.SetTimeBase(fast); err != nil {
		t.Fatal(err)
	}
	rest := collect(t, p, 44100)
	if len(rest) != 1 {
		t.Fatalf("expected the pending onset, got %d events", len(rest))
	}
	if rest[0].TimeSamples != 22050 {
		t.Fatalf("re-anchored onset at %d, want 22050", rest[0].TimeSamples)
	}
	if rest[0].Note.Note != 62 {
		t.Fatalf("pending onset should be d4")
	}
}

func TestRuntimeErrorYieldsRestAndContinues(t *testing.T) {
	calls := 0
	var sunk []error
	p, err := New(testBase(),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("boom")
			}
			return []NoteEvent{NewNote(60)}, nil
		}),
		WithErrorSink(func(err error) { sunk = append(sunk, err) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200) // four beat slots
	if calls != 4 {
		t.Fatalf("emitter should run every slot, ran %d times", calls)
	}
	if len(events) != 3 {
		t.Fatalf("failed slot should yield a rest: got %d events", len(events))
	}
	if len(sunk) != 1 {
		t.Fatalf("error sink should capture one failure, got %d", len(sunk))
	}
	var engineErr *Error
	if !errors.As(sunk[0], &engineErr) || engineErr.Kind != ErrRuntime {
		t.Fatalf("captured error should be a runtime error, got %v", sunk[0])
	}
}

func TestParameterClampWithoutError(t *testing.T) {
	gain, _ := NewFloatParameter("gain", 0.5, 0, 1)
	params, _ := NewParameterSet(gain)
	p, err := FromSource("c4", testBase(), WithParameters(params))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetParameter("gain", 7); err != nil {
		t.Fatalf("out-of-range set must clamp silently: %v", err)
	}
	if gain.Value() != 1 {
		t.Fatalf("value should clamp to 1, got %g", gain.Value())
	}
	if err := p.SetParameter("nope", 1); err == nil {
		t.Fatalf("unknown id should error")
	}
}

func TestParameterSnapshotDoesNotTear(t *testing.T) {
	gain, _ := NewFloatParameter("gain", 0.25, 0, 1)
	params, _ := NewParameterSet(gain)
	var seen []float64
	p, err := New(testBase(),
		WithParameters(params),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			seen = append(seen, ctx.Params.Value("gain", -1))
			return []NoteEvent{NewNote(60)}, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	p.RunUntil(22050, nil)
	if err := p.SetParameter("gain", 0.75); err != nil {
		t.Fatal(err)
	}
	p.RunUntil(44100, nil)
	if len(seen) != 2 || seen[0] != 0.25 || seen[1] != 0.75 {
		t.Fatalf("snapshots = %v, want [0.25 0.75]", seen)
	}
}

func TestStaticEmitterCyclesSequence(t *testing.T) {
	p, err := New(testBase(),
		WithStaticEmitter(
			[]NoteEvent{NewNote(60)},
			[]NoteEvent{NewNote(64), NewNote(67)},
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200) // four beat slots
	wantKeys := []note.Note{60, 64, 67, 60, 64, 67}
	if len(events) != len(wantKeys) {
		t.Fatalf("expected %d events, got %d", len(wantKeys), len(events))
	}
	for i, ev := range events {
		if ev.Note.Note != wantKeys[i] {
			t.Fatalf("event %d key %d, want %d", i, ev.Note.Note, wantKeys[i])
		}
	}
}

func TestPulseListGatesEmission(t *testing.T) {
	p, err := New(testBase(),
		WithPulseValues(1, 0, 1, 0),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			return []NoteEvent{NewNote(60)}, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 2 {
		t.Fatalf("zero pulses must not emit: got %d events", len(events))
	}
	if events[0].TimeSamples != 0 || events[1].TimeSamples != 44100 {
		t.Fatalf("onsets at %d, %d; want 0, 44100", events[0].TimeSamples, events[1].TimeSamples)
	}
	if p.StepCount() != 4 {
		t.Fatalf("step count = %d, want 4", p.StepCount())
	}
	if p.SamplesPerStep() != 22050 {
		t.Fatalf("samples per step = %g, want 22050", p.SamplesPerStep())
	}
}

func TestSubPulsesShareSlotDuration(t *testing.T) {
	p, err := New(testBase(),
		WithPulses(Pulse{Subs: []float64{1, 1}}, Pulse{Value: 0}),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			return []NoteEvent{NewNote(60)}, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 44100) // two beat slots
	if len(events) != 2 {
		t.Fatalf("expected 2 sub-pulse onsets, got %d", len(events))
	}
	if events[0].TimeSamples != 0 || events[1].TimeSamples != 11025 {
		t.Fatalf("sub-pulses at %d, %d; want 0, 11025", events[0].TimeSamples, events[1].TimeSamples)
	}
}

func TestGateRepeatHoldsSteps(t *testing.T) {
	p, err := New(testBase(),
		WithPulseRepeats([]Pulse{{Value: 1}, {Value: 0}}, 2),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			return []NoteEvent{NewNote(60)}, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200) // four beat slots: 1 1 0 0
	if len(events) != 2 {
		t.Fatalf("expected 2 onsets from repeated pulse, got %d", len(events))
	}
	if events[1].TimeSamples != 22050 {
		t.Fatalf("second onset at %d, want 22050", events[1].TimeSamples)
	}
}

func TestGeneratorEmitterRebuildsOnReset(t *testing.T) {
	builds := 0
	p, err := New(testBase(),
		WithEmitterGenerator(func(ctx *Context) EmitFunc {
			builds++
			counter := 0
			return func(ctx *Context) ([]NoteEvent, error) {
				counter++
				return []NoteEvent{NewNote(note.Note(59 + counter))}, nil
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	first := collect(t, p, 44100)
	if len(first) != 2 || first[1].Note.Note != 61 {
		t.Fatalf("stateful emitter should advance: %+v", first)
	}
	p.Reset()
	second := collect(t, p, 44100)
	if builds != 2 {
		t.Fatalf("generator should rebuild on reset, built %d times", builds)
	}
	if second[0].Note.Note != 60 {
		t.Fatalf("reset emitter should restart its state, got %d", second[0].Note.Note)
	}
}

func TestResetReproducesSeededStream(t *testing.T) {
	p, err := FromSource("c4 | d4 | e4", testBase(), WithSeed(3))
	if err != nil {
		t.Fatal(err)
	}
	first := collect(t, p, 6*88200)
	p.Reset()
	second := collect(t, p, 6*88200)
	if len(first) != len(second) {
		t.Fatalf("event counts differ after reset")
	}
	for i := range first {
		if first[i].Note.Note != second[i].Note.Note || first[i].TimeSamples != second[i].TimeSamples {
			t.Fatalf("reset stream diverged at %d", i)
		}
	}
}

func TestAdvanceUntilSeeks(t *testing.T) {
	p, err := FromSource("c4 d4 e4 f4", testBase())
	if err != nil {
		t.Fatal(err)
	}
	p.AdvanceUntil(44100)
	events := collect(t, p, 88200)
	if len(events) != 2 {
		t.Fatalf("expected the back half, got %d events", len(events))
	}
	if events[0].TimeSamples != 44100 || events[0].Note.Note != 64 {
		t.Fatalf("first event after seek: sample %d key %d", events[0].TimeSamples, events[0].Note.Note)
	}
}

func TestRunUntilOrderingAcrossChannels(t *testing.T) {
	p, err := FromSource("[c4 d4, e4]", testBase())
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 88200)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Equal-time events order by channel; later starts follow.
	if events[0].Channel != 1 || events[1].Channel != 2 {
		t.Fatalf("tie-break should order channel 1 before 2: %d, %d", events[0].Channel, events[1].Channel)
	}
	if events[2].TimeSamples != 44100 {
		t.Fatalf("second sequence step at %d, want 44100", events[2].TimeSamples)
	}
	for i := 1; i < len(events); i++ {
		if events[i].TimeSamples < events[i-1].TimeSamples {
			t.Fatalf("events out of order at %d", i)
		}
	}
}

func TestTriggerIsVisibleToEmitters(t *testing.T) {
	p, err := New(testBase(),
		WithTrigger(NewNote(48)),
		WithEmitterFunc(func(ctx *Context) ([]NoteEvent, error) {
			if len(ctx.Trigger) != 1 {
				return nil, errors.New("no trigger")
			}
			return []NoteEvent{NewNote(ctx.Trigger[0].Note.Transpose(12))}, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, p, 22050)
	if len(events) != 1 || events[0].Note.Note != 60 {
		t.Fatalf("emitter should transpose the trigger, got %+v", events)
	}
	p.SetTrigger(NewNote(50))
	events = collect(t, p, 44100)
	if len(events) != 1 || events[0].Note.Note != 62 {
		t.Fatalf("trigger replacement not observed, got %+v", events)
	}
}

func TestConstructionErrors(t *testing.T) {
	if _, err := FromSource("c4 [", testBase()); err == nil {
		t.Fatalf("parse failure must abort construction")
	}
	var engineErr *Error
	_, err := FromSource("c4 [", testBase())
	if !errors.As(err, &engineErr) || engineErr.Kind != ErrParse {
		t.Fatalf("expected a parse error kind, got %v", err)
	}
	if _, err := FromSource("c4", TimeBase{BeatsPerMin: 0, BeatsPerBar: 4, SamplesPerSec: 44100}); err == nil {
		t.Fatalf("invalid time base must abort construction")
	}
	if _, err := New(testBase()); err == nil {
		t.Fatalf("pattern without an emitter must not construct")
	}
}
