package pattrns

import (
	"fmt"

	"github.com/cbegin/pattrns-go/cycle"
	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
	"github.com/cbegin/pattrns-go/rng"
)

// EmitFunc produces the notes for one gated pulse slot. Returning nil means
// a rest; errors convert the slot to a rest and are reported through the
// pattern's error sink.
type EmitFunc func(*Context) ([]NoteEvent, error)

// EmitGenerator is called once per reset to build a stateful EmitFunc.
type EmitGenerator func(*Context) EmitFunc

// MapFunc replaces the payload of one interpreted cycle event with concrete
// notes. Returning nil keeps the slot silent.
type MapFunc func(cycle.Event) ([]NoteEvent, error)

type emitterKind int

const (
	emitStatic emitterKind = iota + 1
	emitFunc
	emitGenerator
	emitCycle
)

// emitterStage is the tagged variant over the four emitter shapes.
type emitterStage struct {
	kind emitterKind

	seq [][]NoteEvent
	pos int

	fn func(*Context) ([]NoteEvent, error)

	gen   EmitGenerator
	genFn EmitFunc

	ast   *cycle.Node
	eval  *cycle.Evaluator
	mapFn MapFunc
	names map[string]NoteEvent
}

func newStaticEmitter(seq [][]NoteEvent) *emitterStage {
	return &emitterStage{kind: emitStatic, seq: seq}
}

func newFuncEmitter(fn EmitFunc) *emitterStage {
	return &emitterStage{kind: emitFunc, fn: fn}
}

func newGeneratorEmitter(gen EmitGenerator) *emitterStage {
	return &emitterStage{kind: emitGenerator, gen: gen}
}

func newCycleEmitter(ast *cycle.Node, mapFn MapFunc, names map[string]NoteEvent) *emitterStage {
	return &emitterStage{
		kind:  emitCycle,
		ast:   ast,
		eval:  cycle.NewEvaluator(ast),
		mapFn: mapFn,
		names: names,
	}
}

func (e *emitterStage) reset(ctx *Context) {
	e.pos = 0
	switch e.kind {
	case emitGenerator:
		e.genFn = e.gen(ctx)
	case emitCycle:
		e.eval.Reset()
	}
}

// clone duplicates the stage for a cloned pattern instance. The parsed AST
// is shared; per-run state is fresh.
func (e *emitterStage) clone() *emitterStage {
	dup := *e
	dup.pos = 0
	dup.genFn = nil
	if e.kind == emitCycle {
		dup.eval = cycle.NewEvaluator(e.ast)
	}
	return &dup
}

// stagedEvent is an emitted event in rational time, before conversion to
// samples by the scheduler.
type stagedEvent struct {
	time    rational.Rat
	length  rational.Rat
	channel int
	kind    EventKind
	note    NoteEvent
	change  ParameterChange
}

// emit produces the events of one gated slot spanning [start, start+length).
func (e *emitterStage) emit(ctx *Context, start, length rational.Rat, rnd *rng.Rand, errSink func(error)) []stagedEvent {
	switch e.kind {
	case emitStatic:
		if len(e.seq) == 0 {
			return nil
		}
		chord := e.seq[e.pos%len(e.seq)]
		e.pos++
		return notesAt(chord, start, length)
	case emitFunc:
		return e.callFunc(e.fn, ctx, start, length, errSink)
	case emitGenerator:
		if e.genFn == nil {
			e.genFn = e.gen(ctx)
		}
		return e.callFunc(e.genFn, ctx, start, length, errSink)
	case emitCycle:
		return e.emitCycleRun(ctx, start, length, rnd, errSink)
	default:
		return nil
	}
}

func (e *emitterStage) callFunc(fn EmitFunc, ctx *Context, start, length rational.Rat, errSink func(error)) []stagedEvent {
	notes, err := fn(ctx)
	if err != nil {
		reportRuntime(errSink, err)
		return nil
	}
	return notesAt(notes, start, length)
}

func notesAt(notes []NoteEvent, start, length rational.Rat) []stagedEvent {
	out := make([]stagedEvent, 0, len(notes))
	for _, n := range notes {
		if n.Note.IsRest() || n.Note.IsHold() {
			continue
		}
		out = append(out, stagedEvent{
			time:    start,
			length:  length,
			channel: 1,
			kind:    EventNote,
			note:    n,
		})
	}
	return out
}

// emitCycleRun interprets one full cycle run scaled into the slot span.
func (e *emitterStage) emitCycleRun(ctx *Context, start, length rational.Rat, rnd *rng.Rand, errSink func(error)) []stagedEvent {
	channels := e.eval.Run(rnd)
	var out []stagedEvent
	for _, events := range channels {
		for _, ev := range events {
			abs := start.Add(ev.Time.Mul(length))
			absLen := ev.Length.Mul(length)
			out = append(out, e.mapEvent(ev, abs, absLen, errSink)...)
		}
	}
	return out
}

// mapEvent turns one interpreted cycle event into host events. Rests stay
// silent and standalone targets map to parameter changes whether or not a
// user map function is set. For other values the user map function wins when
// present; otherwise numeric and pitch literals map to notes and
// unrecognised names to rests.
func (e *emitterStage) mapEvent(ev cycle.Event, start, length rational.Rat, errSink func(error)) []stagedEvent {
	if ev.Value.Kind == cycle.ValueRest {
		return nil
	}
	if ev.Value.Kind == cycle.ValueTarget {
		out := make([]stagedEvent, 0, len(ev.Value.Attrs))
		for _, attr := range ev.Value.Attrs {
			out = append(out, stagedEvent{
				time:    start,
				length:  length,
				channel: ev.Channel,
				kind:    EventParameter,
				change:  ParameterChange{ID: attrID(attr), Value: attr.Value},
			})
		}
		return out
	}
	var notes []NoteEvent
	if e.mapFn != nil {
		mapped, err := e.mapFn(ev)
		if err != nil {
			reportRuntime(errSink, err)
			return nil
		}
		notes = mapped
	} else {
		notes = e.defaultMap(ev)
	}
	out := make([]stagedEvent, 0, len(notes))
	for _, n := range notes {
		if n.Note.IsRest() || n.Note.IsHold() {
			continue
		}
		applyAttrs(&n, ev.Value.Attrs)
		out = append(out, stagedEvent{
			time:    start,
			length:  length,
			channel: ev.Channel,
			kind:    EventNote,
			note:    n,
		})
	}
	return out
}

func (e *emitterStage) defaultMap(ev cycle.Event) []NoteEvent {
	switch ev.Value.Kind {
	case cycle.ValueNote:
		return []NoteEvent{NewNote(ev.Value.Note)}
	case cycle.ValueChord:
		return ChordNotes(ev.Value.Chord)
	case cycle.ValueNumber:
		if ev.Value.IsInt && ev.Value.Num >= 0 && ev.Value.Num <= 127 {
			return []NoteEvent{NewNote(note.Note(int(ev.Value.Num)))}
		}
		return nil
	case cycle.ValueName:
		if mapped, ok := e.names[ev.Value.Name]; ok {
			return []NoteEvent{mapped}
		}
		return nil
	default:
		return nil
	}
}

func applyAttrs(n *NoteEvent, attrs []cycle.Attribute) {
	for _, attr := range attrs {
		switch attr.Kind {
		case cycle.AttrInstrument:
			n.Instrument = int(attr.Value)
		case cycle.AttrVolume:
			n.Volume = clampFloat(attr.Value, 0, 1)
		case cycle.AttrPanning:
			n.Panning = clampFloat(attr.Value, -1, 1)
		case cycle.AttrDelay:
			n.Delay = clampFloat(attr.Value, 0, 1)
		case cycle.AttrNamed:
			if n.Params == nil {
				n.Params = map[string]float64{}
			}
			n.Params[attr.Name] = attr.Value
		}
	}
}

func attrID(attr cycle.Attribute) string {
	switch attr.Kind {
	case cycle.AttrInstrument:
		return "instrument"
	case cycle.AttrVolume:
		return "volume"
	case cycle.AttrPanning:
		return "panning"
	case cycle.AttrDelay:
		return "delay"
	default:
		return attr.Name
	}
}

func reportRuntime(errSink func(error), err error) {
	if errSink == nil {
		return
	}
	errSink(&Error{Kind: ErrRuntime, Message: fmt.Sprintf("emitter failed: %v", err), Err: err})
}
