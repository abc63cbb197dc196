// Package pattrns generates deterministic, sample-accurate note and
// parameter event streams from user-authored pattern descriptions. The
// engine is a three-stage pipeline (pulse, gate, emitter) under a shared
// clock, random source and parameter set; the emitter is usually a compiled
// mini-notation cycle (see the cycle package).
package pattrns

import (
	"github.com/cbegin/pattrns-go/cycle"
	"github.com/cbegin/pattrns-go/note"
	"github.com/cbegin/pattrns-go/rational"
	"github.com/cbegin/pattrns-go/rng"
)

// Pattern is one playable pattern instance. Instances are single-threaded:
// the host may own many in parallel but must not share one across
// goroutines without synchronisation.
type Pattern struct {
	base    TimeBase
	seed    uint64
	rnd     rng.Rand
	params  *ParameterSet
	pulse   *pulseStage
	gate    GateFunc
	emitter *emitterStage
	stepLen rational.Rat

	source     string
	trigger    []NoteEvent
	errSink    func(error)
	pos        rational.Rat // start of the next pulse slot
	pulseCount int
	pending    []Event
	started    bool
}

type Option func(*Pattern) error

// WithSeed seeds the instance's random source.
func WithSeed(seed uint64) Option {
	return func(p *Pattern) error {
		p.seed = seed
		return nil
	}
}

// WithPulses installs a finite pulse list, cycled forever.
func WithPulses(steps ...Pulse) Option {
	return func(p *Pattern) error {
		p.pulse = newPulseList(steps, 1)
		return nil
	}
}

// WithPulseValues is the plain-number shorthand for WithPulses.
func WithPulseValues(values ...float64) Option {
	steps := make([]Pulse, len(values))
	for i, v := range values {
		steps[i] = Pulse{Value: v}
	}
	return WithPulses(steps...)
}

// WithPulseRepeats installs the gate-repeat pulse form: every step of the
// list is held for `repeats` slots.
func WithPulseRepeats(steps []Pulse, repeats int) Option {
	return func(p *Pattern) error {
		if repeats < 1 {
			return newError(ErrConfig, "pulse repeat count must be >= 1, got %d", repeats)
		}
		p.pulse = newPulseList(steps, repeats)
		return nil
	}
}

// WithPulseFunc installs a generator closure producing one pulse per slot.
func WithPulseFunc(fn PulseFunc) Option {
	return func(p *Pattern) error {
		p.pulse = newPulseFunc(fn)
		return nil
	}
}

// WithGate replaces the default non-zero gate.
func WithGate(fn GateFunc) Option {
	return func(p *Pattern) error {
		p.gate = fn
		return nil
	}
}

// WithStaticEmitter installs a fixed note/chord sequence, cycled per gated
// slot.
func WithStaticEmitter(seq ...[]NoteEvent) Option {
	return func(p *Pattern) error {
		p.emitter = newStaticEmitter(seq)
		return nil
	}
}

// WithEmitterFunc installs a dynamic emitter closure.
func WithEmitterFunc(fn EmitFunc) Option {
	return func(p *Pattern) error {
		p.emitter = newFuncEmitter(fn)
		return nil
	}
}

// WithEmitterGenerator installs a generator that builds a stateful emitter
// closure on every reset.
func WithEmitterGenerator(gen EmitGenerator) Option {
	return func(p *Pattern) error {
		p.emitter = newGeneratorEmitter(gen)
		return nil
	}
}

// WithMapFunc installs a user map function replacing cycle event payloads
// with notes.
func WithMapFunc(fn MapFunc) Option {
	return func(p *Pattern) error {
		stage, err := p.cycleEmitter()
		if err != nil {
			return err
		}
		stage.mapFn = fn
		return nil
	}
}

// WithNameMap maps cycle identifiers to note strings, e.g. {"bd": "c4"}.
func WithNameMap(names map[string]string) Option {
	return func(p *Pattern) error {
		stage, err := p.cycleEmitter()
		if err != nil {
			return err
		}
		parsed := make(map[string]NoteEvent, len(names))
		for name, src := range names {
			n, err := note.Parse(src)
			if err != nil {
				return wrapError(err)
			}
			parsed[name] = NewNote(n)
		}
		stage.names = parsed
		return nil
	}
}

// WithParameters attaches the live parameter set shared with all stages.
func WithParameters(set *ParameterSet) Option {
	return func(p *Pattern) error {
		p.params = set
		return nil
	}
}

// WithTrigger sets the host note event that started this instance.
func WithTrigger(notes ...NoteEvent) Option {
	return func(p *Pattern) error {
		p.trigger = notes
		return nil
	}
}

// WithErrorSink receives captured runtime errors from emitter closures.
func WithErrorSink(fn func(error)) Option {
	return func(p *Pattern) error {
		p.errSink = fn
		return nil
	}
}

// WithStepLength overrides the duration of one pulse slot, in whole notes.
func WithStepLength(length rational.Rat) Option {
	return func(p *Pattern) error {
		if length.Num() <= 0 {
			return newError(ErrConfig, "step length must be positive")
		}
		p.stepLen = length
		return nil
	}
}

func (p *Pattern) cycleEmitter() (*emitterStage, error) {
	if p.emitter == nil || p.emitter.kind != emitCycle {
		return nil, newError(ErrConfig, "map options apply to cycle patterns only")
	}
	return p.emitter, nil
}

// FromSource compiles a mini-notation cycle string into a playable pattern.
// One pulse slot spans a whole note and maps to one full cycle run.
func FromSource(source string, base TimeBase, opts ...Option) (*Pattern, error) {
	ast, err := cycle.Parse(source)
	if err != nil {
		return nil, wrapError(err)
	}
	p, err := newPattern(base, rational.One)
	if err != nil {
		return nil, err
	}
	p.source = source
	p.emitter = newCycleEmitter(ast, nil, nil)
	if err := p.applyOptions(opts); err != nil {
		return nil, err
	}
	return p, nil
}

// New builds a pattern from explicit stages. One pulse slot spans a beat.
func New(base TimeBase, opts ...Option) (*Pattern, error) {
	p, err := newPattern(base, rational.New(1, int64(max(base.BeatsPerBar, 1))))
	if err != nil {
		return nil, err
	}
	if err := p.applyOptions(opts); err != nil {
		return nil, err
	}
	if p.emitter == nil {
		return nil, newError(ErrConfig, "pattern needs an emitter")
	}
	return p, nil
}

func newPattern(base TimeBase, stepLen rational.Rat) (*Pattern, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	params, _ := NewParameterSet()
	return &Pattern{
		base:    base,
		rnd:     rng.New(0),
		params:  params,
		pulse:   defaultPulse(),
		gate:    defaultGate,
		stepLen: stepLen,
	}, nil
}

func (p *Pattern) applyOptions(opts []Option) error {
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return err
		}
	}
	p.rnd = rng.New(p.seed)
	return nil
}

func (p *Pattern) Source() string            { return p.source }
func (p *Pattern) TimeBase() TimeBase        { return p.base }
func (p *Pattern) Parameters() *ParameterSet { return p.params }

// SetParameter clamps the value into the parameter's range and stores it.
// The change is observed by the next emitter invocation.
func (p *Pattern) SetParameter(id string, value float64) error {
	return p.params.SetValue(id, value)
}

// SamplesPerStep returns the length of one pulse slot in samples.
func (p *Pattern) SamplesPerStep() float64 {
	return p.stepLen.Float64() * p.base.SamplesPerWholeNote()
}

// StepCount returns the pulse slot count of one full pulse pass, or 0 for
// generator pulses.
func (p *Pattern) StepCount() int { return p.pulse.length() }

// Channels returns the number of parallel channels the emitter produces.
func (p *Pattern) Channels() int {
	if p.emitter != nil && p.emitter.kind == emitCycle {
		return p.emitter.eval.Channels()
	}
	return 1
}

// SetTimeBase swaps the time base mid-playback. The rational position is
// preserved; pending event sample positions are recomputed from the new
// base, so onsets neither re-fire nor skip on tempo changes.
func (p *Pattern) SetTimeBase(base TimeBase) error {
	if err := base.Validate(); err != nil {
		return err
	}
	p.base = base
	for i := range p.pending {
		p.pending[i].TimeSamples = base.SamplesAt(p.pending[i].Time)
		p.pending[i].LengthSamples = lengthSamples(base, p.pending[i].Time, p.pending[i].Length)
	}
	return nil
}

// SetTrigger replaces the root note event referenced by emitter callbacks.
func (p *Pattern) SetTrigger(notes ...NoteEvent) {
	p.trigger = append(p.trigger[:0:0], notes...)
}

// Reset rewinds time, reseeds the random source from the original seed and
// resets all stages. Parameter values are kept.
func (p *Pattern) Reset() {
	p.pos = rational.Zero
	p.pulseCount = 0
	p.pending = p.pending[:0]
	p.rnd.Reseed()
	p.pulse.reset()
	p.started = false // stages re-arm lazily on the next slot
}

// Clone produces an independent instance sharing the immutable AST: fresh
// random state from the same seed and an independent parameter snapshot.
func (p *Pattern) Clone(base TimeBase) (*Pattern, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	dup := &Pattern{
		base:    base,
		seed:    p.seed,
		rnd:     rng.New(p.seed),
		params:  p.params.Clone(),
		pulse:   newPulseList(p.pulse.steps, p.pulse.repeats),
		gate:    p.gate,
		emitter: p.emitter.clone(),
		stepLen: p.stepLen,
		source:  p.source,
		trigger: append([]NoteEvent(nil), p.trigger...),
		errSink: p.errSink,
	}
	if p.pulse.fn != nil {
		dup.pulse = newPulseFunc(p.pulse.fn)
	}
	return dup, nil
}

// Run produces events indefinitely, calling sink once per event in time
// order. Most hosts should drive the pattern with RunUntil instead and
// choose their own deadlines.
func (p *Pattern) Run(sink EventSink) {
	for {
		p.generateSlot()
		for len(p.pending) > 0 {
			sink(p.pending[0])
			p.pending = p.pending[1:]
		}
	}
}

// RunUntil produces all events with start time < deadline, in
// non-decreasing start-time order, then returns.
func (p *Pattern) RunUntil(deadlineSamples int64, sink EventSink) {
	for {
		for len(p.pending) > 0 && p.pending[0].TimeSamples < deadlineSamples {
			ev := p.pending[0]
			p.pending = p.pending[1:]
			if sink != nil {
				sink(ev)
			}
		}
		if len(p.pending) > 0 {
			return // head is at or past the deadline
		}
		if p.base.SamplesAt(p.pos) >= deadlineSamples {
			return
		}
		p.generateSlot()
	}
}

// AdvanceUntil seeks: events before the deadline are produced and
// discarded.
func (p *Pattern) AdvanceUntil(deadlineSamples int64) {
	p.RunUntil(deadlineSamples, nil)
}

// generateSlot consumes one pulse slot, gates it and emits its events into
// the pending queue.
func (p *Pattern) generateSlot() {
	if !p.started {
		ctx := p.context(p.pos, 0)
		p.emitter.reset(&ctx)
		p.started = true
	}
	slotStart := p.pos
	p.pulseCount++
	ctx := p.context(slotStart, 0)
	pulse := p.pulse.next(&ctx)

	batchStart := len(p.pending)
	if pulse.Subs == nil {
		p.emitSub(slotStart, p.stepLen, pulse.Value)
	} else {
		subLen := p.stepLen.DivInt(int64(len(pulse.Subs)))
		cursor := slotStart
		for _, v := range pulse.Subs {
			p.emitSub(cursor, subLen, v)
			cursor = cursor.Add(subLen)
		}
	}
	sortEvents(p.pending[batchStart:])
	p.pos = slotStart.Add(p.stepLen)
}

func (p *Pattern) emitSub(start, length rational.Rat, value float64) {
	ctx := p.context(start, value)
	if !p.gate(&ctx, value) {
		return
	}
	ctx.Params = p.params.Snapshot()
	staged := p.emitter.emit(&ctx, start, length, &p.rnd, p.errSink)
	for _, se := range staged {
		p.pending = append(p.pending, Event{
			Kind:          se.kind,
			TimeSamples:   p.base.SamplesAt(se.time),
			LengthSamples: lengthSamples(p.base, se.time, se.length),
			Channel:       se.channel,
			Note:          se.note,
			Change:        se.change,
			Time:          se.time,
			Length:        se.length,
		})
	}
}

func (p *Pattern) context(at rational.Rat, pulseValue float64) Context {
	return Context{
		Step:        p.pulseCount,
		PulseValue:  pulseValue,
		Time:        at,
		TimeSamples: p.base.SamplesAt(at),
		TimeBase:    p.base,
		Rand:        &p.rnd,
		Params:      p.params.Snapshot(),
		Trigger:     p.trigger,
	}
}

// lengthSamples measures a duration as the sample span between its rational
// endpoints, so adjacent events never overlap or gap from rounding.
func lengthSamples(base TimeBase, start, length rational.Rat) int64 {
	return base.SamplesAt(start.Add(length)) - base.SamplesAt(start)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
