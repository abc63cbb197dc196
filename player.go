package pattrns

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	intsynth "github.com/cbegin/pattrns-go/internal/synth"
)

// renderer drives a pattern into the audition synth, sample accurate:
// events are pulled ahead of the render position and voices keyed on and
// off at their exact frame.
type renderer struct {
	pattern *Pattern
	engine  *intsynth.Engine
	pos     int64
	queue   []Event
	offs    []noteOff
	stopAt  int64 // -1 = run forever
	tap     func(Event)
}

type noteOff struct {
	at    int64
	voice int
}

func newRenderer(pattern *Pattern, sampleRate int, params intsynth.Params) *renderer {
	return &renderer{
		pattern: pattern,
		engine:  intsynth.New(sampleRate, params),
		stopAt:  -1,
	}
}

func (r *renderer) Process(dst []float32) {
	frames := int64(len(dst) / 2)
	deadline := r.pos + frames
	if r.stopAt >= 0 && deadline > r.stopAt {
		deadline = r.stopAt
	}
	r.pattern.RunUntil(deadline, func(ev Event) {
		if r.tap != nil {
			r.tap(ev)
		}
		switch ev.Kind {
		case EventNote:
			r.queue = append(r.queue, ev)
		case EventParameter:
			// Parameter change events feed straight back into the set.
			_ = r.pattern.SetParameter(ev.Change.ID, ev.Change.Value)
		}
	})
	for f := int64(0); f < frames; f++ {
		now := r.pos + f
		for len(r.queue) > 0 && onsetAt(r.queue[0]) <= now {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			voice := r.engine.NoteOn(int(ev.Note.Note), ev.Note.Volume, ev.Note.Panning, ev.Note.Instrument)
			r.offs = append(r.offs, noteOff{at: onsetAt(ev) + ev.LengthSamples, voice: voice})
		}
		kept := r.offs[:0]
		for _, off := range r.offs {
			if off.at <= now {
				r.engine.NoteOff(off.voice)
				continue
			}
			kept = append(kept, off)
		}
		r.offs = kept
		l, rr := r.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = rr
	}
	r.pos += frames
}

// finished reports the end of playback: the stop position has been rendered
// and every voice has released.
func (r *renderer) finished() bool {
	return r.stopAt >= 0 && r.pos >= r.stopAt && r.engine.ActiveVoiceCount() == 0
}

// onsetAt applies the note's delay offset within its step.
func onsetAt(ev Event) int64 {
	if ev.Note.Delay <= 0 {
		return ev.TimeSamples
	}
	return ev.TimeSamples + int64(ev.Note.Delay*float64(ev.LengthSamples))
}

// patternStream feeds the audio backend from the renderer: interleaved
// 32-bit little-endian float frames. The stream ends (io.EOF) once the
// renderer is finished, which closes the backend player without the host
// polling for it.
type patternStream struct {
	mu       sync.Mutex
	renderer *renderer
	buf      []float32
	done     bool
}

func (s *patternStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	s.buf = s.buf[:need]
	s.renderer.Process(s.buf)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	if s.renderer.finished() {
		s.done = true
		return frames * 8, io.EOF
	}
	return frames * 8, nil
}

// positionSamples returns how far the pattern has been rendered. This runs
// ahead of what the listener hears by the backend's buffer size.
func (s *patternStream) positionSamples() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.pos
}

// The backend allows exactly one audio context per process, so every player
// must agree on the sample rate.
var (
	audioCtxMu   sync.Mutex
	audioCtx     *ebitaudio.Context
	audioCtxRate int
)

func audioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioCtxMu.Lock()
	defer audioCtxMu.Unlock()
	if audioCtx == nil {
		audioCtx = ebitaudio.NewContext(sampleRate)
		audioCtxRate = sampleRate
	}
	if audioCtxRate != sampleRate {
		return nil, newError(ErrConfig, "audio context already initialized at %d Hz (requested %d Hz)", audioCtxRate, sampleRate)
	}
	return audioCtx, nil
}

// Player plays a pattern through the audition synth on the default audio
// output.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	stream     *patternStream
	backend    *ebitaudio.Player
}

type PlayerOption func(*playerConfig)

// SynthParams configures the audition synth.
type SynthParams = intsynth.Params

// DefaultSynthParams returns the default audition synth configuration.
func DefaultSynthParams() SynthParams { return intsynth.DefaultParams() }

type playerConfig struct {
	synthParams SynthParams
	eventTap    func(Event)
	stopSamples int64
}

// WithSynthParams overrides the audition synth parameters.
func WithSynthParams(params SynthParams) PlayerOption {
	return func(cfg *playerConfig) { cfg.synthParams = params }
}

// WithEventTap is called for every event as it is scheduled. Runs on the
// audio thread; keep work brief and non-blocking.
func WithEventTap(tap func(Event)) PlayerOption {
	return func(cfg *playerConfig) { cfg.eventTap = tap }
}

// WithStopAfter ends playback once the given sample position is rendered
// and all voices have released.
func WithStopAfter(samples int64) PlayerOption {
	return func(cfg *playerConfig) { cfg.stopSamples = samples }
}

func NewPlayer(pattern *Pattern, sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, newError(ErrConfig, "sample rate must be positive, got %d", sampleRate)
	}
	cfg := playerConfig{synthParams: intsynth.DefaultParams(), stopSamples: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := newRenderer(pattern, sampleRate, cfg.synthParams)
	r.tap = cfg.eventTap
	r.stopAt = cfg.stopSamples
	stream := &patternStream{renderer: r}
	ctx, err := audioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	backend, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, err
	}
	return &Player{sampleRate: sampleRate, stream: stream, backend: backend}, nil
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend.Play()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend.Pause()
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend.IsPlaying()
}

// PositionSamples returns the pattern render position, which runs ahead of
// the audible position by the backend's buffering.
func (p *Player) PositionSamples() int64 {
	return p.stream.positionSamples()
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend.Pause()
	return p.backend.Close()
}
