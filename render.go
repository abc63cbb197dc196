package pattrns

import (
	"encoding/binary"
	"math"

	intsynth "github.com/cbegin/pattrns-go/internal/synth"
)

// RenderEvents runs the pattern from its current position and collects all
// events starting before the deadline.
func RenderEvents(p *Pattern, deadlineSamples int64) []Event {
	var out []Event
	p.RunUntil(deadlineSamples, func(ev Event) {
		out = append(out, ev)
	})
	return out
}

// RenderSamples bounces a pattern offline through the audition synth and
// returns interleaved stereo float32 frames.
func RenderSamples(p *Pattern, sampleRate int, seconds float64) []float32 {
	r := newRenderer(p, sampleRate, intsynth.DefaultParams())
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	r.Process(out)
	return out
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a RIFF/WAVE
// container (format 3, IEEE float). channels below 1 encode as mono.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	if channels < 1 {
		channels = 1
	}
	const headerLen = 44
	payload := len(samples) * 4
	le := binary.LittleEndian
	out := make([]byte, 0, headerLen+payload)

	out = append(out, "RIFF"...)
	out = le.AppendUint32(out, uint32(headerLen-8+payload))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = le.AppendUint32(out, 16)
	out = le.AppendUint16(out, 3) // IEEE float
	out = le.AppendUint16(out, uint16(channels))
	out = le.AppendUint32(out, uint32(sampleRate))
	out = le.AppendUint32(out, uint32(sampleRate*channels*4)) // bytes/sec
	out = le.AppendUint16(out, uint16(channels*4))            // frame stride
	out = le.AppendUint16(out, 32)                            // bits per sample

	out = append(out, "data"...)
	out = le.AppendUint32(out, uint32(payload))
	for _, s := range samples {
		out = le.AppendUint32(out, math.Float32bits(s))
	}
	return out
}
