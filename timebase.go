package pattrns

import "github.com/cbegin/pattrns-go/rational"

// TimeBase maps rational musical time (in whole notes) to integer sample
// positions.
type TimeBase struct {
	BeatsPerMin   float64
	BeatsPerBar   int
	SamplesPerSec int
}

func DefaultTimeBase() TimeBase {
	return TimeBase{BeatsPerMin: 120, BeatsPerBar: 4, SamplesPerSec: 44100}
}

func (t TimeBase) Validate() error {
	if t.BeatsPerMin <= 0 {
		return newError(ErrConfig, "beats per minute must be positive, got %g", t.BeatsPerMin)
	}
	if t.BeatsPerBar <= 0 {
		return newError(ErrConfig, "beats per bar must be positive, got %d", t.BeatsPerBar)
	}
	if t.SamplesPerSec <= 0 {
		return newError(ErrConfig, "sample rate must be positive, got %d", t.SamplesPerSec)
	}
	return nil
}

// samplesPerWhole is the exact samples-per-whole-note rate:
// samples_per_sec * 60 * beats_per_bar / beats_per_minute.
func (t TimeBase) samplesPerWhole() rational.Rat {
	bpm := rational.FromFloat(t.BeatsPerMin, 1_000_000)
	return rational.FromInt(int64(t.SamplesPerSec) * 60 * int64(t.BeatsPerBar)).Div(bpm)
}

// SamplesPerWholeNote returns the samples-per-whole-note rate as a float.
func (t TimeBase) SamplesPerWholeNote() float64 {
	return t.samplesPerWhole().Float64()
}

// SamplesAt converts a rational whole-note position to the nearest sample,
// ties to even.
func (t TimeBase) SamplesAt(pos rational.Rat) int64 {
	return pos.Samples(t.samplesPerWhole())
}
