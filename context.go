package pattrns

import (
	"github.com/cbegin/pattrns-go/rational"
	"github.com/cbegin/pattrns-go/rng"
)

// Context is passed to pulse, gate and emitter callbacks. It exposes the
// instance's clock, random source and a parameter snapshot taken for this
// invocation.
type Context struct {
	// Step counts pulse slots since the last reset, 1-based.
	Step int
	// PulseValue is the current slot's pulse value; for gated sub-pulses it
	// is the sub-value.
	PulseValue float64
	// Time is the slot start in whole notes since the last reset.
	Time rational.Rat
	// TimeSamples is Time converted through the current time base.
	TimeSamples int64
	TimeBase    TimeBase
	// Rand is the instance's random source. Callbacks may draw freely;
	// draws advance the shared stream.
	Rand *rng.Rand
	// Params is a copy of the parameter values, stable for the whole
	// invocation.
	Params ParamSnapshot
	// Trigger is the host-side note event that started this instance.
	Trigger []NoteEvent
}
