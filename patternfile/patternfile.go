// Package patternfile loads YAML pattern descriptions for the command line
// tools: a cycle source plus optional pulse train, name map, seed and
// parameter declarations.
package patternfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	pattrns "github.com/cbegin/pattrns-go"
)

// Document is the on-disk pattern description.
//
//	name: demo
//	time: {bpm: 120, beats_per_bar: 4, sample_rate: 44100}
//	seed: 42
//	cycle: "bd(3,8) sn"
//	map: {bd: c2, sn: e3}
//	pulse: [1, 0, [1, 1], 0.5]
//	parameters:
//	  - {id: drive, type: float, default: 0.3, min: 0, max: 1}
type Document struct {
	Name         string            `yaml:"name"`
	Time         TimeSpec          `yaml:"time"`
	Seed         uint64            `yaml:"seed"`
	Cycle        string            `yaml:"cycle"`
	Pulse        []PulseStep       `yaml:"pulse"`
	PulseRepeats int               `yaml:"pulse_repeats"`
	Map          map[string]string `yaml:"map"`
	Parameters   []ParamSpec       `yaml:"parameters"`
}

type TimeSpec struct {
	BPM         float64 `yaml:"bpm"`
	BeatsPerBar int     `yaml:"beats_per_bar"`
	SampleRate  int     `yaml:"sample_rate"`
}

// PulseStep is either a scalar pulse value or a list of sub-pulse values.
type PulseStep struct {
	Value float64
	Subs  []float64
}

func (s *PulseStep) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&s.Value)
	case yaml.SequenceNode:
		return node.Decode(&s.Subs)
	default:
		return fmt.Errorf("pulse step must be a number or a list, got %s", node.Tag)
	}
}

// ParamSpec declares one parameter. Default is typed per Type: bool,
// number, or enum label.
type ParamSpec struct {
	ID          string    `yaml:"id"`
	Type        string    `yaml:"type"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Default     yaml.Node `yaml:"default"`
	Min         float64   `yaml:"min"`
	Max         float64   `yaml:"max"`
	Values      []string  `yaml:"values"`
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("pattern file: %w", err)
	}
	if doc.Cycle == "" {
		return nil, fmt.Errorf("pattern file: missing cycle source")
	}
	return doc, nil
}

// TimeBase fills unset fields with the defaults.
func (d *Document) TimeBase() pattrns.TimeBase {
	base := pattrns.DefaultTimeBase()
	if d.Time.BPM > 0 {
		base.BeatsPerMin = d.Time.BPM
	}
	if d.Time.BeatsPerBar > 0 {
		base.BeatsPerBar = d.Time.BeatsPerBar
	}
	if d.Time.SampleRate > 0 {
		base.SamplesPerSec = d.Time.SampleRate
	}
	return base
}

// Pattern compiles the document into a playable pattern instance.
func (d *Document) Pattern() (*pattrns.Pattern, error) {
	opts := []pattrns.Option{pattrns.WithSeed(d.Seed)}
	if len(d.Map) > 0 {
		opts = append(opts, pattrns.WithNameMap(d.Map))
	}
	if len(d.Pulse) > 0 {
		steps := make([]pattrns.Pulse, len(d.Pulse))
		for i, ps := range d.Pulse {
			steps[i] = pattrns.Pulse{Value: ps.Value, Subs: ps.Subs}
		}
		repeats := d.PulseRepeats
		if repeats < 1 {
			repeats = 1
		}
		opts = append(opts, pattrns.WithPulseRepeats(steps, repeats))
	}
	params, err := d.parameterSet()
	if err != nil {
		return nil, err
	}
	if params != nil {
		opts = append(opts, pattrns.WithParameters(params))
	}
	return pattrns.FromSource(d.Cycle, d.TimeBase(), opts...)
}

func (d *Document) parameterSet() (*pattrns.ParameterSet, error) {
	if len(d.Parameters) == 0 {
		return nil, nil
	}
	params := make([]*pattrns.Parameter, 0, len(d.Parameters))
	for _, spec := range d.Parameters {
		p, err := spec.build()
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return pattrns.NewParameterSet(params...)
}

func (spec ParamSpec) build() (*pattrns.Parameter, error) {
	nameDesc := []string{spec.ID, spec.Description}
	if spec.Name != "" {
		nameDesc[0] = spec.Name
	}
	switch spec.Type {
	case "boolean", "bool":
		def := false
		if !spec.Default.IsZero() {
			if err := spec.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.ID, err)
			}
		}
		return pattrns.NewBooleanParameter(spec.ID, def, nameDesc...)
	case "integer", "int":
		def := 0
		if !spec.Default.IsZero() {
			if err := spec.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.ID, err)
			}
		}
		return pattrns.NewIntegerParameter(spec.ID, def, int(spec.Min), int(spec.Max), nameDesc...)
	case "float", "number", "":
		def := 0.0
		if !spec.Default.IsZero() {
			if err := spec.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.ID, err)
			}
		}
		return pattrns.NewFloatParameter(spec.ID, def, spec.Min, spec.Max, nameDesc...)
	case "enum":
		def := ""
		if !spec.Default.IsZero() {
			if err := spec.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.ID, err)
			}
		} else if len(spec.Values) > 0 {
			def = spec.Values[0]
		}
		return pattrns.NewEnumParameter(spec.ID, def, spec.Values, nameDesc...)
	default:
		return nil, fmt.Errorf("parameter %q: unknown type %q", spec.ID, spec.Type)
	}
}
