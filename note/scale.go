package note

import "strings"

// Scale mode interval tables (semitones per scale degree, one octave).
var scaleIntervals = map[string][]int{
	"major":          {0, 2, 4, 5, 7, 9, 11},
	"minor":          {0, 2, 3, 5, 7, 8, 10},
	"naturalminor":   {0, 2, 3, 5, 7, 8, 10},
	"harmonicminor":  {0, 2, 3, 5, 7, 8, 11},
	"melodicminor":   {0, 2, 3, 5, 7, 9, 11},
	"ionian":         {0, 2, 4, 5, 7, 9, 11},
	"dorian":         {0, 2, 3, 5, 7, 9, 10},
	"phrygian":       {0, 1, 3, 5, 7, 8, 10},
	"lydian":         {0, 2, 4, 6, 7, 9, 11},
	"mixolydian":     {0, 2, 4, 5, 7, 9, 10},
	"aeolian":        {0, 2, 3, 5, 7, 8, 10},
	"locrian":        {0, 1, 3, 5, 6, 8, 10},
	"pentatonic":     {0, 2, 4, 7, 9},
	"minorpentatonic": {0, 3, 5, 7, 10},
	"blues":          {0, 3, 5, 6, 7, 10},
	"chromatic":      {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"wholetone":      {0, 2, 4, 6, 8, 10},
}

type Scale struct {
	root      Note
	intervals []int
	name      string
}

// NewScale builds a scale from a root note and a mode name.
func NewScale(root Note, mode string) (Scale, error) {
	if !root.Valid() || root.IsRest() || root.IsHold() {
		return Scale{}, &ValueError{Msg: "scale root is not a playable note"}
	}
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(mode), " ", ""))
	intervals, ok := scaleIntervals[key]
	if !ok {
		return Scale{}, &NameError{Name: mode, What: "scale"}
	}
	return Scale{root: root, intervals: intervals, name: key}, nil
}

func (s Scale) Name() string { return s.name }
func (s Scale) Root() Note   { return s.root }
func (s Scale) Len() int     { return len(s.intervals) }

// Notes returns one octave of the scale starting at the root.
func (s Scale) Notes() []Note {
	out := make([]Note, len(s.intervals))
	for i, iv := range s.intervals {
		out[i] = s.root.Transpose(iv)
	}
	return out
}

// Degree returns the note at the given 1-based scale degree. Degrees beyond
// the scale length wrap into higher octaves.
func (s Scale) Degree(degree int) (Note, error) {
	if degree < 1 {
		return Rest, &ValueError{Msg: "scale degree must be >= 1"}
	}
	idx := degree - 1
	octaves := idx / len(s.intervals)
	v := int(s.root) + s.intervals[idx%len(s.intervals)] + 12*octaves
	if v > 127 {
		return Rest, &ValueError{Msg: "scale degree leaves the MIDI range"}
	}
	return Note(v), nil
}

var romanDegrees = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7,
}

// DegreeChord builds a chord by roman-numeral degree within the scale:
// "I", "bIII", "V7", "#iv", "viidim". An optional leading accidental shifts
// the root a semitone; a trailing quality suffix overrides the default triad
// stacked in thirds from the scale.
func (s Scale) DegreeChord(symbol string) ([]Note, error) {
	raw := symbol
	sym := strings.TrimSpace(symbol)
	if sym == "" {
		return nil, &NameError{Name: raw, What: "degree"}
	}
	shift := 0
	switch sym[0] {
	case 'b':
		// Only an accidental when a numeral follows; "b" alone is invalid here.
		if len(sym) > 1 {
			shift = -1
			sym = sym[1:]
		}
	case '#':
		shift = +1
		sym = sym[1:]
	}
	lower := strings.ToLower(sym)
	end := 0
	for end < len(lower) && (lower[end] == 'i' || lower[end] == 'v') {
		end++
	}
	deg, ok := romanDegrees[lower[:end]]
	if !ok {
		return nil, &NameError{Name: raw, What: "degree"}
	}
	root, err := s.Degree(deg)
	if err != nil {
		return nil, err
	}
	root = root.Transpose(shift)
	suffix := sym[end:]
	if suffix != "" {
		return Chord(root, suffix)
	}
	// Default: stack scale thirds on the degree (1-3-5 within the mode).
	third, err := s.Degree(deg + 2)
	if err != nil {
		return nil, err
	}
	fifth, err := s.Degree(deg + 4)
	if err != nil {
		return nil, err
	}
	return []Note{root, third.Transpose(shift), fifth.Transpose(shift)}, nil
}
