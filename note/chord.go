package note

import "strings"

// Chord interval tables in semitones above the root. The name set is closed;
// synonyms map onto the same intervals.
var chordIntervals = map[string][]int{
	"major":      {0, 4, 7},
	"minor":      {0, 3, 7},
	"augmented":  {0, 4, 8},
	"diminished": {0, 3, 6},

	"five":    {0, 7},
	"six":     {0, 4, 7, 9},
	"sixnine": {0, 4, 7, 9, 14},

	"seven":          {0, 4, 7, 10},
	"majorseven":     {0, 4, 7, 11},
	"minorseven":     {0, 3, 7, 10},
	"minmajor":       {0, 3, 7, 11},
	"minmajorseven":  {0, 3, 7, 11},
	"sevenflatfive":  {0, 4, 6, 10},
	"sevensharpfive": {0, 4, 8, 10},
	"diminishedseven": {0, 3, 6, 9},

	"nine":       {0, 4, 7, 10, 14},
	"majornine":  {0, 4, 7, 11, 14},
	"minornine":  {0, 3, 7, 10, 14},
	"addnine":    {0, 4, 7, 14},
	"minaddnine": {0, 3, 7, 14},

	"eleven":      {0, 4, 7, 10, 14, 17},
	"minoreleven": {0, 3, 7, 10, 14, 17},

	"minsix":  {0, 3, 7, 9},
	"sustwo":  {0, 2, 7},
	"susfour": {0, 5, 7},
}

// chordSynonyms maps the short spellings used in cycle notation onto the
// canonical table keys above.
var chordSynonyms = map[string]string{
	"maj": "major", "m": "minor", "min": "minor",
	"aug": "augmented", "+": "augmented",
	"dim": "diminished", "o": "diminished",
	"5": "five",
	"6": "six", "maj6": "six", "m6": "minsix", "min6": "minsix",
	"69": "sixnine", "6add9": "sixnine",
	"7": "seven", "dom7": "seven",
	"maj7": "majorseven", "major7": "majorseven", "^7": "majorseven",
	"m7": "minorseven", "min7": "minorseven", "minor7": "minorseven", "-7": "minorseven",
	"mmaj7": "minmajor", "minmaj7": "minmajor", "minmajor": "minmajor",
	"7b5": "sevenflatfive", "7-5": "sevenflatfive",
	"7#5": "sevensharpfive", "7+5": "sevensharpfive",
	"dim7": "diminishedseven", "o7": "diminishedseven",
	"9": "nine", "maj9": "majornine", "major9": "majornine",
	"m9": "minornine", "min9": "minornine", "minor9": "minornine",
	"add9": "addnine", "madd9": "minaddnine",
	"11": "eleven", "m11": "minoreleven", "min11": "minoreleven", "minor11": "minoreleven",
	"sus2": "sustwo", "sus4": "susfour",
}

// Chord builds the ordered notes of a named chord on the given root.
func Chord(root Note, name string) ([]Note, error) {
	if !root.Valid() || root.IsRest() || root.IsHold() {
		return nil, &ValueError{Msg: "chord root is not a playable note"}
	}
	intervals, err := ChordIntervals(name)
	if err != nil {
		return nil, err
	}
	return ChordFromIntervals(root, intervals)
}

// ChordIntervals resolves a chord name or synonym to its semitone offsets.
func ChordIntervals(name string) ([]int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := chordSynonyms[key]; ok {
		key = canonical
	}
	intervals, ok := chordIntervals[key]
	if !ok {
		return nil, &NameError{Name: name, What: "chord"}
	}
	return intervals, nil
}

// ChordFromIntervals builds notes from an explicit semitone interval list.
func ChordFromIntervals(root Note, intervals []int) ([]Note, error) {
	if !root.Valid() || root.IsRest() || root.IsHold() {
		return nil, &ValueError{Msg: "chord root is not a playable note"}
	}
	out := make([]Note, 0, len(intervals))
	for _, iv := range intervals {
		v := int(root) + iv
		if v < 0 || v > 127 {
			return nil, &ValueError{Msg: "chord interval leaves the MIDI range"}
		}
		out = append(out, Note(v))
	}
	return out, nil
}
