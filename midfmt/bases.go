package midfmt

import "github.com/chartcore/chartcore/rawchart"

// difficultyBase is the lowest MIDI note of a difficulty's 8-note-wide
// (five/six-fret) or 6-note-wide (drums) lane window. base-1 doubles as the
// 2x-kick marker note for drums (§4.3).
var difficultyBase = map[rawchart.InstrumentType]map[rawchart.Difficulty]int{
	rawchart.FiveFret: {
		rawchart.Easy:   59,
		rawchart.Medium: 71,
		rawchart.Hard:   83,
		rawchart.Expert: 95,
	},
	rawchart.SixFret: {
		rawchart.Easy:   58,
		rawchart.Medium: 70,
		rawchart.Hard:   82,
		rawchart.Expert: 94,
	},
	rawchart.DrumsType: {
		rawchart.Easy:   60,
		rawchart.Medium: 72,
		rawchart.Hard:   84,
		rawchart.Expert: 96,
	},
}

// laneWidth is how many consecutive MIDI notes a difficulty's lane window
// spans, matching the cardinality DecodeLaneNote accepts for each family.
var laneWidth = map[rawchart.InstrumentType]int{
	rawchart.FiveFret:  8, // 0-7: green..orange, forceOpen, forceTap, open
	rawchart.SixFret:   9, // 0-8: white1,black1,white2,black2,white3,forceOpen,forceTap,open,black3
	rawchart.DrumsType: 6, // 0-5: kick,red,yellow,blue,green,orange(5-lane)
}

// noteToLane maps an absolute MIDI note to a (difficulty, lane) pair for the
// given instrument, or ok=false if the note falls outside every
// difficulty's window (including the base-1 double-kick marker for drums).
func noteToLane(it rawchart.InstrumentType, note int) (diff rawchart.Difficulty, lane int, doubleKick bool, ok bool) {
	bases := difficultyBase[it]
	width := laneWidth[it]
	for d, base := range bases {
		if it == rawchart.DrumsType && note == base-1 {
			return d, 0, true, true
		}
		if note >= base && note < base+width {
			return d, note - base, false, true
		}
	}
	return 0, 0, false, false
}

// Instrument-wide event codes (§4.3): fixed MIDI notes that apply across
// every charted difficulty of a track rather than to one difficulty's lane
// window.
const (
	noteSolo          = 103
	noteForceTap      = 104
	noteForceFlam     = 109
	noteTomYellow     = 110
	noteTomBlue       = 111
	noteTomGreen      = 112
	noteStarPower     = 116
	noteDrumFreestyle = 120
	noteFlexSingle    = 126
	noteFlexDouble    = 127
)

// tomNoteLane maps a tom/cymbal marker note to the drum-pad lane numbering
// shared with chartfmt's modifier events (0=kick..4=green,5=orange; tom
// markers only ever target yellow/blue/green, i.e. lanes 2/3/4).
func tomNoteLane(note int) (lane int, ok bool) {
	switch note {
	case noteTomYellow:
		return 2, true
	case noteTomBlue:
		return 3, true
	case noteTomGreen:
		return 4, true
	}
	return 0, false
}
