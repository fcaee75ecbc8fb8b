package chartfmt

import "github.com/chartcore/chartcore/rawchart"

var difficultyPrefix = map[rawchart.Difficulty]string{
	rawchart.Easy:   "Easy",
	rawchart.Medium: "Medium",
	rawchart.Hard:   "Hard",
	rawchart.Expert: "Expert",
}

var instrumentSuffix = map[rawchart.Instrument]string{
	rawchart.Guitar:        "Single",
	rawchart.GuitarCoop:    "DoubleGuitar",
	rawchart.Rhythm:        "DoubleRhythm",
	rawchart.Bass:          "DoubleBass",
	rawchart.Drums:         "Drums",
	rawchart.Keys:          "Keyboard",
	rawchart.GuitarGHL:     "GHLGuitar",
	rawchart.GuitarCoopGHL: "GHLCoop",
	rawchart.RhythmGHL:     "GHLRhythm",
	rawchart.BassGHL:       "GHLBass",
}

// trackSectionNames is the complete instrument/difficulty -> section-name
// table: one entry per (instrument, difficulty) pair from the 10 charted
// instrument families, 4 difficulties each (40 names total; see DESIGN.md
// for why this module doesn't chase the spec prose's rounder "48").
var trackSectionNames map[string]rawchart.TrackID

func init() {
	trackSectionNames = make(map[string]rawchart.TrackID)
	for diff, dp := range difficultyPrefix {
		for inst, is := range instrumentSuffix {
			trackSectionNames[dp+is] = rawchart.TrackID{Instrument: inst, Difficulty: diff}
		}
	}
}

func lookupTrackSection(name string) (rawchart.TrackID, bool) {
	id, ok := trackSectionNames[name]
	return id, ok
}
