// Package midfmt implements the raw .mid (Standard MIDI File) parser
// (§4.3): it lowers a format-1 SMF file into the same rawchart.RawChart
// intermediate model that chartfmt produces from .chart text, so the
// normalizer never has to know which format a chart came from.
package midfmt

import "github.com/chartcore/chartcore/rawchart"

// trackNameInstrument is the recognized-track-name table (§4.3). Tracks
// whose name isn't in this table (VENUE, BAND markers, PART REAL_* pro
// instruments, any Harmonix-only channel) are silently skipped; only the
// CORE instrument set is in scope.
var trackNameInstrument = map[string]rawchart.Instrument{
	"PART GUITAR":          rawchart.Guitar,
	"T1 GEMS":              rawchart.Guitar, // legacy GH1/2 single track name
	"PART GUITAR COOP":     rawchart.GuitarCoop,
	"PART RHYTHM":          rawchart.Rhythm,
	"PART BASS":            rawchart.Bass,
	"PART DRUMS":           rawchart.Drums,
	"PART KEYS":            rawchart.Keys,
	"PART GUITAR GHL":      rawchart.GuitarGHL,
	"PART GUITAR COOP GHL": rawchart.GuitarCoopGHL,
	"PART RHYTHM GHL":      rawchart.RhythmGHL,
	"PART BASS GHL":        rawchart.BassGHL,
}

const (
	trackNameVocals = "PART VOCALS"
	trackNameEvents = "EVENTS"
)

func lookupInstrumentTrack(name string) (rawchart.Instrument, bool) {
	inst, ok := trackNameInstrument[name]
	return inst, ok
}
