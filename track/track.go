// Package track defines the normalized per-track data model, the frozen
// BTRACK wire format, and the BLAKE3 track hash (§3, §4.6). NoteType and
// NoteFlag are frozen numeric wire contracts: changing any value here would
// invalidate every already-computed leaderboard hash (§6, §9).
package track

import "github.com/chartcore/chartcore/rawchart"

// NoteType is the canonical note color of a NoteEvent. Values are frozen
// (§6) and MUST NOT be renumbered.
type NoteType uint32

const (
	Open NoteType = iota + 1
	Green
	Red
	Yellow
	Blue
	Orange
	Black1
	Black2
	Black3
	White1
	White2
	White3
	Kick
	RedDrum
	YellowDrum
	BlueDrum
	GreenDrum
)

// NoteFlag is a bitmask over a NoteEvent's modifiers. Values are frozen
// (§3, §6) and MUST NOT be renumbered.
type NoteFlag uint32

const (
	FlagStrum       NoteFlag = 1 << 0
	FlagHopo        NoteFlag = 1 << 1
	FlagTap         NoteFlag = 1 << 2
	FlagDoubleKick  NoteFlag = 1 << 3
	FlagTom         NoteFlag = 1 << 4
	FlagCymbal      NoteFlag = 1 << 5
	FlagDiscoNoflip NoteFlag = 1 << 6
	FlagDisco       NoteFlag = 1 << 7
	FlagFlam        NoteFlag = 1 << 8
	FlagGhost       NoteFlag = 1 << 9
	FlagAccent      NoteFlag = 1 << 10
)

// NoteEvent is one physical note in a normalized track.
type NoteEvent struct {
	Tick     int64
	MsTime   float64
	Length   int64
	MsLength float64
	Type     NoteType
	Flags    NoteFlag
}

// Phrase is a generic {tick, length} region (star power, solo). IsDouble and
// IsCoda are specializations used by flex lanes and drum freestyle
// respectively; unused for the other phrase tables.
type Phrase struct {
	Tick     int64
	MsTime   float64
	Length   int64
	MsLength float64
	IsDouble bool
	IsCoda   bool
}

// Track is one instrument/difficulty's fully normalized output.
type Track struct {
	Instrument rawchart.Instrument
	Difficulty rawchart.Difficulty

	NoteEventGroups [][]NoteEvent

	StarPowerSections         []Phrase
	RejectedStarPowerSections []Phrase
	SoloSections              []Phrase
	FlexLanes                 []Phrase
	DrumFreestyleSections     []Phrase
}
