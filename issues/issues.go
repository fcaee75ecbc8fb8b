// Package issues implements the chart-level issue detector (§4.7): a set of
// heuristic checks over a normalized chart that surface logical anomalies
// without aborting the parse (§7 draws the fatal/non-fatal line; this
// package only ever produces the non-fatal side, ChartIssue values).
package issues

import (
	"fmt"

	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// Kind names one of the §4.7 rules.
type Kind int

const (
	MisalignedTimeSignature Kind = iota
	NoNotes
	NoExpert
	DifficultyNotReduced
	IsDefaultBPM
	NoSections
	BadEndEvent
	SmallLeadingSilence
	NoStarPower
	EmptyStarPower
	EmptySoloSection
	EmptyFlexLane
	BadStarPower
	NoDrumActivationLanes
	DifficultyForbiddenNote
	InvalidChord
	BrokenNote
	BadSustainGap
	BabySustain
)

func (k Kind) String() string {
	switch k {
	case MisalignedTimeSignature:
		return "misalignedTimeSignature"
	case NoNotes:
		return "noNotes"
	case NoExpert:
		return "noExpert"
	case DifficultyNotReduced:
		return "difficultyNotReduced"
	case IsDefaultBPM:
		return "isDefaultBPM"
	case NoSections:
		return "noSections"
	case BadEndEvent:
		return "badEndEvent"
	case SmallLeadingSilence:
		return "smallLeadingSilence"
	case NoStarPower:
		return "noStarPower"
	case EmptyStarPower:
		return "emptyStarPower"
	case EmptySoloSection:
		return "emptySoloSection"
	case EmptyFlexLane:
		return "emptyFlexLane"
	case BadStarPower:
		return "badStarPower"
	case NoDrumActivationLanes:
		return "noDrumActivationLanes"
	case DifficultyForbiddenNote:
		return "difficultyForbiddenNote"
	case InvalidChord:
		return "invalidChord"
	case BrokenNote:
		return "brokenNote"
	case BadSustainGap:
		return "badSustainGap"
	case BabySustain:
		return "babySustain"
	}
	return "unknown"
}

// ChartIssue is one flagged anomaly (§4.7). Instrument/Difficulty are nil
// for chart-wide checks; Message is always timestamp-prefixed from MsTime.
type ChartIssue struct {
	Kind       Kind
	Instrument *rawchart.Instrument
	Difficulty *rawchart.Difficulty
	MsTime     float64
	Message    string
}

// Input is everything the detector needs, pulled out of a parsed chart so
// this package never has to import the chart facade (which itself imports
// issues).
type Input struct {
	Resolution     int
	Tempos         []rawchart.TempoMarker
	TimeSigs       []rawchart.TimeSigMarker
	Sections       []rawchart.SectionEvent
	EndEvents      []rawchart.EndEvent
	Tracks         map[rawchart.TrackID]*track.Track
	SongLengthMs   int
	PerTrackHashes map[rawchart.TrackID]string
}

// Find runs every §4.7 rule over in and returns the accumulated issue list,
// append-only and order-stable per rule.
func Find(in Input) []ChartIssue {
	var out []ChartIssue
	out = append(out, checkMisalignedTimeSignature(in)...)
	out = append(out, checkNoNotes(in)...)
	out = append(out, checkIsDefaultBPM(in)...)
	out = append(out, checkNoSections(in)...)
	out = append(out, checkBadEndEvent(in)...)
	out = append(out, checkSmallLeadingSilence(in)...)
	out = append(out, checkPerTrack(in)...)
	return out
}

func chartWide(k Kind, msTime float64, msg string) ChartIssue {
	return ChartIssue{Kind: k, MsTime: msTime, Message: timestamp(msTime) + msg}
}

func perTrack(k Kind, id rawchart.TrackID, msTime float64, msg string) ChartIssue {
	inst, diff := id.Instrument, id.Difficulty
	return ChartIssue{Kind: k, Instrument: &inst, Difficulty: &diff, MsTime: msTime, Message: timestamp(msTime) + msg}
}

// timestamp formats a millisecond offset as the "[HH:MM:SS.mm]" prefix
// (§4.7) used on every time-stamped issue description.
func timestamp(ms float64) string {
	if ms < 0 {
		ms = 0
	}
	totalCentis := int64(ms/10 + 0.5)
	centis := totalCentis % 100
	totalSeconds := totalCentis / 100
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("[%02d:%02d:%02d.%02d] ", hours, minutes, seconds, centis)
}

func flattenNotes(tr *track.Track) []track.NoteEvent {
	var notes []track.NoteEvent
	for _, g := range tr.NoteEventGroups {
		notes = append(notes, g...)
	}
	return notes
}

func noteCount(tr *track.Track) int {
	n := 0
	for _, g := range tr.NoteEventGroups {
		n += len(g)
	}
	return n
}

func trackSpanMs(tr *track.Track) float64 {
	if len(tr.NoteEventGroups) == 0 {
		return 0
	}
	first := tr.NoteEventGroups[0][0].MsTime
	last := tr.NoteEventGroups[len(tr.NoteEventGroups)-1]
	lastMs := last[0].MsTime
	for _, n := range last {
		if n.MsTime+n.MsLength > lastMs {
			lastMs = n.MsTime + n.MsLength
		}
	}
	return lastMs - first
}

// phraseHasNote reports whether any note tick in notes lands inside the
// phrase's half-open [tick, tick+max(length,1)) window (§4.6's own pruning
// predicate, reused here to flag empties instead of silently dropping
// them).
func phraseHasNote(p track.Phrase, notes []track.NoteEvent) bool {
	length := p.Length
	if length < 1 {
		length = 1
	}
	end := p.Tick + length
	for _, n := range notes {
		if n.Tick >= p.Tick && n.Tick < end {
			return true
		}
	}
	return false
}
