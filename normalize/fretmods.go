package normalize

import (
	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// hopoThreshold computes H, the max tick delta for a natural HOPO (§4.5).
func hopoThreshold(mods rawchart.IniChartModifiers, format rawchart.Format, ticksPerBeat int) int64 {
	if mods.HopoFrequency != 0 {
		return int64(mods.HopoFrequency)
	}
	if mods.EighthNoteHopo {
		return int64(ticksPerBeat/2) + 1
	}
	if format == rawchart.FormatMIDI {
		return int64(ticksPerBeat/3) + 1
	}
	return int64(65*ticksPerBeat) / 192
}

// fretLaneType maps a five-fret/six-fret note RawEventType to its
// track.NoteType.
func fretLaneType(t rawchart.RawEventType) (track.NoteType, bool) {
	switch t {
	case rawchart.EvtOpen:
		return track.Open, true
	case rawchart.EvtGreen:
		return track.Green, true
	case rawchart.EvtRed:
		return track.Red, true
	case rawchart.EvtYellow:
		return track.Yellow, true
	case rawchart.EvtBlue:
		return track.Blue, true
	case rawchart.EvtOrange:
		return track.Orange, true
	case rawchart.EvtBlack1:
		return track.Black1, true
	case rawchart.EvtBlack2:
		return track.Black2, true
	case rawchart.EvtBlack3:
		return track.Black3, true
	case rawchart.EvtWhite1:
		return track.White1, true
	case rawchart.EvtWhite2:
		return track.White2, true
	case rawchart.EvtWhite3:
		return track.White3, true
	}
	return 0, false
}

// fretGroup is one tick's resolved fret notes plus the context fretmods
// needs to resolve the next group's natural-HOPO status.
type fretGroup struct {
	tick    int64
	notes   []track.NoteEvent
	colors  map[track.NoteType]bool
	isChord bool
}

// resolveFretGroup applies forceOpen promotion and the strum/hopo/tap flag
// table to one tick group (§4.5). prev is the previously resolved group, or
// nil for the first group in the track.
func resolveFretGroup(events []rawchart.RawEvent, format rawchart.Format, h int64, prev *fretGroup) fretGroup {
	var notes []rawchart.RawEvent
	forceOpen, forceTap, forceStrum, forceHopo := false, false, false, false
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtForceOpen:
			forceOpen = true
		case rawchart.EvtForceTap:
			forceTap = true
		case rawchart.EvtForceStrum:
			forceStrum = true
		case rawchart.EvtForceHopo:
			forceHopo = true
		default:
			if _, ok := fretLaneType(e.Type); ok {
				notes = append(notes, e)
			}
		}
	}

	if forceOpen && len(notes) > 0 {
		longest := 0
		for i, n := range notes {
			if n.Length > notes[longest].Length {
				longest = i
			}
		}
		notes = []rawchart.RawEvent{notes[longest]}
		notes[0].Type = rawchart.EvtOpen
	}

	tick := int64(0)
	if len(events) > 0 {
		tick = events[0].Tick
	}

	colors := make(map[track.NoteType]bool, len(notes))
	for _, n := range notes {
		nt, _ := fretLaneType(n.Type)
		colors[nt] = true
	}
	isChord := len(notes) > 1

	naturalHopo := false
	if prev != nil && !isChord && len(notes) == 1 {
		delta := tick - prev.tick
		sameColors := sameColorSet(colors, prev.colors)
		subsetOfPrevChord := format == rawchart.FormatMIDI && prev.isChord && isSubsetOf(colors, prev.colors)
		naturalHopo = delta <= h && !sameColors && !subsetOfPrevChord
	}

	var flag track.NoteFlag
	switch {
	case forceTap:
		flag = track.FlagTap
	case forceHopo:
		flag = track.FlagHopo
	case forceStrum:
		flag = track.FlagStrum
	case naturalHopo:
		flag = track.FlagHopo
	default:
		flag = track.FlagStrum
	}

	out := make([]track.NoteEvent, len(notes))
	for i, n := range notes {
		nt, _ := fretLaneType(n.Type)
		out[i] = track.NoteEvent{Tick: n.Tick, Length: n.Length, Type: nt, Flags: flag}
	}

	return fretGroup{tick: tick, notes: out, colors: colors, isChord: isChord}
}

func sameColorSet(a, b map[track.NoteType]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func isSubsetOf(a, b map[track.NoteType]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
