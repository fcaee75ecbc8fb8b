package normalize

import (
	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// discoRegister tracks the active disco-flip state across drum tick groups
// (§4.5): it changes only on ticks that carry one of the three disco
// modifiers, taking effect start-inclusive/end-exclusive from that tick.
type discoRegister struct {
	active rawchart.RawEventType
	set    bool
}

// update applies any disco modifiers present in this group, keeping the
// minimum (enum-wise) of the ones seen at this tick, per §4.5.
func (r *discoRegister) update(events []rawchart.RawEvent) {
	var seen rawchart.RawEventType
	found := false
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtDiscoOff, rawchart.EvtDiscoOn, rawchart.EvtDiscoNoFlipOn:
			if !found || e.Type < seen {
				seen = e.Type
				found = true
			}
		}
	}
	if found {
		r.active = seen
		r.set = true
	}
}

// drumRawLane returns the lane number (matching DecodeLaneNote's drum
// numbering: 0=kick,1=red,2=yellow,3=blue,4=green) for a drum note type, so
// tom/cymbal/accent/ghost markers (carried via RawEvent.Lane) can be looked
// up against the physical note they target. Orange (the five-lane extra)
// has no tom/cymbal marker slot of its own in the 0-4 scheme; it is handled
// directly in tomCymbalSense for FiveLane.
func drumRawLane(t rawchart.RawEventType) int {
	switch t {
	case rawchart.EvtKick, rawchart.EvtDoubleKick:
		return 0
	case rawchart.EvtRedDrum:
		return 1
	case rawchart.EvtYellowDrum:
		return 2
	case rawchart.EvtBlueDrum:
		return 3
	case rawchart.EvtGreenDrum:
		return 4
	}
	return -1
}

// tomCymbalSense returns the tom/cymbal flag for a cymbal-capable drum note
// per DrumType and format (§4.5), and whether that note carries the flag at
// all (kick and, for four-lane variants, red never do).
func tomCymbalSense(t rawchart.RawEventType, dt rawchart.DrumType, format rawchart.Format, hasTomMarker, hasCymbalMarker bool) (track.NoteFlag, bool) {
	switch dt {
	case rawchart.FourLane:
		switch t {
		case rawchart.EvtYellowDrum, rawchart.EvtBlueDrum, rawchart.EvtGreenDrum:
			return track.FlagTom, true
		}
	case rawchart.FourLanePro:
		switch t {
		case rawchart.EvtYellowDrum, rawchart.EvtBlueDrum, rawchart.EvtGreenDrum:
			if format == rawchart.FormatMIDI {
				if hasTomMarker {
					return track.FlagTom, true
				}
				return track.FlagCymbal, true
			}
			if hasCymbalMarker {
				return track.FlagCymbal, true
			}
			return track.FlagTom, true
		}
	case rawchart.FiveLane:
		switch t {
		case rawchart.EvtRedDrum, rawchart.EvtBlueDrum, rawchart.EvtGreenDrum:
			return track.FlagTom, true
		case rawchart.EvtYellowDrum, rawchart.EvtOrangeDrum:
			return track.FlagCymbal, true
		}
	}
	return 0, false
}

// resolveDrumGroup produces the NoteEvents for one tick group of a drum
// track (§4.5). dynamicsEnabled is the chart-wide flag Normalize derives
// from a non-empty ENABLE_CHART_DYNAMICS key in chart.Metadata; reg is
// mutated in place across calls, which
// must happen in ascending tick order.
func resolveDrumGroup(events []rawchart.RawEvent, dt rawchart.DrumType, format rawchart.Format, dynamicsEnabled bool, reg *discoRegister) []track.NoteEvent {
	reg.update(events)

	tomLanes := map[int]bool{}
	cymbalLanes := map[int]bool{}
	flam := false
	accentLane := map[int]bool{}
	ghostLane := map[int]bool{}
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtTomMarker:
			tomLanes[e.Lane] = true
		case rawchart.EvtCymbalMarker:
			cymbalLanes[e.Lane] = true
		case rawchart.EvtForceFlam:
			flam = true
		case rawchart.EvtAccent:
			accentLane[e.Lane] = true
		case rawchart.EvtGhost:
			ghostLane[e.Lane] = true
		}
	}

	hasOrange, hasGreen := false, false
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtOrangeDrum:
			hasOrange = true
		case rawchart.EvtGreenDrum:
			hasGreen = true
		}
	}
	bothFiveLaneExtras := hasOrange && hasGreen

	var out []track.NoteEvent
	for _, e := range events {
		var noteType track.NoteType
		isKick := false
		switch e.Type {
		case rawchart.EvtKick:
			noteType, isKick = track.Kick, true
		case rawchart.EvtDoubleKick:
			noteType, isKick = track.Kick, true
		case rawchart.EvtRedDrum:
			noteType = track.RedDrum
		case rawchart.EvtYellowDrum:
			noteType = track.YellowDrum
		case rawchart.EvtBlueDrum:
			noteType = track.BlueDrum
		case rawchart.EvtGreenDrum:
			if bothFiveLaneExtras {
				noteType = track.BlueDrum
			} else {
				noteType = track.GreenDrum
			}
		case rawchart.EvtOrangeDrum:
			noteType = track.GreenDrum
		default:
			continue
		}

		var flags track.NoteFlag
		if e.Type == rawchart.EvtDoubleKick {
			flags |= track.FlagDoubleKick
		}
		if flam {
			flags |= track.FlagFlam
		}

		if !isKick {
			lane := drumRawLane(e.Type)
			if cf, ok := tomCymbalSense(e.Type, dt, format, tomLanes[lane], cymbalLanes[lane]); ok {
				flags |= cf
			}
			if accentLane[lane] {
				flags |= track.FlagAccent
			} else if ghostLane[lane] {
				flags |= track.FlagGhost
			} else if dynamicsEnabled {
				switch {
				case e.Velocity == 127:
					flags |= track.FlagAccent
				case e.Velocity == 1:
					flags |= track.FlagGhost
				}
			}
			if reg.set && (e.Type == rawchart.EvtRedDrum || e.Type == rawchart.EvtYellowDrum) {
				switch reg.active {
				case rawchart.EvtDiscoOn:
					flags |= track.FlagDisco
				case rawchart.EvtDiscoNoFlipOn:
					flags |= track.FlagDiscoNoflip
				}
			}
		}

		out = append(out, track.NoteEvent{Tick: e.Tick, Length: e.Length, Type: noteType, Flags: flags})
	}
	return out
}
