package normalize

import (
	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/timing"
	"github.com/chartcore/chartcore/track"
)

// isPhraseEvent reports whether a raw event belongs to one of the four
// phrase tables rather than the per-tick note/modifier group walk.
func isPhraseEvent(t rawchart.RawEventType) bool {
	switch t {
	case rawchart.EvtStarPower, rawchart.EvtSolo, rawchart.EvtSoloEnd,
		rawchart.EvtDrumFreestyle, rawchart.EvtFlexSingle, rawchart.EvtFlexDouble:
		return true
	}
	return false
}

// Normalize runs the full per-track pipeline (§4.5) over every track in a
// RawChart and returns one normalized track.Track per (instrument,
// difficulty). dt is the chart-wide inferred DrumType (ok is false when
// there is no drum track at all, in which case drum tracks normalize to an
// empty result).
func Normalize(chart *rawchart.RawChart, mods rawchart.IniChartModifiers) map[rawchart.TrackID]*track.Track {
	dt, _ := InferDrumType(chart, mods)
	dynamicsEnabled := chart.Metadata["ENABLE_CHART_DYNAMICS"] != ""
	tm := timing.NewMap(chart.Tempos, chart.Resolution)
	h := hopoThreshold(mods, chart.Format, chart.Resolution)
	sc := sustainCutoff(mods, chart.Format, chart.Resolution)
	c := int64(mods.ChordSnapThreshold)

	out := make(map[rawchart.TrackID]*track.Track, len(chart.Tracks))
	for id, raw := range chart.Tracks {
		out[id] = normalizeTrack(id, raw, chart, mods, dt, tm, h, sc, c, dynamicsEnabled)
	}
	return out
}

func normalizeTrack(id rawchart.TrackID, raw *rawchart.RawTrack, chart *rawchart.RawChart, mods rawchart.IniChartModifiers, dt rawchart.DrumType, tm *timing.Map, h, sc, c int64, dynamicsEnabled bool) *track.Track {
	it := rawchart.TypeOf(id.Instrument)

	events := make([]rawchart.RawEvent, len(raw.Events))
	copy(events, raw.Events)
	applySustainCutoff(events, sc)

	var noteEvents []rawchart.RawEvent
	for _, e := range events {
		if !isPhraseEvent(e.Type) {
			noteEvents = append(noteEvents, e)
		}
	}
	// A sustained modifier applies to every note tick in its half-open
	// [tick, tick+max(length,1)) window, as a zero-length copy at that tick.
	var split []rawchart.RawEvent
	for _, e := range noteEvents {
		switch e.Type {
		case rawchart.EvtForceOpen, rawchart.EvtForceTap, rawchart.EvtForceStrum, rawchart.EvtForceHopo, rawchart.EvtForceFlam, rawchart.EvtTomMarker:
			for _, n := range noteEvents {
				if n.Type.IsNote() && n.Tick >= e.Tick && n.Tick < e.Tick+max(e.Length, 1) {
					split = append(split, rawchart.RawEvent{Tick: n.Tick, Type: e.Type, Lane: e.Lane})
				}
			}
		default:
			split = append(split, e)
		}
	}
	groups := groupByTick(split)

	var ticks []int64
	var noteGroups [][]track.NoteEvent
	if it == rawchart.DrumsType {
		var reg discoRegister
		for _, g := range groups {
			notes := resolveDrumGroup(g.events, dt, chart.Format, dynamicsEnabled, &reg)
			notes = dedupeGroup(notes)
			if len(notes) == 0 {
				continue
			}
			ticks = append(ticks, g.tick)
			noteGroups = append(noteGroups, notes)
		}
	} else {
		var prev *fretGroup
		for _, g := range groups {
			fg := resolveFretGroup(g.events, chart.Format, h, prev)
			fg.notes = dedupeGroup(fg.notes)
			prev = &fg
			if len(fg.notes) == 0 {
				continue
			}
			ticks = append(ticks, fg.tick)
			noteGroups = append(noteGroups, fg.notes)
		}
	}

	ticks, noteGroups = snapChords(ticks, noteGroups, c)
	repairNoteOverlaps(ticks, noteGroups)

	starPower, rejectedSP, solos, flex, freestyle := buildPhrases(id, events, mods, it)

	if len(ticks) == 0 {
		starPower, rejectedSP, solos, flex, freestyle = nil, nil, nil, nil, nil
	}

	msGroups := make([][]track.NoteEvent, len(noteGroups))
	for i, group := range noteGroups {
		tick := ticks[i]
		stamped := make([]track.NoteEvent, len(group))
		for j, n := range group {
			stamped[j] = n
			stamped[j].Tick = tick
			stamped[j].MsTime = timing.RoundMs(tm.TickToMs(tick))
			stamped[j].MsLength = timing.RoundMs(tm.LengthToMs(tick, n.Length))
		}
		msGroups[i] = stamped
	}

	return &track.Track{
		Instrument:                id.Instrument,
		Difficulty:                id.Difficulty,
		NoteEventGroups:           msGroups,
		StarPowerSections:         stampPhrases(starPower, tm),
		RejectedStarPowerSections: stampPhrases(rejectedSP, tm),
		SoloSections:              stampPhrases(solos, tm),
		FlexLanes:                 stampPhrases(flex, tm),
		DrumFreestyleSections:     stampPhrases(freestyle, tm),
	}
}

func stampPhrases(phrases []track.Phrase, tm *timing.Map) []track.Phrase {
	if len(phrases) == 0 {
		return nil
	}
	out := make([]track.Phrase, len(phrases))
	for i, p := range phrases {
		p.MsTime = timing.RoundMs(tm.TickToMs(p.Tick))
		p.MsLength = timing.RoundMs(tm.LengthToMs(p.Tick, p.Length))
		out[i] = p
	}
	return out
}
