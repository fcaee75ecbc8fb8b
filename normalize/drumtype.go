package normalize

import "github.com/chartcore/chartcore/rawchart"

// DrumType classifies how a chart's drum lanes should be interpreted
// (§3, §4.5); InferDrumType reports a chart with no drum track through its
// ok result, not through a DrumType value.
type DrumType = rawchart.DrumType

// InferDrumType decides DrumType for a chart from its ini modifiers and,
// failing an explicit ini setting, from what its drum tracks actually
// contain (§4.5): an explicit tom/cymbal marker anywhere means pro drums,
// a 5-lane green note anywhere means five-lane, otherwise four-lane.
// ok is false when the chart has no drum track at all.
func InferDrumType(chart *rawchart.RawChart, mods rawchart.IniChartModifiers) (dt DrumType, ok bool) {
	var drumTracks []*rawchart.RawTrack
	for id, t := range chart.Tracks {
		if id.Instrument == rawchart.Drums {
			drumTracks = append(drumTracks, t)
		}
	}
	if len(drumTracks) == 0 {
		return 0, false
	}
	if mods.ProDrums {
		return rawchart.FourLanePro, true
	}
	if mods.FiveLaneDrums {
		return rawchart.FiveLane, true
	}

	hasToneCymbalMarker := false
	hasFiveLaneExtra := false
	for _, t := range drumTracks {
		for _, e := range t.Events {
			switch e.Type {
			case rawchart.EvtTomMarker, rawchart.EvtCymbalMarker:
				hasToneCymbalMarker = true
			case rawchart.EvtOrangeDrum: // the five-lane extra pad (§4.5 "5-green note")
				hasFiveLaneExtra = true
			}
		}
	}
	switch {
	case hasToneCymbalMarker:
		return rawchart.FourLanePro, true
	case hasFiveLaneExtra:
		return rawchart.FiveLane, true
	default:
		return rawchart.FourLane, true
	}
}
