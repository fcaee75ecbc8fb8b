package normalize

import "github.com/chartcore/chartcore/rawchart"

// sustainCutoff returns T, the sustain-cutoff threshold in ticks (§4.5):
// the ini override if set (>= 0), else a format-dependent default.
func sustainCutoff(mods rawchart.IniChartModifiers, format rawchart.Format, ticksPerBeat int) int64 {
	if mods.SustainCutoffThreshold >= 0 {
		return int64(mods.SustainCutoffThreshold)
	}
	if format == rawchart.FormatMIDI {
		return int64(ticksPerBeat/3) + 1
	}
	return 0
}

// applySustainCutoff zeroes any event length at or below T, in place.
func applySustainCutoff(events []rawchart.RawEvent, t int64) {
	for i := range events {
		if events[i].Length <= t {
			events[i].Length = 0
		}
	}
}
