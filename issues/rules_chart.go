package issues

import (
	"sort"

	"github.com/chartcore/chartcore/timing"
)

// msTimeFunc returns a tick->ms converter built from the chart's own tempo
// map, matching the rounding normalize.go applies to every stamped note.
func msTimeFunc(in Input) func(int64) float64 {
	tm := timing.NewMap(in.Tempos, in.Resolution)
	return func(tick int64) float64 { return timing.RoundMs(tm.TickToMs(tick)) }
}

// checkMisalignedTimeSignature walks a running "next bar" tick starting at
// 0, stepping forward one bar at a time under whichever time signature is
// currently active, and flags any marker whose tick doesn't land exactly
// on a bar boundary (§4.7). A flagged marker is skipped — it never becomes
// the active signature — so later markers still get a fair chance.
func checkMisalignedTimeSignature(in Input) []ChartIssue {
	if in.Resolution == 0 || len(in.TimeSigs) == 0 {
		return nil
	}
	var sigs []struct {
		Tick        int64
		Numerator   int
		Denominator int
	}
	for _, ts := range in.TimeSigs {
		sigs = append(sigs, struct {
			Tick        int64
			Numerator   int
			Denominator int
		}{ts.Tick, ts.Numerator, ts.Denominator})
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Tick < sigs[j].Tick })

	var out []ChartIssue
	nextBar := int64(0)
	num, denom := 4, 4
	tm := msTimeFunc(in)
	for _, s := range sigs {
		for nextBar < s.Tick {
			nextBar += barLength(in.Resolution, num, denom)
		}
		if nextBar != s.Tick {
			out = append(out, chartWide(MisalignedTimeSignature, tm(s.Tick), "time signature marker does not fall on a bar boundary"))
			continue
		}
		num, denom = s.Numerator, s.Denominator
	}
	return out
}

func barLength(ticksPerBeat, num, denom int) int64 {
	if denom == 0 {
		denom = 4
	}
	return int64(ticksPerBeat) * 4 * int64(num) / int64(denom)
}

// checkNoNotes flags a chart where every track is empty. This core has no
// vocals/lyrics track model (§1 Non-goals), so the "no vocals exist" half
// of the rule is vacuously true here.
func checkNoNotes(in Input) []ChartIssue {
	for _, tr := range in.Tracks {
		if len(tr.NoteEventGroups) > 0 {
			return nil
		}
	}
	return []ChartIssue{chartWide(NoNotes, 0, "chart has no notes on any track")}
}

func checkIsDefaultBPM(in Input) []ChartIssue {
	if len(in.Tempos) != 1 || in.Tempos[0].BPM != 120 {
		return nil
	}
	if len(in.TimeSigs) != 1 || in.TimeSigs[0].Numerator != 4 || in.TimeSigs[0].Denominator != 4 {
		return nil
	}
	return []ChartIssue{chartWide(IsDefaultBPM, 0, "chart uses the default 120 BPM / 4-4 time signature")}
}

func checkNoSections(in Input) []ChartIssue {
	if len(in.Sections) > 0 {
		return nil
	}
	return []ChartIssue{chartWide(NoSections, 0, "chart has no section markers")}
}

// checkBadEndEvent flags any end event after the first, and the first end
// event if its tick comes before the chart's last note (§4.7).
func checkBadEndEvent(in Input) []ChartIssue {
	if len(in.EndEvents) == 0 {
		return nil
	}
	tm := msTimeFunc(in)
	var out []ChartIssue
	for i, e := range in.EndEvents {
		if i > 0 {
			out = append(out, chartWide(BadEndEvent, tm(e.Tick), "extra end event after the first"))
		}
	}
	lastNoteTick := int64(-1)
	for _, tr := range in.Tracks {
		for _, g := range tr.NoteEventGroups {
			for _, n := range g {
				if n.Tick > lastNoteTick {
					lastNoteTick = n.Tick
				}
			}
		}
	}
	if lastNoteTick >= 0 && in.EndEvents[0].Tick < lastNoteTick {
		out = append(out, chartWide(BadEndEvent, tm(in.EndEvents[0].Tick), "end event occurs before the chart's last note"))
	}
	return out
}

// checkSmallLeadingSilence flags a chart whose first note starts under
// 1000ms in (§4.7), across every track.
func checkSmallLeadingSilence(in Input) []ChartIssue {
	first := -1.0
	for _, tr := range in.Tracks {
		if len(tr.NoteEventGroups) == 0 {
			continue
		}
		ms := tr.NoteEventGroups[0][0].MsTime
		if first < 0 || ms < first {
			first = ms
		}
	}
	if first < 0 || first >= 1000 {
		return nil
	}
	return []ChartIssue{chartWide(SmallLeadingSilence, first, "first note starts within 1000ms of the chart's beginning")}
}
