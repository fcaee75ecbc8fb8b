package normalize

import (
	"sort"

	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// flexVelocityRange returns the inclusive [min,max] velocity band a flex
// lane note must fall in to survive for this difficulty (§4.3); expert is
// unrestricted (unrestricted is true and lo/hi are 0).
func flexVelocityRange(d rawchart.Difficulty) (lo, hi uint8, unrestricted bool) {
	switch d {
	case rawchart.Easy:
		return 21, 30, false
	case rawchart.Medium:
		return 21, 40, false
	case rawchart.Hard:
		return 21, 50, false
	default:
		return 0, 0, true
	}
}

// buildPhrases extracts the star-power/solo/flex-lane/drum-freestyle phrase
// tables from a track's raw events (§4.3, §9's legacy Star-Power rule, and
// §4.3's flex-lane velocity gating), applying overlap repair to each table.
func buildPhrases(id rawchart.TrackID, events []rawchart.RawEvent, mods rawchart.IniChartModifiers, it rawchart.InstrumentType) (starPower, rejectedSP, solos, flex, freestyle []track.Phrase) {
	var sp, so, fl, fr []track.Phrase
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtStarPower:
			sp = append(sp, track.Phrase{Tick: e.Tick, Length: e.Length})
		case rawchart.EvtSolo:
			so = append(so, track.Phrase{Tick: e.Tick, Length: e.Length})
		case rawchart.EvtFlexSingle:
			if lo, hi, unrestricted := flexVelocityRange(id.Difficulty); unrestricted || (e.Velocity >= lo && e.Velocity <= hi) {
				fl = append(fl, track.Phrase{Tick: e.Tick, Length: e.Length, IsDouble: false})
			}
		case rawchart.EvtFlexDouble:
			if lo, hi, unrestricted := flexVelocityRange(id.Difficulty); unrestricted || (e.Velocity >= lo && e.Velocity <= hi) {
				fl = append(fl, track.Phrase{Tick: e.Tick, Length: e.Length, IsDouble: true})
			}
		case rawchart.EvtDrumFreestyle:
			fr = append(fr, track.Phrase{Tick: e.Tick, Length: e.Length, IsCoda: e.Lane == 1})
		}
	}
	sortPhrases(sp)
	sortPhrases(so)
	sortPhrases(fl)
	sortPhrases(fr)

	if it != rawchart.DrumsType && legacyStarPowerSwap(mods, sp, so) {
		rejectedSP = repairPhraseOverlaps(sp)
		starPower = repairPhraseOverlaps(so)
		solos = nil
	} else {
		starPower = repairPhraseOverlaps(sp)
		solos = repairPhraseOverlaps(so)
	}
	flex = repairPhraseOverlaps(fl)
	freestyle = repairPhraseOverlaps(fr)
	return starPower, rejectedSP, solos, flex, freestyle
}

// legacyStarPowerSwap reports whether this track's solos should be
// reinterpreted as Star Power, displacing the real Star-Power phrases into
// rejectedStarPowerSections (§9). multiplier_note=103 forces the swap
// explicitly; multiplier_note=116 forces it off; otherwise it fires only
// when the track has no real Star Power but more than one solo phrase (the
// single-solo case is deliberately left unswapped).
func legacyStarPowerSwap(mods rawchart.IniChartModifiers, sp, solos []track.Phrase) bool {
	if mods.MultiplierNote == 103 {
		return true
	}
	if mods.MultiplierNote == 116 {
		return false
	}
	if mods.MultiplierNote != 0 {
		return false
	}
	return len(sp) == 0 && len(solos) > 1
}

func sortPhrases(p []track.Phrase) {
	sort.Slice(p, func(i, j int) bool { return p[i].Tick < p[j].Tick })
}
