package issues

import (
	"sort"

	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// checkPerTrack runs every per-instrument/per-difficulty rule (§4.7) over
// every track present in the chart, in TrackID order so the result is
// reproducible regardless of map iteration order.
func checkPerTrack(in Input) []ChartIssue {
	ids := sortedTrackIDs(in.Tracks)
	var out []ChartIssue
	out = append(out, checkNoExpert(in, ids)...)
	out = append(out, checkDifficultyNotReduced(in, ids)...)
	for _, id := range ids {
		tr := in.Tracks[id]
		out = append(out, checkNoStarPower(id, tr)...)
		out = append(out, checkEmptyPhrases(id, tr)...)
		out = append(out, checkBadStarPower(id, tr)...)
		out = append(out, checkNoDrumActivationLanes(id, tr)...)
		out = append(out, checkDifficultyForbiddenNote(id, tr)...)
		out = append(out, checkInvalidChord(id, tr)...)
		out = append(out, checkBrokenNote(id, tr)...)
		out = append(out, checkSustainIssues(id, tr)...)
	}
	return out
}

func sortedTrackIDs(m map[rawchart.TrackID]*track.Track) []rawchart.TrackID {
	ids := make([]rawchart.TrackID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Instrument != ids[j].Instrument {
			return ids[i].Instrument < ids[j].Instrument
		}
		return ids[i].Difficulty < ids[j].Difficulty
	})
	return ids
}

// checkNoExpert flags an instrument that has notes charted on some
// difficulty but none on expert.
func checkNoExpert(in Input, ids []rawchart.TrackID) []ChartIssue {
	var out []ChartIssue
	seen := map[rawchart.Instrument]bool{}
	for _, id := range ids {
		if seen[id.Instrument] {
			continue
		}
		expertID := rawchart.TrackID{Instrument: id.Instrument, Difficulty: rawchart.Expert}
		expert, hasExpert := in.Tracks[expertID]
		if hasExpert && noteCount(expert) > 0 {
			seen[id.Instrument] = true
			continue
		}
		anyOther := false
		for _, other := range ids {
			if other.Instrument == id.Instrument && other.Difficulty != rawchart.Expert && noteCount(in.Tracks[other]) > 0 {
				anyOther = true
				break
			}
		}
		seen[id.Instrument] = true
		if anyOther {
			out = append(out, perTrack(NoExpert, expertID, 0, "instrument has charted notes but no expert track"))
		}
	}
	return out
}

// checkDifficultyNotReduced flags a non-expert difficulty whose serialized
// track hash matches expert's — the charter copied expert without actually
// reducing the note count — when it has more than 20 notes.
func checkDifficultyNotReduced(in Input, ids []rawchart.TrackID) []ChartIssue {
	if in.PerTrackHashes == nil {
		return nil
	}
	var out []ChartIssue
	for _, id := range ids {
		if id.Difficulty == rawchart.Expert {
			continue
		}
		expertID := rawchart.TrackID{Instrument: id.Instrument, Difficulty: rawchart.Expert}
		expertHash, ok := in.PerTrackHashes[expertID]
		if !ok {
			continue
		}
		hash, ok := in.PerTrackHashes[id]
		if !ok || hash != expertHash {
			continue
		}
		if noteCount(in.Tracks[id]) > 20 {
			out = append(out, perTrack(DifficultyNotReduced, id, 0, "difficulty was not reduced from expert"))
		}
	}
	return out
}

func checkNoStarPower(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	if rawchart.TypeOf(id.Instrument) == rawchart.DrumsType {
		return nil
	}
	if len(tr.StarPowerSections) != 0 || noteCount(tr) <= 50 || trackSpanMs(tr) <= 60000 {
		return nil
	}
	return []ChartIssue{perTrack(NoStarPower, id, 0, "track has no star power despite its length")}
}

func checkEmptyPhrases(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	notes := flattenNotes(tr)
	var out []ChartIssue
	for _, p := range tr.StarPowerSections {
		if !phraseHasNote(p, notes) {
			out = append(out, perTrack(EmptyStarPower, id, p.MsTime, "star power phrase contains no notes"))
		}
	}
	for _, p := range tr.SoloSections {
		if !phraseHasNote(p, notes) {
			out = append(out, perTrack(EmptySoloSection, id, p.MsTime, "solo section contains no notes"))
		}
	}
	for _, p := range tr.FlexLanes {
		if !phraseHasNote(p, notes) {
			out = append(out, perTrack(EmptyFlexLane, id, p.MsTime, "flex lane contains no notes"))
		}
	}
	return out
}

func checkBadStarPower(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	var out []ChartIssue
	for _, p := range tr.RejectedStarPowerSections {
		out = append(out, perTrack(BadStarPower, id, p.MsTime, "star power phrase was rejected"))
	}
	return out
}

func checkNoDrumActivationLanes(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	if rawchart.TypeOf(id.Instrument) != rawchart.DrumsType {
		return nil
	}
	if len(tr.DrumFreestyleSections) != 0 || len(tr.StarPowerSections) == 0 {
		return nil
	}
	if noteCount(tr) <= 50 || trackSpanMs(tr) <= 60000 {
		return nil
	}
	return []ChartIssue{perTrack(NoDrumActivationLanes, id, 0, "drum track has star power but no activation lanes")}
}

func hasType(g []track.NoteEvent, t track.NoteType) bool {
	for _, n := range g {
		if n.Type == t {
			return true
		}
	}
	return false
}

func kickCount(g []track.NoteEvent) int {
	n := 0
	for _, note := range g {
		if note.Type == track.Kick {
			n++
		}
		if note.Flags&track.FlagDoubleKick != 0 {
			n++
		}
	}
	return n
}

// checkDifficultyForbiddenNote flags a representative set of notes/chords
// that are disallowed on a given (instrument type, difficulty) pair (§4.7):
// orange on medium five-fret, double kick below expert, a mixed
// white/black three-note chord on hard six-fret, and a kick+chord pairing
// on easy drums.
func checkDifficultyForbiddenNote(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	it := rawchart.TypeOf(id.Instrument)
	var out []ChartIssue
	for _, g := range tr.NoteEventGroups {
		ms := g[0].MsTime
		switch {
		case it == rawchart.FiveFret && id.Difficulty == rawchart.Medium && hasType(g, track.Orange):
			out = append(out, perTrack(DifficultyForbiddenNote, id, ms, "orange note is not allowed on medium"))
		case id.Difficulty != rawchart.Expert && kickCount(g) >= 2:
			out = append(out, perTrack(DifficultyForbiddenNote, id, ms, "double kick is not allowed below expert"))
		case it == rawchart.SixFret && id.Difficulty == rawchart.Hard && len(g) >= 3 && (hasType(g, track.Black1) || hasType(g, track.White1)) && (hasType(g, track.Black2) || hasType(g, track.White2)) && (hasType(g, track.Black3) || hasType(g, track.White3)):
			out = append(out, perTrack(DifficultyForbiddenNote, id, ms, "three-note mixed chord is not allowed on hard"))
		case it == rawchart.DrumsType && id.Difficulty == rawchart.Easy && kickCount(g) >= 1 && len(g) >= 2:
			out = append(out, perTrack(DifficultyForbiddenNote, id, ms, "kick combined with a chord is not allowed on easy drums"))
		}
	}
	return out
}

// checkInvalidChord flags chord shapes the original game engines reject
// outright (§4.7): a five-note five-fret chord, three or more non-kick
// drum notes in one group, and a six-fret three-note chord spanning both
// the black2/white2 and black1/white1 pairs.
func checkInvalidChord(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	it := rawchart.TypeOf(id.Instrument)
	var out []ChartIssue
	for _, g := range tr.NoteEventGroups {
		ms := g[0].MsTime
		switch it {
		case rawchart.FiveFret:
			if len(g) >= 5 {
				out = append(out, perTrack(InvalidChord, id, ms, "five-note chord is not a valid shape"))
			}
		case rawchart.DrumsType:
			nonKick := 0
			for _, n := range g {
				if n.Type != track.Kick {
					nonKick++
				}
			}
			if nonKick >= 3 {
				out = append(out, perTrack(InvalidChord, id, ms, "three or more simultaneous drum pads is not a valid shape"))
			}
		case rawchart.SixFret:
			if len(g) == 3 && (hasType(g, track.Black2) || hasType(g, track.White2)) && (hasType(g, track.Black1) || hasType(g, track.White1)) {
				out = append(out, perTrack(InvalidChord, id, ms, "three-note chord spans an invalid lane pairing"))
			}
		}
	}
	return out
}

// checkBrokenNote flags consecutive note groups separated by a gap too
// small to register as distinct hits (0 < Δms ≤ 15ms), unless either side
// of the transition is an open note.
func checkBrokenNote(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	var out []ChartIssue
	for i := 1; i < len(tr.NoteEventGroups); i++ {
		prev, cur := tr.NoteEventGroups[i-1], tr.NoteEventGroups[i]
		if hasType(prev, track.Open) || hasType(cur, track.Open) {
			continue
		}
		delta := cur[0].MsTime - prev[0].MsTime
		if delta > 0 && delta <= 15 {
			out = append(out, perTrack(BrokenNote, id, cur[0].MsTime, "note group follows the previous one too closely to register"))
		}
	}
	return out
}

// checkSustainIssues flags, per note color, a subsequent same-color note
// that starts inside the 40ms shadow cast by a sustain's tail
// (badSustainGap), and any sustain whose length falls in (0,100)ms unless
// the following group is an open-note HOPO or tap (babySustain).
func checkSustainIssues(id rawchart.TrackID, tr *track.Track) []ChartIssue {
	var out []ChartIssue
	lastTailMs := map[track.NoteType]float64{}
	for i, g := range tr.NoteEventGroups {
		for _, n := range g {
			if tail, ok := lastTailMs[n.Type]; ok && n.MsTime > tail && n.MsTime < tail+40 {
				out = append(out, perTrack(BadSustainGap, id, n.MsTime, "note starts inside the previous sustain's tail shadow"))
			}
			if n.MsLength > 0 && n.MsLength < 100 {
				exempt := false
				if i+1 < len(tr.NoteEventGroups) {
					next := tr.NoteEventGroups[i+1]
					if hasType(next, track.Open) && (next[0].Flags&(track.FlagHopo|track.FlagTap) != 0) {
						exempt = true
					}
				}
				if !exempt {
					out = append(out, perTrack(BabySustain, id, n.MsTime, "sustain is too short to register as held"))
				}
			}
			if n.MsLength > 0 {
				lastTailMs[n.Type] = n.MsTime + n.MsLength
			}
		}
	}
	return out
}
