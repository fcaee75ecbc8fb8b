package normalize

import "github.com/chartcore/chartcore/track"

// snapChords merges groups within C ticks of the last kept group (§4.5).
// C <= 0 disables snapping. Each input group is a tick plus its already
// modifier-resolved notes; groups must be in ascending tick order.
func snapChords(ticks []int64, notes [][]track.NoteEvent, c int64) ([]int64, [][]track.NoteEvent) {
	if c <= 0 || len(ticks) == 0 {
		return ticks, notes
	}
	outTicks := []int64{ticks[0]}
	outNotes := [][]track.NoteEvent{notes[0]}
	for i := 1; i < len(ticks); i++ {
		lastIdx := len(outTicks) - 1
		if ticks[i]-outTicks[lastIdx] <= c {
			outNotes[lastIdx] = mergeChordGroup(outNotes[lastIdx], notes[i])
			continue
		}
		outTicks = append(outTicks, ticks[i])
		outNotes = append(outNotes, notes[i])
	}
	return outTicks, outNotes
}

// mergeChordGroup folds a later group's notes into the kept group (§4.5):
// the kept tick and shortest length win; fret flags propagate from the
// kept group; a drum color already present in the kept group keeps its own
// flags, while disco bits are OR'd across the two groups and normalized to
// at most one of disco/discoNoflip.
func mergeChordGroup(kept, next []track.NoteEvent) []track.NoteEvent {
	byType := make(map[track.NoteType]int, len(kept))
	for i, n := range kept {
		byType[n.Type] = i
	}

	for _, n := range next {
		if idx, ok := byType[n.Type]; ok {
			merged := kept[idx]
			if n.Length < merged.Length {
				merged.Length = n.Length
			}
			merged.Flags |= (n.Flags & (track.FlagDisco | track.FlagDiscoNoflip))
			normalizeDiscoBits(&merged.Flags)
			kept[idx] = merged
			continue
		}
		if len(kept) > 0 && n.Type < track.Kick {
			n.Flags = kept[0].Flags
		}
		kept = append(kept, n)
		byType[n.Type] = len(kept) - 1
	}
	return kept
}

// normalizeDiscoBits ensures at most one of disco/discoNoflip survives an
// OR merge, preferring discoNoflip (the more specific state).
func normalizeDiscoBits(f *track.NoteFlag) {
	if *f&track.FlagDiscoNoflip != 0 {
		*f &^= track.FlagDisco
	}
}
