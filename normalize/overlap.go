package normalize

import "github.com/chartcore/chartcore/track"

// dedupeGroup removes same-type duplicates within one tick group, keeping
// the longest length and, on a length tie, the highest flag bitmask (§4.5).
func dedupeGroup(notes []track.NoteEvent) []track.NoteEvent {
	byType := make(map[track.NoteType]int, len(notes))
	var out []track.NoteEvent
	for _, n := range notes {
		if idx, ok := byType[n.Type]; ok {
			if n.Length > out[idx].Length || (n.Length == out[idx].Length && n.Flags > out[idx].Flags) {
				out[idx] = n
			}
			continue
		}
		out = append(out, n)
		byType[n.Type] = len(out) - 1
	}
	return out
}

// repairNoteOverlaps walks every same-type note's sustain across groups in
// tick order and truncates the earlier one to end at the next note-of-
// the-same-type's start, extending the later one backward if needed so
// total covered time never shrinks (§4.5).
func repairNoteOverlaps(ticks []int64, notes [][]track.NoteEvent) {
	last := make(map[track.NoteType]struct {
		groupIdx, noteIdx int
		end               int64
	})
	for gi, group := range notes {
		for ni, n := range group {
			if prev, ok := last[n.Type]; ok {
				nextStart := ticks[gi]
				if prev.end > nextStart {
					overrun := prev.end - nextStart
					notes[prev.groupIdx][prev.noteIdx].Length -= overrun
					newEnd := ticks[gi] + n.Length
					if newEnd < prev.end {
						notes[gi][ni].Length = prev.end - ticks[gi]
					}
				}
			}
			end := ticks[gi] + notes[gi][ni].Length
			last[n.Type] = struct {
				groupIdx, noteIdx int
				end               int64
			}{gi, ni, end}
		}
	}
}

// repairPhraseOverlaps drops same-tick duplicate phrases (keeping the
// longest) and resolves adjacent overlap by truncating the earlier phrase
// and extending the later one, so total covered time never shrinks (§4.5).
// Phrases must already be sorted by tick.
func repairPhraseOverlaps(phrases []track.Phrase) []track.Phrase {
	if len(phrases) == 0 {
		return phrases
	}
	var deduped []track.Phrase
	for _, p := range phrases {
		if n := len(deduped); n > 0 && deduped[n-1].Tick == p.Tick {
			if p.Length > deduped[n-1].Length {
				deduped[n-1] = p
			}
			continue
		}
		deduped = append(deduped, p)
	}

	for i := 1; i < len(deduped); i++ {
		prevEnd := deduped[i-1].Tick + deduped[i-1].Length
		curStart := deduped[i].Tick
		if prevEnd > curStart {
			overrun := prevEnd - curStart
			deduped[i-1].Length -= overrun
			newEnd := curStart + deduped[i].Length
			if newEnd < prevEnd {
				deduped[i].Length = prevEnd - curStart
			}
		}
	}
	return deduped
}
