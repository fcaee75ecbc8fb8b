package track

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"sort"

	"github.com/chartcore/chartcore/rawchart"
	"lukechampine.com/blake3"
)

// magic is the four-byte big-endian "CHNF" identifier (§4.6). Frozen.
var magic = [4]byte{0x43, 0x48, 0x4E, 0x46}

// formatVersion is the frozen BTRACK version tag (§4.6).
const formatVersion uint32 = 20240320

// Serialize packs a track into the frozen little-endian BTRACK layout
// (§4.6): magic, version, resolution, then seven length-prefixed sections —
// tempos, time signatures, star power, solos, flex lanes, drum freestyle,
// notes — in that exact order. Tempos/time-signatures are deduplicated by
// tick (last-defined wins); every phrase table is pruned against the
// track's own notes before being written.
func Serialize(tr *Track, resolution int, tempos []rawchart.TempoMarker, timeSigs []rawchart.TimeSigMarker) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, formatVersion)
	writeU32(&buf, uint32(resolution))

	writeSection(&buf, dedupeTempos(tempos), writeTempo)
	writeSection(&buf, dedupeTimeSigs(timeSigs), writeTimeSig)

	notes := flattenNotes(tr.NoteEventGroups)

	writeSection(&buf, prunePhrases(tr.StarPowerSections, notes), writePhrase)
	writeSection(&buf, prunePhrases(tr.SoloSections, notes), writePhrase)
	writeSection(&buf, prunePhrases(tr.FlexLanes, notes), writeFlexLane)
	writeSection(&buf, prunePhrases(tr.DrumFreestyleSections, notes), writeDrumFreestyle)
	writeSection(&buf, notes, writeNote)

	return buf.Bytes()
}

// Hash returns the BLAKE3 hash of a serialized track, base64url-encoded
// (§4.6). The caller passes the result of Serialize verbatim.
func Hash(serialized []byte) string {
	sum := blake3.Sum256(serialized)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func writeU32(buf *bytes.Buffer, v uint32)  { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeI64(buf *bytes.Buffer, v int64)   { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeF64(buf *bytes.Buffer, v float64) { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeU8(buf *bytes.Buffer, v uint8)    { _ = binary.Write(buf, binary.LittleEndian, v) }

// writeSection writes a uint32 element count followed by each element's
// fixed-size record, matching the length-prefixed-section convention used
// throughout the teacher's own SNG binary reader/writer.
func writeSection[T any](buf *bytes.Buffer, items []T, write func(*bytes.Buffer, T)) {
	writeU32(buf, uint32(len(items)))
	for _, item := range items {
		write(buf, item)
	}
}

func writeTempo(buf *bytes.Buffer, t rawchart.TempoMarker) {
	writeI64(buf, t.Tick)
	writeF64(buf, t.BPM)
}

func writeTimeSig(buf *bytes.Buffer, ts rawchart.TimeSigMarker) {
	writeI64(buf, ts.Tick)
	writeU32(buf, uint32(ts.Numerator))
	writeU32(buf, uint32(ts.Denominator))
}

func writePhrase(buf *bytes.Buffer, p Phrase) {
	writeI64(buf, p.Tick)
	writeI64(buf, p.Length)
}

func writeFlexLane(buf *bytes.Buffer, p Phrase) {
	writeI64(buf, p.Tick)
	writeI64(buf, p.Length)
	writeU8(buf, boolByte(p.IsDouble))
}

func writeDrumFreestyle(buf *bytes.Buffer, p Phrase) {
	writeI64(buf, p.Tick)
	writeI64(buf, p.Length)
	writeU8(buf, boolByte(p.IsCoda))
}

func writeNote(buf *bytes.Buffer, n NoteEvent) {
	writeI64(buf, n.Tick)
	writeI64(buf, n.Length)
	writeU32(buf, uint32(n.Type))
	writeU32(buf, uint32(n.Flags))
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func flattenNotes(groups [][]NoteEvent) []NoteEvent {
	var out []NoteEvent
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// dedupeTempos keeps only the last tempo marker defined at each tick,
// preserving tick order (§4.6).
func dedupeTempos(tempos []rawchart.TempoMarker) []rawchart.TempoMarker {
	byTick := make(map[int64]rawchart.TempoMarker, len(tempos))
	var ticks []int64
	for _, t := range tempos {
		if _, seen := byTick[t.Tick]; !seen {
			ticks = append(ticks, t.Tick)
		}
		byTick[t.Tick] = t
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	out := make([]rawchart.TempoMarker, len(ticks))
	for i, tick := range ticks {
		out[i] = byTick[tick]
	}
	return out
}

func dedupeTimeSigs(sigs []rawchart.TimeSigMarker) []rawchart.TimeSigMarker {
	byTick := make(map[int64]rawchart.TimeSigMarker, len(sigs))
	var ticks []int64
	for _, s := range sigs {
		if _, seen := byTick[s.Tick]; !seen {
			ticks = append(ticks, s.Tick)
		}
		byTick[s.Tick] = s
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	out := make([]rawchart.TimeSigMarker, len(ticks))
	for i, tick := range ticks {
		out[i] = byTick[tick]
	}
	return out
}

// prunePhrases drops any phrase with zero notes strictly inside its
// half-open [tick, tick+max(length,1)) window (§4.6).
func prunePhrases(phrases []Phrase, notes []NoteEvent) []Phrase {
	var out []Phrase
	for _, p := range phrases {
		span := p.Length
		if span < 1 {
			span = 1
		}
		hasNote := false
		for _, n := range notes {
			if n.Tick >= p.Tick && n.Tick < p.Tick+span {
				hasNote = true
				break
			}
		}
		if hasNote {
			out = append(out, p)
		}
	}
	return out
}
