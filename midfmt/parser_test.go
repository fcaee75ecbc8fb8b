package midfmt

import (
	"testing"

	"github.com/chartcore/chartcore/rawchart"
)

// Tests build minimal Standard MIDI File byte streams by hand (header chunk
// plus one or more MTrk chunks), the same way chartfmt's tests build literal
// .chart text fixtures, rather than depending on any SMF-writing API surface
// we haven't directly observed in the teacher's code.

func varLen(n uint32) []byte {
	buf := []byte{byte(n & 0x7F)}
	n >>= 7
	for n > 0 {
		buf = append([]byte{byte(n&0x7F) | 0x80}, buf...)
		n >>= 7
	}
	return buf
}

func u32be(n uint32) []byte { return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)} }
func u16be(n uint16) []byte { return []byte{byte(n >> 8), byte(n)} }

type trackBuilder struct{ buf []byte }

func (tb *trackBuilder) event(delta uint32, data ...byte) {
	tb.buf = append(tb.buf, varLen(delta)...)
	tb.buf = append(tb.buf, data...)
}

func (tb *trackBuilder) meta(delta uint32, metaType byte, data []byte) {
	tb.event(delta, 0xFF, metaType, byte(len(data)))
	tb.buf = append(tb.buf, data...)
}

func (tb *trackBuilder) trackName(delta uint32, name string) { tb.meta(delta, 0x03, []byte(name)) }
func (tb *trackBuilder) text(delta uint32, text string)       { tb.meta(delta, 0x01, []byte(text)) }

func (tb *trackBuilder) tempo(delta uint32, bpm float64) {
	us := uint32(60000000 / bpm)
	tb.meta(delta, 0x51, []byte{byte(us >> 16), byte(us >> 8), byte(us)})
}

func (tb *trackBuilder) timeSig(delta uint32, numerator, denomExp byte) {
	tb.meta(delta, 0x58, []byte{numerator, denomExp, 24, 8})
}

func (tb *trackBuilder) noteOn(delta uint32, ch, key, vel byte) { tb.event(delta, 0x90|ch, key, vel) }
func (tb *trackBuilder) noteOff(delta uint32, ch, key, vel byte) {
	tb.event(delta, 0x80|ch, key, vel)
}

// sysEx appends a one-shot SysEx message whose payload (between F0 and the
// trailing F7) is exactly data. Untested against a real gomidi round-trip:
// the exact framing GetSysEx hands back is a named assumption (see
// DESIGN.md), but this is the most conventional reading of the convention.
func (tb *trackBuilder) sysEx(delta uint32, data []byte) {
	tb.buf = append(tb.buf, varLen(delta)...)
	tb.buf = append(tb.buf, 0xF0)
	tb.buf = append(tb.buf, varLen(uint32(len(data)+1))...)
	tb.buf = append(tb.buf, data...)
	tb.buf = append(tb.buf, 0xF7)
}

func (tb *trackBuilder) end() { tb.event(0, 0xFF, 0x2F, 0x00) }

func (tb *trackBuilder) chunk() []byte {
	chunk := append([]byte("MTrk"), u32be(uint32(len(tb.buf)))...)
	return append(chunk, tb.buf...)
}

func buildSMF(format, division uint16, tracks ...[]byte) []byte {
	out := append([]byte("MThd"), u32be(6)...)
	out = append(out, u16be(format)...)
	out = append(out, u16be(uint16(len(tracks)))...)
	out = append(out, u16be(division)...)
	for _, t := range tracks {
		out = append(out, t...)
	}
	return out
}

func conductorTrack(bpm float64) []byte {
	tb := &trackBuilder{}
	tb.tempo(0, bpm)
	tb.timeSig(0, 4, 2)
	tb.end()
	return tb.chunk()
}

func TestParseRejectsNonFormat1(t *testing.T) {
	data := buildSMF(0, 192, conductorTrack(120))
	_, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err == nil {
		t.Error("expected error for non-format-1 SMF")
	}
}

func TestParseRejectsNonMetricalTime(t *testing.T) {
	data := buildSMF(1, 0x8000|25*256+40, conductorTrack(120))
	_, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err == nil {
		t.Error("expected error for SMPTE time division")
	}
}

func TestParseConductorTempoAndTimeSig(t *testing.T) {
	data := buildSMF(1, 192, conductorTrack(120))
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(chart.Tempos) != 1 || chart.Tempos[0].BPM < 119.9 || chart.Tempos[0].BPM > 120.1 {
		t.Errorf("expected one ~120 BPM tempo marker, got %+v", chart.Tempos)
	}
	if len(chart.TimeSigs) != 1 || chart.TimeSigs[0].Numerator != 4 || chart.TimeSigs[0].Denominator != 4 {
		t.Errorf("expected 4/4 time sig, got %+v", chart.TimeSigs)
	}
}

func TestParseDefaultsWhenNoTempoOrTimeSig(t *testing.T) {
	tb := &trackBuilder{}
	tb.end()
	data := buildSMF(1, 192, tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(chart.Tempos) != 1 || chart.Tempos[0].BPM != 120 {
		t.Errorf("expected synthesized 120 BPM default, got %+v", chart.Tempos)
	}
	if len(chart.TimeSigs) != 1 || chart.TimeSigs[0].Numerator != 4 || chart.TimeSigs[0].Denominator != 4 {
		t.Errorf("expected synthesized 4/4 default, got %+v", chart.TimeSigs)
	}
}

func guitarTrackWithNotes() *trackBuilder {
	tb := &trackBuilder{}
	tb.trackName(0, "PART GUITAR")
	tb.noteOn(0, 0, 95, 100) // Expert green, instant
	tb.noteOff(0, 0, 95, 0)
	tb.noteOn(96, 0, 96, 100) // Expert red, sustained 192 ticks
	tb.noteOff(192, 0, 96, 0)
	return tb
}

func TestParseFiveFretNotes(t *testing.T) {
	tb := guitarTrackWithNotes()
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track, ok := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Expert}]
	if !ok {
		t.Fatal("expected Expert guitar track")
	}
	var notes []rawchart.RawEvent
	for _, e := range track.Events {
		if e.Type.IsNote() {
			notes = append(notes, e)
		}
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d: %+v", len(notes), notes)
	}
	if notes[0].Type != rawchart.EvtGreen || notes[0].Tick != 0 || notes[0].Length != 0 {
		t.Errorf("unexpected green note: %+v", notes[0])
	}
	if notes[1].Type != rawchart.EvtRed || notes[1].Tick != 96 || notes[1].Length != 192 {
		t.Errorf("unexpected red note: %+v", notes[1])
	}
}

func TestParseDrumDoubleKickAndTomMarker(t *testing.T) {
	tb := &trackBuilder{}
	tb.trackName(0, "PART DRUMS")
	tb.noteOn(0, 0, 95, 100) // Expert base-1: 2x kick marker
	tb.noteOff(0, 0, 95, 0)
	tb.noteOn(96, 0, 96, 100) // Expert kick
	tb.noteOff(0, 0, 96, 0)
	tb.noteOn(96, 0, 112, 100) // instrument-wide tom-green marker window
	tb.noteOff(192, 0, 112, 0)
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Easy}]; ok {
		t.Error("expected unplayed Easy drums track to be pruned")
	}
	track, ok := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Expert}]
	if !ok {
		t.Fatal("expected Expert drums track")
	}
	var foundDoubleKick, foundKick, foundTom bool
	for _, e := range track.Events {
		switch e.Type {
		case rawchart.EvtDoubleKick:
			foundDoubleKick = true
		case rawchart.EvtKick:
			foundKick = true
		case rawchart.EvtTomMarker:
			foundTom = true
			if e.Lane != 4 {
				t.Errorf("expected tom-green lane 4, got %d", e.Lane)
			}
		}
	}
	if !foundDoubleKick || !foundKick || !foundTom {
		t.Errorf("missing expected drum events: doubleKick=%v kick=%v tom=%v", foundDoubleKick, foundKick, foundTom)
	}
}

func twoDifficultyGuitarTrack() *trackBuilder {
	tb := &trackBuilder{}
	tb.trackName(0, "PART GUITAR")
	tb.noteOn(0, 0, 95, 100) // Expert green
	tb.noteOff(0, 0, 95, 0)
	tb.noteOn(0, 0, 83, 100) // Hard green
	tb.noteOff(0, 0, 83, 0)
	return tb
}

func TestInstrumentWideSoloFansToPlayedDifficultiesOnly(t *testing.T) {
	tb := twoDifficultyGuitarTrack()
	tb.noteOn(0, 0, 103, 100)
	tb.noteOff(192, 0, 103, 0)
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, diff := range []rawchart.Difficulty{rawchart.Expert, rawchart.Hard} {
		track, ok := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: diff}]
		if !ok {
			t.Fatalf("expected %v guitar track", diff)
		}
		found := false
		for _, e := range track.Events {
			if e.Type == rawchart.EvtSolo {
				found = true
			}
		}
		if !found {
			t.Errorf("expected EvtSolo fanned to %v", diff)
		}
	}
	if _, ok := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Easy}]; ok {
		t.Error("expected unplayed Easy guitar track to be pruned")
	}
}

func TestLegacyMultiplierNoteSwap(t *testing.T) {
	tb := twoDifficultyGuitarTrack()
	tb.noteOn(0, 0, 103, 100)
	tb.noteOff(192, 0, 103, 0)
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	mods := rawchart.DefaultIniChartModifiers()
	mods.MultiplierNote = 103
	chart, err := Parse(data, mods)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Expert}]
	var sawStarPower, sawSolo bool
	for _, e := range track.Events {
		if e.Type == rawchart.EvtStarPower {
			sawStarPower = true
		}
		if e.Type == rawchart.EvtSolo {
			sawSolo = true
		}
	}
	if !sawStarPower || sawSolo {
		t.Errorf("expected legacy swap to note 103 as StarPower only, got starPower=%v solo=%v", sawStarPower, sawSolo)
	}
}

func allDifficultyGuitarTrack() *trackBuilder {
	tb := &trackBuilder{}
	tb.trackName(0, "PART GUITAR")
	tb.noteOn(0, 0, 95, 100) // Expert
	tb.noteOff(0, 0, 95, 0)
	tb.noteOn(0, 0, 83, 100) // Hard
	tb.noteOff(0, 0, 83, 0)
	tb.noteOn(0, 0, 71, 100) // Medium
	tb.noteOff(0, 0, 71, 0)
	tb.noteOn(0, 0, 59, 100) // Easy
	tb.noteOff(0, 0, 59, 0)
	return tb
}

// Flex-lane events fan out to every charted difficulty regardless of
// velocity: the per-difficulty velocity-range gating (§4.3) is normalize's
// job, not the raw parser's — midfmt only needs to carry the note-on
// velocity through on the RawEvent so normalize can apply that filter.
func TestFlexLaneFansToEveryDifficultyCarryingVelocity(t *testing.T) {
	tb := allDifficultyGuitarTrack()
	tb.noteOn(0, 0, 126, 77)
	tb.noteOff(192, 0, 126, 0)
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for _, diff := range []rawchart.Difficulty{rawchart.Expert, rawchart.Hard, rawchart.Medium, rawchart.Easy} {
		track := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: diff}]
		found := false
		for _, e := range track.Events {
			if e.Type == rawchart.EvtFlexSingle {
				found = true
				if e.Velocity != 77 {
					t.Errorf("%v: expected velocity 77 carried through, got %d", diff, e.Velocity)
				}
			}
		}
		if !found {
			t.Errorf("expected flex-single fanned to %v", diff)
		}
	}
}

func TestSysExForceOpenWindow(t *testing.T) {
	tb := &trackBuilder{}
	tb.trackName(0, "PART GUITAR")
	tb.noteOn(0, 0, 95, 100)
	tb.noteOff(0, 0, 95, 0)
	tb.sysEx(96, []byte{0x50, 0x53, 0x00, 0x00, 0xFF, 0x00, 0x01})
	tb.sysEx(192, []byte{0x50, 0x53, 0x00, 0x00, 0xFF, 0x00, 0x00})
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := chart.Tracks[rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Expert}]
	var found rawchart.RawEvent
	ok := false
	for _, e := range track.Events {
		if e.Type == rawchart.EvtForceOpen {
			found, ok = e, true
		}
	}
	if !ok {
		t.Fatal("expected EvtForceOpen span from SysEx open/close pair")
	}
	if found.Tick != 96 || found.Length != 192 {
		t.Errorf("expected force-open span tick=96 length=192, got %+v", found)
	}
}

func TestParseEventsTrackSectionsAndEnd(t *testing.T) {
	tb := &trackBuilder{}
	tb.trackName(0, "EVENTS")
	tb.text(100, "[section Verse 1]")
	tb.text(50, "[end]")
	tb.end()
	data := buildSMF(1, 192, conductorTrack(120), tb.chunk())
	chart, err := Parse(data, rawchart.DefaultIniChartModifiers())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(chart.Sections) != 1 || chart.Sections[0].Name != "Verse 1" {
		t.Errorf("expected one 'Verse 1' section, got %+v", chart.Sections)
	}
	if len(chart.EndEvents) != 1 {
		t.Errorf("expected one end event, got %+v", chart.EndEvents)
	}
}
