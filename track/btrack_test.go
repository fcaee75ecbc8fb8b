package track

import (
	"testing"

	"github.com/chartcore/chartcore/rawchart"
)

func sampleTrack() *Track {
	return &Track{
		Instrument: rawchart.Guitar,
		Difficulty: rawchart.Expert,
		NoteEventGroups: [][]NoteEvent{
			{{Tick: 0, Length: 0, Type: Green, Flags: FlagStrum}},
			{{Tick: 192, Length: 96, Type: Red, Flags: FlagHopo}},
		},
		StarPowerSections: []Phrase{{Tick: 0, Length: 480}},
		SoloSections:      []Phrase{{Tick: 0, Length: 200}},
	}
}

func sampleTempoTimeSig() ([]rawchart.TempoMarker, []rawchart.TimeSigMarker) {
	return []rawchart.TempoMarker{{Tick: 0, BPM: 120}},
		[]rawchart.TimeSigMarker{{Tick: 0, Numerator: 4, Denominator: 4}}
}

func TestSerializeDeterministic(t *testing.T) {
	tr := sampleTrack()
	tempos, sigs := sampleTempoTimeSig()
	a := Serialize(tr, 192, tempos, sigs)
	b := Serialize(tr, 192, tempos, sigs)
	if len(a) != len(b) {
		t.Fatalf("expected identical-length output, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected byte-identical output at offset %d", i)
			break
		}
	}
}

func TestSerializeMagicAndVersion(t *testing.T) {
	tr := sampleTrack()
	tempos, sigs := sampleTempoTimeSig()
	out := Serialize(tr, 192, tempos, sigs)
	if len(out) < 12 {
		t.Fatal("serialized track too short")
	}
	if string(out[0:4]) != "CHNF" {
		t.Errorf("expected CHNF magic, got %q", out[0:4])
	}
	if v := uint32(out[4]) | uint32(out[5])<<8 | uint32(out[6])<<16 | uint32(out[7])<<24; v != 20240320 {
		t.Errorf("expected version 20240320, got %d", v)
	}
}

func TestHashSensitiveToNoteChange(t *testing.T) {
	tr := sampleTrack()
	tempos, sigs := sampleTempoTimeSig()
	h1 := Hash(Serialize(tr, 192, tempos, sigs))

	tr2 := sampleTrack()
	tr2.NoteEventGroups[0][0].Tick = 1
	h2 := Hash(Serialize(tr2, 192, tempos, sigs))

	if h1 == h2 {
		t.Error("expected hash to change when a note's tick changes")
	}
}

func TestHashInsensitiveToPhraseThatPrunesToEmpty(t *testing.T) {
	tr := sampleTrack()
	tempos, sigs := sampleTempoTimeSig()
	h1 := Hash(Serialize(tr, 192, tempos, sigs))

	tr2 := sampleTrack()
	// A star-power phrase far past any note prunes away entirely.
	tr2.StarPowerSections = append(tr2.StarPowerSections, Phrase{Tick: 100000, Length: 10})
	h2 := Hash(Serialize(tr2, 192, tempos, sigs))

	if h1 != h2 {
		t.Error("expected hash to be unchanged by a phrase that prunes to empty")
	}
}

func TestTempoDedupeKeepsLastAtTick(t *testing.T) {
	tempos := []rawchart.TempoMarker{{Tick: 0, BPM: 120}, {Tick: 0, BPM: 140}}
	out := dedupeTempos(tempos)
	if len(out) != 1 || out[0].BPM != 140 {
		t.Errorf("expected single 140 BPM marker, got %+v", out)
	}
}

func TestTimeSigDedupeKeepsLastAtTick(t *testing.T) {
	sigs := []rawchart.TimeSigMarker{
		{Tick: 0, Numerator: 4, Denominator: 4},
		{Tick: 0, Numerator: 3, Denominator: 4},
	}
	out := dedupeTimeSigs(sigs)
	if len(out) != 1 || out[0].Numerator != 3 {
		t.Errorf("expected single 3/4 marker, got %+v", out)
	}
}

func TestPrunePhrasesDropsEmptyWindow(t *testing.T) {
	notes := []NoteEvent{{Tick: 0}, {Tick: 192}}
	phrases := []Phrase{
		{Tick: 0, Length: 10},   // covers tick 0
		{Tick: 500, Length: 10}, // covers nothing
		{Tick: 196, Length: 5},  // half-open window [196,201) misses tick 192
	}
	out := prunePhrases(phrases, notes)
	if len(out) != 1 || out[0].Tick != 0 {
		t.Errorf("expected only the tick-0 phrase to survive, got %+v", out)
	}
}
