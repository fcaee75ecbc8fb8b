package chartfmt

import (
	"testing"

	"github.com/chartcore/chartcore/rawchart"
)

const validChartData = `[Song]
{
  Name = "Test Song"
  Artist = "Test Artist"
  Resolution = 192
}
[SyncTrack]
{
  0 = TS 4
  0 = B 120000
  768 = TS 3 3
  768 = B 140000
}
[Events]
{
  0 = E "song_start"
  384 = E "section Verse 1"
  768 = E "prc Chorus"
  1920 = E "end"
}
[ExpertSingle]
{
  192 = N 0 0
  384 = N 1 0
  576 = N 2 192
  768 = N 7 0
  960 = E solo
  1152 = E soloend
  1728 = S 2 192
}
[HardDrums]
{
  192 = N 0 0
  384 = N 1 0
  1152 = N 32 0
  1344 = N 34 0
  1536 = N 66 0
}`

const minimalChartData = `[Song]
{
  Resolution = 192
}
[SyncTrack]
{
  0 = B 120000
}
[ExpertSingle]
{
  192 = N 0 0
}`

const chartWithBOM = "\xef\xbb\xbf[Song]\n{\n  Resolution = 192\n}\n[SyncTrack]\n{\n  0 = B 120000\n}"

func TestParseValidChart(t *testing.T) {
	chart, err := Parse([]byte(validChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if chart.Resolution != 192 {
		t.Errorf("expected Resolution 192, got %d", chart.Resolution)
	}
	if chart.Metadata["Name"] != "Test Song" {
		t.Errorf("expected Name 'Test Song', got %q", chart.Metadata["Name"])
	}
	if len(chart.Tempos) != 2 {
		t.Fatalf("expected 2 tempo markers, got %d", len(chart.Tempos))
	}
	if chart.Tempos[0].BPM != 120 {
		t.Errorf("expected first BPM 120, got %v", chart.Tempos[0].BPM)
	}
	if chart.Tempos[1].BPM != 140 {
		t.Errorf("expected second BPM 140, got %v", chart.Tempos[1].BPM)
	}
	if len(chart.TimeSigs) != 2 {
		t.Fatalf("expected 2 time sig markers, got %d", len(chart.TimeSigs))
	}
	if chart.TimeSigs[0].Numerator != 4 || chart.TimeSigs[0].Denominator != 4 {
		t.Errorf("expected default 4/4, got %d/%d", chart.TimeSigs[0].Numerator, chart.TimeSigs[0].Denominator)
	}
	if chart.TimeSigs[1].Numerator != 3 || chart.TimeSigs[1].Denominator != 8 {
		t.Errorf("expected 3/8, got %d/%d", chart.TimeSigs[1].Numerator, chart.TimeSigs[1].Denominator)
	}
}

func TestParseMinimalChart(t *testing.T) {
	chart, err := Parse([]byte(minimalChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(chart.Tempos) != 1 {
		t.Errorf("expected 1 tempo marker, got %d", len(chart.Tempos))
	}
	if len(chart.Tracks) != 1 {
		t.Errorf("expected 1 track, got %d", len(chart.Tracks))
	}
}

func TestParseBOM(t *testing.T) {
	chart, err := Parse([]byte(chartWithBOM))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if chart.Resolution != 192 {
		t.Errorf("expected Resolution 192, got %d", chart.Resolution)
	}
}

func TestParseEmptyChart(t *testing.T) {
	_, err := Parse([]byte(""))
	if err == nil {
		t.Error("expected error for empty chart")
	}
}

func TestParseZeroTempoRejected(t *testing.T) {
	data := `[Song]
{
  Resolution = 192
}
[SyncTrack]
{
  0 = B 0
}`
	_, err := Parse([]byte(data))
	if err == nil {
		t.Error("expected error for zero BPM")
	}
}

func TestParseMissingResolutionRejected(t *testing.T) {
	data := `[Song]
{
  Name = "Test"
}
[SyncTrack]
{
  0 = B 120000
}`
	_, err := Parse([]byte(data))
	if err == nil {
		t.Error("expected error for missing resolution")
	}
}

func TestExpertSingleNotes(t *testing.T) {
	chart, err := Parse([]byte(validChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Expert}
	track, ok := chart.Tracks[id]
	if !ok {
		t.Fatal("ExpertSingle track not found")
	}

	var notes []rawchart.RawEvent
	for _, e := range track.Events {
		if e.Type.IsNote() {
			notes = append(notes, e)
		}
	}
	expected := []struct {
		tick   int64
		evType rawchart.RawEventType
		length int64
	}{
		{192, rawchart.EvtGreen, 0},
		{384, rawchart.EvtRed, 0},
		{576, rawchart.EvtYellow, 192},
		{768, rawchart.EvtOpen, 0},
	}
	if len(notes) != len(expected) {
		t.Fatalf("expected %d notes, got %d", len(expected), len(notes))
	}
	for i, exp := range expected {
		if notes[i].Tick != exp.tick || notes[i].Type != exp.evType || notes[i].Length != exp.length {
			t.Errorf("note %d: expected %+v, got %+v", i, exp, notes[i])
		}
	}
}

func TestSoloMerge(t *testing.T) {
	chart, err := Parse([]byte(validChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Guitar, Difficulty: rawchart.Expert}
	track := chart.Tracks[id]

	var solos []rawchart.RawEvent
	for _, e := range track.Events {
		if e.Type == rawchart.EvtSolo {
			solos = append(solos, e)
		}
	}
	if len(solos) != 1 {
		t.Fatalf("expected 1 merged solo phrase, got %d", len(solos))
	}
	if solos[0].Tick != 960 {
		t.Errorf("expected solo start tick 960, got %d", solos[0].Tick)
	}
	if solos[0].Length != 1152-960+1 {
		t.Errorf("expected solo length %d, got %d", 1152-960+1, solos[0].Length)
	}
}

func TestDrumExtendedNotes(t *testing.T) {
	chart, err := Parse([]byte(validChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Hard}
	track, ok := chart.Tracks[id]
	if !ok {
		t.Fatal("HardDrums track not found")
	}

	var found struct {
		doubleKick, accent, cymbal bool
	}
	for _, e := range track.Events {
		switch e.Type {
		case rawchart.EvtDoubleKick:
			found.doubleKick = true
		case rawchart.EvtAccent:
			found.accent = true
			if e.Lane != 0 {
				t.Errorf("expected accent lane 0 (kick), got %d", e.Lane)
			}
		case rawchart.EvtCymbalMarker:
			found.cymbal = true
			if e.Lane != 2 {
				t.Errorf("expected cymbal lane 2 (yellow), got %d", e.Lane)
			}
		}
	}
	if !found.doubleKick || !found.accent || !found.cymbal {
		t.Errorf("missing expected drum modifiers: %+v", found)
	}
}

func TestEventsSectionSections(t *testing.T) {
	chart, err := Parse([]byte(validChartData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(chart.Sections) != 2 {
		t.Fatalf("expected 2 section markers, got %d", len(chart.Sections))
	}
	if chart.Sections[0].Name != "Verse 1" || chart.Sections[1].Name != "Chorus" {
		t.Errorf("unexpected section names: %+v", chart.Sections)
	}
	if len(chart.EndEvents) != 1 {
		t.Errorf("expected 1 end event, got %d", len(chart.EndEvents))
	}
}

func TestMixDrumsDiscoFlip(t *testing.T) {
	data := `[Song]
{
  Resolution = 192
}
[SyncTrack]
{
  0 = B 120000
}
[Events]
{
  0 = E "mix 3 drums 1"
  192 = E "mix 3 drums 0"
  384 = E "mix 3 drums 1d"
}`
	chart, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Expert}
	track, ok := chart.Tracks[id]
	if !ok {
		t.Fatal("expected expert drums track for mix events")
	}
	if len(track.Events) != 3 {
		t.Fatalf("expected 3 disco-flip events, got %d", len(track.Events))
	}
	if track.Events[0].Type != rawchart.EvtDiscoOn {
		t.Errorf("expected first event EvtDiscoOn, got %v", track.Events[0].Type)
	}
	if track.Events[1].Type != rawchart.EvtDiscoOff {
		t.Errorf("expected second event EvtDiscoOff, got %v", track.Events[1].Type)
	}
}

func TestMixDrumsEasyFlagIgnored(t *testing.T) {
	data := `[Song]
{
  Resolution = 192
}
[SyncTrack]
{
  0 = B 120000
}
[Events]
{
  0 = E "mix 0 drums 1easy"
}`
	chart, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Easy}
	if track, ok := chart.Tracks[id]; ok && len(track.Events) != 0 {
		t.Errorf("expected easy flag to be ignored, got %d events", len(track.Events))
	}
}

func TestCodaMarksDrumFreestyle(t *testing.T) {
	data := `[Song]
{
  Resolution = 192
}
[SyncTrack]
{
  0 = B 120000
}
[Events]
{
  500 = E "coda"
}
[ExpertDrums]
{
  100 = S 64 50
  600 = S 64 50
}`
	chart, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: rawchart.Expert}
	track := chart.Tracks[id]
	var before, after rawchart.RawEvent
	for _, e := range track.Events {
		if e.Type != rawchart.EvtDrumFreestyle {
			continue
		}
		if e.Tick == 100 {
			before = e
		}
		if e.Tick == 600 {
			after = e
		}
	}
	if before.Lane != 0 {
		t.Errorf("expected freestyle before coda to be non-coda, got lane %d", before.Lane)
	}
	if after.Lane != 1 {
		t.Errorf("expected freestyle at/after coda to be marked coda, got lane %d", after.Lane)
	}
}
