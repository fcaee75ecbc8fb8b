package midfmt

import (
	"bytes"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/chartcore/chartcore/rawchart"
)

// ParseError reports an unrecoverable .mid structure problem (§4.3, §7).
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "invalid .mid: " + e.Msg }

// Parse decodes Standard MIDI File bytes into a RawChart. mods carries the
// song.ini-derived modifiers that affect raw-parse-time decisions: the
// legacy GH1/GH2 Star Power note swap keys off mods.MultiplierNote.
func Parse(data []byte, mods rawchart.IniChartModifiers) (*rawchart.RawChart, error) {
	smfFile, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	if smfFile.Format() != 1 {
		return nil, &ParseError{Msg: "only format-1 SMF files are supported"}
	}
	ticks, ok := smfFile.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, &ParseError{Msg: "only metrical time division is supported"}
	}
	if len(smfFile.Tracks) < 1 {
		return nil, &ParseError{Msg: "no tracks"}
	}

	chart := &rawchart.RawChart{
		Resolution: int(ticks),
		Metadata:   make(map[string]string),
		Tracks:     make(map[rawchart.TrackID]*rawchart.RawTrack),
		Format:     rawchart.FormatMIDI,
	}

	parseConductorTrack(chart, smfFile.Tracks[0])
	if len(chart.Tempos) == 0 || chart.Tempos[0].Tick != 0 {
		chart.Tempos = append([]rawchart.TempoMarker{{Tick: 0, BPM: 120}}, chart.Tempos...)
	}
	if len(chart.TimeSigs) == 0 {
		chart.TimeSigs = append(chart.TimeSigs, rawchart.TimeSigMarker{Tick: 0, Numerator: 4, Denominator: 4})
	}

	for _, track := range smfFile.Tracks {
		name := getTrackName(track)
		switch {
		case name == trackNameEvents:
			parseEventsTrack(chart, track)
		case name == trackNameVocals:
			// lyrics/vocals are out of core scope (§1 Non-goals).
		default:
			if inst, ok := lookupInstrumentTrack(name); ok {
				parseInstrumentTrack(chart, track, inst, mods)
			}
		}
	}

	return chart, nil
}

func getTrackName(track smf.Track) string {
	for _, event := range track {
		msg := event.Message
		var text string
		if msg.GetMetaTrackName(&text) {
			return text
		}
		if msg.GetMetaText(&text) {
			return text
		}
	}
	return ""
}

func parseConductorTrack(chart *rawchart.RawChart, track smf.Track) {
	var currentTick int64
	for _, event := range track {
		currentTick += int64(event.Delta)
		msg := event.Message

		var bpm float64
		if msg.GetMetaTempo(&bpm) {
			chart.Tempos = append(chart.Tempos, rawchart.TempoMarker{Tick: currentTick, BPM: bpm})
			continue
		}
		var num, denomExp uint8
		if msg.GetMetaTimeSig(&num, &denomExp, nil, nil) {
			chart.TimeSigs = append(chart.TimeSigs, rawchart.TimeSigMarker{
				Tick:        currentTick,
				Numerator:   int(num),
				Denominator: 1 << denomExp,
			})
		}
	}
}

// parseEventsTrack recognizes the bracketed "[section Name]"/"[prc Name]"
// text convention .mid files use for section markers; this is distinct
// from chartfmt's bracket-free .chart-only "section Name"/"prc Name" text.
func parseEventsTrack(chart *rawchart.RawChart, track smf.Track) {
	var currentTick int64
	for _, event := range track {
		currentTick += int64(event.Delta)
		msg := event.Message

		var text string
		if !msg.GetMetaText(&text) && !msg.GetMetaLyric(&text) {
			continue
		}
		if name, ok := bracketedSectionName(text); ok {
			chart.Sections = append(chart.Sections, rawchart.SectionEvent{Tick: currentTick, Name: name})
		} else if text == "end" || text == "[end]" {
			chart.EndEvents = append(chart.EndEvents, rawchart.EndEvent{Tick: currentTick})
		}
	}
}

func bracketedSectionName(text string) (string, bool) {
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return "", false
	}
	inner := text[1 : len(text)-1]
	for _, prefix := range []string{"section ", "prc "} {
		if len(inner) > len(prefix) && inner[:len(prefix)] == prefix {
			return inner[len(prefix):], true
		}
	}
	return "", false
}

func getSysEx(msg smf.Message) ([]byte, bool) {
	var data []byte
	if msg.GetSysEx(&data) {
		return data, true
	}
	return nil, false
}

// sysExDiffToDifficulties resolves a SysEx payload's difficulty byte (§4.3
// "50 53 00 00 <diff> <type> <on>") to the set of difficulties it targets:
// 0-3 is a single difficulty (easy..expert), 0xFF fans to all four.
func sysExDiffToDifficulties(b byte) []rawchart.Difficulty {
	switch b {
	case 0xFF:
		return allDifficulties
	case 0:
		return []rawchart.Difficulty{rawchart.Easy}
	case 1:
		return []rawchart.Difficulty{rawchart.Medium}
	case 2:
		return []rawchart.Difficulty{rawchart.Hard}
	case 3:
		return []rawchart.Difficulty{rawchart.Expert}
	}
	return nil
}

var allDifficulties = []rawchart.Difficulty{rawchart.Expert, rawchart.Hard, rawchart.Medium, rawchart.Easy}

type notePairKey struct {
	key, channel uint8
}

type pendingNote struct {
	tick int64
	vel  uint8
}

// sysExKey identifies one open/tap-force SysEx window in flight, keyed by
// the (difficulty byte, type byte) pair so "on" and "off" pulses for
// different difficulties or modifier types don't clobber each other.
type sysExKey struct {
	diffByte byte
	typeByte byte
}

func parseInstrumentTrack(chart *rawchart.RawChart, track smf.Track, inst rawchart.Instrument, mods rawchart.IniChartModifiers) {
	it := rawchart.TypeOf(inst)

	var enhancedOpens, chartDynamics bool
	for _, event := range track {
		var text string
		if event.Message.GetMetaText(&text) {
			switch text {
			case "ENHANCED_OPENS":
				enhancedOpens = true
			case "ENABLE_CHART_DYNAMICS":
				chartDynamics = true
			}
		}
	}

	pendingByKeyChannel := make(map[notePairKey]pendingNote)
	pendingSpecial := make(map[int]pendingNote) // keyed by instrument-wide fixed note (solo/starpower/...)
	pendingSysEx := make(map[sysExKey]int64)

	var currentTick int64
	for _, event := range track {
		currentTick += int64(event.Delta)
		msg := event.Message

		if sysex, ok := getSysEx(msg); ok {
			handleSysEx(chart, inst, sysex, currentTick, pendingSysEx)
			continue
		}

		var ch, key, vel uint8
		if msg.GetNoteOn(&ch, &key, &vel) && vel > 0 {
			note := int(key)
			if isInstrumentWideNote(note) {
				pendingSpecial[note] = pendingNote{tick: currentTick, vel: vel}
				continue
			}
			_, lane, _, ok := noteToLane(it, note)
			if !ok {
				continue
			}
			if lane == 7 && it != rawchart.DrumsType && !enhancedOpens {
				continue // reserved open-note pitch is inert without the toggle
			}
			pendingByKeyChannel[notePairKey{key, ch}] = pendingNote{tick: currentTick, vel: vel}
			continue
		}

		isOff := msg.GetNoteOff(&ch, &key, &vel)
		if !isOff && msg.GetNoteOn(&ch, &key, &vel) && vel == 0 {
			isOff = true
		}
		if !isOff {
			continue
		}
		note := int(key)
		if isInstrumentWideNote(note) {
			pn, ok := pendingSpecial[note]
			if !ok {
				continue
			}
			delete(pendingSpecial, note)
			emitInstrumentWideEvent(chart, inst, note, pn.tick, currentTick, pn.vel, mods)
			continue
		}
		diff, lane, doubleKick, ok := noteToLane(it, note)
		if !ok {
			continue
		}
		pk := notePairKey{key, ch}
		pn, ok := pendingByKeyChannel[pk]
		if !ok {
			continue
		}
		delete(pendingByKeyChannel, pk)

		var evtType rawchart.RawEventType
		if doubleKick {
			evtType = rawchart.EvtDoubleKick
		} else {
			evtType, _ = rawchart.DecodeLaneNote(it, lane)
		}
		raw := rawchart.RawEvent{
			Tick:     pn.tick,
			Length:   currentTick - pn.tick,
			Type:     evtType,
			Velocity: pn.vel,
			Channel:  ch,
		}
		if it == rawchart.DrumsType && chartDynamics && !doubleKick {
			applyDrumDynamics(chart, inst, diff, raw, lane)
		}
		appendEvent(chart, inst, diff, raw)
	}

	pruneUnplayedDifficulties(chart, inst)
}

func isInstrumentWideNote(note int) bool {
	switch note {
	case noteSolo, noteForceTap, noteForceFlam, noteTomYellow, noteTomBlue, noteTomGreen,
		noteStarPower, noteDrumFreestyle, noteFlexSingle, noteFlexDouble:
		return true
	}
	return false
}

func appendEvent(chart *rawchart.RawChart, inst rawchart.Instrument, diff rawchart.Difficulty, evt rawchart.RawEvent) {
	track := chart.Track(rawchart.TrackID{Instrument: inst, Difficulty: diff})
	track.Events = append(track.Events, evt)
}

// applyDrumDynamics encodes ENABLE_CHART_DYNAMICS velocity extremes as
// accent/ghost modifier events alongside the note itself (§4.3).
func applyDrumDynamics(chart *rawchart.RawChart, inst rawchart.Instrument, diff rawchart.Difficulty, note rawchart.RawEvent, lane int) {
	switch {
	case note.Velocity >= 127:
		appendEvent(chart, inst, diff, rawchart.RawEvent{Tick: note.Tick, Type: rawchart.EvtAccent, Lane: lane})
	case note.Velocity <= 1:
		appendEvent(chart, inst, diff, rawchart.RawEvent{Tick: note.Tick, Type: rawchart.EvtGhost, Lane: lane})
	}
}

// emitInstrumentWideEvent turns one fixed-pitch MIDI note window into a
// RawEvent fanned across every charted difficulty; pruneUnplayedDifficulties
// removes it again from any difficulty that ends up with no notes.
func emitInstrumentWideEvent(chart *rawchart.RawChart, inst rawchart.Instrument, note int, start, end int64, vel uint8, mods rawchart.IniChartModifiers) {
	if lane, ok := tomNoteLane(note); ok {
		for _, d := range allDifficulties {
			appendEvent(chart, inst, d, rawchart.RawEvent{Tick: start, Length: end - start, Type: rawchart.EvtTomMarker, Lane: lane})
		}
		return
	}

	evtType := instrumentWideEventType(note, mods)
	for _, d := range allDifficulties {
		appendEvent(chart, inst, d, rawchart.RawEvent{Tick: start, Length: end - start, Type: evtType, Velocity: vel})
	}
}

// instrumentWideEventType resolves a fixed-pitch marker note to its
// RawEventType. The legacy GH1/GH2 multiplier convention overloads note
// 103 (normally "solo") as Star Power when the song's ini sets
// multiplier_note=103 (§9). The parser applies no content-based heuristic;
// charts that use the convention without that ini key are handled later by
// normalize's legacyStarPowerSwap.
func instrumentWideEventType(note int, mods rawchart.IniChartModifiers) rawchart.RawEventType {
	switch note {
	case noteSolo:
		if mods.MultiplierNote == noteSolo {
			return rawchart.EvtStarPower
		}
		return rawchart.EvtSolo
	case noteStarPower:
		return rawchart.EvtStarPower
	case noteDrumFreestyle:
		return rawchart.EvtDrumFreestyle
	case noteFlexSingle:
		return rawchart.EvtFlexSingle
	case noteFlexDouble:
		return rawchart.EvtFlexDouble
	case noteForceFlam:
		return rawchart.EvtForceFlam
	case noteForceTap:
		return rawchart.EvtForceTap
	}
	return 0
}

// handleSysEx parses the "50 53 00 00 <diff> <type> <on>" open/tap-force
// control messages. A trailing on=1 opens a window, on=0 closes the most
// recently opened window for that (diff,type) pair.
func handleSysEx(chart *rawchart.RawChart, inst rawchart.Instrument, data []byte, tick int64, pending map[sysExKey]int64) {
	if len(data) < 7 {
		return
	}
	if data[0] != 0x50 || data[1] != 0x53 || data[2] != 0x00 || data[3] != 0x00 {
		return
	}
	diffByte, typeByte, on := data[4], data[5], data[6]
	k := sysExKey{diffByte: diffByte, typeByte: typeByte}

	if on != 0 {
		pending[k] = tick
		return
	}
	start, ok := pending[k]
	if !ok {
		return
	}
	delete(pending, k)

	evtType := rawchart.EvtForceOpen
	if typeByte == 1 {
		evtType = rawchart.EvtForceTap
	}
	for _, d := range sysExDiffToDifficulties(diffByte) {
		appendEvent(chart, inst, d, rawchart.RawEvent{Tick: start, Length: tick - start, Type: evtType})
	}
}

// pruneUnplayedDifficulties removes a difficulty's track entirely if no
// note event survived onto it: instrument-wide phrases and SysEx windows
// fan out blind to which difficulties are actually charted, so a
// difficulty with zero notes would otherwise be left holding orphan
// phrases and modifiers.
func pruneUnplayedDifficulties(chart *rawchart.RawChart, inst rawchart.Instrument) {
	for _, diff := range allDifficulties {
		id := rawchart.TrackID{Instrument: inst, Difficulty: diff}
		track, ok := chart.Tracks[id]
		if !ok {
			continue
		}
		hasNote := false
		for _, e := range track.Events {
			if e.Type.IsNote() {
				hasNote = true
				break
			}
		}
		if !hasNote {
			delete(chart.Tracks, id)
			continue
		}
		sort.Slice(track.Events, func(i, j int) bool { return track.Events[i].Tick < track.Events[j].Tick })
	}
}
