// Package chartfmt implements the raw .chart text parser (§4.2): a
// bracketed-section tokenizer that lowers a Clone Hero family .chart file
// into a rawchart.RawChart. It performs no timing math and no
// normalization; that is the normalize package's job.
package chartfmt

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chartcore/chartcore/rawchart"
)

var (
	sectionOrPrcRegex = regexp.MustCompile(`^(?:section|prc)\s+(.+)$`)
	endRegex          = regexp.MustCompile(`^end$`)
	codaRegex         = regexp.MustCompile(`^coda$`)
	mixDrumsRegex     = regexp.MustCompile(`^mix\s+(\d+)\s+drums\s+(\d+)(d|dnoflip|easy|easynokick)?$`)
)

// scanState is the tokenizer's position within the file.
type scanState int

const (
	stateOutsideSection scanState = iota
	stateReadingSectionName
	stateInSectionBody
)

// ParseError reports an unrecoverable .chart structure problem (§4.2, §7).
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "invalid .chart: " + e.Msg }

// Parse decodes .chart bytes into a RawChart. It fails closed: any
// unrecoverable structural problem (no sections, missing resolution, zero
// tempo, zero time-signature components) returns a *ParseError and a nil
// chart.
func Parse(data []byte) (*rawchart.RawChart, error) {
	text := decodeText(data)

	chart := &rawchart.RawChart{
		Metadata: make(map[string]string),
		Tracks:   make(map[rawchart.TrackID]*rawchart.RawTrack),
		Format:   rawchart.FormatChart,
	}

	var (
		state   = stateOutsideSection
		section string
		saw     bool // did we see at least one section header
	)

	// Disco-flip events are emitted as zero-length marker events at their
	// own ticks; the normalizer's disco register evaluates them
	// start-inclusive end-exclusive, and a start with no matching end runs
	// to the end of the chart.
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		rawLine := scanner.Text()
		line := strings.TrimSpace(rawLine)

		switch state {
		case stateOutsideSection:
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") || len(line) < 2 {
				continue
			}
			section = line[1 : len(line)-1]
			saw = true
			state = stateReadingSectionName
		case stateReadingSectionName:
			if line == "{" {
				state = stateInSectionBody
				continue
			}
			if line == "" {
				continue
			}
			return nil, &ParseError{Msg: fmt.Sprintf("unexpected line %q before section body", line)}
		case stateInSectionBody:
			if line == "}" {
				state = stateOutsideSection
				continue
			}
			if line == "" {
				continue
			}
			if err := parseBodyLine(chart, section, line); err != nil {
				return nil, &ParseError{Msg: err.Error()}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}

	if !saw {
		return nil, &ParseError{Msg: "no sections found"}
	}
	if chart.Resolution == 0 {
		return nil, &ParseError{Msg: "missing or zero Resolution"}
	}
	for _, t := range chart.Tempos {
		if t.BPM == 0 {
			return nil, &ParseError{Msg: "zero-BPM tempo marker"}
		}
	}
	for _, ts := range chart.TimeSigs {
		if ts.Numerator == 0 || ts.Denominator == 0 {
			return nil, &ParseError{Msg: "zero numerator/denominator time signature"}
		}
	}
	if len(chart.Tempos) == 0 || chart.Tempos[0].Tick != 0 {
		chart.Tempos = append([]rawchart.TempoMarker{{Tick: 0, BPM: 120}}, chart.Tempos...)
	}

	postProcess(chart)
	return chart, nil
}

func parseBodyLine(chart *rawchart.RawChart, section, line string) error {
	switch section {
	case "Song":
		return parseSongLine(chart, line)
	case "SyncTrack":
		return parseSyncTrackLine(chart, line)
	case "Events":
		return parseEventsLine(chart, line)
	default:
		if id, ok := lookupTrackSection(section); ok {
			return parseTrackLine(chart, id, line)
		}
	}
	return nil
}

func splitKV(line string) (string, string, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

func parseSongLine(chart *rawchart.RawChart, line string) error {
	key, value, ok := splitKV(line)
	if !ok {
		return nil
	}
	value = unquote(value)
	if key == "Resolution" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid Resolution %q", value)
		}
		chart.Resolution = n
		return nil
	}
	chart.Metadata[key] = value
	return nil
}

func parseSyncTrackLine(chart *rawchart.RawChart, line string) error {
	tickStr, rest, ok := splitKV(line)
	if !ok {
		return nil
	}
	tick, err := strconv.ParseInt(tickStr, 10, 64)
	if err != nil {
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return nil
	}
	switch fields[0] {
	case "B":
		millibpm, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil
		}
		chart.Tempos = append(chart.Tempos, rawchart.TempoMarker{Tick: tick, BPM: float64(millibpm) / 1000.0})
	case "TS":
		num, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil
		}
		denom := 4
		if len(fields) >= 3 {
			exp, err := strconv.Atoi(fields[2])
			if err == nil {
				denom = 1 << uint(exp)
			}
		}
		chart.TimeSigs = append(chart.TimeSigs, rawchart.TimeSigMarker{Tick: tick, Numerator: num, Denominator: denom})
	}
	return nil
}

func parseEventsLine(chart *rawchart.RawChart, line string) error {
	tickStr, rest, ok := splitKV(line)
	if !ok {
		return nil
	}
	tick, err := strconv.ParseInt(tickStr, 10, 64)
	if err != nil {
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) < 1 || fields[0] != "E" {
		return nil
	}
	text := unquote(strings.TrimSpace(strings.TrimPrefix(rest, "E")))

	switch {
	case sectionOrPrcRegex.MatchString(text):
		m := sectionOrPrcRegex.FindStringSubmatch(text)
		chart.Sections = append(chart.Sections, rawchart.SectionEvent{Tick: tick, Name: m[1]})
	case endRegex.MatchString(text):
		chart.EndEvents = append(chart.EndEvents, rawchart.EndEvent{Tick: tick})
	case codaRegex.MatchString(text):
		applyCoda(chart, tick)
	default:
		if m := mixDrumsRegex.FindStringSubmatch(text); m != nil {
			applyMixDrums(chart, tick, m)
		}
	}
	return nil
}

func diffFromIndex(n int) (rawchart.Difficulty, bool) {
	switch n {
	case 0:
		return rawchart.Easy, true
	case 1:
		return rawchart.Medium, true
	case 2:
		return rawchart.Hard, true
	case 3:
		return rawchart.Expert, true
	}
	return 0, false
}

func applyMixDrums(chart *rawchart.RawChart, tick int64, m []string) {
	diffIdx, _ := strconv.Atoi(m[1])
	diff, ok := diffFromIndex(diffIdx)
	if !ok {
		return
	}
	flag := m[3]
	if flag == "easy" || flag == "easynokick" {
		// explicitly ignored: neither starts nor ends disco.
		return
	}
	mixVal, _ := strconv.Atoi(m[2])

	var evt rawchart.RawEventType
	switch {
	case flag == "dnoflip":
		evt = rawchart.EvtDiscoNoFlipOn
	case mixVal == 1:
		evt = rawchart.EvtDiscoOn
	default:
		evt = rawchart.EvtDiscoOff
	}

	track := chart.Track(rawchart.TrackID{Instrument: rawchart.Drums, Difficulty: diff})
	track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Type: evt})
}

// applyCoda remembers the tick of the first coda event; freestyle phrases at
// or after this tick become isCoda (§4.2 "Coda detection").
func applyCoda(chart *rawchart.RawChart, tick int64) {
	// The coda tick is threaded through chart.Metadata so postProcess can
	// apply it without a package-level mutable singleton (the parser must
	// stay a pure function of its input, per §5).
	if _, ok := chart.Metadata["__codaTick"]; !ok {
		chart.Metadata["__codaTick"] = strconv.FormatInt(tick, 10)
	}
}

func parseTrackLine(chart *rawchart.RawChart, id rawchart.TrackID, line string) error {
	tickStr, rest, ok := splitKV(line)
	if !ok {
		return nil
	}
	tick, err := strconv.ParseInt(tickStr, 10, 64)
	if err != nil {
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return nil
	}

	track := chart.Track(id)
	it := rawchart.TypeOf(id.Instrument)

	switch fields[0] {
	case "N":
		if len(fields) < 3 {
			return nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil
		}
		length, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil
		}
		if it == rawchart.DrumsType {
			parseDrumNote(track, tick, length, n)
			return nil
		}
		evt, ok := rawchart.DecodeLaneNote(it, n)
		if !ok {
			return nil
		}
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: evt})
	case "S":
		if len(fields) < 3 {
			return nil
		}
		sType, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil
		}
		length, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil
		}
		switch sType {
		case 2:
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtStarPower})
		case 64:
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtDrumFreestyle})
		case 65:
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtFlexSingle})
		case 66:
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtFlexDouble})
		}
	case "E":
		text := strings.TrimSpace(strings.Join(fields[1:], " "))
		switch text {
		case "solo":
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Type: rawchart.EvtSolo})
		case "soloend":
			track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Type: rawchart.EvtSoloEnd})
		}
	}
	return nil
}

// parseDrumNote decodes the drum family's extended note numbers: 0-5 lanes
// plus accent (34-38), ghost (40-44), cymbal marker (66-68), and 2x kick
// (32).
func parseDrumNote(track *rawchart.RawTrack, tick, length int64, n int) {
	switch {
	case n >= 0 && n <= 5:
		evt, _ := rawchart.DecodeLaneNote(rawchart.DrumsType, n)
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: evt})
	case n == 32:
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtDoubleKick})
	case n >= 34 && n <= 38:
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtAccent, Lane: n - 34})
	case n >= 40 && n <= 44:
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtGhost, Lane: n - 40})
	case n >= 66 && n <= 68:
		track.Events = append(track.Events, rawchart.RawEvent{Tick: tick, Length: length, Type: rawchart.EvtCymbalMarker, Lane: (n - 66) + 2})
	}
}

// postProcess reorders each track's events by tick (stable), merges
// solo/soloend pairs into a single EvtSolo phrase whose length is
// (endTick-startTick+1) per §4.2, and applies coda
// detection to drum freestyle phrases.
func postProcess(chart *rawchart.RawChart) {
	codaTick := int64(-1)
	if s, ok := chart.Metadata["__codaTick"]; ok {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			codaTick = v
		}
		delete(chart.Metadata, "__codaTick")
	}

	for _, track := range chart.Tracks {
		stableSortByTick(track.Events)
		track.Events = mergeSoloPairs(track.Events)
		if codaTick >= 0 {
			markCoda(track.Events, codaTick)
		}
	}
}

func stableSortByTick(events []rawchart.RawEvent) {
	// insertion sort: stable, and event counts per track are small enough
	// that O(n^2) worst case is not a practical concern.
	for i := 1; i < len(events); i++ {
		j := i
		for j > 0 && events[j-1].Tick > events[j].Tick {
			events[j-1], events[j] = events[j], events[j-1]
			j--
		}
	}
}

func markCoda(events []rawchart.RawEvent, codaTick int64) {
	for i := range events {
		if events[i].Type == rawchart.EvtDrumFreestyle && events[i].Tick >= codaTick {
			events[i].Lane = 1 // isCoda, see normalize.DrumFreestylePhrase
		}
	}
}

func mergeSoloPairs(events []rawchart.RawEvent) []rawchart.RawEvent {
	var out []rawchart.RawEvent
	var openStart *int64
	for _, e := range events {
		switch e.Type {
		case rawchart.EvtSolo:
			t := e.Tick
			openStart = &t
		case rawchart.EvtSoloEnd:
			if openStart != nil {
				out = append(out, rawchart.RawEvent{
					Tick:   *openStart,
					Length: e.Tick - *openStart + 1,
					Type:   rawchart.EvtSolo,
				})
				openStart = nil
			}
		default:
			out = append(out, e)
		}
	}
	return out
}
