// Package chart is the core's external interface (§6): a single parse
// entry point that dispatches to chartfmt or midfmt, a normalized
// ParsedChart type, and the track hasher and issue detector wrapped around
// it so a caller never needs to touch rawchart, normalize, track, or
// issues directly.
package chart

import (
	"errors"
	"fmt"

	"github.com/chartcore/chartcore/chartfmt"
	"github.com/chartcore/chartcore/issues"
	"github.com/chartcore/chartcore/midfmt"
	"github.com/chartcore/chartcore/normalize"
	"github.com/chartcore/chartcore/rawchart"
	"github.com/chartcore/chartcore/track"
)

// ErrBadChart is the sentinel every fatal parse failure wraps (§7); callers
// match it with errors.Is regardless of which underlying format parser
// produced the failure.
var ErrBadChart = errors.New("badChart")

// ParseError is the single error type Parse returns. It always wraps
// ErrBadChart, so errors.Is(err, ErrBadChart) is the one fatal/non-fatal
// test a caller needs (§7); Msg carries the underlying parser's message.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func (e *ParseError) Unwrap() error { return ErrBadChart }

func wrapParseError(err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Msg: err.Error()}
}

// ParsedChart is the normalized, immutable result of a successful parse:
// the chart-wide tempo/meter/section/end-event tables plus one normalized
// track.Track per (instrument, difficulty) that has any content.
type ParsedChart struct {
	Resolution int
	Tempos     []rawchart.TempoMarker
	TimeSigs   []rawchart.TimeSigMarker
	Sections   []rawchart.SectionEvent
	EndEvents  []rawchart.EndEvent
	Metadata   map[string]string

	Tracks map[rawchart.TrackID]*track.Track
}

// Parse runs the format-appropriate raw parser (§4.2/§4.3) and then the
// full normalization pipeline (§4.5) over the result. It is a pure
// function of its three arguments (§5): the same bytes, format and mods
// always produce the same ParsedChart.
func Parse(data []byte, format rawchart.Format, mods rawchart.IniChartModifiers) (*ParsedChart, error) {
	var raw *rawchart.RawChart
	var err error
	switch format {
	case rawchart.FormatChart:
		raw, err = chartfmt.Parse(data)
	case rawchart.FormatMIDI:
		raw, err = midfmt.Parse(data, mods)
	default:
		return nil, &ParseError{Msg: fmt.Sprintf("unknown chart format %d", format)}
	}
	if err != nil {
		return nil, wrapParseError(err)
	}

	tracks := normalize.Normalize(raw, mods)
	return &ParsedChart{
		Resolution: raw.Resolution,
		Tempos:     raw.Tempos,
		TimeSigs:   raw.TimeSigs,
		Sections:   raw.Sections,
		EndEvents:  raw.EndEvents,
		Metadata:   raw.Metadata,
		Tracks:     tracks,
	}, nil
}

// ErrTrackNotFound is returned by HashTrack when the requested
// (instrument, difficulty) pair has no charted data.
var ErrTrackNotFound = errors.New("track not found")

// HashTrack serializes the requested track to its frozen BTRACK form
// (§4.6) and returns both the BLAKE3 base64url hash and the serialized
// bytes. It is a pure function of (parsed, instrument, difficulty) (§5).
func HashTrack(parsed *ParsedChart, instrument rawchart.Instrument, difficulty rawchart.Difficulty) (hash string, serialized []byte, err error) {
	id := rawchart.TrackID{Instrument: instrument, Difficulty: difficulty}
	tr, ok := parsed.Tracks[id]
	if !ok {
		return "", nil, fmt.Errorf("hash track %s/%s: %w", instrument, difficulty, ErrTrackNotFound)
	}
	serialized = track.Serialize(tr, parsed.Resolution, parsed.Tempos, parsed.TimeSigs)
	hash = track.Hash(serialized)
	return hash, serialized, nil
}

// FindIssues runs the chart-level issue detector (§4.7) over parsed.
// perTrackHashes, when supplied, enables the difficultyNotReduced
// hash-comparison rule; a nil map simply skips that check.
func FindIssues(parsed *ParsedChart, songLengthMs int, perTrackHashes map[rawchart.TrackID]string) []issues.ChartIssue {
	return issues.Find(issues.Input{
		Resolution:     parsed.Resolution,
		Tempos:         parsed.Tempos,
		TimeSigs:       parsed.TimeSigs,
		Sections:       parsed.Sections,
		EndEvents:      parsed.EndEvents,
		Tracks:         parsed.Tracks,
		SongLengthMs:   songLengthMs,
		PerTrackHashes: perTrackHashes,
	})
}

// HashAllTracks hashes every track present in parsed, for convenience
// callers that want the full perTrackHashes map to feed FindIssues.
func HashAllTracks(parsed *ParsedChart) map[rawchart.TrackID]string {
	out := make(map[rawchart.TrackID]string, len(parsed.Tracks))
	for id, tr := range parsed.Tracks {
		serialized := track.Serialize(tr, parsed.Resolution, parsed.Tempos, parsed.TimeSigs)
		out[id] = track.Hash(serialized)
	}
	return out
}
