// Package normalize implements the per-track normalization pipeline (§4.5):
// sustain cutoff, drum/fret modifier resolution, natural-HOPO inference,
// chord snapping, and overlap repair. It consumes a rawchart.RawTrack and
// produces a track.Track. Grounded on the teacher's plain-loop-over-a-
// sorted-event-list style (chart.go's scanner, drums.go's window pairing):
// the modifier passes here are deliberately flat index walks rather than
// iterator chains, per §9's guidance for this exact kind of O(N) state walk.
package normalize

import (
	"sort"

	"github.com/chartcore/chartcore/rawchart"
)

// group is one tick's worth of raw events, in original within-tick order.
type group struct {
	tick   int64
	events []rawchart.RawEvent
}

// groupByTick buckets a track's events by tick, preserving each event's
// original relative order within a tick, and returns the buckets sorted by
// tick ascending.
func groupByTick(events []rawchart.RawEvent) []group {
	byTick := make(map[int64][]rawchart.RawEvent)
	var ticks []int64
	for _, e := range events {
		if _, ok := byTick[e.Tick]; !ok {
			ticks = append(ticks, e.Tick)
		}
		byTick[e.Tick] = append(byTick[e.Tick], e)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	groups := make([]group, len(ticks))
	for i, tick := range ticks {
		groups[i] = group{tick: tick, events: byTick[tick]}
	}
	return groups
}
