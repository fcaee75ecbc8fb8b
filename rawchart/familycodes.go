package rawchart

// DecodeLaneNote maps the per-instrument-family small integer used by both
// on-disk formats (.chart's "N <n> <len>" and .mid's base-relative MIDI
// note number) to a RawEventType. Both raw parsers converge on this table
// so the two formats agree on what "note 3" means for a given instrument
// type, which is the whole point of sharing one raw model (§4.2, §4.3).
//
// Five-fret: 0-4 are green..orange, 5/6/7 are the force/tap/open slots.
// Six-fret:  0-4 are white1,black1,white2,black2,white3; 5/6/7 are the
// force/tap/open slots; 8 is black3.
// Drums:     0-5 are kick,red,yellow,blue,green,orange(five-lane extra).
func DecodeLaneNote(it InstrumentType, n int) (RawEventType, bool) {
	switch it {
	case FiveFret:
		switch n {
		case 0:
			return EvtGreen, true
		case 1:
			return EvtRed, true
		case 2:
			return EvtYellow, true
		case 3:
			return EvtBlue, true
		case 4:
			return EvtOrange, true
		case 5:
			return EvtForceOpen, true // "forced" flag, resolved in normalize
		case 6:
			return EvtForceTap, true
		case 7:
			return EvtOpen, true
		}
	case SixFret:
		switch n {
		case 0:
			return EvtWhite1, true
		case 1:
			return EvtBlack1, true
		case 2:
			return EvtWhite2, true
		case 3:
			return EvtBlack2, true
		case 4:
			return EvtWhite3, true
		case 5:
			return EvtForceOpen, true
		case 6:
			return EvtForceTap, true
		case 7:
			return EvtOpen, true
		case 8:
			return EvtBlack3, true
		}
	case DrumsType:
		switch n {
		case 0:
			return EvtKick, true
		case 1:
			return EvtRedDrum, true
		case 2:
			return EvtYellowDrum, true
		case 3:
			return EvtBlueDrum, true
		case 4:
			return EvtGreenDrum, true
		case 5:
			return EvtOrangeDrum, true
		}
	}
	return 0, false
}

// IsNote reports whether a RawEventType is a physical note (as opposed to a
// modifier or phrase marker).
func (t RawEventType) IsNote() bool {
	switch t {
	case EvtOpen, EvtGreen, EvtRed, EvtYellow, EvtBlue, EvtOrange,
		EvtBlack1, EvtBlack2, EvtBlack3, EvtWhite1, EvtWhite2, EvtWhite3,
		EvtKick, EvtRedDrum, EvtYellowDrum, EvtBlueDrum, EvtOrangeDrum, EvtGreenDrum:
		return true
	}
	return false
}

// IsDrumNote reports whether a RawEventType is one of the drum note lanes.
func (t RawEventType) IsDrumNote() bool {
	switch t {
	case EvtKick, EvtRedDrum, EvtYellowDrum, EvtBlueDrum, EvtOrangeDrum, EvtGreenDrum:
		return true
	}
	return false
}
