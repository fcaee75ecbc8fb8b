package chartfmt

// Encoding is the text encoding a .chart file's bytes are detected to use.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16LE
	UTF16BE
)

// DetectEncoding infers UTF-8/UTF-16LE/UTF-16BE from a leading byte-order
// mark. Defaults to UTF-8, including for an empty slice or one with no BOM
// at all.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 2 {
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			return UTF16LE
		case data[0] == 0xFE && data[1] == 0xFF:
			return UTF16BE
		}
	}
	return UTF8
}

// decodeText converts raw bytes to a string per the detected encoding,
// stripping the BOM when present (including the 3-byte UTF-8 BOM, which
// DetectEncoding doesn't need to distinguish as its own Encoding value
// since UTF8 is already the fallback).
func decodeText(data []byte) string {
	switch DetectEncoding(data) {
	case UTF16LE:
		return utf16ToString(data[2:], false)
	case UTF16BE:
		return utf16ToString(data[2:], true)
	default:
		if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
			data = data[3:]
		}
		return string(data)
	}
}

func utf16ToString(data []byte, bigEndian bool) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		hi, lo := data[i*2], data[i*2+1]
		if bigEndian {
			units[i] = uint16(hi)<<8 | uint16(lo)
		} else {
			units[i] = uint16(lo)<<8 | uint16(hi)
		}
	}
	return string(utf16Decode(units))
}

// utf16Decode is a minimal UTF-16 to rune decoder (surrogate pair aware),
// kept local so the package has no extra import beyond unicode/utf16 would
// require; implemented directly for clarity over the small alphabet of
// chart text (song metadata, section text).
func utf16Decode(units []uint16) []rune {
	var out []rune
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			lo := units[i+1]
			r := (rune(u-0xD800)<<10 | rune(lo-0xDC00)) + 0x10000
			out = append(out, r)
			i++
		default:
			out = append(out, rune(u))
		}
	}
	return out
}
