package zstring

import "github.com/haldor-if/zvm/zcore"

// Alphabet identifies one of the three 26-entry Z-character tables.
type Alphabet int

const (
	A0 Alphabet = 0 // lowercase
	A1 Alphabet = 1 // uppercase
	A2 Alphabet = 2 // punctuation/digits
)

// Alphabets holds the three Z-character tables in effect for a story file.
// Versions 1 and 2 have fixed, slightly different tables to v3+; v5+ may
// replace all three via the header's alphabet-table address.
type Alphabets struct {
	A0 [26]uint8
	A1 [26]uint8
	A2 [26]uint8
}

var a0Default = [26]uint8{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Default = [26]uint8{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}

// a2V1 is the version-1 punctuation alphabet; position 0 (z-char 6) is the
// ZSCII escape, handled by Decode, and v1's newline is z-char 1 instead.
var a2V1 = [26]uint8{0, '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '<', '-', ':', '(', ')'}

// a2Default is the v2+ punctuation alphabet; position 0 (z-char 6) is the
// ZSCII escape, handled by Decode, and z-char 7 decodes to '\n' directly.
var a2Default = [26]uint8{0, '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

var defaultAlphabetsV1 = Alphabets{A0: a0Default, A1: a1Default, A2: a2V1}
var defaultAlphabetsV2Plus = Alphabets{A0: a0Default, A1: a1Default, A2: a2Default}

// LoadAlphabets returns the alphabet tables in effect for the story. Only
// v5+ story files may replace them, via a 78-byte table (26 bytes per
// alphabet) addressed by the header's alphabet-table-base word; a base of
// zero (the overwhelming majority of v5+ files) keeps the v2+ defaults.
func LoadAlphabets(version uint8, core *zcore.Core) *Alphabets {
	if version <= 1 {
		a := defaultAlphabetsV1
		return &a
	}

	base := core.AlternativeCharSetBaseAddress
	if version < 5 || base == 0 {
		a := defaultAlphabetsV2Plus
		return &a
	}

	table := core.Slice(uint32(base), uint32(base)+78)
	var a Alphabets
	copy(a.A0[:], table[0:26])
	copy(a.A1[:], table[26:52])
	copy(a.A2[:], table[52:78])
	return &a
}

func (a *Alphabets) lookup(alphabet Alphabet, zchr uint8) uint8 {
	idx := zchr - 6
	switch alphabet {
	case A0:
		return a.A0[idx]
	case A1:
		return a.A1[idx]
	default:
		return a.A2[idx]
	}
}

// indexOf returns the z-char code (6-31) for a literal byte in the given
// alphabet, used by Encode, and whether it was found there.
func (a *Alphabets) indexOf(alphabet Alphabet, ch uint8) (uint8, bool) {
	var table *[26]uint8
	switch alphabet {
	case A0:
		table = &a.A0
	case A1:
		table = &a.A1
	default:
		table = &a.A2
	}
	for i, c := range table {
		if c == ch {
			return uint8(i + 6), true
		}
	}
	return 0, false
}
