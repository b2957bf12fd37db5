// Package zstring implements the Z-machine text codec: decoding packed
// Z-character streams to Unicode strings and encoding strings back to
// Z-characters for dictionary lookups, including alphabet shifts,
// abbreviation expansion and the 10-bit ZSCII escape.
package zstring

import "encoding/binary"

const padChar = 5 // zchar used to pad an encoded string to a word boundary

// zcharsOf unpacks a run of big-endian words into their three 5-bit
// Z-characters each, stopping after (and including) the first word with its
// high bit set.
func zcharsOf(memory []uint8, addr uint32) ([]uint8, uint32) {
	var zchrs []uint8
	ptr := addr
	for {
		word := binary.BigEndian.Uint16(memory[ptr : ptr+2])
		ptr += 2
		zchrs = append(zchrs,
			uint8((word>>10)&0b11111),
			uint8((word>>5)&0b11111),
			uint8(word&0b11111),
		)
		if word&0x8000 != 0 {
			break
		}
	}
	return zchrs, ptr - addr
}

// Decode reads a Z-string starting at addr and returns the decoded text
// plus the number of bytes consumed. abbrevTableBase of zero disables
// abbreviation expansion, used both for v1 stories (which have none) and
// internally while decoding an abbreviation's own text, since abbreviations
// may not recurse: an abbreviation escape found there is dropped rather
// than expanded.
func Decode(memory []uint8, addr uint32, version uint8, alphabets *Alphabets, abbrevTableBase uint16) (string, uint32) {
	zchrs, bytesRead := zcharsOf(memory, addr)

	var out []rune
	currentAlphabet := A0
	lockedAlphabet := A0 // v1-2 shift-lock base; unused from v3 on

	for i := 0; i < len(zchrs); i++ {
		zchr := zchrs[i]

		switch {
		case zchr == 0:
			out = append(out, ' ')
			currentAlphabet = lockedAlphabet

		case zchr == 1 && version == 1:
			out = append(out, '\n')
			currentAlphabet = lockedAlphabet

		case zchr == 1 && version >= 2 && abbrevTableBase != 0:
			if i+1 < len(zchrs) {
				out = append(out, []rune(FindAbbreviation(version, abbrevTableBase, memory, alphabets, 1, zchrs[i+1]))...)
				i++
			}
			currentAlphabet = lockedAlphabet

		case (zchr == 2 || zchr == 3) && version >= 3 && abbrevTableBase != 0:
			if i+1 < len(zchrs) {
				out = append(out, []rune(FindAbbreviation(version, abbrevTableBase, memory, alphabets, zchr, zchrs[i+1]))...)
				i++
			}
			currentAlphabet = lockedAlphabet

		case (zchr == 1 || ((zchr == 2 || zchr == 3) && version >= 3)) && abbrevTableBase == 0 && version >= 2:
			// Abbreviation escape seen while decoding an abbreviation's own
			// text (or a v2+ story with no table): no recursion, drop it.
			if i+1 < len(zchrs) {
				i++
			}
			currentAlphabet = lockedAlphabet

		case zchr == 2 && version <= 2:
			currentAlphabet = Alphabet((int(lockedAlphabet) + 1) % 3)

		case zchr == 3 && version <= 2:
			currentAlphabet = Alphabet((int(lockedAlphabet) + 2) % 3)

		case zchr == 4 && version <= 2:
			lockedAlphabet = Alphabet((int(lockedAlphabet) + 1) % 3)
			currentAlphabet = lockedAlphabet

		case zchr == 5 && version <= 2:
			lockedAlphabet = Alphabet((int(lockedAlphabet) + 2) % 3)
			currentAlphabet = lockedAlphabet

		case zchr == 4 && version >= 3:
			currentAlphabet = A1

		case zchr == 5 && version >= 3:
			currentAlphabet = A2

		case currentAlphabet == A2 && zchr == 6:
			if i+2 < len(zchrs) {
				code := zchrs[i+1]<<5 | zchrs[i+2]
				out = append(out, rune(code))
				i += 2
			}
			currentAlphabet = lockedAlphabet

		default:
			out = append(out, rune(alphabets.lookup(currentAlphabet, zchr)))
			currentAlphabet = lockedAlphabet
		}
	}

	return string(out), bytesRead
}

// Encode converts text to a packed Z-character stream for dictionary
// lookups, padding with the shift-5 code to a whole number of words and
// setting the high bit on the final word. Characters with no literal in any
// alphabet are written via the 10-bit ZSCII escape.
func Encode(text []rune, version uint8, alphabets *Alphabets) []uint8 {
	var zchrs []uint8

	for _, r := range text {
		if r > 255 {
			continue // outside the ZSCII range this codec round-trips
		}
		ch := uint8(r)

		if idx, ok := alphabets.indexOf(A0, ch); ok {
			zchrs = append(zchrs, idx)
			continue
		}
		if idx, ok := alphabets.indexOf(A1, ch); ok {
			zchrs = append(zchrs, shiftCode(version, A1), idx)
			continue
		}
		if idx, ok := alphabets.indexOf(A2, ch); ok {
			zchrs = append(zchrs, shiftCode(version, A2), idx)
			continue
		}

		zchrs = append(zchrs, shiftCode(version, A2), 6, ch>>5, ch&0b11111)
	}

	for len(zchrs)%3 != 0 {
		zchrs = append(zchrs, padChar)
	}

	out := make([]uint8, 0, len(zchrs)/3*2)
	for i := 0; i < len(zchrs); i += 3 {
		word := uint16(zchrs[i])<<10 | uint16(zchrs[i+1])<<5 | uint16(zchrs[i+2])
		if i+3 >= len(zchrs) {
			word |= 0x8000
		}
		out = append(out, uint8(word>>8), uint8(word))
	}
	return out
}

// shiftCode returns the single-character shift into the given alphabet from
// the baseline (A0) alphabet, which is all Encode ever needs since it never
// tracks a persistent shift-lock state across characters.
func shiftCode(version uint8, to Alphabet) uint8 {
	if version <= 2 {
		if to == A1 {
			return 2
		}
		return 3
	}
	if to == A1 {
		return 4
	}
	return 5
}
