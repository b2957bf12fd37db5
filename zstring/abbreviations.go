package zstring

import "encoding/binary"

// FindAbbreviation resolves and decodes abbreviation (z,x) — z is the
// escape code (1, 2 or 3) and x the following Z-character — per the
// standard 32*(z-1)+x indexing into the abbreviation table. Abbreviations
// never recurse: the nested Decode call is passed an abbreviation table
// base of zero so any escape found inside the abbreviation's own text is
// dropped rather than expanded.
func FindAbbreviation(version uint8, abbreviationTableBase uint16, memory []uint8, alphabets *Alphabets, z uint8, x uint8) string {
	abbrIx := 32*(z-1) + x
	addr := uint32(abbreviationTableBase) + 2*uint32(abbrIx)
	strAddr := 2 * uint32(binary.BigEndian.Uint16(memory[addr:addr+2]))

	str, _ := Decode(memory, strAddr, version, alphabets, 0)

	return str
}
