package zstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		in        []uint8
		out       string
		bytesRead uint32
		version   uint8
	}{
		{"three alphabets", []uint8{11, 45, 42, 234, 1, 216, 0, 192, 98, 70, 70, 32, 72, 206, 68, 244, 116, 13, 42, 234, 142, 37, 11, 45, 42, 234, 1, 216}, "There is a small mailbox here.", 22, 1},
		{"zscii escape", []uint8{12, 193, 248, 165}, ">", 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str, bytesRead := Decode(tt.in, 0, tt.version, &defaultAlphabetsV1, 0)
			assert.Equal(t, tt.out, str)
			assert.Equal(t, tt.bytesRead, bytesRead)
		})
	}
}

func TestEncode(t *testing.T) {
	out := Encode([]rune(">"), 1, &defaultAlphabetsV1)
	require.Equal(t, []uint8{12, 193, 248, 165}, out)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded := Encode([]rune("hello"), 3, &defaultAlphabetsV2Plus)
	decoded, bytesRead := Decode(encoded, 0, 3, &defaultAlphabetsV2Plus, 0)
	require.Equal(t, uint32(len(encoded)), bytesRead)
	assert.Equal(t, "hello", decoded)
}

func TestAbbreviationExpansion(t *testing.T) {
	// Build a tiny v3 image: abbreviation table with one entry pointing at
	// the word "hello" encoded at a known address, then a main string that
	// references abbreviation 0 via z-char 1 (escape) followed by x=0.
	memory := make([]uint8, 0x200)

	helloAddr := uint32(0x100)
	encoded := Encode([]rune("hello"), 3, &defaultAlphabetsV2Plus)
	copy(memory[helloAddr:], encoded)

	abbrevTableBase := uint16(0x40)
	// abbreviation table entry 0 stores the packed (word) address, i.e. byte addr / 2
	memory[abbrevTableBase] = uint8(helloAddr / 2 >> 8)
	memory[abbrevTableBase+1] = uint8(helloAddr / 2)

	mainAddr := uint32(0x180)
	// z-chars: escape(1), x=0, pad -> one word, high bit set
	word := uint16(1)<<10 | uint16(0)<<5 | uint16(padChar)
	word |= 0x8000
	memory[mainAddr] = uint8(word >> 8)
	memory[mainAddr+1] = uint8(word)

	str, _ := Decode(memory, mainAddr, 3, &defaultAlphabetsV2Plus, abbrevTableBase)
	assert.Equal(t, "hello", str)
}
