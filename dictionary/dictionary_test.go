package dictionary_test

import (
	"testing"

	"github.com/haldor-if/zvm/dictionary"
	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zstring"
	"github.com/stretchr/testify/require"
)

// buildDictionary writes a v3 dictionary containing three pre-sorted words
// ("go", "look", "take") directly into a synthetic memory image.
func buildDictionary(t *testing.T) (*zcore.Core, *dictionary.Dictionary, *zstring.Alphabets) {
	t.Helper()

	memory := make([]uint8, 0x200)
	memory[0x00] = 3
	dictBase := uint16(0x40)
	memory[0x08] = uint8(dictBase >> 8)
	memory[0x09] = uint8(dictBase)
	memory[0x0e] = 0x01 // static memory base

	core := zcore.LoadCore(memory)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	words := []string{"go", "look", "take"}
	ptr := uint32(dictBase)
	core.SetByte(ptr, 2) // two separators
	core.SetByte(ptr+1, '.')
	core.SetByte(ptr+2, ',')
	core.SetByte(ptr+3, 7) // entry length: 4-byte word + 3 data bytes
	core.SetWord(ptr+4, uint16(len(words)))

	entryBase := ptr + 6
	for i, w := range words {
		encoded := zstring.Encode([]rune(w), 3, alphabets)
		addr := entryBase + uint32(i)*7
		for j, b := range encoded {
			core.SetByte(addr+uint32(j), b)
		}
	}

	dict, err := dictionary.Parse(core, alphabets)
	require.NoError(t, err)
	return core, dict, alphabets
}

func TestDictionaryFindKnownWord(t *testing.T) {
	_, dict, alphabets := buildDictionary(t)

	encoded := zstring.Encode([]rune("look"), 3, alphabets)
	addr := dict.Find(encoded)
	require.NotZero(t, addr)
}

func TestDictionaryFindUnknownWord(t *testing.T) {
	_, dict, alphabets := buildDictionary(t)

	encoded := zstring.Encode([]rune("xyzzy"), 3, alphabets)
	addr := dict.Find(encoded)
	require.Zero(t, addr)
}

func TestTokenise(t *testing.T) {
	_, dict, _ := buildDictionary(t)

	tokens := dictionary.Tokenise("take lamp, then go", dict)
	require.Len(t, tokens, 5)
	require.Equal(t, "take", tokens[0].Text)
	require.Equal(t, "lamp", tokens[1].Text)
	require.Equal(t, ",", tokens[2].Text)
	require.Equal(t, "then", tokens[3].Text)
	require.Equal(t, "go", tokens[4].Text)
}
