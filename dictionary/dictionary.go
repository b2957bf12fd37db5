// Package dictionary implements the Z-machine dictionary: parsing the
// story's word list and tokenising player input against it.
package dictionary

import (
	"bytes"
	"strings"

	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zstring"
)

// Header is the dictionary's fixed preamble: word separators and the
// per-entry record length and count.
type Header struct {
	Separators  []uint8
	EntryLength uint8
	EntryCount  int16
}

// Entry is one decoded dictionary word.
type Entry struct {
	Address     uint16
	EncodedWord []uint8
	DecodedWord string
	Data        []uint8
}

// Dictionary is the story's parsed word list, kept in its on-disk (sorted)
// order so Find can binary-search it.
type Dictionary struct {
	Header      Header
	Entries     []Entry
	encodedSize int
}

// Parse decodes the dictionary at core.DictionaryBase.
func Parse(core *zcore.Core, alphabets *zstring.Alphabets) (*Dictionary, error) {
	base := uint32(core.DictionaryBase)

	numSeparators, err := core.Byte(base)
	if err != nil {
		return nil, err
	}
	separators := append([]uint8{}, core.Slice(base+1, base+1+uint32(numSeparators))...)

	entryLength, err := core.Byte(base + 1 + uint32(numSeparators))
	if err != nil {
		return nil, err
	}
	countWord, err := core.Word(base + 2 + uint32(numSeparators))
	if err != nil {
		return nil, err
	}
	count := int16(countWord)

	encodedSize := 4
	if core.Version > 3 {
		encodedSize = 6
	}

	entryBase := base + 4 + uint32(numSeparators)
	entries := make([]Entry, 0, count)
	for i := 0; i < int(count); i++ {
		addr := entryBase + uint32(i)*uint32(entryLength)
		encoded := append([]uint8{}, core.Slice(addr, addr+uint32(encodedSize))...)
		decoded, _ := zstring.Decode(core.Slice(0, core.MemoryLength()), addr, core.Version, alphabets, core.AbbreviationTableBase)
		data := core.Slice(addr+uint32(encodedSize), addr+uint32(entryLength))

		entries = append(entries, Entry{
			Address:     uint16(addr),
			EncodedWord: encoded,
			DecodedWord: decoded,
			Data:        data,
		})
	}

	return &Dictionary{
		Header:      Header{Separators: separators, EntryLength: entryLength, EntryCount: count},
		Entries:     entries,
		encodedSize: encodedSize,
	}, nil
}

// Find looks up an encoded word via binary search, since dictionary entries
// are sorted by encoded bytes. Returns 0 (not an address any real dictionary
// entry can occupy) when the word is unknown.
func (d *Dictionary) Find(encodedWord []uint8) uint16 {
	lo, hi := 0, len(d.Entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(d.Entries[mid].EncodedWord, encodedWord) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(d.Entries) && bytes.Equal(d.Entries[lo].EncodedWord, encodedWord) {
		return d.Entries[lo].Address
	}
	return 0
}

// IsSeparator reports whether r is one of the dictionary's word-separator
// characters, which are themselves tokenised as standalone words.
func (d *Dictionary) IsSeparator(r byte) bool {
	for _, s := range d.Header.Separators {
		if s == r {
			return true
		}
	}
	return false
}

// Token is one parsed word from a text buffer: its text, its position in
// the input buffer and its length.
type Token struct {
	Text     string
	Position int
	Length   int
}

// Tokenise splits input on whitespace and the dictionary's separator
// characters, keeping each separator as its own token, matching the
// standard lexer algorithm.
func Tokenise(input string, dict *Dictionary) []Token {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Text: input[start:end], Position: start, Length: end - start})
			start = -1
		}
	}

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == ' ':
			flush(i)
		case dict.IsSeparator(c):
			flush(i)
			tokens = append(tokens, Token{Text: string(c), Position: i, Length: 1})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(input))

	return tokens
}

// WriteParseBuffer encodes tokens into the standard parse-buffer layout:
// for each word, the dictionary address (0 if unknown), its length and its
// position in the text buffer. skipUnknown drops unrecognised words from
// the buffer entirely instead of writing a zero address, matching the
// `read` opcode's flags-byte-3 behaviour in v5+.
func WriteParseBuffer(core *zcore.Core, parseBufferAddr uint32, tokens []Token, dict *Dictionary, alphabets *zstring.Alphabets, textBufferOffset int, skipUnknown bool) error {
	maxWords, err := core.Byte(parseBufferAddr)
	if err != nil {
		return err
	}

	written := uint8(0)
	ptr := parseBufferAddr + 2
	for _, tok := range tokens {
		if written >= maxWords {
			break
		}

		runes := []rune(strings.ToLower(tok.Text))
		charCapacity := dict.encodedSize * 3 / 2 // 6 for v1-3, 9 for v4+
		if len(runes) > charCapacity {
			runes = runes[:charCapacity]
		}

		encoded := zstring.Encode(runes, core.Version, alphabets)
		if len(encoded) > dict.encodedSize {
			// A ZSCII escape near the truncation boundary can still overrun by
			// a word; re-terminate at the entry's capacity.
			encoded = encoded[:dict.encodedSize]
			encoded[dict.encodedSize-2] |= 0x80
		}
		addr := dict.Find(encoded)
		if addr == 0 && skipUnknown {
			continue
		}

		if err := core.SetWord(ptr, addr); err != nil {
			return err
		}
		if err := core.SetByte(ptr+2, uint8(tok.Length)); err != nil {
			return err
		}
		if err := core.SetByte(ptr+3, uint8(tok.Position+textBufferOffset)); err != nil {
			return err
		}
		ptr += 4
		written++
	}

	return core.SetByte(parseBufferAddr+1, written)
}
