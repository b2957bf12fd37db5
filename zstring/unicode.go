package zstring

import "github.com/haldor-if/zvm/zcore"

// DefaultUnicodeTranslationTable maps the extended-Latin repertoire onto the
// standard ZSCII codes 155-223, used whenever a story doesn't supply its
// own table via the header's Unicode extension.
var DefaultUnicodeTranslationTable = map[rune]uint8{
	'ä': 155, 'ö': 156, 'ü': 157, 'Ä': 158, 'Ö': 159, 'Ü': 160, 'ß': 161,
	'»': 162, '«': 163, 'ë': 164, 'ï': 165, 'ÿ': 166, 'Ë': 167, 'Ï': 168,
	'á': 169, 'é': 170, 'í': 171, 'ó': 172, 'ú': 173, 'ý': 174, 'Á': 175,
	'É': 176, 'Í': 177, 'Ó': 178, 'Ú': 179, 'Ý': 180, 'à': 181, 'è': 182,
	'ì': 183, 'ò': 184, 'ù': 185, 'À': 186, 'È': 187, 'Ì': 188, 'Ò': 189,
	'Ù': 190, 'â': 191, 'ê': 192, 'î': 193, 'ô': 194, 'û': 195, 'Â': 196,
	'Ê': 197, 'Î': 198, 'Ô': 199, 'Û': 200, 'å': 201, 'Å': 202, 'ø': 203,
	'Ø': 204, 'ã': 205, 'ñ': 206, 'õ': 207, 'Ã': 208, 'Ñ': 209, 'Õ': 210,
	'æ': 211, 'Æ': 212, 'ç': 213, 'Ç': 214, 'þ': 215, 'ð': 216, 'Þ': 217,
	'Ð': 218, '£': 219, 'œ': 220, 'Œ': 221, '¡': 222, '¿': 223,
}

// font3PrintableRange is the glyph-to-ASCII fallback used when rendering
// Font 3 text as plain characters instead of line-drawing glyphs (the
// Bocfel-style interpretation, taken as authoritative here: Font 3's
// printable range maps onto ordinary punctuation rather than the legacy
// full 8-bit mapping below).
var font3PrintableRange = map[uint8]rune{
	32: ' ', 33: '-', 34: '\\', 35: '/', 36: '|', 37: '-',
}

// font3ExtendedRangeLegacy names the older, disagreeing table some
// documentation gives for Font 3 (treats the whole 8-bit range as glyphs).
// It has no entries and nothing in this package reads it.
var font3ExtendedRangeLegacy = map[uint8]rune{} //nolint:unused

// Font3Glyph renders a Font-3 character code as its plain-ASCII fallback,
// reporting false for codes with no sensible rendering outside a real
// line-drawing font.
func Font3Glyph(code uint8) (rune, bool) {
	r, ok := font3PrintableRange[code]
	return r, ok
}

func unicodeToZscii(r rune, core *zcore.Core) (uint8, bool) {
	table := DefaultUnicodeTranslationTable
	if core.UnicodeExtensionTableBaseAddress != 0 {
		table = parseUnicodeTranslationTable(core)
	}
	zchr, ok := table[r]
	return zchr, ok
}

// ZsciiToUnicode translates a ZSCII code point (155-223, plus the custom
// extension range) back to a displayable rune.
func ZsciiToUnicode(zchr uint8, core *zcore.Core) (rune, bool) {
	table := DefaultUnicodeTranslationTable
	if core.UnicodeExtensionTableBaseAddress != 0 {
		table = parseUnicodeTranslationTable(core)
	}
	for r, ix := range table {
		if ix == zchr {
			return r, true
		}
	}
	return 0, false
}

func parseUnicodeTranslationTable(core *zcore.Core) map[rune]uint8 {
	result := make(map[rune]uint8)

	numEntries, err := core.Byte(uint32(core.UnicodeExtensionTableBaseAddress))
	if err != nil {
		return DefaultUnicodeTranslationTable
	}
	start := uint32(core.UnicodeExtensionTableBaseAddress) + 1
	for i := 0; i < int(numEntries); i++ {
		w, err := core.Word(start + uint32(i)*2)
		if err != nil {
			break
		}
		result[rune(w)] = uint8(i + 155)
	}
	return result
}
