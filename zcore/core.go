// Package zcore implements the Z-machine memory model: typed byte/word
// access, zone enforcement (dynamic/static/high), packed-address decode and
// the header fields every other component reads out of it.
package zcore

import (
	"encoding/binary"

	"github.com/haldor-if/zvm/zerr"
)

// Core owns the story file's memory image and the header fields decoded
// from its fixed-offset layout.
type Core struct {
	bytes        []uint8
	originalCopy []uint8 // load-time image, used by Restart and Quetzal's XOR-delta CMem

	Version                          uint8
	FlagByte1                        uint8
	StatusBarTimeBased               bool
	ReleaseNumber                    uint16
	PagedMemoryBase                  uint16
	FirstInstruction                 uint16
	DictionaryBase                   uint16
	ObjectTableBase                  uint16
	GlobalVariableBase               uint16
	StaticMemoryBase                 uint16
	AbbreviationTableBase            uint16
	FileChecksum                     uint16
	InterpreterNumber                uint8
	InterpreterVersion               uint8
	ScreenHeightLines                uint8
	ScreenWidthChars                 uint8
	ScreenWidthUnits                 uint16
	ScreenHeightUnits                uint16
	FontHeight                       uint8
	FontWidth                        uint8
	RoutinesOffset                   uint16
	StringOffset                     uint16
	DefaultBackgroundColorNumber     uint8
	DefaultForegroundColorNumber     uint8
	TerminatingCharTableBase         uint16
	OutputStream3Width               uint16
	StandardRevisionNumber           uint16
	AlternativeCharSetBaseAddress    uint16
	ExtensionTableBaseAddress        uint16
	UnicodeExtensionTableBaseAddress uint16
	PlayerLoginName                  []uint8
	SerialCode                       [6]uint8
}

// LoadCore parses the header of a freshly loaded story file and stamps the
// interpreter-controlled header fields. The supplied bytes become the
// machine's live memory image; a pristine copy is retained separately for
// `restart` and Quetzal deltas.
func LoadCore(storyBytes []uint8) *Core {
	original := make([]uint8, len(storyBytes))
	copy(original, storyBytes)

	core := &Core{bytes: storyBytes, originalCopy: original}
	core.writeInterpreterCapabilities()
	core.readHeader()

	return core
}

func (core *Core) readHeader() {
	b := core.bytes
	core.Version = b[0x00]
	core.FlagByte1 = b[0x01]
	core.StatusBarTimeBased = b[0x01]&0b0000_0010 != 0
	core.ReleaseNumber = binary.BigEndian.Uint16(b[0x02:0x04])
	core.PagedMemoryBase = binary.BigEndian.Uint16(b[0x04:0x06])
	core.FirstInstruction = binary.BigEndian.Uint16(b[0x06:0x08])
	core.DictionaryBase = binary.BigEndian.Uint16(b[0x08:0x0a])
	core.ObjectTableBase = binary.BigEndian.Uint16(b[0x0a:0x0c])
	core.GlobalVariableBase = binary.BigEndian.Uint16(b[0x0c:0x0e])
	core.StaticMemoryBase = binary.BigEndian.Uint16(b[0x0e:0x10])
	copy(core.SerialCode[:], b[0x12:0x18])
	core.AbbreviationTableBase = binary.BigEndian.Uint16(b[0x18:0x1a])
	core.FileChecksum = binary.BigEndian.Uint16(b[0x1c:0x1e])
	core.InterpreterNumber = b[0x1e]
	core.InterpreterVersion = b[0x1f]
	core.ScreenHeightLines = b[0x20]
	core.ScreenWidthChars = b[0x21]
	core.ScreenWidthUnits = binary.BigEndian.Uint16(b[0x22:0x24])
	core.ScreenHeightUnits = binary.BigEndian.Uint16(b[0x24:0x26])
	core.FontHeight = b[0x26]
	core.FontWidth = b[0x27]
	core.RoutinesOffset = binary.BigEndian.Uint16(b[0x28:0x2a])
	core.StringOffset = binary.BigEndian.Uint16(b[0x2a:0x2c])
	core.DefaultBackgroundColorNumber = b[0x2c]
	core.DefaultForegroundColorNumber = b[0x2d]
	if core.Version >= 5 {
		core.TerminatingCharTableBase = binary.BigEndian.Uint16(b[0x2e:0x30])
	}
	core.OutputStream3Width = binary.BigEndian.Uint16(b[0x30:0x32])
	core.StandardRevisionNumber = binary.BigEndian.Uint16(b[0x32:0x34])
	core.AlternativeCharSetBaseAddress = binary.BigEndian.Uint16(b[0x34:0x36])
	core.PlayerLoginName = b[0x38:0x40]

	if core.Version >= 5 {
		core.ExtensionTableBaseAddress = binary.BigEndian.Uint16(b[0x36:0x38])
		if core.ExtensionTableBaseAddress != 0 && int(core.ExtensionTableBaseAddress)+8 <= len(b) {
			numWords := binary.BigEndian.Uint16(b[core.ExtensionTableBaseAddress : core.ExtensionTableBaseAddress+2])
			if numWords >= 3 {
				core.UnicodeExtensionTableBaseAddress = binary.BigEndian.Uint16(b[core.ExtensionTableBaseAddress+6 : core.ExtensionTableBaseAddress+8])
			}
		}
	}
}

// writeInterpreterCapabilities stamps the header fields the interpreter
// controls, matching the teacher's LoadCore but kept as its own step so
// Restart can re-apply it after resetting dynamic memory.
func (core *Core) writeInterpreterCapabilities() {
	b := core.bytes

	b[0x1e] = 0x06 // interpreter number - IBM PC, closest match for a text-only host
	b[0x1f] = 0x01 // interpreter version - nobody checks this

	b[0x20] = 25 // screen height, lines
	b[0x21] = 80 // screen width, chars
	binary.BigEndian.PutUint16(b[0x22:0x24], 80)
	binary.BigEndian.PutUint16(b[0x24:0x26], 25)
	b[0x26] = 1 // font height, units
	b[0x27] = 1 // font width, units

	binary.BigEndian.PutUint16(b[0x32:0x34], 0x0102) // claims standard 1.2

	if b[0x00] <= 3 {
		b[0x01] |= 0b0010_0000 // split-screen available
	} else {
		// colour (0x01), bold (0x04), italic (0x08), split screen (0x20)
		// not claimed: pictures (0x02), fixed-width default (0x10), timed input (0x80)
		b[0x01] |= 0b0010_1101
	}
}

// FileLength decodes the header's packed file-length word using the
// version-specific scale factor. A zero or out-of-range value falls back to
// the actual image length, since some story files leave this field unset.
func (core *Core) FileLength() uint32 {
	var scale uint32
	switch {
	case core.Version <= 3:
		scale = 2
	case core.Version <= 5:
		scale = 4
	default:
		scale = 8
	}
	length := uint32(binary.BigEndian.Uint16(core.bytes[0x1a:0x1c])) * scale
	if length == 0 || length > uint32(len(core.bytes)) {
		return uint32(len(core.bytes))
	}
	return length
}

func (core *Core) MemoryLength() uint32 { return uint32(len(core.bytes)) }

// SetInterpreterNumber rewrites the header's interpreter-number byte, used
// by hosts that want a story file to see a specific platform identity
// (e.g. some games alter behaviour based on the reported interpreter).
func (core *Core) SetInterpreterNumber(n uint8) {
	core.bytes[0x1e] = n
	core.InterpreterNumber = n
}

// SetDefaultColors rewrites the header's default colour bytes.
func (core *Core) SetDefaultColors(foreground, background uint8) {
	core.bytes[0x2c] = background
	core.bytes[0x2d] = foreground
	core.DefaultBackgroundColorNumber = background
	core.DefaultForegroundColorNumber = foreground
}

func inBounds(addr, size uint32) bool { return addr < size }

// Byte reads a single byte, failing with BadAddress outside [0, size).
func (core *Core) Byte(addr uint32) (uint8, error) {
	if !inBounds(addr, uint32(len(core.bytes))) {
		return 0, zerr.New(zerr.BadAddress, "read byte out of range at 0x%x", addr)
	}
	return core.bytes[addr], nil
}

// Word reads a big-endian 16-bit word, failing with BadAddress if either
// byte lies outside the image.
func (core *Core) Word(addr uint32) (uint16, error) {
	if !inBounds(addr+1, uint32(len(core.bytes))) {
		return 0, zerr.New(zerr.BadAddress, "read word out of range at 0x%x", addr)
	}
	return binary.BigEndian.Uint16(core.bytes[addr : addr+2]), nil
}

// SetByte writes a single byte, failing with ReadOnly at or beyond the
// static-memory base and BadAddress outside the image entirely.
func (core *Core) SetByte(addr uint32, value uint8) error {
	if !inBounds(addr, uint32(len(core.bytes))) {
		return zerr.New(zerr.BadAddress, "write byte out of range at 0x%x", addr)
	}
	if addr >= uint32(core.StaticMemoryBase) {
		return zerr.New(zerr.ReadOnly, "write to static/high memory at 0x%x", addr)
	}
	core.bytes[addr] = value
	return nil
}

// SetWord writes a big-endian 16-bit word with the same zone rules as SetByte.
func (core *Core) SetWord(addr uint32, value uint16) error {
	if !inBounds(addr+1, uint32(len(core.bytes))) {
		return zerr.New(zerr.BadAddress, "write word out of range at 0x%x", addr)
	}
	if addr >= uint32(core.StaticMemoryBase) {
		return zerr.New(zerr.ReadOnly, "write to static/high memory at 0x%x", addr)
	}
	binary.BigEndian.PutUint16(core.bytes[addr:addr+2], value)
	return nil
}

// Slice returns a read-only view of [start, end). Used by components that
// scan a run of bytes (text decode, tokenising, table opcodes).
func (core *Core) Slice(start, end uint32) []uint8 {
	return core.bytes[start:end]
}

// DynamicMemory returns the mutable, saveable zone [0, static_base).
func (core *Core) DynamicMemory() []uint8 {
	return core.bytes[:core.StaticMemoryBase]
}

// OriginalDynamicMemory returns the load-time contents of the dynamic zone,
// used for `restart` and for Quetzal's XOR-delta CMem encoding.
func (core *Core) OriginalDynamicMemory() []uint8 {
	return core.originalCopy[:core.StaticMemoryBase]
}

// RestoreDynamicMemory overwrites [0, static_base) with the given bytes,
// used by `restart` and by Quetzal restore.
func (core *Core) RestoreDynamicMemory(data []uint8) error {
	if len(data) != int(core.StaticMemoryBase) {
		return zerr.New(zerr.SaveRestoreFailure, "dynamic memory size mismatch: got %d want %d", len(data), core.StaticMemoryBase)
	}
	copy(core.bytes[:core.StaticMemoryBase], data)
	return nil
}

// Restart resets dynamic memory to its load-time image, then re-applies the
// interpreter-controlled header fields.
func (core *Core) Restart() {
	copy(core.bytes[:core.StaticMemoryBase], core.originalCopy[:core.StaticMemoryBase])
	core.writeInterpreterCapabilities()
	core.readHeader()
}

// UnpackRoutine decodes a packed routine address.
func (core *Core) UnpackRoutine(packed uint16) uint32 {
	return core.unpack(packed, core.RoutinesOffset)
}

// UnpackString decodes a packed string address.
func (core *Core) UnpackString(packed uint16) uint32 {
	return core.unpack(packed, core.StringOffset)
}

func (core *Core) unpack(packed uint16, offset uint16) uint32 {
	switch {
	case core.Version <= 3:
		return 2 * uint32(packed)
	case core.Version <= 5:
		return 4 * uint32(packed)
	case core.Version <= 7:
		return 4*uint32(packed) + 8*uint32(offset)
	default: // v8
		return 8 * uint32(packed)
	}
}

// ZStringWords reads words starting at addr until one with the high bit set
// (inclusive), returning the raw words for the text codec to decode and the
// number of bytes consumed.
func (core *Core) ZStringWords(addr uint32) ([]uint16, uint32) {
	var words []uint16
	ptr := addr
	for {
		w, err := core.Word(ptr)
		if err != nil {
			break
		}
		words = append(words, w)
		ptr += 2
		if w&0x8000 != 0 {
			break
		}
	}
	return words, ptr - addr
}

// Verify sums bytes [0x40, file_length) modulo 0x10000 and compares the
// result to the header checksum, as required by the `verify` opcode.
func (core *Core) Verify() bool {
	fileLength := core.FileLength()
	if fileLength > uint32(len(core.bytes)) {
		fileLength = uint32(len(core.bytes))
	}
	sum := uint16(0)
	for addr := uint32(0x40); addr < fileLength; addr++ {
		sum += uint16(core.bytes[addr])
	}
	return sum == core.FileChecksum
}
