// Package quetzal implements the Quetzal IFZS save-file format: an IFF
// container holding the header (IFhd), dynamic memory (CMem/UMem) and call
// stack (Stks) chunks that make a save portable between interpreters.
package quetzal

import (
	"encoding/binary"
	"fmt"

	"github.com/haldor-if/zvm/zerr"
)

// Frame mirrors one call-stack frame for serialization; field names match
// the Quetzal spec's Stks chunk layout rather than the executor's internal
// naming.
type Frame struct {
	ReturnPC     uint32 // only the low 24 bits are stored
	DiscardsResult bool
	ResultVar    uint8
	ArgsSupplied uint8 // bitmask, bit i set if local i+1 was supplied by the caller
	Locals       []uint16
	EvalStack    []uint16
}

// SaveFile is a fully decoded Quetzal image.
type SaveFile struct {
	Release      uint16
	Serial       [6]uint8
	Checksum     uint16
	PC           uint32 // only the low 24 bits are meaningful
	DynamicMemory []uint8
	Frames       []Frame
}

const formID = "FORM"
const ifzsID = "IFZS"

// Write encodes a complete Quetzal save file. dynamicMemory is the current
// (post-load) contents of the dynamic-memory zone; originalMemory is the
// story's load-time image of the same zone, used to XOR-delta-compress the
// CMem chunk. If the delta wouldn't shrink the chunk, the uncompressed UMem
// form is written instead.
func Write(release uint16, serial [6]uint8, checksum uint16, pc uint32, dynamicMemory []uint8, originalMemory []uint8, frames []Frame) []byte {
	var chunks [][]byte

	chunks = append(chunks, chunk("IFhd", encodeIFhd(release, serial, checksum, pc)))

	delta := xorDelta(originalMemory, dynamicMemory)
	if len(delta) < len(dynamicMemory) {
		chunks = append(chunks, chunk("CMem", delta))
	} else {
		chunks = append(chunks, chunk("UMem", dynamicMemory))
	}

	chunks = append(chunks, chunk("Stks", encodeStks(frames)))

	var body []byte
	body = append(body, []byte(ifzsID)...)
	for _, c := range chunks {
		body = append(body, c...)
	}

	return chunk(formID, body)
}

// Read decodes a Quetzal save file. originalMemory is required to reverse a
// CMem chunk's XOR delta; it is ignored if the file used UMem instead.
func Read(data []byte, originalMemory []byte) (*SaveFile, error) {
	if len(data) < 12 || string(data[0:4]) != formID {
		return nil, zerr.New(zerr.SaveRestoreFailure, "not an IFF FORM file")
	}
	if string(data[8:12]) != ifzsID {
		return nil, zerr.New(zerr.SaveRestoreFailure, "FORM is not IFZS (got %q)", string(data[8:12]))
	}

	save := &SaveFile{}
	haveMemory := false

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		length := binary.BigEndian.Uint32(data[pos+4 : pos+8])
		start := pos + 8
		end := start + int(length)
		if end > len(data) {
			return nil, zerr.New(zerr.SaveRestoreFailure, "truncated %s chunk", id)
		}
		body := data[start:end]

		switch id {
		case "IFhd":
			if err := decodeIFhd(body, save); err != nil {
				return nil, err
			}
		case "CMem":
			save.DynamicMemory = undoXorDelta(originalMemory, body)
			haveMemory = true
		case "UMem":
			save.DynamicMemory = append([]uint8{}, body...)
			haveMemory = true
		case "Stks":
			frames, err := decodeStks(body)
			if err != nil {
				return nil, err
			}
			save.Frames = frames
		}

		pos = end
		if length%2 == 1 {
			pos++ // chunks are padded to an even length
		}
	}

	if !haveMemory {
		return nil, zerr.New(zerr.SaveRestoreFailure, "save file has neither CMem nor UMem")
	}
	return save, nil
}

func chunk(id string, body []byte) []byte {
	out := make([]byte, 0, 8+len(body)+1)
	out = append(out, []byte(id)...)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(body)))
	out = append(out, length[:]...)
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func encodeIFhd(release uint16, serial [6]uint8, checksum uint16, pc uint32) []byte {
	out := make([]byte, 13)
	binary.BigEndian.PutUint16(out[0:2], release)
	copy(out[2:8], serial[:])
	binary.BigEndian.PutUint16(out[8:10], checksum)
	out[10] = uint8(pc >> 16)
	out[11] = uint8(pc >> 8)
	out[12] = uint8(pc)
	return out
}

func decodeIFhd(body []byte, save *SaveFile) error {
	if len(body) < 13 {
		return zerr.New(zerr.SaveRestoreFailure, "IFhd chunk too short")
	}
	save.Release = binary.BigEndian.Uint16(body[0:2])
	copy(save.Serial[:], body[2:8])
	save.Checksum = binary.BigEndian.Uint16(body[8:10])
	save.PC = uint32(body[10])<<16 | uint32(body[11])<<8 | uint32(body[12])
	return nil
}

// xorDelta produces Quetzal's run-length-encoded XOR delta between the
// story's load-time dynamic memory and its current contents: each non-zero
// XOR byte is written directly, and each run of zero bytes is written as a
// single 0x00 followed by a count-minus-one byte (so a run longer than 256
// bytes spans multiple 0x00/count pairs).
func xorDelta(original []byte, current []byte) []byte {
	var out []byte
	zeroRun := 0

	flush := func() {
		for zeroRun > 0 {
			n := zeroRun
			if n > 256 {
				n = 256
			}
			out = append(out, 0x00, uint8(n-1))
			zeroRun -= n
		}
	}

	for i, b := range current {
		var o byte
		if i < len(original) {
			o = original[i]
		}
		diff := b ^ o
		if diff == 0 {
			zeroRun++
			continue
		}
		flush()
		out = append(out, diff)
	}
	flush()

	return out
}

func undoXorDelta(original []byte, delta []byte) []byte {
	out := make([]byte, len(original))
	copy(out, original)

	oi := 0
	for i := 0; i < len(delta) && oi < len(out); i++ {
		if delta[i] == 0 && i+1 < len(delta) {
			run := int(delta[i+1]) + 1
			oi += run
			i++
			continue
		}
		out[oi] ^= delta[i]
		oi++
	}
	return out
}

func encodeStks(frames []Frame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, uint8(f.ReturnPC>>16), uint8(f.ReturnPC>>8), uint8(f.ReturnPC))

		flags := uint8(len(f.Locals))
		if f.DiscardsResult {
			flags |= 0b0001_0000
		}
		out = append(out, flags, f.ResultVar, f.ArgsSupplied)

		var stackSize [2]byte
		binary.BigEndian.PutUint16(stackSize[:], uint16(len(f.EvalStack)))
		out = append(out, stackSize[:]...)

		for _, l := range f.Locals {
			var w [2]byte
			binary.BigEndian.PutUint16(w[:], l)
			out = append(out, w[:]...)
		}
		for _, v := range f.EvalStack {
			var w [2]byte
			binary.BigEndian.PutUint16(w[:], v)
			out = append(out, w[:]...)
		}
	}
	return out
}

func decodeStks(data []byte) ([]Frame, error) {
	var frames []Frame
	pos := 0

	for pos < len(data) {
		if pos+6 > len(data) {
			return nil, zerr.New(zerr.SaveRestoreFailure, "truncated Stks frame header")
		}
		returnPC := uint32(data[pos])<<16 | uint32(data[pos+1])<<8 | uint32(data[pos+2])
		flags := data[pos+3]
		resultVar := data[pos+4]
		argsSupplied := data[pos+5]
		pos += 6

		if pos+2 > len(data) {
			return nil, zerr.New(zerr.SaveRestoreFailure, "truncated Stks stack-size field")
		}
		stackSize := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2

		numLocals := int(flags & 0b0000_1111)
		if pos+numLocals*2 > len(data) {
			return nil, zerr.New(zerr.SaveRestoreFailure, "truncated Stks locals")
		}
		locals := make([]uint16, numLocals)
		for i := 0; i < numLocals; i++ {
			locals[i] = binary.BigEndian.Uint16(data[pos : pos+2])
			pos += 2
		}

		if pos+stackSize*2 > len(data) {
			return nil, zerr.New(zerr.SaveRestoreFailure, "truncated Stks eval stack")
		}
		evalStack := make([]uint16, stackSize)
		for i := 0; i < stackSize; i++ {
			evalStack[i] = binary.BigEndian.Uint16(data[pos : pos+2])
			pos += 2
		}

		frames = append(frames, Frame{
			ReturnPC:       returnPC,
			DiscardsResult: flags&0b0001_0000 != 0,
			ResultVar:      resultVar,
			ArgsSupplied:   argsSupplied,
			Locals:         locals,
			EvalStack:      evalStack,
		})
	}

	return frames, nil
}

// String renders the serial code for diagnostics.
func (s *SaveFile) String() string {
	return fmt.Sprintf("release %d serial %s checksum %04x, pc %06x, %d frames", s.Release, s.Serial, s.Checksum, s.PC, len(s.Frames))
}
