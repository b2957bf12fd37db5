// Package ztable implements the table opcodes: print_table, scan_table and
// copy_table, all of which treat a run of memory as a generic byte/word
// array rather than any fixed structure.
package ztable

import (
	"strings"

	"github.com/haldor-if/zvm/zcore"
)

// PrintTable renders a `width`x`height` character grid starting at baddr,
// skipping `skip` extra bytes at the end of each row.
func PrintTable(core *zcore.Core, baddr uint32, width uint16, height uint16, skip uint16) (string, error) {
	var s strings.Builder

	total := width * height
	for i := uint16(0); i < total; i++ {
		row := i / width
		col := i % width

		if col == 0 && row != 0 {
			s.WriteByte('\n')
		}

		b, err := core.Byte(baddr + uint32(i) + uint32(skip)*uint32(row))
		if err != nil {
			return "", err
		}
		s.WriteByte(b)
	}

	return s.String(), nil
}

// ScanTable searches a `length`-entry table for a value matching `test`,
// returning the address of the first match or 0 if none is found. The high
// bit of `form` selects word-sized fields; the low 7 bits give the field
// size in bytes.
func ScanTable(core *zcore.Core, test uint16, baddr uint32, length uint16, form uint16) (uint32, error) {
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0, nil
	}

	ptr := baddr
	for i := uint16(0); i < length; i++ {
		if checkWord {
			w, err := core.Word(ptr)
			if err != nil {
				return 0, err
			}
			if w == test {
				return ptr, nil
			}
		} else {
			b, err := core.Byte(ptr)
			if err != nil {
				return 0, err
			}
			if uint16(b) == test {
				return ptr, nil
			}
		}
		ptr += uint32(fieldSize)
	}

	return 0, nil
}

// CopyTable copies `size` bytes from `first` to `second`. A negative size
// allows the regions to overlap with in-place corruption (the escape hatch
// for large in-place shifts); second == 0 is the special case that zeroes
// the first table instead of copying.
func CopyTable(core *zcore.Core, first uint32, second uint32, size int16) error {
	sizeAbs := uint32(size)
	if size < 0 {
		sizeAbs = uint32(-int32(size))
	}

	if second == 0 {
		for i := uint32(0); i < sizeAbs; i++ {
			if err := core.SetByte(first+i, 0); err != nil {
				return err
			}
		}
		return nil
	}

	if size >= 0 {
		tmp := append([]uint8{}, core.Slice(first, first+sizeAbs)...)
		for i, b := range tmp {
			if err := core.SetByte(second+uint32(i), b); err != nil {
				return err
			}
		}
		return nil
	}

	for i := uint32(0); i < sizeAbs; i++ {
		b, err := core.Byte(first + i)
		if err != nil {
			return err
		}
		if err := core.SetByte(second+i, b); err != nil {
			return err
		}
	}
	return nil
}
