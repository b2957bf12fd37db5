package quetzal_test

import (
	"testing"

	"github.com/haldor-if/zvm/quetzal"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	original := []uint8{1, 2, 3, 4, 5, 6, 7, 8}
	current := []uint8{1, 2, 99, 4, 5, 6, 7, 8} // one byte changed

	frames := []quetzal.Frame{
		{
			ReturnPC:     0x1234,
			ResultVar:    2,
			ArgsSupplied: 0b011,
			Locals:       []uint16{10, 20, 30},
			EvalStack:    []uint16{1, 2},
		},
	}

	data := quetzal.Write(3, [6]uint8{'9', '9', '0', '1', '0', '1'}, 0xabcd, 0x4711, current, original, frames)

	save, err := quetzal.Read(data, original)
	require.NoError(t, err)

	require.Equal(t, uint16(3), save.Release)
	require.Equal(t, uint16(0xabcd), save.Checksum)
	require.Equal(t, uint32(0x4711), save.PC)
	require.Equal(t, current, save.DynamicMemory)
	require.Len(t, save.Frames, 1)
	require.Equal(t, uint32(0x1234), save.Frames[0].ReturnPC)
	require.Equal(t, []uint16{10, 20, 30}, save.Frames[0].Locals)
	require.Equal(t, []uint16{1, 2}, save.Frames[0].EvalStack)
}

func TestWriteReadLargeDeltaUsesUMem(t *testing.T) {
	original := make([]uint8, 64)
	current := make([]uint8, 64)
	for i := range current {
		current[i] = uint8(i) // every byte but the first differs from the zeroed original
	}

	data := quetzal.Write(1, [6]uint8{}, 0, 0, current, original, nil)
	require.Contains(t, string(data), "UMem")
	save, err := quetzal.Read(data, original)
	require.NoError(t, err)
	require.Equal(t, current, save.DynamicMemory)
}
