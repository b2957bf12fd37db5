package ztable_test

import (
	"testing"

	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/ztable"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T) *zcore.Core {
	t.Helper()
	memory := make([]uint8, 0x100)
	memory[0x0e] = 0x01 // static memory base high byte, covers the whole image
	return zcore.LoadCore(memory)
}

func TestScanTableBytes(t *testing.T) {
	core := newCore(t)
	base := uint32(0x20)
	values := []uint8{1, 2, 3, 42, 5}
	for i, v := range values {
		require.NoError(t, core.SetByte(base+uint32(i), v))
	}

	addr, err := ztable.ScanTable(core, 42, base, uint16(len(values)), 1)
	require.NoError(t, err)
	require.Equal(t, base+3, addr)

	addr, err = ztable.ScanTable(core, 99, base, uint16(len(values)), 1)
	require.NoError(t, err)
	require.Zero(t, addr)
}

func TestCopyTableZeroes(t *testing.T) {
	core := newCore(t)
	base := uint32(0x20)
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, core.SetByte(base+i, 0xff))
	}

	require.NoError(t, ztable.CopyTable(core, base, 0, 4))
	for i := uint32(0); i < 4; i++ {
		b, err := core.Byte(base + i)
		require.NoError(t, err)
		require.Zero(t, b)
	}
}

func TestCopyTableForward(t *testing.T) {
	core := newCore(t)
	first, second := uint32(0x20), uint32(0x30)
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, core.SetByte(first+i, uint8(i+1)))
	}

	require.NoError(t, ztable.CopyTable(core, first, second, 4))
	for i := uint32(0); i < 4; i++ {
		b, err := core.Byte(second + i)
		require.NoError(t, err)
		require.Equal(t, uint8(i+1), b)
	}
}
