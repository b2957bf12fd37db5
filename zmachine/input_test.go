package zmachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSreadSuspendsAndCompleteLineResumes(t *testing.T) {
	const (
		textBufferAddr  = 0x100
		parseBufferAddr = 0x140
	)

	code := []uint8{
		0xe4, 0x0f, // var-form VAR opcode 4 (sread), two large-constant operands
		uint8(textBufferAddr >> 8), uint8(textBufferAddr),
		uint8(parseBufferAddr >> 8), uint8(parseBufferAddr),
		0xba, // quit, reached once input resumes
	}
	m := buildStory(t, code)
	require.NoError(t, m.Core.SetByte(textBufferAddr, 20))
	require.NoError(t, m.Core.SetByte(parseBufferAddr, 4))

	result := m.Step()
	require.Equal(t, AwaitingLine, result.Kind)
	require.True(t, m.input.pending())

	require.NoError(t, m.CompleteLine("look", 13))
	require.False(t, m.input.pending())

	b1, err := m.Core.Byte(textBufferAddr + 1)
	require.NoError(t, err)
	require.Equal(t, uint8('l'), b1)

	result = m.Step()
	require.Equal(t, Halted, result.Kind)
}

func TestReadCharSuspendsAndCompleteCharResumes(t *testing.T) {
	code := []uint8{
		0xf6, // var-form VAR opcode 22 (read_char)
		0x7f, // operand type byte: operand 0 small constant, rest omitted
		1,    // operand: conventionally always 1
		16,   // result variable
		0xba, // quit
	}
	m := buildStory(t, code)

	result := m.Step()
	require.Equal(t, AwaitingChar, result.Kind)

	m.CompleteChar('x')
	require.Equal(t, uint16('x'), m.readVariable(16, true))

	result = m.Step()
	require.Equal(t, Halted, result.Kind)
}

func TestCancelDiscardsLineInput(t *testing.T) {
	const textBufferAddr = 0x100
	code := []uint8{
		0xe4, 0x0f,
		uint8(textBufferAddr >> 8), uint8(textBufferAddr),
		0, 0,
		0xba,
	}
	m := buildStory(t, code)
	require.NoError(t, m.Core.SetByte(textBufferAddr, 20))

	result := m.Step()
	require.Equal(t, AwaitingLine, result.Kind)

	m.Cancel()
	require.False(t, m.input.pending())
}
