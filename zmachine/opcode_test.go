package zmachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOpcodeLongForm(t *testing.T) {
	// store #16 #5: long form, both operands small constant.
	m := buildStory(t, []uint8{0x0d, 16, 5, 0xba})

	opcode := ParseOpcode(m)
	require.Equal(t, longForm, opcode.opcodeForm)
	require.Equal(t, OP2, opcode.operandCount)
	require.Equal(t, uint8(13), opcode.opcodeNumber)
	require.Len(t, opcode.operands, 2)
	require.Equal(t, uint16(16), opcode.operands[0].Value(m))
	require.Equal(t, uint16(5), opcode.operands[1].Value(m))
}

func TestParseOpcodeShortFormNoOperand(t *testing.T) {
	m := buildStory(t, []uint8{0xba}) // quit, 0OP

	opcode := ParseOpcode(m)
	require.Equal(t, shortForm, opcode.opcodeForm)
	require.Equal(t, OP0, opcode.operandCount)
	require.Equal(t, uint8(10), opcode.opcodeNumber)
	require.Empty(t, opcode.operands)
}

func TestParseOpcodeShortFormOneOperand(t *testing.T) {
	// inc (1OP opcode 5), variable operand referring to local 1: byte
	// 0xa5 = short form, operand type 10 (variable), opcode number 5.
	m := buildStory(t, []uint8{0xa5, 1, 0xba})

	opcode := ParseOpcode(m)
	require.Equal(t, shortForm, opcode.opcodeForm)
	require.Equal(t, OP1, opcode.operandCount)
	require.Equal(t, uint8(5), opcode.opcodeNumber)
	require.Len(t, opcode.operands, 1)
	require.Equal(t, variable, opcode.operands[0].operandType)
}

func TestParseOpcodeVarFormMultipleOperands(t *testing.T) {
	// call_vn (VAR opcode 25) with two small-constant operands, to exercise
	// the operand-type byte's multi-operand decode path.
	m := buildStory(t, []uint8{
		0xf9,       // var form, bit5 set -> VAR count, opcode number 25 (call_vn)
		0b01_01_11_11, // two small constants, rest omitted
		0, 0,
		0xba,
	})

	opcode := ParseOpcode(m)
	require.Equal(t, varForm, opcode.opcodeForm)
	require.Equal(t, VAR, opcode.operandCount)
	require.Equal(t, uint8(25), opcode.opcodeNumber)
	require.Len(t, opcode.operands, 2)
}

func TestParseOpcodeExtendedForm(t *testing.T) {
	m := buildStoryVersioned(t, 5, []uint8{
		0xbe, 0x0c, 0xff, // check_unicode (EXT 12), operand byte omitted but
		// check_unicode actually takes one operand; kept omitted here since
		// only the decode shape (ext form, opcode number) is under test.
		0xba,
	})

	opcode := ParseOpcode(m)
	require.Equal(t, extForm, opcode.opcodeForm)
	require.Equal(t, VAR, opcode.operandCount)
	require.Equal(t, uint8(0x0c), opcode.opcodeNumber)
}

func TestOperandValueVariableReadsLocal(t *testing.T) {
	m := buildStory(t, []uint8{0xba})
	frame, err := m.callStack.peek()
	require.NoError(t, err)
	frame.locals = []uint16{42}

	op := Operand{operandType: variable, value: 1}
	require.Equal(t, uint16(42), op.Value(m))
}
