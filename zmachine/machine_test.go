package zmachine

import (
	"testing"

	"github.com/haldor-if/zvm/zstring"
	"github.com/stretchr/testify/require"
)

// buildStory constructs a minimal runnable v3 story: empty dictionary,
// global variables table, static memory starting right after globals, and
// the given code bytes placed at FirstInstruction.
func buildStory(t *testing.T, code []uint8) *Machine {
	t.Helper()
	return buildStoryVersioned(t, 3, code)
}

// buildStoryVersioned is buildStory generalised over the story version, for
// opcodes gated to v4/v5+.
func buildStoryVersioned(t *testing.T, version uint8, code []uint8) *Machine {
	t.Helper()

	const (
		dictBase   = 0x40
		globalBase = 0x60
		codeBase   = 0x200
	)

	memory := make([]uint8, 0x400)
	memory[0x00] = version

	memory[0x08] = uint8(dictBase >> 8)
	memory[0x09] = uint8(dictBase)
	memory[0x0c] = uint8(globalBase >> 8)
	memory[0x0d] = uint8(globalBase)
	memory[0x0e] = 0x03 // static memory base, high byte - past globals
	memory[0x0f] = 0x00
	memory[0x06] = uint8(codeBase >> 8)
	memory[0x07] = uint8(codeBase)

	memory[dictBase] = 0   // no separators
	memory[dictBase+1] = 7 // entry length
	memory[dictBase+2] = 0 // entry count high byte
	memory[dictBase+3] = 0 // entry count low byte

	copy(memory[codeBase:], code)

	m, err := LoadRom(memory)
	require.NoError(t, err)
	return m
}

func TestStepQuitHalts(t *testing.T) {
	m := buildStory(t, []uint8{0xba}) // quit
	result := m.Step()
	require.Equal(t, Halted, result.Kind)

	again := m.Step()
	require.Equal(t, Halted, again.Kind)
}

func TestStepNewlineThenQuit(t *testing.T) {
	m := buildStory(t, []uint8{0xbb, 0xba}) // new_line, quit
	result := m.Step()
	require.Equal(t, Stepped, result.Kind)
	require.Contains(t, result.Events, "\n")

	result = m.Step()
	require.Equal(t, Halted, result.Kind)
}

func TestStepPrintLiteral(t *testing.T) {
	m := buildStory(t, nil)
	encoded := zstring.Encode([]rune("hi"), m.Core.Version, m.Alphabets)

	code := append([]uint8{0xb2}, encoded...) // print
	code = append(code, 0xba)                 // quit
	m = buildStory(t, code)

	result := m.Step()
	require.Equal(t, Stepped, result.Kind)
	require.Contains(t, result.Events, "hi")
}

func TestStoreOpcodeWritesGlobal(t *testing.T) {
	m := buildStory(t, []uint8{
		0x0d, 16, 5, // store (long form, small,small): variable 16 = 5
		0xba,
	})
	result := m.Step()
	require.Equal(t, Stepped, result.Kind)

	require.Equal(t, uint16(5), m.readVariable(16, true))
}

func TestAddOpcodeWritesResult(t *testing.T) {
	m := buildStory(t, []uint8{
		0x14, 2, 3, 16, // add (long form, small,small), store result in variable 16
		0xba,
	})
	result := m.Step()
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(5), m.readVariable(16, true))
}

func TestRestartResetsDynamicMemory(t *testing.T) {
	m := buildStory(t, []uint8{0x0d, 16, 5, 0xb7}) // store #16 #5, restart
	result := m.Step()
	require.Equal(t, Stepped, result.Kind)

	result = m.Step()
	require.Equal(t, Restarted, result.Kind)
	require.Equal(t, uint16(0), m.readVariable(16, true))
}

func TestRuntimeErrorOnBadAddress(t *testing.T) {
	// loadw with an out-of-range computed address must surface as a
	// recovered RuntimeError event, not a panic escaping Step.
	m := buildStory(t, []uint8{
		0xcf, 0x0f, // var-form 2OP loadw, two large-constant operands
		0x03, 0xe8, // operand 1: 1000
		0x03, 0xe8, // operand 2: 1000 (address = 1000 + 2*1000 = 3000, past the 1KB image)
		16, // result variable
	})
	result := m.Step()
	require.Equal(t, Halted, result.Kind)

	found := false
	for _, ev := range result.Events {
		if _, ok := ev.(RuntimeError); ok {
			found = true
		}
	}
	require.True(t, found, "expected a RuntimeError event, got %#v", result.Events)
}
