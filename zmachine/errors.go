package zmachine

import (
	"fmt"

	"github.com/haldor-if/zvm/zerr"
)

// MachineError wraps a zerr.Error with the PC at which it surfaced while
// stepping, so a host can report "which instruction" rather than just
// "what kind of fault".
type MachineError struct {
	Err *zerr.Error
	PC  uint32
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("%s (pc=0x%05x)", e.Err.Error(), e.PC)
}

func (m *Machine) wrapError(err error) *MachineError {
	if err == nil {
		return nil
	}
	zerrErr, ok := err.(*zerr.Error)
	if !ok {
		zerrErr = zerr.New(zerr.Decode, "%s", err.Error())
	}
	return &MachineError{Err: zerrErr, PC: m.currentInstructionPC}
}

// Warning is a non-fatal message surfaced to the host (stack underflow,
// undefined property write, unsupported opcode variant). It deduplicates
// per distinct kind so a tight loop hitting the same fault doesn't flood
// the host with repeated events.
type Warning struct {
	Kind    string
	Message string
}

func (m *Machine) warnOnce(kind string, format string, args ...any) {
	if m.warned == nil {
		m.warned = make(map[string]bool)
	}
	if m.warned[kind] {
		return
	}
	m.warned[kind] = true
	m.events = append(m.events, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}
