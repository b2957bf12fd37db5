package zmachine

import "strings"

type inputKind int

const (
	inputNone inputKind = iota
	inputLine
	inputChar
)

// InputCoordinator bridges a suspended executor and a host delivering
// lines or characters (§4.8). It never blocks: beginLine/beginChar record
// what is pending and Step returns immediately; CompleteLine/CompleteChar
// perform the suspended opcode's tail and let the loop resume.
type InputCoordinator struct {
	kind inputKind

	textBufferAddr  uint32
	parseBufferAddr uint32
	resultVar       uint8
	frame           *CallStackFrame

	timeDeciseconds  uint16
	interruptRoutine uint16
	ticksElapsed     uint16

	interruptResult    uint16
	interruptDelivered bool
}

func (c *InputCoordinator) pending() bool { return c.kind != inputNone }

func (m *Machine) beginLine(frame *CallStackFrame, textBufferAddr, parseBufferAddr uint32, time uint16, routine uint16) {
	m.input = InputCoordinator{
		kind:             inputLine,
		textBufferAddr:   textBufferAddr,
		parseBufferAddr:  parseBufferAddr,
		frame:            frame,
		timeDeciseconds:  time,
		interruptRoutine: routine,
	}
}

func (m *Machine) beginChar(frame *CallStackFrame, resultVar uint8, time uint16, routine uint16) {
	m.input = InputCoordinator{
		kind:             inputChar,
		resultVar:        resultVar,
		frame:            frame,
		timeDeciseconds:  time,
		interruptRoutine: routine,
	}
}

// CompleteLine delivers a line of host-captured input, performing the read
// opcode's tail: writing the text buffer (version-specific framing),
// tokenising into the parse buffer if one was supplied, and storing the
// terminator on v5+.
func (m *Machine) CompleteLine(text string, terminator uint8) error {
	if m.input.kind != inputLine {
		return nil
	}
	in := m.input
	m.input = InputCoordinator{}

	lower := strings.ToLower(text)
	textBufferAddr := in.textBufferAddr
	bufferSize, err := m.Core.Byte(textBufferAddr)
	if err != nil {
		return err
	}
	writeAddr := textBufferAddr + 1

	if m.Core.Version >= 5 {
		existing, err := m.Core.Byte(writeAddr)
		if err != nil {
			return err
		}
		writeAddr += 1 + uint32(existing)
	}

	n := 0
	for n < len(lower) && n < int(bufferSize) {
		ch := lower[n]
		if !((ch >= 32 && ch <= 126) || (ch >= 155 && ch <= 251)) {
			ch = ' '
		}
		if err := m.Core.SetByte(writeAddr+uint32(n), ch); err != nil {
			return err
		}
		n++
	}

	if m.Core.Version >= 5 {
		if err := m.Core.SetByte(textBufferAddr+1, uint8(n)); err != nil {
			return err
		}
	} else {
		if err := m.Core.SetByte(writeAddr+uint32(n), 0); err != nil {
			return err
		}
	}

	if in.parseBufferAddr != 0 {
		textBufferOffset := int(writeAddr - textBufferAddr)
		if err := tokeniseAndWrite(m, lower[:n], in.parseBufferAddr, m.Dictionary, textBufferOffset, false); err != nil {
			return err
		}
	}

	if m.Core.Version >= 5 {
		m.writeVariable(m.readIncPC(in.frame), uint16(terminator), false)
	}

	return nil
}

// CompleteChar delivers a single character to a suspended read_char.
func (m *Machine) CompleteChar(code uint8) {
	if m.input.kind != inputChar {
		return
	}
	in := m.input
	m.input = InputCoordinator{}
	m.writeVariable(in.resultVar, uint16(code), false)
}

// Cancel discards any pending input, treating it as InputCancelled: the
// executor resumes as if the read returned empty input terminated by Return.
func (m *Machine) Cancel() {
	switch m.input.kind {
	case inputLine:
		_ = m.CompleteLine("", 13)
	case inputChar:
		m.CompleteChar(13)
	}
}

// Tick advances the pending read's timer by the given number of tenths of a
// second. When the deadline is reached, the interrupt routine runs to
// completion (it must not itself suspend for input); a nonzero result
// terminates the read early with that value.
func (m *Machine) Tick(deciseconds uint16) {
	if !m.input.pending() || m.input.timeDeciseconds == 0 {
		return
	}

	m.input.ticksElapsed += deciseconds
	if m.input.ticksElapsed < m.input.timeDeciseconds {
		return
	}
	m.input.ticksElapsed = 0

	result := m.runInterruptRoutine(m.input.interruptRoutine)
	if result != 0 {
		switch m.input.kind {
		case inputLine:
			_ = m.CompleteLine("", uint8(result))
		case inputChar:
			m.CompleteChar(uint8(result))
		}
	}
}

// runInterruptRoutine calls routine as a new frame flagged RoutineInterrupt
// and runs the executor to completion of just that frame, since interrupt
// routines are not permitted to suspend for input themselves.
func (m *Machine) runInterruptRoutine(routine uint16) uint16 {
	addr := m.Core.UnpackRoutine(routine)
	localCount, err := m.Core.Byte(addr)
	if err != nil {
		panic(m.wrapError(err))
	}
	addr++

	locals := make([]uint16, localCount)
	if m.Core.Version < 5 {
		for i := 0; i < int(localCount); i++ {
			v, err := m.Core.Word(addr)
			if err != nil {
				panic(m.wrapError(err))
			}
			locals[i] = v
			addr += 2
		}
	}

	targetDepth := m.callStack.depth()
	m.callStack.push(CallStackFrame{returnPC: addr, locals: locals, routineType: RoutineInterrupt})

	m.input.interruptDelivered = false
	for m.callStack.depth() > targetDepth {
		m.stepOnce()
	}

	return m.input.interruptResult
}

func (c *InputCoordinator) deliverInterruptResult(val uint16) {
	c.interruptResult = val
	c.interruptDelivered = true
}
