package zmachine

import "github.com/haldor-if/zvm/zerr"

// execute dispatches a decoded opcode by its operand-count family and
// returns true if the instruction was `restart`.
func (m *Machine) execute(opcode *Opcode, frame *CallStackFrame) bool {
	switch opcode.operandCount {
	case OP0:
		return m.executeOp0(opcode, frame)
	case OP1:
		m.executeOp1(opcode, frame)
	case OP2:
		m.executeOp2(opcode, frame)
	case VAR:
		if opcode.opcodeForm == extForm {
			m.executeExt(opcode, frame)
		} else {
			m.executeVar(opcode, frame)
		}
	}
	return false
}

func (m *Machine) executeOp0(opcode *Opcode, frame *CallStackFrame) bool {
	switch opcode.opcodeNumber {
	case 0: // rtrue
		m.retValue(1)

	case 1: // rfalse
		m.retValue(0)

	case 2: // print
		text, n := m.decodeStringAt(frame.returnPC)
		frame.returnPC += n
		m.appendText(text)

	case 3: // print_ret
		text, n := m.decodeStringAt(frame.returnPC)
		frame.returnPC += n
		m.appendText(text)
		m.appendText("\n")
		m.retValue(1)

	case 4: // nop
		// no-op

	case 5, 6: // save / restore, pre-v4 branch form
		m.doSave(frame, opcode.opcodeNumber == 6)

	case 7: // restart
		m.Core.Restart()
		m.callStack = CallStack{}
		m.streams = Streams{Screen: true}
		m.pushInitialFrame()
		return true

	case 8: // ret_popped
		m.retValue(frame.pop(m))

	case 9: // pop (v1-4) / catch (v5+, store)
		if m.Core.Version >= 5 {
			m.writeVariable(m.readIncPC(frame), m.callStack.depth(), false)
		} else {
			_ = frame.pop(m)
		}

	case 10: // quit
		m.halted = true

	case 11: // new_line
		m.appendText("\n")

	case 12: // show_status
		m.updateStatusBar()

	case 13: // verify
		m.handleBranch(frame, m.Core.Verify())

	case 15: // piracy
		m.handleBranch(frame, true)

	default:
		panic(m.wrapError(zerr.New(zerr.Decode, "unimplemented 0OP opcode 0x%x", opcode.opcodeByte)))
	}
	return false
}
