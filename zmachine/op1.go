package zmachine

import (
	"github.com/haldor-if/zvm/zerr"
	"github.com/haldor-if/zvm/zobject"
)

func (m *Machine) executeOp1(opcode *Opcode, frame *CallStackFrame) {
	switch opcode.opcodeNumber {
	case 0: // jz
		m.handleBranch(frame, opcode.operands[0].Value(m) == 0)

	case 1: // get_sibling
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		sibling := uint16(0)
		if obj != nil {
			sibling = obj.Sibling
		}
		m.writeVariable(m.readIncPC(frame), sibling, false)
		m.handleBranch(frame, sibling != 0)

	case 2: // get_child
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		child := uint16(0)
		if obj != nil {
			child = obj.Child
		}
		m.writeVariable(m.readIncPC(frame), child, false)
		m.handleBranch(frame, child != 0)

	case 3: // get_parent
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		parent := uint16(0)
		if obj != nil {
			parent = obj.Parent
		}
		m.writeVariable(m.readIncPC(frame), parent, false)

	case 4: // get_prop_len
		m.writeVariable(m.readIncPC(frame), uint16(zobject.GetPropertyLength(m.Core, uint32(opcode.operands[0].Value(m)))), false)

	case 5: // inc
		v := uint8(opcode.operands[0].Value(m))
		m.writeVariable(v, m.readVariable(v, true)+1, true)

	case 6: // dec
		v := uint8(opcode.operands[0].Value(m))
		m.writeVariable(v, m.readVariable(v, true)-1, true)

	case 7: // print_addr
		text, _ := m.decodeStringAt(uint32(opcode.operands[0].Value(m)))
		m.appendText(text)

	case 8: // call_1s
		m.call(opcode, RoutineFunction)

	case 9: // remove_obj
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		if obj == nil {
			return
		}
		if err := zobject.RemoveObject(obj, m.Core, m.Alphabets); err != nil {
			panic(m.wrapError(err))
		}

	case 10: // print_obj
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		if obj == nil {
			return
		}
		m.appendText(obj.Name)

	case 11: // ret
		m.retValue(opcode.operands[0].Value(m))

	case 12: // jump
		offset := int16(opcode.operands[0].Value(m))
		frame.returnPC = uint32(int32(frame.returnPC) + int32(offset) - 2)

	case 13: // print_paddr
		addr := m.Core.UnpackString(opcode.operands[0].Value(m))
		text, _ := m.decodeStringAt(addr)
		m.appendText(text)

	case 14: // load
		m.writeVariable(m.readIncPC(frame), m.readVariable(uint8(opcode.operands[0].Value(m)), true), false)

	case 15: // not (v1-4) / call_1n (v5+)
		if m.Core.Version < 5 {
			m.writeVariable(m.readIncPC(frame), ^opcode.operands[0].Value(m), false)
		} else {
			m.call(opcode, RoutineProcedure)
		}

	default:
		panic(m.wrapError(zerr.New(zerr.Decode, "unimplemented 1OP opcode 0x%x", opcode.opcodeByte)))
	}
}
