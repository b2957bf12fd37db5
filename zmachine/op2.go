package zmachine

import (
	"encoding/binary"

	"github.com/haldor-if/zvm/zerr"
	"github.com/haldor-if/zvm/zobject"
)

func (m *Machine) getObjectOrWarn(id uint16) *zobject.Object {
	obj, err := zobject.GetObject(id, m.Core, m.Alphabets)
	if err != nil {
		m.warnOnce("bad_object", "%s", err.Error())
		return nil
	}
	return obj
}

func (m *Machine) executeOp2(opcode *Opcode, frame *CallStackFrame) {
	switch opcode.opcodeNumber {
	case 1: // je
		a := opcode.operands[0].Value(m)
		branch := false
		for _, b := range opcode.operands[1:] {
			if a == b.Value(m) {
				branch = true
			}
		}
		m.handleBranch(frame, branch)

	case 2: // jl
		m.handleBranch(frame, int16(opcode.operands[0].Value(m)) < int16(opcode.operands[1].Value(m)))

	case 3: // jg
		m.handleBranch(frame, int16(opcode.operands[0].Value(m)) > int16(opcode.operands[1].Value(m)))

	case 4: // dec_chk
		v := uint8(opcode.operands[0].Value(m))
		newValue := int16(m.readVariable(v, true)) - 1
		m.writeVariable(v, uint16(newValue), true)
		m.handleBranch(frame, newValue < int16(opcode.operands[1].Value(m)))

	case 5: // inc_chk
		v := uint8(opcode.operands[0].Value(m))
		newValue := int16(m.readVariable(v, true)) + 1
		m.writeVariable(v, uint16(newValue), true)
		m.handleBranch(frame, newValue > int16(opcode.operands[1].Value(m)))

	case 6: // jin
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		branch := obj != nil && obj.Parent == opcode.operands[1].Value(m)
		m.handleBranch(frame, branch)

	case 7: // test
		bitmap := opcode.operands[0].Value(m)
		flags := opcode.operands[1].Value(m)
		m.handleBranch(frame, bitmap&flags == flags)

	case 8: // or
		m.writeVariable(m.readIncPC(frame), opcode.operands[0].Value(m)|opcode.operands[1].Value(m), false)

	case 9: // and
		m.writeVariable(m.readIncPC(frame), opcode.operands[0].Value(m)&opcode.operands[1].Value(m), false)

	case 10: // test_attr
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		m.handleBranch(frame, obj != nil && obj.TestAttribute(opcode.operands[1].Value(m)))

	case 11: // set_attr
		if obj := m.getObjectOrWarn(opcode.operands[0].Value(m)); obj != nil {
			if err := obj.SetAttribute(opcode.operands[1].Value(m), m.Core); err != nil {
				panic(m.wrapError(err))
			}
		}

	case 12: // clear_attr
		if obj := m.getObjectOrWarn(opcode.operands[0].Value(m)); obj != nil {
			if err := obj.ClearAttribute(opcode.operands[1].Value(m), m.Core); err != nil {
				panic(m.wrapError(err))
			}
		}

	case 13: // store
		m.writeVariable(uint8(opcode.operands[0].Value(m)), opcode.operands[1].Value(m), true)

	case 14: // insert_obj
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		dest := m.getObjectOrWarn(opcode.operands[1].Value(m))
		if obj != nil && dest != nil {
			if err := zobject.MoveObject(obj, dest, m.Core, m.Alphabets); err != nil {
				panic(m.wrapError(err))
			}
		}

	case 15: // loadw
		v, err := m.Core.Word(uint32(opcode.operands[0].Value(m) + 2*opcode.operands[1].Value(m)))
		if err != nil {
			panic(m.wrapError(err))
		}
		m.writeVariable(m.readIncPC(frame), v, false)

	case 16: // loadb
		v, err := m.Core.Byte(uint32(opcode.operands[0].Value(m) + opcode.operands[1].Value(m)))
		if err != nil {
			panic(m.wrapError(err))
		}
		m.writeVariable(m.readIncPC(frame), uint16(v), false)

	case 17: // get_prop
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		if obj == nil {
			m.writeVariable(m.readIncPC(frame), 0, false)
			return
		}
		_, data, err := obj.GetProperty(uint8(opcode.operands[1].Value(m)), m.Core)
		if err != nil {
			panic(m.wrapError(err))
		}
		value := uint16(data[0])
		if len(data) == 2 {
			value = binary.BigEndian.Uint16(data)
		}
		m.writeVariable(m.readIncPC(frame), value, false)

	case 18: // get_prop_addr
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		addr := uint32(0)
		if obj != nil {
			var err error
			addr, err = obj.GetPropertyAddress(uint8(opcode.operands[1].Value(m)), m.Core)
			if err != nil {
				panic(m.wrapError(err))
			}
		}
		m.writeVariable(m.readIncPC(frame), uint16(addr), false)

	case 19: // get_next_prop
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		next := uint8(0)
		if obj != nil {
			var err error
			next, err = obj.GetNextProperty(uint8(opcode.operands[1].Value(m)), m.Core)
			if err != nil {
				panic(m.wrapError(err))
			}
		}
		m.writeVariable(m.readIncPC(frame), uint16(next), false)

	case 20: // add
		m.writeVariable(m.readIncPC(frame), opcode.operands[0].Value(m)+opcode.operands[1].Value(m), false)

	case 21: // sub
		m.writeVariable(m.readIncPC(frame), opcode.operands[0].Value(m)-opcode.operands[1].Value(m), false)

	case 22: // mul
		m.writeVariable(m.readIncPC(frame), opcode.operands[0].Value(m)*opcode.operands[1].Value(m), false)

	case 23: // div
		numerator := int16(opcode.operands[0].Value(m))
		denominator := int16(opcode.operands[1].Value(m))
		if denominator == 0 {
			panic(m.wrapError(zerr.New(zerr.DivideByZero, "div by zero")))
		}
		m.writeVariable(m.readIncPC(frame), uint16(numerator/denominator), false)

	case 24: // mod
		numerator := int16(opcode.operands[0].Value(m))
		denominator := int16(opcode.operands[1].Value(m))
		if denominator == 0 {
			panic(m.wrapError(zerr.New(zerr.DivideByZero, "mod by zero")))
		}
		m.writeVariable(m.readIncPC(frame), uint16(numerator%denominator), false)

	case 25: // call_2s
		if m.Core.Version < 4 {
			panic(m.wrapError(zerr.New(zerr.Decode, "call_2s is invalid before v4")))
		}
		m.call(opcode, RoutineFunction)

	case 26: // call_2n
		if m.Core.Version < 5 {
			panic(m.wrapError(zerr.New(zerr.Decode, "call_2n is invalid before v5")))
		}
		m.call(opcode, RoutineProcedure)

	case 27: // set_colour
		if m.Core.Version < 5 {
			panic(m.wrapError(zerr.New(zerr.Decode, "set_colour is invalid before v5")))
		}
		m.events = append(m.events, SetColourRequest{
			Foreground: opcode.operands[0].Value(m),
			Background: opcode.operands[1].Value(m),
		})

	case 28: // throw
		if m.Core.Version < 5 {
			panic(m.wrapError(zerr.New(zerr.Decode, "throw is invalid before v5")))
		}
		value := opcode.operands[0].Value(m)
		depth := opcode.operands[1].Value(m)
		if err := m.callStack.unwindTo(depth); err != nil {
			panic(m.wrapError(err))
		}
		m.retValue(value)

	default:
		panic(m.wrapError(zerr.New(zerr.Decode, "unimplemented 2OP opcode 0x%x", opcode.opcodeByte)))
	}
}
