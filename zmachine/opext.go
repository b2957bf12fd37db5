package zmachine

import "github.com/haldor-if/zvm/zerr"

func (m *Machine) executeExt(opcode *Opcode, frame *CallStackFrame) {
	switch opcode.opcodeByte {
	case 0x00: // save
		m.doSave(frame, false)

	case 0x01: // restore
		m.doSave(frame, true)

	case 0x02: // log_shift
		num := opcode.operands[0].Value(m)
		places := int16(opcode.operands[1].Value(m))
		var result uint16
		if places >= 0 {
			result = num << uint16(places)
		} else {
			result = num >> uint16(-places)
		}
		m.writeVariable(m.readIncPC(frame), result, false)

	case 0x03: // art_shift
		num := int16(opcode.operands[0].Value(m))
		places := int16(opcode.operands[1].Value(m))
		var result uint16
		if places >= 0 {
			result = uint16(num << uint16(places))
		} else {
			result = uint16(num >> uint16(-places))
		}
		m.writeVariable(m.readIncPC(frame), result, false)

	case 0x04: // set_font
		requested := Font(opcode.operands[0].Value(m))
		prev := m.screenModel.CurrentFont
		result := uint16(0)
		switch requested {
		case FontNormal, FontPicture, FontCharGraphs, FontFixedPitch:
			m.screenModel.CurrentFont = requested
			result = uint16(prev)
			m.events = append(m.events, m.screenModel)
		}
		m.writeVariable(m.readIncPC(frame), result, false)

	case 0x09: // save_undo
		m.undo = append(m.undo, m.captureUndo())
		m.writeVariable(m.readIncPC(frame), 1, false)

	case 0x0a: // restore_undo
		result := uint16(0)
		if len(m.undo) > 0 {
			state := m.undo[len(m.undo)-1]
			m.undo = m.undo[:len(m.undo)-1]
			if err := m.applyUndo(state); err == nil {
				result = 2
			}
		}
		frame, _ = m.callStack.peek()
		m.writeVariable(m.readIncPC(frame), result, false)

	case 0x0b: // print_unicode
		m.appendText(string(rune(opcode.operands[0].Value(m))))

	case 0x0c: // check_unicode
		result := uint16(0)
		if opcode.operands[0].Value(m) != 0 {
			result = 0b11
		}
		m.writeVariable(m.readIncPC(frame), result, false)

	case 0x0d: // set_true_colour
		req := SetColourRequest{Foreground: opcode.operands[0].Value(m), Background: opcode.operands[1].Value(m)}
		m.events = append(m.events, req)

	default:
		panic(m.wrapError(zerr.New(zerr.Decode, "unimplemented EXT opcode 0x%x", opcode.opcodeByte)))
	}
}
