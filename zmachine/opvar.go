package zmachine

import (
	"math/rand"
	"strings"
	"time"

	"github.com/haldor-if/zvm/dictionary"
	"github.com/haldor-if/zvm/zerr"
	"github.com/haldor-if/zvm/zstring"
	"github.com/haldor-if/zvm/ztable"
)

func (m *Machine) executeVar(opcode *Opcode, frame *CallStackFrame) {
	switch opcode.opcodeNumber {
	case 0: // call / call_vs
		m.call(opcode, RoutineFunction)

	case 1: // storew
		addr := uint32(opcode.operands[0].Value(m) + 2*opcode.operands[1].Value(m))
		if err := m.Core.SetWord(addr, opcode.operands[2].Value(m)); err != nil {
			panic(m.wrapError(err))
		}

	case 2: // storeb
		addr := uint32(opcode.operands[0].Value(m) + opcode.operands[1].Value(m))
		if err := m.Core.SetByte(addr, uint8(opcode.operands[2].Value(m))); err != nil {
			panic(m.wrapError(err))
		}

	case 3: // put_prop
		obj := m.getObjectOrWarn(opcode.operands[0].Value(m))
		if obj == nil {
			return
		}
		if err := obj.SetProperty(uint8(opcode.operands[1].Value(m)), opcode.operands[2].Value(m), m.Core); err != nil {
			panic(m.wrapError(err))
		}

	case 4: // sread / aread
		textBufferAddr := uint32(opcode.operands[0].Value(m))
		parseBufferAddr := uint32(0)
		if len(opcode.operands) > 1 {
			parseBufferAddr = uint32(opcode.operands[1].Value(m))
		}
		time := uint16(0)
		routine := uint16(0)
		if len(opcode.operands) > 2 {
			time = opcode.operands[2].Value(m)
		}
		if len(opcode.operands) > 3 {
			routine = opcode.operands[3].Value(m)
		}
		m.beginLine(frame, textBufferAddr, parseBufferAddr, time, routine)

	case 5: // print_char
		m.appendText(string(rune(opcode.operands[0].Value(m))))

	case 6: // print_num
		m.appendText(printNumber(int16(opcode.operands[0].Value(m))))

	case 7: // random
		n := int16(opcode.operands[0].Value(m))
		var result uint16
		switch {
		case n > 0:
			result = uint16(m.rng.Intn(int(n)) + 1)
		case n == 0:
			m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		default:
			m.rng = rand.New(rand.NewSource(int64(-n)))
		}
		m.writeVariable(m.readIncPC(frame), result, false)

	case 8: // push
		frame.push(opcode.operands[0].Value(m))

	case 9: // pull
		if m.Core.Version == 6 && len(opcode.operands) == 0 {
			m.writeVariable(0, frame.pop(m), true)
			return
		}
		v := uint8(opcode.operands[0].Value(m))
		m.writeVariable(v, frame.pop(m), true)

	case 10: // split_window
		m.screenModel.UpperWindowHeight = int(opcode.operands[0].Value(m))
		m.events = append(m.events, m.screenModel)

	case 11: // set_window
		m.screenModel.LowerWindowActive = opcode.operands[0].Value(m) == 0
		m.events = append(m.events, m.screenModel)

	case 12: // call_vs2
		m.call(opcode, RoutineFunction)

	case 13: // erase_window
		m.events = append(m.events, EraseWindowRequest(int16(opcode.operands[0].Value(m))))

	case 14: // erase_line
		// not modelled separately from erase_window by the screen host

	case 15: // set_cursor
		m.screenModel.UpperWindowCursorY = int(opcode.operands[0].Value(m))
		m.screenModel.UpperWindowCursorX = int(opcode.operands[1].Value(m))
		m.events = append(m.events, m.screenModel)

	case 16: // get_cursor
		addr := uint32(opcode.operands[0].Value(m))
		if err := m.Core.SetWord(addr, uint16(m.screenModel.UpperWindowCursorY)); err != nil {
			panic(m.wrapError(err))
		}
		if err := m.Core.SetWord(addr+2, uint16(m.screenModel.UpperWindowCursorX)); err != nil {
			panic(m.wrapError(err))
		}

	case 17: // set_text_style
		if m.Core.Version < 4 {
			return
		}
		m.screenModel.UpperWindowTextStyle = TextStyle(opcode.operands[0].Value(m))
		m.events = append(m.events, m.screenModel)

	case 18: // buffer_mode
		// line-wrapping mode is left to the screen host; the core tracks no state

	case 19: // output_stream
		number := int16(opcode.operands[0].Value(m))
		switch number {
		case 1:
			m.streams.Screen = true
		case -1:
			m.streams.Screen = false
		case 2:
			m.streams.Transcript = true
		case -2:
			m.streams.Transcript = false
		case 3:
			addr := uint32(opcode.operands[1].Value(m))
			m.streams.Memory = true
			m.streams.MemoryStreamData = append(m.streams.MemoryStreamData, MemoryStreamData{baseAddress: addr, ptr: addr + 2})
		case -3:
			if len(m.streams.MemoryStreamData) > 0 {
				top := m.streams.MemoryStreamData[len(m.streams.MemoryStreamData)-1]
				length := uint16(top.ptr - top.baseAddress - 2)
				if err := m.Core.SetWord(top.baseAddress, length); err != nil {
					panic(m.wrapError(err))
				}
				m.streams.MemoryStreamData = m.streams.MemoryStreamData[:len(m.streams.MemoryStreamData)-1]
			}
			m.streams.Memory = len(m.streams.MemoryStreamData) > 0
		case 4:
			m.streams.CommandScript = true
		case -4:
			m.streams.CommandScript = false
		}

	case 20: // input_stream
		// keyboard-vs-file input selection is a host concern; no core state to flip

	case 21: // sound_effect
		// sound is not modelled: the opcode emits no event and changes no state

	case 22: // read_char
		resultVar := m.readIncPC(frame)
		time := uint16(0)
		routine := uint16(0)
		if len(opcode.operands) > 1 {
			time = opcode.operands[1].Value(m)
		}
		if len(opcode.operands) > 2 {
			routine = opcode.operands[2].Value(m)
		}
		m.beginChar(frame, resultVar, time, routine)

	case 23: // scan_table
		test := opcode.operands[0].Value(m)
		baddr := uint32(opcode.operands[1].Value(m))
		length := opcode.operands[2].Value(m)
		form := uint16(0x82)
		if len(opcode.operands) > 3 {
			form = opcode.operands[3].Value(m)
		}
		addr, err := ztable.ScanTable(m.Core, test, baddr, length, form)
		if err != nil {
			panic(m.wrapError(err))
		}
		m.writeVariable(m.readIncPC(frame), uint16(addr), false)
		m.handleBranch(frame, addr != 0)

	case 24: // not
		m.writeVariable(m.readIncPC(frame), ^opcode.operands[0].Value(m), false)

	case 25: // call_vn
		m.call(opcode, RoutineProcedure)

	case 26: // call_vn2
		m.call(opcode, RoutineProcedure)

	case 27: // tokenise
		textBufferAddr := uint32(opcode.operands[0].Value(m))
		parseBufferAddr := uint32(opcode.operands[1].Value(m))
		dict := m.Dictionary

		bufferSize, err := m.Core.Byte(textBufferAddr)
		if err != nil {
			panic(m.wrapError(err))
		}
		textOffset := uint32(1)
		if m.Core.Version >= 5 {
			textOffset = 2
		}
		raw := m.Core.Slice(textBufferAddr+textOffset, textBufferAddr+textOffset+uint32(bufferSize))
		text := string(raw)
		if idx := strings.IndexByte(text, 0); idx >= 0 {
			text = text[:idx]
		}

		skipUnknown := false
		if len(opcode.operands) > 3 && opcode.operands[3].Value(m) != 0 {
			skipUnknown = true
		}

		tokens := dictionary.Tokenise(strings.ToLower(text), dict)
		if err := dictionary.WriteParseBuffer(m.Core, parseBufferAddr, tokens, dict, m.Alphabets, int(textOffset), skipUnknown); err != nil {
			panic(m.wrapError(err))
		}

	case 28: // encode_text
		textBufferAddr := uint32(opcode.operands[0].Value(m))
		length := uint32(opcode.operands[1].Value(m))
		from := uint32(opcode.operands[2].Value(m))
		codedBufferAddr := uint32(opcode.operands[3].Value(m))

		raw := m.Core.Slice(textBufferAddr+from, textBufferAddr+from+length)
		encoded := zstring.Encode([]rune(string(raw)), m.Core.Version, m.Alphabets)
		for i, b := range encoded {
			if err := m.Core.SetByte(codedBufferAddr+uint32(i), b); err != nil {
				panic(m.wrapError(err))
			}
		}

	case 29: // copy_table
		first := uint32(opcode.operands[0].Value(m))
		second := uint32(opcode.operands[1].Value(m))
		size := int16(opcode.operands[2].Value(m))
		if err := ztable.CopyTable(m.Core, first, second, size); err != nil {
			panic(m.wrapError(err))
		}

	case 30: // print_table
		baddr := uint32(opcode.operands[0].Value(m))
		width := opcode.operands[1].Value(m)
		height := uint16(1)
		if len(opcode.operands) > 2 {
			height = opcode.operands[2].Value(m)
		}
		skip := uint16(0)
		if len(opcode.operands) > 3 {
			skip = opcode.operands[3].Value(m)
		}
		text, err := ztable.PrintTable(m.Core, baddr, width, height, skip)
		if err != nil {
			panic(m.wrapError(err))
		}
		m.appendText(text)

	case 31: // check_arg_count
		// Branches if argument n (counting from 1) was supplied by the caller.
		n := opcode.operands[0].Value(m)
		branch := n >= 1 && n <= 8 && frame.argsSupplied&(1<<(n-1)) != 0
		m.handleBranch(frame, branch)

	default:
		panic(m.wrapError(zerr.New(zerr.Decode, "unimplemented VAR opcode 0x%x", opcode.opcodeByte)))
	}
}
