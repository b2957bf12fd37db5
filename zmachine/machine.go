// Package zmachine implements the Z-machine executor: the fetch/decode/
// dispatch loop, call stack, variable access, output streams and the
// non-blocking suspension model a host drives via Step/CompleteLine/
// CompleteChar/Tick.
package zmachine

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/haldor-if/zvm/dictionary"
	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zerr"
	"github.com/haldor-if/zvm/zobject"
	"github.com/haldor-if/zvm/zstring"
)

// StatusBar is the v1-3 status line the host renders above the lower window.
type StatusBar struct {
	PlaceName   string
	Score       int
	Moves       int
	IsTimeBased bool
}

// Quit signals the story called `quit`.
type Quit bool

// Restart signals the story called `restart`; the host should discard any
// per-session state tied to the previous run.
type Restart bool

// EraseWindowRequest mirrors the `erase_window` opcode's window argument.
type EraseWindowRequest int16

// InputRequest tells the host what kind of input the suspended executor is
// waiting for, alongside the StepResult.
type InputRequest struct {
	Line bool // true for read, false for read_char
}

// RuntimeError wraps a fatal MachineError as an event for the host to render
// and then stop driving the machine.
type RuntimeError struct {
	Err *MachineError
}

// SetColourRequest mirrors the `set_colour`/`set_true_colour` opcodes; the
// core validates nothing about colour numbers beyond version-gating the
// opcode itself, leaving interpretation to the Screen host.
type SetColourRequest struct {
	Foreground uint16
	Background uint16
}

type MemoryStreamData struct {
	baseAddress uint32
	ptr         uint32
}

type Streams struct {
	Screen           bool
	Transcript       bool
	Memory           bool
	MemoryStreamData []MemoryStreamData
	CommandScript    bool
}

// StepResultKind is the suspension state a Step call leaves the machine in.
type StepResultKind int

const (
	Stepped StepResultKind = iota
	AwaitingLine
	AwaitingChar
	Halted
	Restarted
)

// StepResult is returned by every call to Step; Events holds whatever the
// machine produced during that single step (text output, screen-model
// updates, save/restore requests, warnings) for the host to drain.
type StepResult struct {
	Kind   StepResultKind
	Events []any
}

// Machine is the complete interpreter state for one story file.
type Machine struct {
	Core       *zcore.Core
	Alphabets  *zstring.Alphabets
	Dictionary *dictionary.Dictionary

	callStack   CallStack
	screenModel ScreenModel
	streams     Streams
	rng         *rand.Rand
	input       InputCoordinator
	storage     Storage
	undo        []undoState

	events []any
	warned map[string]bool

	currentInstructionPC uint32
	halted                bool
}

// LoadRom parses a story file and prepares the initial call frame, matching
// the teacher's LoadRom entry point but without the channel plumbing the
// non-blocking model replaces.
func LoadRom(storyFile []uint8) (*Machine, error) {
	core := zcore.LoadCore(storyFile)

	if core.Version < 1 || core.Version > 8 {
		return nil, zerr.New(zerr.Decode, "unsupported story file version %d", core.Version)
	}

	m := &Machine{
		Core:      core,
		Alphabets: zstring.LoadAlphabets(core.Version, core),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		streams:   Streams{Screen: true},
	}

	dict, err := dictionary.Parse(core, m.Alphabets)
	if err != nil {
		return nil, err
	}
	m.Dictionary = dict

	core.SetDefaultColors(9, 2) // white on black
	m.screenModel = newScreenModel(Color{255, 255, 255}, Color{0, 0, 0})

	m.pushInitialFrame()

	return m, nil
}

func (m *Machine) pushInitialFrame() {
	if m.Core.Version == 6 {
		addr := m.Core.UnpackRoutine(m.Core.FirstInstruction)
		localCount, _ := m.Core.Byte(addr)
		m.callStack.push(CallStackFrame{
			returnPC: addr + 1,
			locals:   make([]uint16, localCount),
		})
		return
	}

	m.callStack.push(CallStackFrame{
		returnPC: uint32(m.Core.FirstInstruction),
		locals:   make([]uint16, 0),
	})
}

// Version is a small convenience used throughout opcode dispatch.
func (m *Machine) Version() uint8 { return m.Core.Version }

func (m *Machine) readIncPC(frame *CallStackFrame) uint8 {
	v, err := m.Core.Byte(frame.returnPC)
	if err != nil {
		panic(m.wrapError(err))
	}
	frame.returnPC++
	return v
}

func (m *Machine) readHalfWordIncPC(frame *CallStackFrame) uint16 {
	v, err := m.Core.Word(frame.returnPC)
	if err != nil {
		panic(m.wrapError(err))
	}
	frame.returnPC += 2
	return v
}

func (m *Machine) readVariable(variable uint8, indirect bool) uint16 {
	frame, err := m.callStack.peek()
	if err != nil {
		panic(m.wrapError(err))
	}

	switch {
	case variable == 0:
		// Indirect references to the stack pointer read in place rather
		// than popping (inc/dec/inc_chk/dec_chk/load/store/pull).
		if indirect {
			return frame.peek(m)
		}
		return frame.pop(m)
	case variable < 16:
		if int(variable-1) >= len(frame.locals) {
			m.warnOnce("bad_local_read", "read of undefined local variable %d (pc=0x%05x)", variable, m.currentInstructionPC)
			return 0
		}
		return frame.locals[variable-1]
	default:
		addr := uint32(m.Core.GlobalVariableBase) + 2*uint32(variable-16)
		v, err := m.Core.Word(addr)
		if err != nil {
			panic(m.wrapError(err))
		}
		return v
	}
}

func (m *Machine) writeVariable(variable uint8, value uint16, indirect bool) {
	frame, err := m.callStack.peek()
	if err != nil {
		panic(m.wrapError(err))
	}

	switch {
	case variable == 0:
		if indirect {
			_ = frame.pop(m)
		}
		frame.push(value)
	case variable < 16:
		if int(variable-1) >= len(frame.locals) {
			m.warnOnce("bad_local_write", "write of undefined local variable %d (pc=0x%05x)", variable, m.currentInstructionPC)
			return
		}
		frame.locals[variable-1] = value
	default:
		addr := uint32(m.Core.GlobalVariableBase) + 2*uint32(variable-16)
		if err := m.Core.SetWord(addr, value); err != nil {
			panic(m.wrapError(err))
		}
	}
}

// call implements the call_* opcode family: call_1s/call_1n, call_2s/call_2n,
// call (call_vs), call_vs2/call_vn/call_vn2.
func (m *Machine) call(opcode *Opcode, routineType RoutineType) {
	packedAddr := opcode.operands[0].Value(m)
	routineAddr := m.Core.UnpackRoutine(packedAddr)

	if packedAddr == 0 {
		// A packed address of zero means "don't call"; deliver 0 immediately.
		if routineType == RoutineFunction {
			frame, _ := m.callStack.peek()
			m.writeVariable(m.readIncPC(frame), 0, false)
		}
		return
	}

	localCount, err := m.Core.Byte(routineAddr)
	if err != nil {
		panic(m.wrapError(err))
	}
	routineAddr++

	locals := make([]uint16, localCount)
	var argsSupplied uint8
	for i := 0; i < int(localCount); i++ {
		if i+1 < len(opcode.operands) {
			locals[i] = opcode.operands[i+1].Value(m)
			argsSupplied |= 1 << uint(i)
		} else if m.Core.Version < 5 {
			v, err := m.Core.Word(routineAddr)
			if err != nil {
				panic(m.wrapError(err))
			}
			locals[i] = v
		}
		if m.Core.Version < 5 {
			routineAddr += 2
		}
	}

	newFrame := CallStackFrame{
		returnPC:     routineAddr,
		locals:       locals,
		routineType:  routineType,
		argsSupplied: argsSupplied,
	}

	if routineType != RoutineProcedure {
		currentFrame, _ := m.callStack.peek()
		newFrame.resultVar = m.readIncPC(currentFrame)
	} else {
		newFrame.discardsResult = true
	}

	m.callStack.push(newFrame)
}

// retValue implements `ret`/`rtrue`/`rfalse`/`ret_popped`: pop the current
// frame and deliver its value per the caller's disposition.
func (m *Machine) retValue(val uint16) {
	oldFrame, err := m.callStack.pop()
	if err != nil {
		panic(m.wrapError(err))
	}

	if oldFrame.routineType == RoutineInterrupt {
		m.input.deliverInterruptResult(val)
		return
	}

	if !oldFrame.discardsResult {
		m.writeVariable(oldFrame.resultVar, val, false)
	}
}

// handleBranch reads the branch bytes following a branching opcode and
// applies the rfalse/rtrue special cases or the PC-relative jump.
func (m *Machine) handleBranch(frame *CallStackFrame, result bool) {
	b1 := m.readIncPC(frame)
	branchOnTrue := (b1>>7)&1 == 1
	singleByte := (b1>>6)&1 == 1
	offset := int32(b1 & 0b0011_1111)

	if !singleByte {
		b2 := m.readIncPC(frame)
		offset = int32(int16((uint16(b1&0b0011_1111)<<8|uint16(b2))<<2) >> 2)
	}

	if result != branchOnTrue {
		return
	}

	switch offset {
	case 0:
		m.retValue(0)
	case 1:
		m.retValue(1)
	default:
		frame.returnPC = uint32(int32(frame.returnPC) + offset - 2)
	}
}

// appendText routes decoded/printed text to whichever output streams are
// active. Output stream 3 (memory) suppresses every other stream while
// selected, per §5's stacked memory-stream rule.
func (m *Machine) appendText(s string) {
	if m.streams.Memory {
		top := &m.streams.MemoryStreamData[len(m.streams.MemoryStreamData)-1]
		for _, r := range s {
			if err := m.Core.SetByte(top.ptr, uint8(r)); err != nil {
				panic(m.wrapError(err))
			}
			top.ptr++
		}
		return
	}

	if m.streams.Screen {
		m.events = append(m.events, s)

		if !m.screenModel.LowerWindowActive {
			lines := strings.Split(s, "\n")
			m.screenModel.UpperWindowCursorY += len(lines) - 1
			m.screenModel.UpperWindowCursorX += len(lines[len(lines)-1])
			m.events = append(m.events, m.screenModel)
		}
	}

	if m.streams.Transcript {
		m.warnOnce("transcript_unimplemented", "transcript output stream is not implemented")
	}
	if m.streams.CommandScript {
		m.warnOnce("command_script_unimplemented", "command-script output stream is not implemented")
	}
}

func (m *Machine) decodeStringAt(addr uint32) (string, uint32) {
	return zstring.Decode(m.Core.Slice(0, m.Core.MemoryLength()), addr, m.Core.Version, m.Alphabets, m.Core.AbbreviationTableBase)
}

func (m *Machine) updateStatusBar() {
	if m.Core.Version > 3 {
		return
	}
	location, err := zobject.GetObject(m.readVariable(16, false), m.Core, m.Alphabets)
	if err != nil {
		m.warnOnce("status_bar_object", "%s", err.Error())
		return
	}
	m.events = append(m.events, StatusBar{
		PlaceName:   location.Name,
		Score:       int(int16(m.readVariable(17, false))),
		Moves:       int(m.readVariable(18, false)),
		IsTimeBased: m.Core.StatusBarTimeBased,
	})
}

func tokeniseAndWrite(m *Machine, text string, parseBufferAddr uint32, dict *dictionary.Dictionary, textBufferOffset int, skipUnknown bool) error {
	tokens := dictionary.Tokenise(strings.ToLower(text), dict)
	return dictionary.WriteParseBuffer(m.Core, parseBufferAddr, tokens, dict, m.Alphabets, textBufferOffset, skipUnknown)
}

// Step executes instructions until the machine suspends for input, halts,
// restarts, or completes a single instruction, whichever comes first. It
// never blocks: `read`/`read_char` install InputCoordinator state instead
// of waiting on a channel.
func (m *Machine) Step() (result StepResult) {
	m.events = nil

	if m.halted {
		return StepResult{Kind: Halted}
	}
	if m.input.pending() {
		kind := AwaitingLine
		if m.input.kind == inputChar {
			kind = AwaitingChar
		}
		return StepResult{Kind: kind, Events: m.events}
	}

	defer func() {
		if r := recover(); r != nil {
			var merr *MachineError
			if me, ok := r.(*MachineError); ok {
				merr = me
			} else if err, ok := r.(error); ok {
				merr = m.wrapError(err)
			} else {
				merr = m.wrapError(zerr.New(zerr.Decode, "%v", r))
			}
			m.halted = true
			m.events = append(m.events, RuntimeError{Err: merr})
			result = StepResult{Kind: Halted, Events: m.events}
		}
	}()

	restarted := m.stepOnce()
	if m.halted {
		m.events = append(m.events, Quit(true))
		return StepResult{Kind: Halted, Events: m.events}
	}
	if restarted {
		return StepResult{Kind: Restarted, Events: m.events}
	}
	if m.input.pending() {
		kind := AwaitingLine
		if m.input.kind == inputChar {
			kind = AwaitingChar
		}
		return StepResult{Kind: kind, Events: m.events}
	}
	return StepResult{Kind: Stepped, Events: m.events}
}

// stepOnce decodes and executes exactly one instruction. It returns true if
// the instruction was `restart`.
func (m *Machine) stepOnce() bool {
	frame, err := m.callStack.peek()
	if err != nil {
		panic(m.wrapError(err))
	}
	m.currentInstructionPC = frame.returnPC

	opcode := ParseOpcode(m)
	frame, _ = m.callStack.peek()

	return m.execute(&opcode, frame)
}

func printNumber(n int16) string { return strconv.Itoa(int(n)) }
