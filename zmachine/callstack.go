package zmachine

import "github.com/haldor-if/zvm/zerr"

// RoutineType distinguishes a function call (pushes a result value) from a
// procedure call (discards it), relevant from v4 on.
type RoutineType uint8

const (
	RoutineFunction RoutineType = iota
	RoutineProcedure
	RoutineInterrupt // host-injected timed-input callback; ret() stores its result instead of writing a caller variable
)

// CallStackFrame is one routine activation: its return address, local
// variables and private evaluation stack.
type CallStackFrame struct {
	returnPC       uint32
	evalStack      []uint16
	locals         []uint16
	routineType    RoutineType
	resultVar      uint8
	discardsResult bool
	argsSupplied   uint8 // bitmask: bit i set if local i+1 was passed by the caller
}

func (f *CallStackFrame) push(v uint16) {
	f.evalStack = append(f.evalStack, v)
}

func (f *CallStackFrame) pop(m *Machine) uint16 {
	if len(f.evalStack) == 0 {
		m.warnOnce("stack_underflow_pop", "attempt to pop from empty evaluation stack (pc=0x%05x)", m.currentInstructionPC)
		return 0
	}
	v := f.evalStack[len(f.evalStack)-1]
	f.evalStack = f.evalStack[:len(f.evalStack)-1]
	return v
}

func (f *CallStackFrame) peek(m *Machine) uint16 {
	if len(f.evalStack) == 0 {
		m.warnOnce("stack_underflow_peek", "attempt to peek empty evaluation stack (pc=0x%05x)", m.currentInstructionPC)
		return 0
	}
	return f.evalStack[len(f.evalStack)-1]
}

// CallStack is the machine's full routine-activation stack.
type CallStack struct {
	frames []CallStackFrame
}

func (s *CallStack) push(frame CallStackFrame) {
	s.frames = append(s.frames, frame)
}

func (s *CallStack) pop() (CallStackFrame, error) {
	if len(s.frames) == 0 {
		return CallStackFrame{}, zerr.New(zerr.StackUnderflow, "attempt to return with an empty call stack")
	}
	n := len(s.frames)
	frame := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return frame, nil
}

func (s *CallStack) peek() (*CallStackFrame, error) {
	if len(s.frames) == 0 {
		return nil, zerr.New(zerr.StackUnderflow, "attempt to access an empty call stack")
	}
	return &s.frames[len(s.frames)-1], nil
}

// depth reports the number of active frames, used by `catch`/`throw`.
func (s *CallStack) depth() uint16 {
	return uint16(len(s.frames))
}

// unwindTo pops frames until exactly `depth` remain, used by `throw`.
func (s *CallStack) unwindTo(depth uint16) error {
	if depth > uint16(len(s.frames)) {
		return zerr.New(zerr.Decode, "throw: catch frame %d is deeper than the current stack (%d)", depth, len(s.frames))
	}
	s.frames = s.frames[:depth]
	return nil
}

// copy performs a deep copy of the call stack, used by the undo stack.
func (s *CallStack) copy() CallStack {
	out := CallStack{frames: make([]CallStackFrame, len(s.frames))}
	for i, frame := range s.frames {
		cp := frame
		cp.evalStack = append([]uint16{}, frame.evalStack...)
		cp.locals = append([]uint16{}, frame.locals...)
		out.frames[i] = cp
	}
	return out
}
