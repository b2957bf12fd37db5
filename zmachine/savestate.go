package zmachine

import "github.com/haldor-if/zvm/quetzal"

// Storage is the save-file backend a host provides; the core never touches
// a filesystem or browser storage directly (§6 Storage host).
type Storage interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
}

// SetStorage installs the host's save-file backend. Without one, `save`
// and `restore` always report failure while `save_undo`/`restore_undo`
// still work, since those never leave process memory.
func (m *Machine) SetStorage(s Storage) { m.storage = s }

const defaultSaveName = "story.qzl"

// undoState is an in-memory snapshot used by save_undo/restore_undo, which
// never touch the Storage host.
type undoState struct {
	dynamicMemory []uint8
	callStack     CallStack
}

func (m *Machine) captureUndo() undoState {
	mem := append([]uint8{}, m.Core.DynamicMemory()...)
	return undoState{dynamicMemory: mem, callStack: m.callStack.copy()}
}

func (m *Machine) applyUndo(state undoState) error {
	if err := m.Core.RestoreDynamicMemory(state.dynamicMemory); err != nil {
		return err
	}
	m.callStack = state.callStack.copy()
	return nil
}

func (m *Machine) framesToQuetzal() []quetzal.Frame {
	frames := make([]quetzal.Frame, len(m.callStack.frames))
	for i, f := range m.callStack.frames {
		frames[i] = quetzal.Frame{
			ReturnPC:       f.returnPC,
			DiscardsResult: f.discardsResult,
			ResultVar:      f.resultVar,
			ArgsSupplied:   f.argsSupplied,
			Locals:         append([]uint16{}, f.locals...),
			EvalStack:      append([]uint16{}, f.evalStack...),
		}
	}
	return frames
}

func framesFromQuetzal(frames []quetzal.Frame) []CallStackFrame {
	out := make([]CallStackFrame, len(frames))
	for i, f := range frames {
		out[i] = CallStackFrame{
			returnPC:       f.ReturnPC,
			discardsResult: f.DiscardsResult,
			resultVar:      f.ResultVar,
			argsSupplied:   f.ArgsSupplied,
			locals:         append([]uint16{}, f.Locals...),
			evalStack:      append([]uint16{}, f.EvalStack...),
		}
	}
	return out
}

// doSave implements the `save` (isRestore=false) and `restore` (true)
// opcodes. v1-3 signal their result via branch; v4+ via store, per §4.9.
func (m *Machine) doSave(frame *CallStackFrame, isRestore bool) {
	var ok bool
	var result uint16

	if isRestore {
		ok = m.restoreFromStorage()
		if ok {
			result = 2
			// restoreFromStorage swapped in a brand-new call stack; frame
			// still points at the discarded one, so re-peek before using it
			// to locate the save instruction's branch/store byte.
			frame, _ = m.callStack.peek()
		}
	} else {
		ok = m.saveToStorage()
		if ok {
			result = 1
		}
	}

	if m.Core.Version <= 3 {
		m.handleBranch(frame, ok)
		return
	}
	m.writeVariable(m.readIncPC(frame), result, false)
}

func (m *Machine) saveToStorage() bool {
	if m.storage == nil {
		m.warnOnce("no_storage_host", "save requested but no Storage host is installed")
		return false
	}

	data := quetzal.Write(
		m.Core.ReleaseNumber,
		m.Core.SerialCode,
		m.Core.FileChecksum,
		m.currentInstructionPC,
		m.Core.DynamicMemory(),
		m.Core.OriginalDynamicMemory(),
		m.framesToQuetzal(),
	)

	if err := m.storage.Save(defaultSaveName, data); err != nil {
		m.warnOnce("save_failed", "%s", err.Error())
		return false
	}
	return true
}

func (m *Machine) restoreFromStorage() bool {
	if m.storage == nil {
		m.warnOnce("no_storage_host", "restore requested but no Storage host is installed")
		return false
	}

	data, err := m.storage.Load(defaultSaveName)
	if err != nil {
		m.warnOnce("restore_failed", "%s", err.Error())
		return false
	}

	save, err := quetzal.Read(data, m.Core.OriginalDynamicMemory())
	if err != nil {
		m.warnOnce("restore_failed", "%s", err.Error())
		return false
	}
	if save.Serial != m.Core.SerialCode || save.Release != m.Core.ReleaseNumber {
		m.warnOnce("restore_mismatch", "save file does not match the loaded story")
		return false
	}

	if err := m.Core.RestoreDynamicMemory(save.DynamicMemory); err != nil {
		return false
	}
	m.callStack = CallStack{frames: framesFromQuetzal(save.Frames)}
	return true
}
