package zmachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{files: make(map[string][]byte)} }

func (s *memStorage) Save(name string, data []byte) error {
	cp := append([]byte{}, data...)
	s.files[name] = cp
	return nil
}

func (s *memStorage) Load(name string) ([]byte, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, &notFoundError{name}
	}
	return data, nil
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "no save file named " + e.name }

func TestSaveThenRestoreRestoresDynamicMemory(t *testing.T) {
	storage := newMemStorage()

	// First story run: save, then mutate a global, then quit. The branch
	// byte (0xc2, offset 2) is a no-op either way the branch resolves: a
	// taken branch lands on the very next instruction too.
	m := buildStory(t, []uint8{
		0xb5, 0xc2, // save (0OP form)
		0x0d, 16, 9, // store #16 #9
		0xba, // quit
	})
	m.SetStorage(storage)

	result := m.Step() // executes save
	require.Equal(t, Stepped, result.Kind)
	require.Contains(t, storage.files, defaultSaveName)

	result = m.Step() // store #16 #9
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(9), m.readVariable(16, true))

	// Second story instance: restore into a fresh machine sharing no state
	// with the first, as a host would after reloading the interpreter. Its
	// code after the restore instruction mirrors the first machine's layout
	// exactly, so that if the live call stack's frame were not re-peeked
	// after the restore, the next Step would instead try to decode the
	// still-unconsumed branch byte (0xc2) itself as a fresh opcode rather
	// than resuming at the store instruction that follows it.
	m2 := buildStory(t, []uint8{
		0xb6, 0xc2, // restore
		0x0d, 16, 9, // store #16 #9
		0xba, // quit
	})
	m2.SetStorage(storage)

	result = m2.Step() // restore
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(0), m2.readVariable(16, true))

	result = m2.Step() // store #16 #9, only reachable if the restored frame's
	// returnPC correctly resumed past the branch byte rather than being
	// stuck on a stale, pre-restore frame
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(9), m2.readVariable(16, true))

	result = m2.Step() // quit
	require.Equal(t, Halted, result.Kind)
}

func TestSaveWithoutStorageHostFails(t *testing.T) {
	m := buildStory(t, []uint8{
		0xb5, 0xc2, // save
		0xba,
	})

	result := m.Step()
	require.Equal(t, Stepped, result.Kind)

	foundWarning := false
	for _, ev := range result.Events {
		if w, ok := ev.(Warning); ok && w.Kind == "no_storage_host" {
			foundWarning = true
		}
	}
	require.True(t, foundWarning)
}

func TestSaveUndoRestoreUndoV5(t *testing.T) {
	// v5 EXT opcode form: 0xbe prefix, the EXT opcode byte, an operand-type
	// byte (0xff: all four operands omitted), then the result variable.
	// Variable 16 carries the undo-tracked data; variable 17 carries each
	// opcode's own success code, so the two don't clobber each other.
	m := buildStoryVersioned(t, 5, []uint8{
		0x0d, 16, 1, // store #16 #1
		0xbe, 0x09, 0xff, 17, // save_undo, result var 17
		0x0d, 16, 2, // store #16 #2
		0xbe, 0x0a, 0xff, 17, // restore_undo, result var 17
		0xba,
	})

	result := m.Step() // store #16 #1
	require.Equal(t, Stepped, result.Kind)

	result = m.Step() // save_undo
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(1), m.readVariable(17, true))

	result = m.Step() // store #16 #2
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(2), m.readVariable(16, true))

	result = m.Step() // restore_undo
	require.Equal(t, Stepped, result.Kind)
	require.Equal(t, uint16(1), m.readVariable(16, true), "restore_undo rewinds variable 16 to its save_undo-time value")
	require.Equal(t, uint16(2), m.readVariable(17, true), "restore_undo's own result code, written after the rewind")
}
