package zmachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallStackFramePushPopPeek(t *testing.T) {
	f := CallStackFrame{}
	f.push(10)
	f.push(20)

	require.Equal(t, uint16(20), f.peek(nil))
	require.Equal(t, uint16(20), f.pop(nil))
	require.Equal(t, uint16(10), f.peek(nil))
	require.Equal(t, uint16(10), f.pop(nil))
}

func TestCallStackPushPopPeek(t *testing.T) {
	s := CallStack{}

	_, err := s.peek()
	require.Error(t, err)

	s.push(CallStackFrame{returnPC: 0x100})
	s.push(CallStackFrame{returnPC: 0x200})
	require.Equal(t, uint16(2), s.depth())

	top, err := s.peek()
	require.NoError(t, err)
	require.Equal(t, uint32(0x200), top.returnPC)

	popped, err := s.pop()
	require.NoError(t, err)
	require.Equal(t, uint32(0x200), popped.returnPC)
	require.Equal(t, uint16(1), s.depth())

	_, err = s.pop()
	require.NoError(t, err)
	_, err = s.pop()
	require.Error(t, err)
}

func TestCallStackUnwindTo(t *testing.T) {
	s := CallStack{}
	s.push(CallStackFrame{returnPC: 1})
	s.push(CallStackFrame{returnPC: 2})
	s.push(CallStackFrame{returnPC: 3})

	require.NoError(t, s.unwindTo(1))
	require.Equal(t, uint16(1), s.depth())

	require.Error(t, s.unwindTo(5))
}

func TestCallStackCopyIsDeep(t *testing.T) {
	s := CallStack{}
	s.push(CallStackFrame{returnPC: 1, locals: []uint16{1, 2}, evalStack: []uint16{9}})

	cp := s.copy()
	cp.frames[0].locals[0] = 99
	cp.frames[0].evalStack[0] = 42

	require.Equal(t, uint16(1), s.frames[0].locals[0])
	require.Equal(t, uint16(9), s.frames[0].evalStack[0])
	require.Equal(t, uint16(99), cp.frames[0].locals[0])
}
