package zobject_test

import (
	"testing"

	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zobject"
	"github.com/haldor-if/zvm/zstring"
	"github.com/stretchr/testify/require"
)

// buildV3Story constructs a minimal v3 header plus a one-entry object table
// with a short property table, so object-tree operations can be exercised
// without an external story file fixture.
func buildV3Story(t *testing.T) *zcore.Core {
	t.Helper()

	memory := make([]uint8, 0x400)
	memory[0x00] = 3 // version
	objectTableBase := uint16(0x40)
	memory[0x0a] = uint8(objectTableBase >> 8)
	memory[0x0b] = uint8(objectTableBase)
	memory[0x0e] = 0x03 // static memory base, high byte
	memory[0x0f] = 0x00

	// 31 default property words, all zero, then object 1's 9-byte record.
	obj1Base := uint32(objectTableBase) + 31*2
	propTableAddr := uint32(0x200)
	memory[obj1Base+7] = uint8(propTableAddr >> 8)
	memory[obj1Base+8] = uint8(propTableAddr)

	// Short name: length 0 (no words), then property 6 (len 1, value 0x85),
	// terminated by a zero size byte.
	memory[propTableAddr] = 0 // name length in words
	memory[propTableAddr+1] = (0 << 5) | 6
	memory[propTableAddr+2] = 0x85
	memory[propTableAddr+3] = 0

	return zcore.LoadCore(memory)
}

// buildV3StoryObjects constructs a v3 story with count disjoint objects
// (ids 1..count), each with its own minimal property table and no tree
// relationships set up yet, so tests can exercise insert_obj/remove_obj
// tree surgery directly through GetObject/MoveObject/RemoveObject.
func buildV3StoryObjects(t *testing.T, count int) *zcore.Core {
	t.Helper()

	memory := make([]uint8, 0x400)
	memory[0x00] = 3 // version
	objectTableBase := uint16(0x40)
	memory[0x0a] = uint8(objectTableBase >> 8)
	memory[0x0b] = uint8(objectTableBase)
	memory[0x0e] = 0x03 // static memory base, high byte
	memory[0x0f] = 0x00

	for i := 0; i < count; i++ {
		objBase := uint32(objectTableBase) + 31*2 + uint32(i)*9
		propTableAddr := uint32(0x200) + uint32(i)*0x10
		memory[objBase+7] = uint8(propTableAddr >> 8)
		memory[objBase+8] = uint8(propTableAddr)

		memory[propTableAddr] = 0 // name length in words
		memory[propTableAddr+1] = 0 // no properties, terminated immediately
	}

	return zcore.LoadCore(memory)
}

func TestObjectTreeInsertAndRemove(t *testing.T) {
	core := buildV3StoryObjects(t, 3)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	room, err := zobject.GetObject(1, core, alphabets)
	require.NoError(t, err)
	first, err := zobject.GetObject(2, core, alphabets)
	require.NoError(t, err)
	second, err := zobject.GetObject(3, core, alphabets)
	require.NoError(t, err)

	require.NoError(t, zobject.MoveObject(first, room, core, alphabets))
	require.Equal(t, uint16(2), room.Child)
	require.Equal(t, uint16(1), first.Parent)

	require.NoError(t, zobject.MoveObject(second, room, core, alphabets))
	require.Equal(t, uint16(3), room.Child)
	require.Equal(t, uint16(1), second.Parent)

	// second was inserted as the new first child, so its sibling link now
	// points at first (object 2), which is re-read before being removed.
	first, err = zobject.GetObject(2, core, alphabets)
	require.NoError(t, err)
	require.Equal(t, uint16(2), second.Sibling)

	// Removing the end of the chain (object 2, a sibling rather than
	// room's direct child) must relink its predecessor's sibling pointer.
	require.NoError(t, zobject.RemoveObject(first, core, alphabets))
	require.Equal(t, uint16(0), first.Parent)

	second, err = zobject.GetObject(3, core, alphabets)
	require.NoError(t, err)
	require.Equal(t, uint16(0), second.Sibling)

	// Removing the remaining child relinks room's own child pointer.
	require.NoError(t, zobject.RemoveObject(second, core, alphabets))
	room, err = zobject.GetObject(1, core, alphabets)
	require.NoError(t, err)
	require.Equal(t, uint16(0), room.Child)
}

func TestGetObjectZeroIsBadObject(t *testing.T) {
	core := buildV3Story(t)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	_, err := zobject.GetObject(0, core, alphabets)
	require.Error(t, err)
}

func TestAttributesSetClear(t *testing.T) {
	core := buildV3Story(t)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	obj, err := zobject.GetObject(1, core, alphabets)
	require.NoError(t, err)
	require.False(t, obj.TestAttribute(10))

	require.NoError(t, obj.SetAttribute(10, core))
	require.True(t, obj.TestAttribute(10))

	require.NoError(t, obj.ClearAttribute(10, core))
	require.False(t, obj.TestAttribute(10))
}

func TestPropertyRetrieval(t *testing.T) {
	core := buildV3Story(t)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	obj, err := zobject.GetObject(1, core, alphabets)
	require.NoError(t, err)

	prop, data, err := obj.GetProperty(6, core)
	require.NoError(t, err)
	require.Equal(t, uint8(1), prop.Length)
	require.Equal(t, uint8(0x85), data[0])

	// Non-existent property falls back to the object-table default entry.
	_, data, err = obj.GetProperty(1, core)
	require.NoError(t, err)
	require.Len(t, data, 2)
}

func TestSetPropertyRoundTrip(t *testing.T) {
	core := buildV3Story(t)
	alphabets := zstring.LoadAlphabets(core.Version, core)

	obj, err := zobject.GetObject(1, core, alphabets)
	require.NoError(t, err)

	require.NoError(t, obj.SetProperty(6, 0x42, core))
	_, data, err := obj.GetProperty(6, core)
	require.NoError(t, err)
	require.Equal(t, uint8(0x42), data[0])
}
