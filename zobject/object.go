// Package zobject implements the Z-machine object tree: attribute
// bit-vectors, parent/sibling/child relationships and property tables.
package zobject

import (
	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zerr"
	"github.com/haldor-if/zvm/zstring"
)

// Object is a decoded view of one object-tree entry. Attributes is stored
// left-justified in a uint64: the top 32 bits hold attributes 0-31 (all
// versions), the next 16 bits hold attributes 32-47 (v4+ only).
type Object struct {
	BaseAddress     uint32
	Id              uint16
	Name            string
	Attributes      uint64
	Parent          uint16
	Sibling         uint16
	Child           uint16
	PropertyPointer uint16
}

// GetObject decodes the object-tree record for objId. Object 0 and ids past
// the end of the table are reported as BadObject rather than panicking,
// since the standard interpreter behaviour is to log a warning and proceed
// (spec's error-handling design for non-fatal object faults).
func GetObject(objId uint16, core *zcore.Core, alphabets *zstring.Alphabets) (*Object, error) {
	if objId == 0 {
		return nil, zerr.New(zerr.BadObject, "object 0 does not exist")
	}

	version := core.Version
	memory := core.Slice(0, core.MemoryLength())

	if version >= 4 {
		objectBase := uint32(core.ObjectTableBase) + 63*2 + uint32(objId-1)*14
		if objectBase+14 > core.MemoryLength() {
			return nil, zerr.New(zerr.BadObject, "object %d out of range", objId)
		}
		propertyPtr := be16(memory, objectBase+12)
		name := decodeShortName(memory, propertyPtr, version, alphabets, core.AbbreviationTableBase)

		attrs := (be64(memory, objectBase) >> 16) << 16
		return &Object{
			Id:              objId,
			Name:            name,
			Attributes:      attrs,
			Parent:          be16(memory, objectBase+6),
			Sibling:         be16(memory, objectBase+8),
			Child:           be16(memory, objectBase+10),
			PropertyPointer: propertyPtr,
			BaseAddress:     objectBase,
		}, nil
	}

	objectBase := uint32(core.ObjectTableBase) + 31*2 + uint32(objId-1)*9
	if objectBase+9 > core.MemoryLength() {
		return nil, zerr.New(zerr.BadObject, "object %d out of range", objId)
	}
	propertyPtr := be16(memory, objectBase+7)
	name := decodeShortName(memory, propertyPtr, version, alphabets, core.AbbreviationTableBase)

	attrs := (be64(memory, objectBase) >> 32) << 32
	return &Object{
		Id:              objId,
		Name:            name,
		Attributes:      attrs,
		Parent:          uint16(memory[objectBase+4]),
		Sibling:         uint16(memory[objectBase+5]),
		Child:           uint16(memory[objectBase+6]),
		PropertyPointer: propertyPtr,
		BaseAddress:     objectBase,
	}, nil
}

func decodeShortName(memory []uint8, propertyPtr uint16, version uint8, alphabets *zstring.Alphabets, abbrevTableBase uint16) string {
	if int(propertyPtr) >= len(memory) {
		return ""
	}
	nameLength := memory[propertyPtr]
	if nameLength == 0 {
		return "" // no name words: the property list starts right after
	}
	name, _ := zstring.Decode(memory, uint32(propertyPtr)+1, version, alphabets, abbrevTableBase)
	// name length is in words, but Decode stops at the high-bit word itself
	return name
}

func be16(memory []uint8, addr uint32) uint16 {
	return uint16(memory[addr])<<8 | uint16(memory[addr+1])
}

func be64(memory []uint8, addr uint32) uint64 {
	var v uint64
	for i := uint32(0); i < 8; i++ {
		v = v<<8 | uint64(memory[addr+i])
	}
	return v
}

func attrCount(version uint8) uint16 {
	if version >= 4 {
		return 48
	}
	return 32
}

// TestAttribute reports whether the given attribute bit is set.
func (o *Object) TestAttribute(attribute uint16) bool {
	mask := uint64(1) << (63 - attribute)
	return o.Attributes&mask == mask
}

// SetAttribute sets the given attribute bit and writes it back to memory.
func (o *Object) SetAttribute(attribute uint16, core *zcore.Core) error {
	if attribute >= attrCount(core.Version) {
		return zerr.New(zerr.BadObject, "attribute %d out of range for version %d", attribute, core.Version)
	}
	mask := uint64(1) << (63 - attribute)
	o.Attributes |= mask
	return o.writeAttributes(core)
}

// ClearAttribute clears the given attribute bit and writes it back to memory.
func (o *Object) ClearAttribute(attribute uint16, core *zcore.Core) error {
	if attribute >= attrCount(core.Version) {
		return zerr.New(zerr.BadObject, "attribute %d out of range for version %d", attribute, core.Version)
	}
	mask := uint64(1) << (63 - attribute)
	o.Attributes &= ^mask
	return o.writeAttributes(core)
}

func (o *Object) writeAttributes(core *zcore.Core) error {
	if err := core.SetWord(o.BaseAddress, uint16(o.Attributes>>48)); err != nil {
		return err
	}
	if err := core.SetWord(o.BaseAddress+2, uint16(o.Attributes>>32)); err != nil {
		return err
	}
	if core.Version >= 4 {
		if err := core.SetWord(o.BaseAddress+4, uint16(o.Attributes>>16)); err != nil {
			return err
		}
	}
	return nil
}

// SetParent sets the parent link and writes it back to memory.
func (o *Object) SetParent(parent uint16, core *zcore.Core) error {
	o.Parent = parent
	return o.writeRelative(core, 6, 4, parent)
}

// SetSibling sets the sibling link and writes it back to memory.
func (o *Object) SetSibling(sibling uint16, core *zcore.Core) error {
	o.Sibling = sibling
	return o.writeRelative(core, 8, 5, sibling)
}

// SetChild sets the child link and writes it back to memory.
func (o *Object) SetChild(child uint16, core *zcore.Core) error {
	o.Child = child
	return o.writeRelative(core, 10, 6, child)
}

func (o *Object) writeRelative(core *zcore.Core, v4Offset, v3Offset uint32, value uint16) error {
	if core.Version >= 4 {
		return core.SetWord(o.BaseAddress+v4Offset, value)
	}
	return core.SetByte(o.BaseAddress+v3Offset, uint8(value))
}

// RemoveObject detaches obj from its parent, relinking the parent's child
// pointer or the preceding sibling as needed (`remove_obj`, §4.3).
func RemoveObject(obj *Object, core *zcore.Core, alphabets *zstring.Alphabets) error {
	if obj.Parent == 0 {
		return nil
	}

	parent, err := GetObject(obj.Parent, core, alphabets)
	if err != nil {
		return err
	}

	if parent.Child == obj.Id {
		if err := parent.SetChild(obj.Sibling, core); err != nil {
			return err
		}
	} else {
		sibling, err := GetObject(parent.Child, core, alphabets)
		if err != nil {
			return err
		}
		for sibling.Sibling != obj.Id {
			sibling, err = GetObject(sibling.Sibling, core, alphabets)
			if err != nil {
				return err
			}
		}
		if err := sibling.SetSibling(obj.Sibling, core); err != nil {
			return err
		}
	}

	obj.Parent = 0
	obj.Sibling = 0
	return o0write(obj, core)
}

func o0write(obj *Object, core *zcore.Core) error {
	if err := obj.SetParent(0, core); err != nil {
		return err
	}
	return obj.SetSibling(0, core)
}

// MoveObject removes obj from its current parent (if any) and inserts it as
// the first child of destination (`insert_obj`, §4.3).
func MoveObject(obj *Object, destination *Object, core *zcore.Core, alphabets *zstring.Alphabets) error {
	if err := RemoveObject(obj, core, alphabets); err != nil {
		return err
	}

	// Removal may have rewritten destination's child link (when destination
	// was obj's parent), so take the current value from memory.
	current, err := GetObject(destination.Id, core, alphabets)
	if err != nil {
		return err
	}
	destination.Child = current.Child

	if err := obj.SetSibling(destination.Child, core); err != nil {
		return err
	}
	if err := obj.SetParent(destination.Id, core); err != nil {
		return err
	}
	return destination.SetChild(obj.Id, core)
}
