package zobject

import (
	"github.com/haldor-if/zvm/zcore"
	"github.com/haldor-if/zvm/zerr"
)

// Property is a decoded view of one property-table entry.
type Property struct {
	Id                   uint8
	Length               uint8
	DataAddress          uint32
	PropertyHeaderLength uint8
	Address              uint32
}

// GetPropertyLength works backwards from the address of a property's first
// data byte (as given to `get_prop_len`) to the length encoded in the byte
// (or two bytes, v4+) immediately before it.
func GetPropertyLength(core *zcore.Core, dataAddr uint32) uint8 {
	if dataAddr == 0 {
		return 0 // required by some story files that call get_prop_len(0)
	}

	prevByte, err := core.Byte(dataAddr - 1)
	if err != nil {
		return 0
	}

	if core.Version <= 3 {
		return (prevByte >> 5) + 1
	}
	if prevByte&0b1000_0000 != 0 {
		length := prevByte & 0b11_1111
		if length == 0 {
			return 64
		}
		return length
	}
	return ((prevByte >> 6) & 1) + 1
}

func (o *Object) propertyTableStart(core *zcore.Core) (uint32, error) {
	nameLength, err := core.Byte(uint32(o.PropertyPointer))
	if err != nil {
		return 0, err
	}
	return uint32(o.PropertyPointer) + 1 + uint32(nameLength)*2, nil
}

// GetPropertyByAddress decodes the property-table entry whose size byte (or
// bytes) begins at propertyAddr.
func (o *Object) GetPropertyByAddress(propertyAddr uint32, core *zcore.Core) (Property, error) {
	sizeByte, err := core.Byte(propertyAddr)
	if err != nil {
		return Property{}, err
	}

	var length, id, headerLength uint8
	if core.Version >= 4 {
		if sizeByte>>7 == 1 {
			secondByte, err := core.Byte(propertyAddr + 1)
			if err != nil {
				return Property{}, err
			}
			length = secondByte & 0b11_1111
			if length == 0 {
				length = 64
			}
			id = sizeByte & 0b11_1111
			headerLength = 2
		} else {
			length = ((sizeByte >> 6) & 1) + 1
			id = sizeByte & 0b11_1111
			headerLength = 1
		}
	} else {
		length = (sizeByte >> 5) + 1
		id = sizeByte & 0b1_1111
		headerLength = 1
	}

	return Property{
		Id:                   id,
		Length:               length,
		PropertyHeaderLength: headerLength,
		Address:              propertyAddr,
		DataAddress:          propertyAddr + uint32(headerLength),
	}, nil
}

// GetProperty scans the property table (descending id order) for propertyId,
// returning the decoded entry, or the object's default-table value if the
// property is absent (`get_prop`, §4.3).
func (o *Object) GetProperty(propertyId uint8, core *zcore.Core) (Property, []uint8, error) {
	ptr, err := o.propertyTableStart(core)
	if err != nil {
		return Property{}, nil, err
	}

	for {
		sizeByte, err := core.Byte(ptr)
		if err != nil {
			return Property{}, nil, err
		}
		if sizeByte == 0 {
			break
		}

		prop, err := o.GetPropertyByAddress(ptr, core)
		if err != nil {
			return Property{}, nil, err
		}
		if prop.Id == propertyId {
			data := core.Slice(prop.DataAddress, prop.DataAddress+uint32(prop.Length))
			return prop, data, nil
		}
		if prop.Id < propertyId {
			break // descending order: once we've passed it, it isn't present
		}

		ptr = prop.DataAddress + uint32(prop.Length)
	}

	defaultAddr := uint32(core.ObjectTableBase) + 2*uint32(propertyId-1)
	value, err := core.Word(defaultAddr)
	if err != nil {
		return Property{}, nil, err
	}
	return Property{Id: propertyId}, []uint8{uint8(value >> 8), uint8(value)}, nil
}

// GetPropertyAddress returns the address of propertyId's data, or zero if
// the object doesn't define it (`get_prop_addr`).
func (o *Object) GetPropertyAddress(propertyId uint8, core *zcore.Core) (uint32, error) {
	ptr, err := o.propertyTableStart(core)
	if err != nil {
		return 0, err
	}

	for {
		sizeByte, err := core.Byte(ptr)
		if err != nil {
			return 0, err
		}
		if sizeByte == 0 {
			return 0, nil
		}

		prop, err := o.GetPropertyByAddress(ptr, core)
		if err != nil {
			return 0, err
		}
		if prop.Id == propertyId {
			return prop.DataAddress, nil
		}
		if prop.Id < propertyId {
			return 0, nil
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}
}

// SetProperty writes a 1- or 2-byte property value in place (`put_prop`).
// Unlike GetProperty this has no default-table fallback: writing an
// undefined property is a fatal story-file error.
func (o *Object) SetProperty(propertyId uint8, value uint16, core *zcore.Core) error {
	ptr, err := o.propertyTableStart(core)
	if err != nil {
		return err
	}

	for {
		sizeByte, err := core.Byte(ptr)
		if err != nil {
			return err
		}
		if sizeByte == 0 {
			break
		}

		prop, err := o.GetPropertyByAddress(ptr, core)
		if err != nil {
			return err
		}
		if prop.Id == propertyId {
			switch prop.Length {
			case 1:
				return core.SetByte(prop.DataAddress, uint8(value))
			case 2:
				return core.SetWord(prop.DataAddress, value)
			default:
				return zerr.New(zerr.BadObject, "put_prop on object %d property %d has invalid length %d", o.Id, propertyId, prop.Length)
			}
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}

	return zerr.New(zerr.BadObject, "put_prop: object %d has no property %d", o.Id, propertyId)
}

// GetNextProperty returns the id of the property following propertyId, or
// the first property if propertyId is zero, or zero if there is none
// (`get_next_prop`).
func (o *Object) GetNextProperty(propertyId uint8, core *zcore.Core) (uint8, error) {
	ptr, err := o.propertyTableStart(core)
	if err != nil {
		return 0, err
	}

	if propertyId == 0 {
		sizeByte, err := core.Byte(ptr)
		if err != nil {
			return 0, err
		}
		if sizeByte == 0 {
			return 0, nil
		}
		prop, err := o.GetPropertyByAddress(ptr, core)
		if err != nil {
			return 0, err
		}
		return prop.Id, nil
	}

	for {
		sizeByte, err := core.Byte(ptr)
		if err != nil {
			return 0, err
		}
		if sizeByte == 0 {
			return 0, zerr.New(zerr.BadObject, "get_next_prop: object %d has no property %d", o.Id, propertyId)
		}

		prop, err := o.GetPropertyByAddress(ptr, core)
		if err != nil {
			return 0, err
		}
		next := prop.DataAddress + uint32(prop.Length)
		if prop.Id == propertyId {
			nextSizeByte, err := core.Byte(next)
			if err != nil {
				return 0, err
			}
			if nextSizeByte == 0 {
				return 0, nil
			}
			nextProp, err := o.GetPropertyByAddress(next, core)
			if err != nil {
				return 0, err
			}
			return nextProp.Id, nil
		}
		ptr = next
	}
}
