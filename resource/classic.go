package resource

import (
	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// Classic resource fork layout, per Inside Macintosh: Resource Manager.
//
//	0x00  u32  offset to resource data (always 0x100)
//	0x04  u32  offset to resource map
//	0x08  u32  length of resource data
//	0x0c  u32  length of resource map
//	0x10  [240]byte reserved for system use
//
// Data section: per resource, u32 length followed by payload bytes.
// Map: 22 reserved bytes, u16 file attributes, u16 type list offset and
// u16 name list offset (both from map start). The type list starts with a
// count-minus-one word; each 8-byte entry is type code, count-minus-one,
// and reference list offset from the type list start. Each 12-byte
// reference is id, name offset (0xffff if unnamed), attribute byte, a
// 24-bit data offset and 4 reserved bytes. Names are pascal strings.

const (
	classicDataOffset    = 0x100
	classicMapHeaderSize = 28
	classicNoName        = 0xffff
)

func readClassic(b []byte) (*File, error) {
	r := utils.NewReader(b)

	dataOffset, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	mapOffset, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	dataLength, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	mapLength, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	if int64(dataOffset)+int64(dataLength) > int64(len(b)) ||
		int64(mapOffset)+int64(mapLength) > int64(len(b)) ||
		mapLength < classicMapHeaderSize+2 {
		return nil, errors.Errorf("inconsistent header (data 0x%x+0x%x, map 0x%x+0x%x, file 0x%x)",
			dataOffset, dataLength, mapOffset, mapLength, len(b))
	}

	f := New(Classic)

	mapStart := int(mapOffset)
	if err := r.SetPosition(mapStart + 24); err != nil {
		return nil, err
	}
	typeListOff, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nameListOff, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	typeListStart := mapStart + int(typeListOff)
	nameListStart := mapStart + int(nameListOff)

	if err := r.SetPosition(typeListStart); err != nil {
		return nil, err
	}
	nTypesWord, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nTypes := int(nTypesWord + 1) // count-minus-one word; 0xffff wraps to 0

	for i := 0; i < nTypes; i++ {
		if err := r.SetPosition(typeListStart + 2 + i*8); err != nil {
			return nil, err
		}
		typeBytes, err := r.ReadData(4)
		if err != nil {
			return nil, err
		}
		var t TypeCode
		copy(t[:], typeBytes)
		nResWord, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		refListOff, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		nRes := int(nResWord + 1)

		for j := 0; j < nRes; j++ {
			if err := r.SetPosition(typeListStart + int(refListOff) + j*12); err != nil {
				return nil, err
			}
			res, err := readClassicRef(r, b, t, int(dataOffset), nameListStart)
			if err != nil {
				return nil, err
			}
			if err := f.Add(res); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func readClassicRef(r *utils.Reader, b []byte, t TypeCode, dataStart, nameListStart int) (*Resource, error) {
	id, err := r.ReadI16()
	if err != nil {
		return nil, err
	}
	nameOff, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	attrByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	off24, err := r.ReadUint(3)
	if err != nil {
		return nil, err
	}
	attrs := Attributes(attrByte)
	dataOff := int(off24)

	res := &Resource{Type: t, ID: int(id), Attributes: attrs}

	// Payload and name are reached by absolute offsets; the sequential
	// position stays on the reference list.
	r.PushPosition()
	defer r.PopPosition()

	if err := r.SetPosition(dataStart + dataOff); err != nil {
		return nil, err
	}
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadData(int(length))
	if err != nil {
		return nil, err
	}
	res.Data = append([]byte(nil), data...)

	if nameOff != classicNoName {
		if err := r.SetPosition(nameListStart + int(nameOff)); err != nil {
			return nil, err
		}
		name, err := r.ReadPString()
		if err != nil {
			return nil, err
		}
		res.Name = utils.DecodeText(name)
	}
	return res, nil
}

func (f *File) writeClassic() ([]byte, error) {
	w := utils.NewWriter()

	// Header is backpatched once the section sizes are known.
	w.Advance(classicDataOffset)

	dataOffsets := make(map[*Resource]int)
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			off := w.Position() - classicDataOffset
			if off > 0xffffff {
				return nil, errors.Wrapf(ErrFileTooBig, "data offset 0x%x exceeds 24 bits", off)
			}
			dataOffsets[r] = off
			w.WriteU32(uint32(len(r.Data)))
			w.WriteData(r.Data)
		}
	}
	dataLength := w.Position() - classicDataOffset

	mapStart := w.Position()
	w.Advance(22) // reserved header copy, next map handle, file ref
	w.WriteU16(0) // file attributes
	typeListPatch := w.Position()
	w.Advance(4) // type list and name list offsets

	typeListStart := w.Position()
	nTypes := len(f.typeOrder)
	w.WriteU16(uint16(nTypes - 1))

	// Reference lists follow the fixed-size type entries directly.
	refOff := 2 + nTypes*8
	for _, t := range f.typeOrder {
		w.WriteData(t[:])
		w.WriteU16(uint16(len(f.resources[t]) - 1))
		w.WriteU16(uint16(refOff))
		refOff += len(f.resources[t]) * 12
	}

	nameOff := 0
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			w.WriteI16(int16(r.ID))
			if r.Name == "" {
				w.WriteU16(classicNoName)
			} else {
				w.WriteU16(uint16(nameOff))
				n := len(utils.EncodeText(r.Name))
				if n > 255 {
					n = 255
				}
				nameOff += n + 1
			}
			w.WriteU32(uint32(r.Attributes)<<24 | uint32(dataOffsets[r]))
			w.WriteU32(0)
		}
	}

	nameListStart := w.Position()
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			if r.Name != "" {
				w.WritePString(utils.EncodeText(r.Name))
			}
		}
	}

	mapLength := w.Len() - mapStart
	w.WriteU32At(classicDataOffset, 0)
	w.WriteU32At(uint32(mapStart), 4)
	w.WriteU32At(uint32(dataLength), 8)
	w.WriteU32At(uint32(mapLength), 12)
	w.WriteU16At(uint16(typeListStart-mapStart), typeListPatch)
	w.WriteU16At(uint16(nameListStart-mapStart), typeListPatch+2)

	return w.Bytes(), nil
}
