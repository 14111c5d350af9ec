package resource

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// Extended format: the classic structure with every width that limits big
// files opened up. Signature "RSRX", 64-bit offsets and lengths, 32-bit
// ids, and a per-type attribute list that the classic map has no room for.
//
//	0x00  [4]byte "RSRX"
//	0x04  u32  format version (1)
//	0x08  u64  offset to resource data
//	0x10  u64  offset to resource map
//	0x18  u64  length of resource data
//	0x20  u64  length of resource map
//
// Data section: per resource, u64 length followed by payload. Map:
//
//	u16  file attributes
//	u32  number of types
//	per type (28 bytes): type code, u32 resource count,
//	     u64 reference list offset (from map start),
//	     u32 type attribute count, u64 type attribute offset
//	per reference (24 bytes): s32 id, u32 name offset (0xffffffff if
//	     unnamed), u8 attributes, 3 pad bytes, u64 data offset,
//	     4 reserved bytes
//
// Type attributes are key/value pascal string pairs; names are pascal
// strings as in classic.

const (
	extendedVersion = 1
	extendedNoName  = 0xffffffff
)

func readExtended(b []byte) (*File, error) {
	r := utils.NewReader(b)

	if err := r.Advance(4); err != nil { // signature checked by DetectFormat
		return nil, err
	}
	version, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if version != extendedVersion {
		return nil, errors.Wrapf(ErrUnsupported, "extended format version %d", version)
	}

	dataOffset, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	mapOffset, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	dataLength, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	mapLength, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	if dataOffset+dataLength > uint64(len(b)) || mapOffset+mapLength > uint64(len(b)) {
		return nil, errors.Errorf("inconsistent header (data 0x%x+0x%x, map 0x%x+0x%x, file 0x%x)",
			dataOffset, dataLength, mapOffset, mapLength, len(b))
	}

	f := New(Extended)
	mapStart := int(mapOffset)

	if err := r.SetPosition(mapStart); err != nil {
		return nil, err
	}
	if _, err := r.ReadU16(); err != nil { // file attributes
		return nil, err
	}
	nTypes, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	for i := 0; i < int(nTypes); i++ {
		if err := r.SetPosition(mapStart + 6 + i*28); err != nil {
			return nil, err
		}
		typeBytes, err := r.ReadData(4)
		if err != nil {
			return nil, err
		}
		var t TypeCode
		copy(t[:], typeBytes)
		nRes, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		refListOff, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		nAttrs, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		attrsOff, err := r.ReadU64()
		if err != nil {
			return nil, err
		}

		if nAttrs > 0 {
			attrs, err := readExtendedTypeAttrs(r, mapStart+int(attrsOff), int(nAttrs))
			if err != nil {
				return nil, err
			}
			f.TypeAttributes[t] = attrs
		}

		for j := 0; j < int(nRes); j++ {
			if err := r.SetPosition(mapStart + int(refListOff) + j*24); err != nil {
				return nil, err
			}
			res, err := readExtendedRef(r, t, int(dataOffset), mapStart)
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

func readExtendedTypeAttrs(r *utils.Reader, pos, n int) (map[string]string, error) {
	r.PushPosition()
	defer r.PopPosition()
	if err := r.SetPosition(pos); err != nil {
		return nil, err
	}
	attrs := make(map[string]string, n)
	for i := 0; i < n; i++ {
		key, err := r.ReadPString()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadPString()
		if err != nil {
			return nil, err
		}
		attrs[utils.DecodeText(key)] = utils.DecodeText(value)
	}
	return attrs, nil
}

func readExtendedRef(r *utils.Reader, t TypeCode, dataStart, mapStart int) (*Resource, error) {
	id, err := r.ReadI32()
	if err != nil {
		return nil, err
	}
	nameOff, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	attr, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if err := r.Advance(3); err != nil {
		return nil, err
	}
	dataOff, err := r.ReadU64()
	if err != nil {
		return nil, err
	}

	res := &Resource{Type: t, ID: int(id), Attributes: Attributes(attr)}

	r.PushPosition()
	defer r.PopPosition()

	if err := r.SetPosition(dataStart + int(dataOff)); err != nil {
		return nil, err
	}
	length, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	if length > math.MaxInt32 {
		return nil, errors.Errorf("resource %v %d implausibly large (0x%x)", t, id, length)
	}
	data, err := r.ReadData(int(length))
	if err != nil {
		return nil, err
	}
	res.Data = append([]byte(nil), data...)

	if nameOff != extendedNoName {
		if err := r.SetPosition(mapStart + int(nameOff)); err != nil {
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

func (f *File) writeExtended() ([]byte, error) {
	w := utils.NewWriter()

	w.WriteData(extendedSignature[:])
	w.WriteU32(extendedVersion)
	w.Advance(32) // offsets and lengths, backpatched below

	dataStart := w.Position()
	dataOffsets := make(map[*Resource]int)
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			dataOffsets[r] = w.Position() - dataStart
			w.WriteU64(uint64(len(r.Data)))
			w.WriteData(r.Data)
		}
	}
	dataLength := w.Position() - dataStart

	mapStart := w.Position()
	w.WriteU16(0) // file attributes
	w.WriteU32(uint32(len(f.typeOrder)))

	typeEntryStart := w.Position()
	w.Advance(len(f.typeOrder) * 28)

	refOffsets := make(map[TypeCode]int)
	for _, t := range f.typeOrder {
		refOffsets[t] = w.Position() - mapStart
		w.Advance(len(f.resources[t]) * 24)
	}

	// Names and type attributes share the tail of the map.
	nameOffsets := make(map[*Resource]uint32)
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			if r.Name == "" {
				nameOffsets[r] = extendedNoName
				continue
			}
			nameOffsets[r] = uint32(w.Position() - mapStart)
			w.WritePString(utils.EncodeText(r.Name))
		}
	}

	attrOffsets := make(map[TypeCode]int)
	for _, t := range f.typeOrder {
		attrs := f.TypeAttributes[t]
		if len(attrs) == 0 {
			continue
		}
		attrOffsets[t] = w.Position() - mapStart
		for _, k := range sortedKeys(attrs) {
			w.WritePString(utils.EncodeText(k))
			w.WritePString(utils.EncodeText(attrs[k]))
		}
	}
	mapLength := w.Len() - mapStart

	for i, t := range f.typeOrder {
		pos := typeEntryStart + i*28
		copy(w.Bytes()[pos:pos+4], t[:])
		w.WriteU32At(uint32(len(f.resources[t])), pos+4)
		w.WriteU64At(uint64(refOffsets[t]), pos+8)
		w.WriteU32At(uint32(len(f.TypeAttributes[t])), pos+16)
		w.WriteU64At(uint64(attrOffsets[t]), pos+20)
	}

	for _, t := range f.typeOrder {
		pos := mapStart + refOffsets[t]
		for _, r := range f.resources[t] {
			w.WriteU32At(uint32(int32(r.ID)), pos)
			w.WriteU32At(nameOffsets[r], pos+4)
			w.WriteU8At(uint8(r.Attributes), pos+8)
			w.WriteU64At(uint64(dataOffsets[r]), pos+12)
			pos += 24
		}
	}

	w.WriteU64At(uint64(dataStart), 8)
	w.WriteU64At(uint64(mapStart), 16)
	w.WriteU64At(uint64(dataLength), 24)
	w.WriteU64At(uint64(mapLength), 32)

	return w.Bytes(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
