package resource

import (
	"math"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// Rez format, as written by the Windows-era tooling the Nova games used.
// The index is little-endian and type codes are stored byte-reversed:
// the original tool treated the four characters as a little-endian u32.
// Both quirks are preserved for compatibility, not corrected.
//
//	0x00  [4]byte "BRGR"
//	0x04  u32le  format version (1)
//	0x08  u32le  offset to index
//	0x0c  u32le  index length
//
// Payloads follow the header back to back. The index, all little-endian:
//
//	u32  entry count
//	per entry (272 bytes): u32 data offset, u32 data length,
//	     reversed type code, s16 id, 2 pad bytes,
//	     zero-terminated name in a fixed 256-byte field
//
// Ids are 16-bit like classic. There is no room for type attributes.

const (
	rezVersion   = 1
	rezEntrySize = 272
	rezNameSize  = 256
)

func readRez(b []byte) (*File, error) {
	r := utils.NewLittleEndianReader(b)

	if err := r.Advance(4); err != nil {
		return nil, err
	}
	version, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if version != rezVersion {
		return nil, errors.Wrapf(ErrUnsupported, "rez format version %d", version)
	}
	indexOffset, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	indexLength, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(indexOffset)+uint64(indexLength) > uint64(len(b)) {
		return nil, errors.Errorf("inconsistent index (0x%x+0x%x, file 0x%x)",
			indexOffset, indexLength, len(b))
	}

	if err := r.SetPosition(int(indexOffset)); err != nil {
		return nil, err
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if 4+uint64(count)*rezEntrySize > uint64(indexLength) {
		return nil, errors.Errorf("index too short for %d entries", count)
	}

	f := New(Rez)
	for i := 0; i < int(count); i++ {
		dataOff, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		dataLen, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		typeBytes, err := r.ReadData(4)
		if err != nil {
			return nil, err
		}
		var t TypeCode
		t[0], t[1], t[2], t[3] = typeBytes[3], typeBytes[2], typeBytes[1], typeBytes[0]
		id, err := r.ReadI16()
		if err != nil {
			return nil, err
		}
		if err := r.Advance(2); err != nil {
			return nil, err
		}
		name, err := r.ReadData(rezNameSize)
		if err != nil {
			return nil, err
		}

		if uint64(dataOff)+uint64(dataLen) > uint64(len(b)) {
			return nil, errors.Errorf("entry %d data outside file (0x%x+0x%x)", i, dataOff, dataLen)
		}
		res := &Resource{
			Type: t,
			ID:   int(id),
			Name: utils.DecodeTextZ(name),
			Data: append([]byte(nil), b[dataOff:dataOff+dataLen]...),
		}
		if err := f.Add(res); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *File) writeRez() ([]byte, error) {
	w := utils.NewLittleEndianWriter()

	w.WriteData(rezSignature[:])
	w.WriteU32(rezVersion)
	w.Advance(8) // index offset and length, backpatched

	dataOffsets := make(map[*Resource]int)
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			if int64(w.Position())+int64(len(r.Data)) > math.MaxUint32 {
				return nil, errors.Wrapf(ErrFileTooBig, "data offset exceeds 32 bits")
			}
			dataOffsets[r] = w.Position()
			w.WriteData(r.Data)
		}
	}

	indexStart := w.Position()
	w.WriteU32(uint32(f.Count()))
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			w.WriteU32(uint32(dataOffsets[r]))
			w.WriteU32(uint32(len(r.Data)))
			w.WriteData([]byte{t[3], t[2], t[1], t[0]})
			w.WriteI16(int16(r.ID))
			w.WriteU16(0)
			name := utils.EncodeTextBuffer(r.Name, rezNameSize)
			name[rezNameSize-1] = 0 // field is always terminated
			w.WriteData(name)
		}
	}

	w.WriteU32At(uint32(indexStart), 8)
	w.WriteU32At(uint32(w.Len()-indexStart), 12)
	return w.Bytes(), nil
}
