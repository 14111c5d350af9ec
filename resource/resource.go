package resource

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// TypeCode is a 4-character resource type code, e.g. 'TMPL' or 'PICT'.
// The bytes are legacy single-byte text, not necessarily ASCII.
type TypeCode [4]byte

func TypeFromString(s string) TypeCode {
	var t TypeCode
	copy(t[:], utils.EncodeTextBuffer(s, 4))
	return t
}

func (t TypeCode) String() string {
	return utils.DecodeText(t[:])
}

func (t TypeCode) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Attributes is the classic Resource Manager attribute bitmask.
type Attributes uint8

const (
	AttrChanged   Attributes = 2
	AttrPreload   Attributes = 4
	AttrProtected Attributes = 8
	AttrLocked    Attributes = 16
	AttrPurgeable Attributes = 32
	AttrSysHeap   Attributes = 64
)

func (a Attributes) Has(flag Attributes) bool { return a&flag == flag }

func (a Attributes) String() string {
	names := []struct {
		flag Attributes
		name string
	}{
		{AttrChanged, "changed"},
		{AttrPreload, "preload"},
		{AttrProtected, "protected"},
		{AttrLocked, "locked"},
		{AttrPurgeable, "purgeable"},
		{AttrSysHeap, "sysheap"},
	}
	s := ""
	for _, n := range names {
		if a.Has(n.flag) {
			if s != "" {
				s += ","
			}
			s += n.name
		}
	}
	return s
}

// Resource is one typed, identified payload within a container file. Data
// is the single source of truth between edits; decoders borrow it and
// encoders replace it.
type Resource struct {
	Type       TypeCode
	ID         int
	Name       string
	Attributes Attributes
	Data       []byte
}

// File is an in-memory resource container: type code to ordered list of
// resources. No two resources share (type, id).
type File struct {
	Format Format

	// TypeAttributes holds per-type key/value metadata. Only the extended
	// format can serialize it.
	TypeAttributes map[TypeCode]map[string]string

	resources map[TypeCode][]*Resource
	typeOrder []TypeCode
}

func New(format Format) *File {
	return &File{
		Format:         format,
		TypeAttributes: make(map[TypeCode]map[string]string),
		resources:      make(map[TypeCode][]*Resource),
	}
}

func (f *File) Add(r *Resource) error {
	if f.Resource(r.Type, r.ID) != nil {
		return errors.Errorf("duplicate resource %v %d", r.Type, r.ID)
	}
	if _, ok := f.resources[r.Type]; !ok {
		f.typeOrder = append(f.typeOrder, r.Type)
	}
	f.resources[r.Type] = append(f.resources[r.Type], r)
	return nil
}

// AddUnique adds r after assigning it the lowest free non-negative id of
// its type, starting at 128 as the editors traditionally do.
func (f *File) AddUnique(r *Resource) {
	id := 128
	for f.Resource(r.Type, id) != nil {
		id++
	}
	r.ID = id
	if err := f.Add(r); err != nil {
		panic(err)
	}
}

func (f *File) Remove(t TypeCode, id int) bool {
	list := f.resources[t]
	for i, r := range list {
		if r.ID == id {
			f.resources[t] = append(list[:i], list[i+1:]...)
			if len(f.resources[t]) == 0 {
				delete(f.resources, t)
				for j, ot := range f.typeOrder {
					if ot == t {
						f.typeOrder = append(f.typeOrder[:j], f.typeOrder[j+1:]...)
						break
					}
				}
			}
			return true
		}
	}
	return false
}

// Resource finds a resource by type and id, or nil. This is also the
// lookup service template decoding uses for cross-resource references.
func (f *File) Resource(t TypeCode, id int) *Resource {
	for _, r := range f.resources[t] {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// ResourcesOfType returns the resources of one type in file order. The
// returned slice is shared; callers must not reorder it.
func (f *File) ResourcesOfType(t TypeCode) []*Resource {
	return f.resources[t]
}

// Types returns the type codes in file order.
func (f *File) Types() []TypeCode {
	out := make([]TypeCode, len(f.typeOrder))
	copy(out, f.typeOrder)
	return out
}

// TypesSorted returns the type codes ordered by their display string.
func (f *File) TypesSorted() []TypeCode {
	out := f.Types()
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func (f *File) Count() int {
	n := 0
	for _, list := range f.resources {
		n += len(list)
	}
	return n
}
