package template

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

type listMode int

const (
	listCounted    listMode = iota // OCNT/ZCNT/BCNT/WCNT/LCNT + LSTC
	listToEnd                      // LSTB, entries until the data runs out
	listZeroTerm                   // LSTZ, entries until a zero byte
)

// ListEntryElement groups one repetition of a list body so the tree
// walker sees each entry as a single node.
type ListEntryElement struct {
	base
	elements []Element
}

func (e *ListEntryElement) ReadData(r *utils.Reader) error { return readElements(e.elements, r) }
func (e *ListEntryElement) WriteData(w *utils.Writer) error { return writeElements(e.elements, w) }

func (e *ListEntryElement) Value() interface{} { return nil }
func (e *ListEntryElement) SubElementCount() int { return len(e.elements) }
func (e *ListEntryElement) SubElement(i int) Element { return e.elements[i] }

func (e *ListEntryElement) Clone() Element {
	c := *e
	c.elements = cloneElements(e.elements)
	return &c
}

// ListElement holds a repeated run of its prototype body. Counted lists
// own their preceding count field and serialize it from the entry count,
// so the count can never disagree with the data.
type ListElement struct {
	mode       listMode
	countWidth int
	zeroBased  bool // ZCNT stores count-1 with uint16 wraparound

	base
	proto   []Element
	entries []*ListEntryElement
}

func newListElement(tag, label string, proto []Element) *ListElement {
	e := &ListElement{base: base{tag: tag, label: label}, proto: proto}
	switch tag {
	case "OCNT", "WCNT":
		e.mode, e.countWidth = listCounted, 2
	case "ZCNT":
		e.mode, e.countWidth, e.zeroBased = listCounted, 2, true
	case "BCNT":
		e.mode, e.countWidth = listCounted, 1
	case "LCNT":
		e.mode, e.countWidth = listCounted, 4
	case "LSTB":
		e.mode = listToEnd
	case "LSTZ":
		e.mode = listZeroTerm
	}
	return e
}

func (e *ListElement) newEntry(i int) *ListEntryElement {
	return &ListEntryElement{
		base:     base{tag: "LSTC", label: fmt.Sprintf("%d)", i+1)},
		elements: cloneElements(e.proto),
	}
}

func (e *ListElement) ReadData(r *utils.Reader) error {
	e.entries = e.entries[:0]

	switch e.mode {
	case listCounted:
		stored, err := r.ReadUint(e.countWidth)
		if err != nil {
			return err
		}
		count := stored
		if e.zeroBased {
			count = (stored + 1) & widthMask(e.countWidth)
		}
		for i := uint64(0); i < count; i++ {
			entry := e.newEntry(int(i))
			if err := entry.ReadData(r); err != nil {
				return errors.Wrapf(err, "list %q entry %d of %d", e.label, i+1, count)
			}
			e.entries = append(e.entries, entry)
		}
	case listToEnd:
		for r.Remaining() > 0 {
			entry := e.newEntry(len(e.entries))
			if err := entry.ReadData(r); err != nil {
				return errors.Wrapf(err, "list %q entry %d", e.label, len(e.entries)+1)
			}
			e.entries = append(e.entries, entry)
		}
	case listZeroTerm:
		for {
			if r.Remaining() == 0 {
				break
			}
			pos := r.Position()
			b, err := r.ReadU8()
			if err != nil {
				return err
			}
			if b == 0 {
				break
			}
			if err := r.SetPosition(pos); err != nil {
				return err
			}
			entry := e.newEntry(len(e.entries))
			if err := entry.ReadData(r); err != nil {
				return errors.Wrapf(err, "list %q entry %d", e.label, len(e.entries)+1)
			}
			e.entries = append(e.entries, entry)
		}
	}
	return nil
}

func (e *ListElement) WriteData(w *utils.Writer) error {
	if e.mode == listCounted {
		stored := uint64(len(e.entries))
		if e.zeroBased {
			stored = (stored - 1) & widthMask(e.countWidth)
		}
		if err := w.WriteUint(stored, e.countWidth); err != nil {
			return errors.Wrapf(err, "list %q count", e.label)
		}
	}
	for i, entry := range e.entries {
		if err := entry.WriteData(w); err != nil {
			return errors.Wrapf(err, "list %q entry %d", e.label, i+1)
		}
	}
	if e.mode == listZeroTerm {
		w.WriteU8(0)
	}
	return nil
}

func (e *ListElement) Value() interface{} { return len(e.entries) }
func (e *ListElement) SubElementCount() int { return len(e.entries) }
func (e *ListElement) SubElement(i int) Element { return e.entries[i] }

func (e *ListElement) EntryCount() int { return len(e.entries) }

func (e *ListElement) Entry(i int) *ListEntryElement { return e.entries[i] }

func (e *ListElement) AddEntry() *ListEntryElement {
	entry := e.newEntry(len(e.entries))
	e.entries = append(e.entries, entry)
	return entry
}

func (e *ListElement) RemoveEntry(i int) {
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	for j, entry := range e.entries {
		entry.label = fmt.Sprintf("%d)", j+1)
	}
}

func (e *ListElement) Clone() Element {
	c := *e
	c.entries = make([]*ListEntryElement, len(e.entries))
	for i, entry := range e.entries {
		c.entries[i] = entry.Clone().(*ListEntryElement)
	}
	return &c
}
