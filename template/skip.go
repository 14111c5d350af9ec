package template

import (
	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// SectionElement is the length-delimited section family. BSKP/SKIP/LSKP
// carry a 1/2/4-byte length that counts the length field itself;
// BSIZ/WSIZ/LSIZ count only the content. Sub-elements are declared between
// the opening tag and the matching SKPE.
//
// Reading constructs a bounded sub-cursor over exactly the declared
// content bytes so nested elements can never escape the section. A
// declared length past the end of input still gets a best-effort decode
// against a zero-padded region before the truncation is reported.
type SectionElement struct {
	base
	width        int
	selfIncluded bool
	elements     []Element

	// Byte length measured during WriteData and backpatched into the
	// length field; -1 while not yet computed.
	measured int64
}

func (e *SectionElement) ReadData(r *utils.Reader) error {
	length, err := r.ReadUint(e.width)
	if err != nil {
		return err
	}
	content := int64(length)
	if e.selfIncluded {
		content -= int64(e.width)
	}
	if content < 0 {
		return errors.Errorf("%s %q: declared length %d smaller than the length field", e.tag, e.label, length)
	}

	sub, truncated := r.SubReaderPadded(int(content))
	if err := readElements(e.elements, sub); err != nil {
		return err
	}
	if truncated {
		return errors.Wrapf(utils.ErrInsufficientData,
			"%s %q: section of %d bytes extends past end of data", e.tag, e.label, content)
	}
	return nil
}

func (e *SectionElement) WriteData(w *utils.Writer) error {
	e.measured = -1
	lengthPos := w.Position()
	w.Advance(e.width) // placeholder until the content size is known

	start := w.Position()
	if err := writeElements(e.elements, w); err != nil {
		return err
	}
	e.measured = int64(w.Position() - start)

	total := e.measured
	if e.selfIncluded {
		total += int64(e.width)
	}
	return w.WriteUintAt(uint64(total), e.width, lengthPos)
}

func (e *SectionElement) Value() interface{} { return nil }

func (e *SectionElement) SubElementCount() int { return len(e.elements) }
func (e *SectionElement) SubElement(i int) Element { return e.elements[i] }

func (e *SectionElement) Clone() Element {
	c := *e
	c.elements = cloneElements(e.elements)
	c.measured = -1
	return &c
}

func newSectionElement(tag, label string, elements []Element) *SectionElement {
	e := &SectionElement{
		base:     base{tag: tag, label: label},
		elements: elements,
		measured: -1,
	}
	switch tag {
	case "BSKP":
		e.width, e.selfIncluded = 1, true
	case "SKIP", "WSKP":
		e.width, e.selfIncluded = 2, true
	case "LSKP":
		e.width, e.selfIncluded = 4, true
	case "BSIZ":
		e.width = 1
	case "WSIZ":
		e.width = 2
	case "LSIZ":
		e.width = 4
	}
	return e
}
