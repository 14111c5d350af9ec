package template

import (
	"github.com/rsrcutils/rsrcbrowser/utils"
)

// Element is one field or nested section of a template-driven record.
// Decoding mutates the element, so a Template clones its prototype tree
// for every Decode; independent decodes never share elements.
type Element interface {
	Tag() string
	Label() string

	// ReadData decodes the element's wire form from the cursor, and
	// WriteData produces it again. The pair is a lossless round-trip.
	ReadData(r *utils.Reader) error
	WriteData(w *utils.Writer) error

	// Value returns a display/JSON-friendly view of the decoded value,
	// nil for elements that carry no data of their own.
	Value() interface{}

	SubElementCount() int
	SubElement(i int) Element

	Clone() Element
}

type base struct {
	tag   string
	label string
}

func (b base) Tag() string { return b.tag }
func (b base) Label() string { return b.label }

func (b base) SubElementCount() int { return 0 }
func (b base) SubElement(i int) Element { panic("element has no sub-elements") }

func cloneElements(elems []Element) []Element {
	out := make([]Element, len(elems))
	for i, e := range elems {
		out[i] = e.Clone()
	}
	return out
}

func readElements(elems []Element, r *utils.Reader) error {
	for _, e := range elems {
		if err := e.ReadData(r); err != nil {
			return err
		}
	}
	return nil
}

func writeElements(elems []Element, w *utils.Writer) error {
	for _, e := range elems {
		if err := e.WriteData(w); err != nil {
			return err
		}
	}
	return nil
}
