package template

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/status"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

type keyKind int

const (
	keyInt  keyKind = iota // KBYT/KWRD/KLNG, signed decimal discriminator
	keyChar                // KCHR, one character
	keyType                // KTYP, 4-character type code
)

// caseDef is one CASE line: "Name=value", or just "value" when the
// display name and the comparison value coincide.
type caseDef struct {
	name  string
	value string
}

func parseCase(label string) caseDef {
	if i := strings.LastIndex(label, "="); i >= 0 {
		return caseDef{name: label[:i], value: label[i+1:]}
	}
	return caseDef{name: label, value: label}
}

// KeyElement is the keyed-union discriminator. It reads one value, selects
// the CASE matching it and decodes only that case's KEYB section; the
// other sections stay untouched prototypes until selected. Exactly one
// section's sub-elements are exposed at any time.
type KeyElement struct {
	base
	kind     keyKind
	width    int
	cases    []caseDef
	sections map[string][]Element

	value   string
	current []Element
}

func newKeyElement(tag, label string) *KeyElement {
	e := &KeyElement{
		base:     base{tag: tag, label: label},
		sections: make(map[string][]Element),
	}
	switch tag {
	case "KBYT":
		e.kind, e.width = keyInt, 1
	case "KWRD":
		e.kind, e.width = keyInt, 2
	case "KLNG":
		e.kind, e.width = keyInt, 4
	case "KCHR":
		e.kind, e.width = keyChar, 1
	case "KTYP":
		e.kind, e.width = keyType, 4
	}
	return e
}

// caseValue resolves a KEYB label, which may name a case by its display
// name or by its comparison value, to the canonical case value.
func (e *KeyElement) caseValue(label string) string {
	for _, c := range e.cases {
		if c.name == label || c.value == label {
			return c.value
		}
	}
	return label
}

// checkSections warns once per CASE that has no KEYB to back it.
func (e *KeyElement) checkSections() {
	for _, c := range e.cases {
		if _, ok := e.sections[c.value]; !ok {
			status.Warning("template: CASE %q of key %q has no matching KEYB section", c.name, e.label)
		}
	}
	if len(e.sections) > len(e.cases) {
		status.Warning("template: key %q has %d KEYB sections for %d cases", e.label, len(e.sections), len(e.cases))
	}
}

func (e *KeyElement) readDiscriminator(r *utils.Reader) (string, error) {
	switch e.kind {
	case keyChar:
		b, err := r.ReadData(1)
		if err != nil {
			return "", err
		}
		return utils.DecodeText(b), nil
	case keyType:
		b, err := r.ReadData(4)
		if err != nil {
			return "", err
		}
		return utils.DecodeText(b), nil
	default:
		v, err := r.ReadUint(e.width)
		if err != nil {
			return "", err
		}
		shift := uint(64 - e.width*8)
		return strconv.FormatInt(int64(v<<shift)>>shift, 10), nil
	}
}

func (e *KeyElement) writeDiscriminator(w *utils.Writer) error {
	switch e.kind {
	case keyChar:
		b := utils.EncodeTextBuffer(e.value, 1)
		w.WriteData(b)
	case keyType:
		w.WriteData(utils.EncodeTextBuffer(e.value, 4))
	default:
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return errors.Errorf("key %q: discriminator %q is not numeric", e.label, e.value)
		}
		return w.WriteUint(uint64(v)&widthMask(e.width), e.width)
	}
	return nil
}

// sectionFor clones the prototype section of a case value; a missing KEYB
// is a soft warning and yields an empty section.
func (e *KeyElement) sectionFor(value string) []Element {
	known := false
	for _, c := range e.cases {
		if c.value == value {
			known = true
			break
		}
	}
	if !known {
		status.Warning("template: key %q: data value %q matches no CASE", e.label, value)
	}
	proto, ok := e.sections[value]
	if !ok {
		if known {
			status.Warning("template: CASE %q of key %q has no matching KEYB section", value, e.label)
		}
		return nil
	}
	return cloneElements(proto)
}

func (e *KeyElement) ReadData(r *utils.Reader) error {
	v, err := e.readDiscriminator(r)
	if err != nil {
		return err
	}
	e.value = v
	e.current = e.sectionFor(v)
	return readElements(e.current, r)
}

func (e *KeyElement) WriteData(w *utils.Writer) error {
	if err := e.writeDiscriminator(w); err != nil {
		return err
	}
	return writeElements(e.current, w)
}

// Select switches the union to another case. When the old and new
// sections encode to the same nonzero byte length, the old bytes are
// poured into the new section's fields so a round trip through a case
// switch keeps the data; otherwise the new section starts from defaults.
func (e *KeyElement) Select(value string) error {
	if value == e.value {
		return nil
	}

	var oldBytes []byte
	if len(e.current) > 0 {
		w := utils.NewWriter()
		if err := writeElements(e.current, w); err == nil {
			oldBytes = w.Bytes()
		}
	}

	next := e.sectionFor(value)
	if len(oldBytes) > 0 && len(next) > 0 {
		w := utils.NewWriter()
		if err := writeElements(next, w); err != nil {
			return err
		}
		if len(w.Bytes()) == len(oldBytes) {
			if err := readElements(next, utils.NewReader(oldBytes)); err != nil {
				return err
			}
		}
	}

	e.value = value
	e.current = next
	return nil
}

func (e *KeyElement) Value() interface{} { return e.value }
func (e *KeyElement) Selected() string { return e.value }

func (e *KeyElement) SubElementCount() int { return len(e.current) }
func (e *KeyElement) SubElement(i int) Element { return e.current[i] }

func (e *KeyElement) Clone() Element {
	c := *e
	c.current = cloneElements(e.current)
	// Prototype sections are immutable between decodes and can be shared.
	return &c
}
