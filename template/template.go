// Package template decodes and encodes resource payloads driven by TMPL
// descriptions. A TMPL is a flat list of (label, type tag) pairs; parsing
// turns it into a prototype element tree, and Decode instantiates that
// tree against payload bytes. The prototype is never mutated by Decode,
// so one Template can serve concurrent decodes.
package template

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/status"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

type Template struct {
	elements []Element
}

type token struct {
	label string
	tag   string
}

type tokenStream struct {
	toks []token
	pos  int
}

func (s *tokenStream) peek() (token, bool) {
	if s.pos >= len(s.toks) {
		return token{}, false
	}
	return s.toks[s.pos], true
}

func (s *tokenStream) next() (token, bool) {
	t, ok := s.peek()
	if ok {
		s.pos++
	}
	return t, ok
}

// Parse builds a Template from the raw bytes of a TMPL resource.
func Parse(data []byte) (*Template, error) {
	r := utils.NewReader(data)
	var toks []token
	for r.Remaining() > 0 {
		label, err := r.ReadPString()
		if err != nil {
			return nil, errors.Wrap(err, "template label")
		}
		tag, err := r.ReadData(4)
		if err != nil {
			return nil, errors.Wrapf(err, "template tag after label %q", label)
		}
		toks = append(toks, token{label: utils.DecodeText(label), tag: string(tag)})
	}

	s := &tokenStream{toks: toks}
	elements, err := buildElements(s, "")
	if err != nil {
		return nil, err
	}
	return &Template{elements: elements}, nil
}

// ElementCount reports the number of top-level prototype elements.
func (t *Template) ElementCount() int { return len(t.elements) }

// Decode instantiates the template against payload bytes. On failure the
// partially decoded record is returned alongside the error, so callers can
// still show whatever fields decoded cleanly.
func (t *Template) Decode(data []byte) (*Record, error) {
	rec := &Record{elements: cloneElements(t.elements)}
	r := utils.NewReader(data)
	if err := readElements(rec.elements, r); err != nil {
		return rec, errors.Wrap(err, "template decode")
	}
	if n := r.Remaining(); n > 0 {
		status.Warning("template: %d byte(s) of data not covered by the template", n)
	}
	return rec, nil
}

// Record is an instantiated element tree, the mutable form of a resource
// payload between decode and encode.
type Record struct {
	elements []Element
}

func (rec *Record) ElementCount() int { return len(rec.elements) }
func (rec *Record) Element(i int) Element { return rec.elements[i] }

// FindLabel returns the first top-level element with the given label.
func (rec *Record) FindLabel(label string) Element {
	for _, e := range rec.elements {
		if e.Label() == label {
			return e
		}
	}
	return nil
}

func (rec *Record) Encode() ([]byte, error) {
	w := utils.NewWriter()
	if err := writeElements(rec.elements, w); err != nil {
		return nil, errors.Wrap(err, "template encode")
	}
	return w.Bytes(), nil
}

// Field is the JSON-friendly view of one decoded element.
type Field struct {
	Tag   string      `json:"tag"`
	Label string      `json:"label"`
	Value interface{} `json:"value,omitempty"`
	Sub   []Field     `json:"sub,omitempty"`
}

func snapshotElement(e Element) Field {
	f := Field{
		Tag:   strings.TrimRight(e.Tag(), " "),
		Label: e.Label(),
		Value: e.Value(),
	}
	for i := 0; i < e.SubElementCount(); i++ {
		f.Sub = append(f.Sub, snapshotElement(e.SubElement(i)))
	}
	return f
}

func (rec *Record) Snapshot() []Field {
	out := make([]Field, len(rec.elements))
	for i, e := range rec.elements {
		out[i] = snapshotElement(e)
	}
	return out
}

// buildElements consumes tokens until the terminator tag (which it eats) or,
// with an empty terminator, until the stream ends.
func buildElements(s *tokenStream, terminator string) ([]Element, error) {
	var out []Element
	for {
		t, ok := s.peek()
		if !ok {
			if terminator == "" {
				return out, nil
			}
			return nil, errors.Errorf("template ends before closing %s", terminator)
		}
		if t.tag == terminator {
			s.next()
			return out, nil
		}
		e, err := buildElement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func buildElement(s *tokenStream) (Element, error) {
	t, _ := s.next()
	switch t.tag {
	case "BBIT":
		// Consecutive bit entries share one byte, most significant first.
		labels := []string{t.label}
		for len(labels) < 8 {
			n, ok := s.peek()
			if !ok || n.tag != "BBIT" {
				break
			}
			s.next()
			labels = append(labels, n.label)
		}
		return newBitGroup(labels), nil

	case "KBYT", "KWRD", "KLNG", "KCHR", "KTYP":
		key := newKeyElement(t.tag, t.label)
		for {
			n, ok := s.peek()
			if !ok || n.tag != "CASE" {
				break
			}
			s.next()
			key.cases = append(key.cases, parseCase(n.label))
		}
		for {
			n, ok := s.peek()
			if !ok || n.tag != "KEYB" {
				break
			}
			s.next()
			body, err := buildElements(s, "KEYE")
			if err != nil {
				return nil, err
			}
			key.sections[key.caseValue(n.label)] = body
		}
		key.checkSections()
		return key, nil

	case "BSKP", "SKIP", "WSKP", "LSKP", "BSIZ", "WSIZ", "LSIZ":
		body, err := buildElements(s, "SKPE")
		if err != nil {
			return nil, err
		}
		return newSectionElement(t.tag, t.label, body), nil

	case "OCNT", "ZCNT", "BCNT", "WCNT", "LCNT":
		n, ok := s.next()
		if !ok || n.tag != "LSTC" {
			return nil, errors.Errorf("count field %q (%s) is not followed by LSTC", t.label, t.tag)
		}
		body, err := buildElements(s, "LSTE")
		if err != nil {
			return nil, err
		}
		return newListElement(t.tag, t.label, body), nil

	case "LSTB", "LSTZ":
		body, err := buildElements(s, "LSTE")
		if err != nil {
			return nil, err
		}
		return newListElement(t.tag, t.label, body), nil

	case "CASE", "KEYB", "KEYE", "LSTC", "LSTE", "SKPE":
		return nil, errors.Errorf("unexpected %s %q outside its construct", t.tag, t.label)
	}
	return newSimpleElement(t.tag, t.label)
}

func newSimpleElement(tag, label string) (Element, error) {
	b := base{tag: tag, label: label}
	switch tag {
	case "DBYT", "DWRD", "DLNG", "DQWD",
		"UBYT", "UWRD", "ULNG", "UQWD",
		"HBYT", "HWRD", "HLNG", "HQWD":
		return newIntElement(tag, label), nil
	case "BOOL":
		return &BoolElement{base: b}, nil
	case "CSTR":
		return &CStringElement{base: b}, nil
	case "OCST":
		return &CStringElement{base: b, pad: padOdd}, nil
	case "ECST":
		return &CStringElement{base: b, pad: padEven}, nil
	case "PSTR":
		return &PStringElement{base: b, lenWidth: 1}, nil
	case "OSTR":
		return &PStringElement{base: b, lenWidth: 1, pad: padOdd}, nil
	case "ESTR":
		return &PStringElement{base: b, lenWidth: 1, pad: padEven}, nil
	case "WSTR":
		return &PStringElement{base: b, lenWidth: 2}, nil
	case "LSTR":
		return &PStringElement{base: b, lenWidth: 4}, nil
	case "RECT":
		return &RectElement{base: b}, nil
	case "PNT ":
		return &PointElement{base: b}, nil
	case "CHAR":
		return &CharElement{base: b}, nil
	case "TNAM":
		return &TypeNameElement{base: b}, nil
	case "FBYT":
		return &FillElement{base: b, size: 1}, nil
	case "FWRD":
		return &FillElement{base: b, size: 2}, nil
	case "FLNG":
		return &FillElement{base: b, size: 4}, nil
	case "ALGN", "AWRD":
		return &AlignElement{base: b, boundary: 2}, nil
	case "ALNG":
		return &AlignElement{base: b, boundary: 4}, nil
	case "DVDR":
		return &DividerElement{base: b}, nil
	case "HEXD":
		return &HexDumpElement{base: b}, nil
	}

	// Sized variants carry a hex byte count in the tag itself.
	switch tag[0] {
	case 'C':
		n, err := parseFixedSize(tag)
		if err != nil {
			break
		}
		return &CStringElement{base: b, pad: padFixed, fixedSize: n}, nil
	case 'P':
		n, err := parseFixedSize(tag)
		if err != nil {
			break
		}
		return &PStringElement{base: b, lenWidth: 1, pad: padFixed, fixedSize: n}, nil
	case 'F':
		n, err := parseFixedSize(tag)
		if err != nil {
			break
		}
		return &FillElement{base: b, size: n}, nil
	}
	return nil, errors.Errorf("unknown template tag %q (label %q)", tag, label)
}
