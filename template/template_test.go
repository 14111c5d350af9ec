package template

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// tmpl assembles TMPL bytes from alternating label, tag pairs.
func tmpl(pairs ...string) []byte {
	if len(pairs)%2 != 0 {
		panic("tmpl: odd number of arguments")
	}
	var buf bytes.Buffer
	for i := 0; i < len(pairs); i += 2 {
		label, tag := pairs[i], pairs[i+1]
		if len(tag) != 4 {
			panic("tmpl: tag must be 4 chars: " + tag)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
		buf.WriteString(tag)
	}
	return buf.Bytes()
}

func mustParse(t *testing.T, data []byte) *Template {
	t.Helper()
	tpl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tpl
}

func roundTrip(t *testing.T, tpl *Template, data []byte) *Record {
	t.Helper()
	rec, err := tpl.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", out, data)
	}
	return rec
}

func TestIntegerElements(t *testing.T) {
	tpl := mustParse(t, tmpl("Signed", "DWRD", "Unsigned", "UBYT", "Hex", "HLNG"))
	rec := roundTrip(t, tpl, []byte{
		0xff, 0xfe, // -2
		0x2a,                   // 42
		0xde, 0xad, 0xbe, 0xef, // hex long
	})

	if v := rec.Element(0).(*IntElement).Int(); v != -2 {
		t.Errorf("signed word = %d, want -2", v)
	}
	if v := rec.Element(1).(*IntElement).Uint(); v != 42 {
		t.Errorf("unsigned byte = %d, want 42", v)
	}
	if v := rec.Element(2).Value(); v != "0xdeadbeef" {
		t.Errorf("hex long = %v, want 0xdeadbeef", v)
	}
}

func TestCStringPadding(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		data []byte
		want string
	}{
		{"plain", "CSTR", []byte("hi\x00"), "hi"},
		{"odd total", "OCST", []byte("hi\x00"), "hi"},
		{"even total pads", "ECST", []byte("hi\x00\x00"), "hi"},
		{"fixed block", "C006", []byte("hi\x00\x00\x00\x00"), "hi"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tpl := mustParse(t, tmpl("S", test.tag))
			rec := roundTrip(t, tpl, test.data)
			if got := rec.Element(0).(*CStringElement).String(); got != test.want {
				t.Errorf("decoded %q, want %q", got, test.want)
			}
		})
	}
}

func TestFixedCStringAtCapacity(t *testing.T) {
	// 4-byte field, 3-char string: no terminator fits, read stops at max.
	tpl := mustParse(t, tmpl("S", "C004"))
	rec := roundTrip(t, tpl, []byte("abc\x00"))
	if got := rec.Element(0).(*CStringElement).String(); got != "abc" {
		t.Errorf("decoded %q, want %q", got, "abc")
	}

	// Writing a too-long value truncates to the field capacity.
	rec.Element(0).(*CStringElement).SetString("abcdef")
	out, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, []byte("abc\x00")) {
		t.Errorf("encoded %x, want %x", out, "abc\x00")
	}
}

func TestPStringElements(t *testing.T) {
	tpl := mustParse(t, tmpl("P", "PSTR", "W", "WSTR"))
	rec := roundTrip(t, tpl, []byte{
		3, 'a', 'b', 'c',
		0, 2, 'h', 'i',
	})
	if got := rec.Element(0).(*PStringElement).String(); got != "abc" {
		t.Errorf("pstring = %q", got)
	}
	if got := rec.Element(1).(*PStringElement).String(); got != "hi" {
		t.Errorf("wstring = %q", got)
	}
}

func TestPStringLengthBeyondCapacity(t *testing.T) {
	tpl := mustParse(t, tmpl("P", "P004"))
	// Declared length 5 cannot fit a 4-byte field.
	if _, err := tpl.Decode([]byte{5, 'a', 'b', 'c'}); err == nil {
		t.Fatal("expected error for length exceeding field capacity")
	}
}

func TestRectAndPoint(t *testing.T) {
	tpl := mustParse(t, tmpl("Bounds", "RECT", "Origin", "PNT "))
	rec := roundTrip(t, tpl, []byte{
		0, 10, 0, 20, 0, 110, 0, 220,
		0xff, 0xfe, 0, 4,
	})
	r := rec.Element(0).(*RectElement)
	if r.Top != 10 || r.Left != 20 || r.Bottom != 110 || r.Right != 220 {
		t.Errorf("rect = %+v", r)
	}
	p := rec.Element(1).(*PointElement)
	if p.V != -2 || p.H != 4 {
		t.Errorf("point = %+v", p)
	}
}

func TestBitGrouping(t *testing.T) {
	tpl := mustParse(t, tmpl("A", "BBIT", "B", "BBIT", "C", "BBIT"))
	if tpl.ElementCount() != 1 {
		t.Fatalf("3 BBIT entries should collapse into 1 group, got %d", tpl.ElementCount())
	}
	// MSB first: A=1 B=0 C=1 -> 0b10100000.
	rec := roundTrip(t, tpl, []byte{0xa0})
	g := rec.Element(0).(*BitGroupElement)
	if !g.Bit(0) || g.Bit(1) || !g.Bit(2) {
		t.Errorf("bits = %v", g.Value())
	}
}

func TestBoolNormalizesOnWrite(t *testing.T) {
	tpl := mustParse(t, tmpl("Flag", "BOOL"))
	rec, err := tpl.Decode([]byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !rec.Element(0).(*BoolElement).Bool() {
		t.Fatal("nonzero word should read as true")
	}
	out, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 1}) {
		t.Errorf("encoded %x, want 0001", out)
	}
}

func TestCountedList(t *testing.T) {
	tpl := mustParse(t, tmpl(
		"Count", "OCNT",
		"Entries", "LSTC",
		"ID", "DWRD",
		"", "LSTE",
	))
	rec := roundTrip(t, tpl, []byte{
		0, 3,
		0, 1,
		0, 2,
		0, 3,
	})
	list := rec.Element(0).(*ListElement)
	if list.EntryCount() != 3 {
		t.Fatalf("EntryCount = %d, want 3", list.EntryCount())
	}
	if v := list.Entry(1).SubElement(0).(*IntElement).Int(); v != 2 {
		t.Errorf("entry 2 = %d", v)
	}

	// The count field follows entry edits.
	list.RemoveEntry(0)
	out, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 2, 0, 2, 0, 3}) {
		t.Errorf("encoded %x", out)
	}
}

func TestZeroBasedCount(t *testing.T) {
	tpl := mustParse(t, tmpl("Count", "ZCNT", "L", "LSTC", "V", "UBYT", "", "LSTE"))

	// Stored 0x0000 means one entry.
	rec := roundTrip(t, tpl, []byte{0, 0, 7})
	if n := rec.Element(0).(*ListElement).EntryCount(); n != 1 {
		t.Errorf("EntryCount = %d, want 1", n)
	}

	// Stored 0xffff means empty.
	rec = roundTrip(t, tpl, []byte{0xff, 0xff})
	if n := rec.Element(0).(*ListElement).EntryCount(); n != 0 {
		t.Errorf("EntryCount = %d, want 0", n)
	}
}

func TestZeroTerminatedList(t *testing.T) {
	tpl := mustParse(t, tmpl("L", "LSTZ", "Name", "PSTR", "", "LSTE"))
	rec := roundTrip(t, tpl, []byte{
		1, 'a',
		2, 'b', 'c',
		0,
	})
	list := rec.Element(0).(*ListElement)
	if list.EntryCount() != 2 {
		t.Fatalf("EntryCount = %d, want 2", list.EntryCount())
	}
	if got := list.Entry(1).SubElement(0).(*PStringElement).String(); got != "bc" {
		t.Errorf("entry 2 = %q", got)
	}
}

func TestOpenEndedList(t *testing.T) {
	tpl := mustParse(t, tmpl("L", "LSTB", "V", "UWRD", "", "LSTE"))
	rec := roundTrip(t, tpl, []byte{0, 1, 0, 2, 0, 3, 0, 4})
	if n := rec.Element(0).(*ListElement).EntryCount(); n != 4 {
		t.Errorf("EntryCount = %d, want 4", n)
	}
}

func keyedTemplate(t *testing.T) *Template {
	return mustParse(t, tmpl(
		"Kind", "KWRD",
		"Text=1", "CASE",
		"Number=2", "CASE",
		"1", "KEYB",
		"Value", "C004",
		"", "KEYE",
		"2", "KEYB",
		"Value", "DLNG",
		"", "KEYE",
	))
}

func TestKeyedUnionDecode(t *testing.T) {
	tpl := keyedTemplate(t)

	rec := roundTrip(t, tpl, []byte{0, 1, 'h', 'i', 0, 0})
	key := rec.Element(0).(*KeyElement)
	if key.Selected() != "1" {
		t.Errorf("Selected = %q, want 1", key.Selected())
	}
	if got := key.SubElement(0).(*CStringElement).String(); got != "hi" {
		t.Errorf("text case = %q", got)
	}

	rec = roundTrip(t, tpl, []byte{0, 2, 0, 0, 1, 0})
	key = rec.Element(0).(*KeyElement)
	if v := key.SubElement(0).(*IntElement).Int(); v != 256 {
		t.Errorf("number case = %d", v)
	}
}

func TestKeyedUnionSwitchPreservesEqualSizedSections(t *testing.T) {
	tpl := keyedTemplate(t)
	rec, err := tpl.Decode([]byte{0, 2, 0x61, 0x62, 0x63, 0x00})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	key := rec.Element(0).(*KeyElement)

	// Both cases encode to 4 bytes, so the raw bytes carry over.
	if err := key.Select("1"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := key.SubElement(0).(*CStringElement).String(); got != "abc" {
		t.Errorf("after switch = %q, want abc", got)
	}

	out, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 1, 'a', 'b', 'c', 0}) {
		t.Errorf("encoded %x", out)
	}
}

func TestKeyedUnionUnknownValue(t *testing.T) {
	tpl := keyedTemplate(t)
	// No CASE matches 9; decoding continues with an empty section.
	rec, err := tpl.Decode([]byte{0, 9})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := rec.Element(0).SubElementCount(); n != 0 {
		t.Errorf("SubElementCount = %d, want 0", n)
	}
}

func TestSectionBackpatch(t *testing.T) {
	tests := []struct {
		tag  string
		data []byte
	}{
		// WSIZ excludes its own 2 bytes, SKIP includes them.
		{"WSIZ", []byte{0, 3, 1, 'x', 0x2a}},
		{"SKIP", []byte{0, 5, 1, 'x', 0x2a}},
		{"BSKP", []byte{4, 1, 'x', 0x2a}},
	}
	for _, test := range tests {
		t.Run(test.tag, func(t *testing.T) {
			tpl := mustParse(t, tmpl(
				"Section", test.tag,
				"Name", "PSTR",
				"V", "UBYT",
				"", "SKPE",
			))
			roundTrip(t, tpl, test.data)
		})
	}
}

func TestSectionTruncatedZeroPads(t *testing.T) {
	tpl := mustParse(t, tmpl("Section", "WSIZ", "A", "UWRD", "B", "UWRD", "", "SKPE"))
	// Declared 4 content bytes but only 2 present.
	rec, err := tpl.Decode([]byte{0, 4, 0, 7})
	if !errors.Is(err, utils.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	// The first field decoded before the truncation surfaced.
	section := rec.Element(0).(*SectionElement)
	if v := section.SubElement(0).(*IntElement).Uint(); v != 7 {
		t.Errorf("field A = %d, want 7", v)
	}
	if v := section.SubElement(1).(*IntElement).Uint(); v != 0 {
		t.Errorf("field B = %d, want zero-padded 0", v)
	}
}

func TestSectionHostileDeclaredLength(t *testing.T) {
	tpl := mustParse(t, tmpl("Section", "LSKP", "A", "UWRD", "", "SKPE"))
	// A near-max declared length must fail as truncation, not allocate
	// anything close to the declared size.
	rec, err := tpl.Decode([]byte{0xff, 0xff, 0xff, 0xfb})
	if !errors.Is(err, utils.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	section := rec.Element(0).(*SectionElement)
	if v := section.SubElement(0).(*IntElement).Uint(); v != 0 {
		t.Errorf("field A = %d, want zero-padded 0", v)
	}
}

func TestFillAndAlign(t *testing.T) {
	tpl := mustParse(t, tmpl("V", "UBYT", "", "FBYT", "", "AWRD", "W", "UWRD"))
	// UBYT(1) + FBYT(1) = 2 bytes, AWRD is already aligned; then the word.
	rec := roundTrip(t, tpl, []byte{5, 0, 0, 9})
	if v := rec.Element(3).(*IntElement).Uint(); v != 9 {
		t.Errorf("word = %d", v)
	}

	tpl = mustParse(t, tmpl("V", "UBYT", "", "AWRD", "W", "UWRD"))
	roundTrip(t, tpl, []byte{5, 0, 0, 9})
}

func TestHexDumpTakesRest(t *testing.T) {
	tpl := mustParse(t, tmpl("V", "UBYT", "Rest", "HEXD"))
	rec := roundTrip(t, tpl, []byte{1, 0xca, 0xfe})
	if got := rec.Element(1).Value(); got != "cafe" {
		t.Errorf("hex dump = %v", got)
	}
}

func TestTypeNameAndChar(t *testing.T) {
	tpl := mustParse(t, tmpl("Type", "TNAM", "C", "CHAR"))
	rec := roundTrip(t, tpl, []byte("ICN#x"))
	if got := rec.Element(0).Value(); got != "ICN#" {
		t.Errorf("tnam = %v", got)
	}
	if got := rec.Element(1).Value(); got != "x" {
		t.Errorf("char = %v", got)
	}
}

func TestDecodeIsolation(t *testing.T) {
	// Two decodes from one template must not share element state.
	tpl := mustParse(t, tmpl("V", "UBYT"))
	a, err := tpl.Decode([]byte{1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := tpl.Decode([]byte{2})
	if err != nil {
		t.Fatal(err)
	}
	if a.Element(0).(*IntElement).Uint() != 1 || b.Element(0).(*IntElement).Uint() != 2 {
		t.Error("decodes share state")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
	}{
		{"unknown tag", []string{"X", "QQQQ"}},
		{"count without list", []string{"N", "OCNT", "V", "UBYT"}},
		{"unterminated section", []string{"S", "SKIP", "V", "UBYT"}},
		{"stray LSTE", []string{"", "LSTE"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(tmpl(test.pairs...)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	tpl := mustParse(t, tmpl("Name", "PSTR", "Bounds", "RECT"))
	rec, err := tpl.Decode([]byte{2, 'h', 'i', 0, 1, 0, 2, 0, 3, 0, 4})
	if err != nil {
		t.Fatal(err)
	}
	fields := rec.Snapshot()
	if len(fields) != 2 {
		t.Fatalf("fields = %d", len(fields))
	}
	if fields[0].Label != "Name" || fields[0].Value != "hi" {
		t.Errorf("field 0 = %+v", fields[0])
	}
	if fields[1].Tag != "RECT" {
		t.Errorf("field 1 tag = %q", fields[1].Tag)
	}
}
