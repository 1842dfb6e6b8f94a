package xml_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/midbel/digest/xml"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<root xmlns:m="urn:meta">
	<item id="i-1" label="a&amp;b">first</item>
	<m:note/>
	<!-- skipped -->
	<data><![CDATA[1 < 2]]></data>
</root>`

type recorder struct {
	events []string
}

func (r *recorder) StartDocument() error {
	r.events = append(r.events, "start")
	return nil
}

func (r *recorder) StartElement(elem xml.E) error {
	ev := "open " + elem.ExpandedName()
	for _, a := range elem.Attrs {
		ev += fmt.Sprintf(" %s=%s", a.QualifiedName(), a.Value)
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Text(str string) error {
	r.events = append(r.events, "text "+str)
	return nil
}

func (r *recorder) EndElement(elem xml.E) error {
	r.events = append(r.events, "close "+elem.ExpandedName())
	return nil
}

func (r *recorder) EndDocument() error {
	r.events = append(r.events, "end")
	return nil
}

func TestReader(t *testing.T) {
	rs := xml.NewReader(strings.NewReader(sampleDoc))
	rs.TrimSpace = true

	var rec recorder
	if err := rs.Run(&rec); err != nil {
		t.Fatalf("fail to read document: %s", err)
	}
	want := []string{
		"start",
		"open root xmlns:m=urn:meta",
		"open item id=i-1 label=a&b",
		"text first",
		"close item",
		"open {urn:meta}note",
		"close {urn:meta}note",
		"open data",
		"text 1 < 2",
		"close data",
		"close root",
		"end",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events mismatched! want %d, got %d (%q)", len(want), len(rec.events), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d: want %q, got %q", i, want[i], rec.events[i])
		}
	}
}

func TestReaderMixedContent(t *testing.T) {
	doc := `<a>text1<b/>text2</a>`

	var rec recorder
	rs := xml.NewReader(strings.NewReader(doc))
	if err := rs.Run(&rec); err != nil {
		t.Fatalf("fail to read document: %s", err)
	}
	want := []string{
		"start",
		"open a",
		"text text1",
		"open b",
		"close b",
		"text text2",
		"close a",
		"end",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events mismatched! want %d, got %d (%q)", len(want), len(rec.events), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d: want %q, got %q", i, want[i], rec.events[i])
		}
	}
}

func TestReaderDefaultNS(t *testing.T) {
	doc := `<root xmlns="urn:doc"><item/></root>`

	var rec recorder
	rs := xml.NewReader(strings.NewReader(doc))
	if err := rs.Run(&rec); err != nil {
		t.Fatalf("fail to read document: %s", err)
	}
	want := []string{
		"start",
		"open {urn:doc}root xmlns=urn:doc",
		"open {urn:doc}item",
		"close {urn:doc}item",
		"close {urn:doc}root",
		"end",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events mismatched! want %d, got %d (%q)", len(want), len(rec.events), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d: want %q, got %q", i, want[i], rec.events[i])
		}
	}
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		Xml string
	}{
		{Xml: `<a><b></a>`},
		{Xml: `<a><b></b>`},
		{Xml: `</a>`},
		{Xml: `<a id="1" id="2"></a>`},
	}
	for _, d := range tests {
		var rec recorder
		rs := xml.NewReader(strings.NewReader(d.Xml))
		if err := rs.Run(&rec); err == nil {
			t.Errorf("%s: malformed document read properly!", d.Xml)
		}
	}
}
