package snapshot

import (
	"testing"
)

func parse(t *testing.T, rawHTML string, states map[string]State) *Document {
	t.Helper()
	doc, err := New(rawHTML, "http://app.local/", 1000, states)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestDecodeEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{
		"url": "http://app.local/checkout",
		"ts": 1234,
		"html": "<div data-uirec-id=\"d1\"><input type=\"checkbox\" data-uirec-id=\"c1\"></div>",
		"states": {"c1": {"rect": {"x": 10, "y": 20, "w": 30, "h": 40}, "checked": true}}
	}`
	doc, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.URL() != "http://app.local/checkout" || doc.CapturedAt() != 1234 {
		t.Errorf("envelope header = %q at %d, want checkout URL at 1234", doc.URL(), doc.CapturedAt())
	}
	el := doc.ByRecID("c1")
	if el == nil {
		t.Fatal("ByRecID lost the tracked element")
	}
	if !el.Checked() {
		t.Error("live checked state not wired through")
	}
	x, y, ok := el.Center()
	if !ok || x != 25 || y != 40 {
		t.Errorf("Center() = %v,%v,%v, want 25,40,true", x, y, ok)
	}

	if _, err := Decode([]byte(`{"html": 5}`)); err == nil {
		t.Error("malformed envelope decoded without error")
	}
}

func TestMatchOneRequiresIdentity(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<button class="save" data-uirec-id="b1">Save</button>`+
		`<button class="save" data-uirec-id="b2">Save</button>`+
		`<a id="home" data-uirec-id="a1">Home</a>`, nil)
	b1 := doc.ByRecID("b1")
	a1 := doc.ByRecID("a1")

	if doc.MatchOneCSS(".save", b1) {
		t.Error("ambiguous selector accepted")
	}
	if doc.MatchOneCSS("#home", b1) {
		t.Error("selector matching a different element accepted")
	}
	if !doc.MatchOneCSS("#home", a1) {
		t.Error("unique selector for the right element rejected")
	}
	if !doc.MatchOneXPath("//a[@id='home']", a1) {
		t.Error("unique xpath for the right element rejected")
	}
	if doc.MatchOneXPath("//button", b1) {
		t.Error("ambiguous xpath accepted")
	}
}

func TestMalformedQueriesCountZero(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<div data-uirec-id="d1">hi</div>`, nil)
	el := doc.ByRecID("d1")

	if got := doc.CountCSS("div[["); got != 0 {
		t.Errorf("CountCSS on malformed selector = %d, want 0", got)
	}
	if doc.MatchOneCSS("div[[", el) {
		t.Error("malformed selector matched")
	}
	if got := doc.CountXPath("//div[unclosed"); got != 0 {
		t.Errorf("CountXPath on malformed expression = %d, want 0", got)
	}
	if doc.MatchOneXPath("//div[unclosed", el) {
		t.Error("malformed expression matched")
	}
}

func TestInlinedShadowContent(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<my-widget data-uirec-id="host">`+
		`<template shadowrootmode="open"><input type="checkbox" data-uirec-id="inner"></template>`+
		`</my-widget>`, nil)

	host := doc.ByRecID("host")
	if host == nil || !host.IsShadowHost() {
		t.Fatal("host element not recognized as shadow host")
	}
	roots := host.ShadowRoots()
	if len(roots) != 1 {
		t.Fatalf("ShadowRoots() returned %d containers, want 1", len(roots))
	}
	inner := doc.ByRecID("inner")
	if inner == nil {
		t.Fatal("shadow content not indexed by tracking id")
	}
	if !inner.IsCheckboxOrRadio() {
		t.Error("shadow checkbox lost its input semantics")
	}
	// Walk must reach shadow content too.
	seen := false
	doc.Walk(func(el *Element) bool {
		if el.RecID() == "inner" {
			seen = true
		}
		return true
	})
	if !seen {
		t.Error("Walk skipped shadow content")
	}
}

func TestTextExcludesNonVisible(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<div data-uirec-id="d1">Hello`+
		`<script>var x = 1;</script>`+
		`<style>.a{}</style>`+
		`<template shadowrootmode="open">shadow text</template>`+
		` <b>world</b></div>`, nil)

	if got := doc.ByRecID("d1").Text(); got != "Hello world" {
		t.Errorf("Text() = %q, want %q", got, "Hello world")
	}
}

func TestDirectTextStopsAtChildren(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<label data-uirec-id="l1">Remember me<span>(recommended)</span></label>`+
		`<label data-uirec-id="l2"><span>No direct text</span></label>`, nil)

	if got := doc.ByRecID("l1").DirectText(); got != "Remember me" {
		t.Errorf("DirectText() = %q, want %q", got, "Remember me")
	}
	if got := doc.ByRecID("l2").DirectText(); got != "" {
		t.Errorf("DirectText() on child-only label = %q, want empty", got)
	}
	if got := doc.ByRecID("l2").Text(); got != "No direct text" {
		t.Errorf("Text() = %q, want subtree text", got)
	}
}

func TestLiveStateBeatsAttributes(t *testing.T) {
	t.Parallel()

	states := map[string]State{
		"i1": {Value: "typed value"},
		"c1": {Checked: false},
	}
	doc := parse(t, `<input value="attr value" data-uirec-id="i1">`+
		`<input type="checkbox" checked data-uirec-id="c1">`+
		`<input value="attr only" data-uirec-id="i2">`+
		`<input type="checkbox" checked data-uirec-id="c2">`, states)

	if got := doc.ByRecID("i1").Value(); got != "typed value" {
		t.Errorf("Value() = %q, want the live value", got)
	}
	if doc.ByRecID("c1").Checked() {
		t.Error("Checked() ignored the live unchecked state")
	}
	// Without live state the serialized attributes are the fallback.
	if got := doc.ByRecID("i2").Value(); got != "attr only" {
		t.Errorf("fallback Value() = %q, want the attribute", got)
	}
	if !doc.ByRecID("c2").Checked() {
		t.Error("fallback Checked() ignored the checked attribute")
	}
}

func TestInputClassification(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<input data-uirec-id="plain">`+
		`<input type="EMAIL" data-uirec-id="email">`+
		`<input type="checkbox" data-uirec-id="box">`+
		`<input type="radio" data-uirec-id="dot">`+
		`<input type="submit" data-uirec-id="go">`+
		`<textarea data-uirec-id="area"></textarea>`+
		`<select data-uirec-id="sel"></select>`, nil)

	tests := []struct {
		rid       string
		inputType string
		text      bool
		toggle    bool
	}{
		{"plain", "text", true, false},
		{"email", "email", true, false},
		{"box", "checkbox", false, true},
		{"dot", "radio", false, true},
		{"go", "submit", false, false},
		{"area", "textarea", true, false},
		{"sel", "select", false, false},
	}
	for _, tt := range tests {
		el := doc.ByRecID(tt.rid)
		if el == nil {
			t.Fatalf("%s: not indexed", tt.rid)
		}
		if got := el.InputType(); got != tt.inputType {
			t.Errorf("%s: InputType() = %q, want %q", tt.rid, got, tt.inputType)
		}
		if got := el.IsTextInput(); got != tt.text {
			t.Errorf("%s: IsTextInput() = %v, want %v", tt.rid, got, tt.text)
		}
		if got := el.IsCheckboxOrRadio(); got != tt.toggle {
			t.Errorf("%s: IsCheckboxOrRadio() = %v, want %v", tt.rid, got, tt.toggle)
		}
	}
}

func TestStructureNavigation(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<ul data-uirec-id="list">`+
		`<li data-uirec-id="one">one</li>`+
		`<li data-uirec-id="two">two</li>`+
		`<li data-uirec-id="three">three</li>`+
		`</ul>`, nil)

	two := doc.ByRecID("two")
	if got := two.NthOfType(); got != 2 {
		t.Errorf("NthOfType() = %d, want 2", got)
	}
	if p := two.Parent(); p == nil || p.RecID() != "list" {
		t.Error("Parent() did not reach the list")
	}
	list := doc.ByRecID("list")
	if got := len(list.Children()); got != 3 {
		t.Errorf("Children() = %d elements, want 3", got)
	}
	if !list.Children()[1].Same(two) {
		t.Error("Same() rejected the identical node")
	}
	if list.Children()[0].Same(two) {
		t.Error("Same() accepted a different node")
	}
	if body := doc.Body(); body == nil || body.TagName() != "body" {
		t.Error("Body() lost the document body")
	}
}
