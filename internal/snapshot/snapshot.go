// Package snapshot models a point-in-time capture of a recorded page: the
// serialized DOM plus a side table of live form-control state keyed by the
// tracking attribute the capture script stamps onto elements. Selector
// computation and event reduction both run against this model instead of the
// live browser, so shadow-root content is expected inline as
// <template shadowrootmode> children of its host element.
package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// RecIDAttr is the attribute the capture script uses to tag elements with a
// session-scoped identifier. It is recorder bookkeeping, never page semantics:
// selector strategies must not derive locators from it.
const RecIDAttr = "data-uirec-id"

// Rect is an element's bounding box in page coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// State carries the live form-control properties that HTML serialization
// loses: current value and checked state reflect the DOM properties, not the
// original attributes.
type State struct {
	Rect    Rect   `json:"rect"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// Envelope is the JSON payload the capture script produces per snapshot.
type Envelope struct {
	URL    string           `json:"url"`
	TS     int64            `json:"ts"` // milliseconds since epoch, page clock
	HTML   string           `json:"html"`
	States map[string]State `json:"states"`
}

// Document is a parsed snapshot ready for querying.
type Document struct {
	root    *html.Node
	gq      *goquery.Document
	url     string
	ts      int64
	byRecID map[string]*html.Node
	states  map[string]State
}

// Decode parses a capture-script envelope into a Document.
func Decode(data []byte) (*Document, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot envelope: %w", err)
	}
	return New(env.HTML, env.URL, env.TS, env.States)
}

// New builds a Document from raw HTML and an optional control-state table.
func New(rawHTML, url string, ts int64, states map[string]State) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot html: %w", err)
	}
	if states == nil {
		states = make(map[string]State)
	}
	d := &Document{
		root:    root,
		gq:      goquery.NewDocumentFromNode(root),
		url:     url,
		ts:      ts,
		byRecID: make(map[string]*html.Node),
		states:  states,
	}
	d.index(root)
	return d, nil
}

func (d *Document) index(n *html.Node) {
	if n.Type == html.ElementNode {
		if id := attrValue(n, RecIDAttr); id != "" {
			d.byRecID[id] = n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.index(c)
	}
}

func (d *Document) URL() string { return d.url }
func (d *Document) CapturedAt() int64 { return d.ts }

// PutState records live control state for an element, replacing any prior
// entry. Used by tests and by session code merging incremental updates.
func (d *Document) PutState(recID string, st State) {
	d.states[recID] = st
}

// ByRecID returns the element carrying the given tracking id, or nil.
func (d *Document) ByRecID(id string) *Element {
	n, ok := d.byRecID[id]
	if !ok {
		return nil
	}
	return &Element{doc: d, node: n}
}

// ByID returns the first element whose id attribute equals the given value.
func (d *Document) ByID(id string) *Element {
	if id == "" {
		return nil
	}
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && attrValue(n, "id") == id {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	if found == nil {
		return nil
	}
	return &Element{doc: d, node: found}
}

// Body returns the document body element, or nil for malformed documents.
func (d *Document) Body() *Element {
	n := htmlquery.FindOne(d.root, "//body")
	if n == nil {
		return nil
	}
	return &Element{doc: d, node: n}
}

// CountCSS returns how many elements match a CSS selector. Malformed
// selectors count as zero matches rather than failing.
func (d *Document) CountCSS(sel string) int {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return 0
	}
	return d.gq.FindMatcher(m).Length()
}

// MatchOneCSS reports whether the selector matches exactly the given element
// and nothing else.
func (d *Document) MatchOneCSS(sel string, el *Element) bool {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return false
	}
	nodes := d.gq.FindMatcher(m).Nodes
	return len(nodes) == 1 && nodes[0] == el.node
}

// CountXPath returns how many nodes match an XPath expression. Malformed
// expressions count as zero matches.
func (d *Document) CountXPath(expr string) int {
	x, err := xpath.Compile(expr)
	if err != nil {
		return 0
	}
	return len(htmlquery.QuerySelectorAll(d.root, x))
}

// MatchOneXPath reports whether the expression matches exactly the given
// element and nothing else.
func (d *Document) MatchOneXPath(expr string, el *Element) bool {
	x, err := xpath.Compile(expr)
	if err != nil {
		return false
	}
	nodes := htmlquery.QuerySelectorAll(d.root, x)
	return len(nodes) == 1 && nodes[0] == el.node
}

// Walk visits every element in document order, shadow content included.
func (d *Document) Walk(fn func(*Element) bool) {
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if !fn(&Element{doc: d, node: n}) {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
}

// TextInputs returns every text-like input or textarea in the document, used
// by the pre-submit flush scan.
func (d *Document) TextInputs() []*Element {
	var out []*Element
	d.Walk(func(el *Element) bool {
		if el.IsTextInput() {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Element wraps a node within its snapshot document.
type Element struct {
	doc  *Document
	node *html.Node
}

// Same reports whether two elements are the same node.
func (e *Element) Same(other *Element) bool {
	return other != nil && e.node == other.node
}

func (e *Element) TagName() string {
	return strings.ToLower(e.node.Data)
}

func (e *Element) Attr(name string) string {
	return attrValue(e.node, name)
}

func (e *Element) HasAttr(name string) bool {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

func (e *Element) RecID() string {
	return e.Attr(RecIDAttr)
}

// Classes returns the element's class list, whitespace-split.
func (e *Element) Classes() []string {
	return strings.Fields(e.Attr("class"))
}

// Text returns the element's normalized subtree text. Script, style and
// template content is excluded, matching what a user actually reads.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return strings.Join(strings.Fields(b.String()), " ")
}

// DirectText returns the element's first direct text child node,
// whitespace-normalized, without descending into child elements. It mirrors
// the XPath expression normalize-space(text()), including returning "" when
// the first text node is pure whitespace.
func (e *Element) DirectText() string {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return strings.Join(strings.Fields(c.Data), " ")
		}
	}
	return ""
}

// Parent returns the parent element, or nil at the document boundary.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	for p != nil && p.Type != html.ElementNode {
		p = p.Parent
	}
	if p == nil {
		return nil
	}
	return &Element{doc: e.doc, node: p}
}

// Children returns the element's direct child elements.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{doc: e.doc, node: c})
		}
	}
	return out
}

// ShadowRoots returns the element's inlined shadow-root containers
// (child <template shadowrootmode> elements).
func (e *Element) ShadowRoots() []*Element {
	var out []*Element
	for _, c := range e.Children() {
		if c.TagName() == "template" && c.HasAttr("shadowrootmode") {
			out = append(out, c)
		}
	}
	return out
}

// IsShadowHost reports whether the element carries an inlined shadow root.
func (e *Element) IsShadowHost() bool {
	return len(e.ShadowRoots()) > 0
}

// NthOfType returns the element's 1-based position among same-tag siblings.
func (e *Element) NthOfType() int {
	n := 1
	for s := e.node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && strings.EqualFold(s.Data, e.node.Data) {
			n++
		}
	}
	return n
}

// State returns the element's live control state, if the capture recorded one.
func (e *Element) State() (State, bool) {
	id := e.RecID()
	if id == "" {
		return State{}, false
	}
	st, ok := e.doc.states[id]
	return st, ok
}

// Center returns the element's bounding-box center in page coordinates.
// ok is false when no live rect was captured for the element.
func (e *Element) Center() (x, y float64, ok bool) {
	st, ok := e.State()
	if !ok || (st.Rect.W == 0 && st.Rect.H == 0) {
		return 0, 0, false
	}
	return st.Rect.X + st.Rect.W/2, st.Rect.Y + st.Rect.H/2, true
}

// Value returns the element's live value when captured, else its value
// attribute.
func (e *Element) Value() string {
	if st, ok := e.State(); ok {
		return st.Value
	}
	return e.Attr("value")
}

// Checked returns the element's live checked state when captured, else the
// presence of the checked attribute.
func (e *Element) Checked() bool {
	if st, ok := e.State(); ok {
		return st.Checked
	}
	return e.HasAttr("checked")
}

// InputType returns a normalized input subtype: the type attribute for
// inputs (defaulting to "text"), the tag name otherwise.
func (e *Element) InputType() string {
	tag := e.TagName()
	if tag != "input" {
		return tag
	}
	t := strings.ToLower(strings.TrimSpace(e.Attr("type")))
	if t == "" {
		return "text"
	}
	return t
}

// IsCheckboxOrRadio reports whether the element is a checkbox or radio input.
func (e *Element) IsCheckboxOrRadio() bool {
	if e.TagName() != "input" {
		return false
	}
	t := e.InputType()
	return t == "checkbox" || t == "radio"
}

// IsTextInput reports whether typed text can accumulate in the element.
func (e *Element) IsTextInput() bool {
	switch e.TagName() {
	case "textarea":
		return true
	case "input":
		switch e.InputType() {
		case "text", "email", "password", "search", "tel", "url", "number":
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
