package selector

import (
	"fmt"
	"strings"

	"uirecorder/internal/models"
	"uirecorder/internal/snapshot"
)

// byXPath is the last resort before the bare tag name. It tries, in order:
// a path anchored on the nearest uniquely-identified ancestor, a match on the
// element's own first text node, single-attribute matches, label-adjacency
// heuristics for checkboxes and radios, and finally an absolute positional
// path from the document root. Every candidate is uniqueness-checked.
func (e *Engine) byXPath(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	builders := []func(*snapshot.Document, *snapshot.Element) string{
		e.idAnchoredXPath,
		e.directTextXPath,
		e.attributeXPath,
		e.labelSiblingXPath,
		e.positionalXPath,
	}
	for _, build := range builders {
		if expr := build(doc, el); expr != "" && doc.MatchOneXPath(expr, el) {
			return &models.Locator{Kind: models.LocatorXPath, Value: expr}
		}
	}
	return nil
}

// idAnchoredXPath climbs to the nearest ancestor whose id is unique in the
// document and appends positional steps back down to the element.
func (e *Engine) idAnchoredXPath(doc *snapshot.Document, el *snapshot.Element) string {
	var steps []string
	for cur := el; cur != nil; cur = cur.Parent() {
		tag := cur.TagName()
		if tag == "html" || tag == "template" {
			return ""
		}
		if !cur.Same(el) {
			id := cur.Attr("id")
			if id != "" && !containsQuote(id) {
				anchor := fmt.Sprintf("//*[@id='%s']", id)
				if doc.CountXPath(anchor) == 1 {
					return anchor + "/" + strings.Join(steps, "/")
				}
			}
		}
		steps = append([]string{xpathStep(cur)}, steps...)
	}
	return ""
}

// directTextXPath matches on the element's own first text node, which
// distinguishes elements whose subtree text is polluted by nested children.
func (e *Engine) directTextXPath(doc *snapshot.Document, el *snapshot.Element) string {
	text := el.DirectText()
	if text == "" || len(text) > e.cfg.MaxTextLength || containsQuote(text) {
		return ""
	}
	return fmt.Sprintf("//%s[normalize-space(text())='%s']", el.TagName(), text)
}

// xpathLocatorAttrs are tried for single-attribute XPath matches, in order.
var xpathLocatorAttrs = []string{"type", "value", "title", "alt"}

func (e *Engine) attributeXPath(doc *snapshot.Document, el *snapshot.Element) string {
	for _, attr := range xpathLocatorAttrs {
		v := el.Attr(attr)
		if v == "" || containsQuote(v) {
			continue
		}
		expr := fmt.Sprintf("//%s[@%s='%s']", el.TagName(), attr, v)
		if doc.MatchOneXPath(expr, el) {
			return expr
		}
	}
	return ""
}

// labelSiblingXPath locates a checkbox or radio through the visible text of
// an adjacent or wrapping label, the way a person would describe it. Checked
// variants: label after the input, label before it, and a wrapping container.
func (e *Engine) labelSiblingXPath(doc *snapshot.Document, el *snapshot.Element) string {
	if !el.IsCheckboxOrRadio() {
		return ""
	}
	inputType := el.InputType()

	if sib := adjacentSibling(el, 1); sib != nil {
		if text := e.labelText(sib); text != "" {
			expr := fmt.Sprintf("//%s[contains(normalize-space(.), '%s')]/preceding-sibling::input[@type='%s']",
				sib.TagName(), text, inputType)
			if doc.MatchOneXPath(expr, el) {
				return expr
			}
		}
	}
	if sib := adjacentSibling(el, -1); sib != nil {
		if text := e.labelText(sib); text != "" {
			expr := fmt.Sprintf("//%s[contains(normalize-space(.), '%s')]/following-sibling::input[@type='%s']",
				sib.TagName(), text, inputType)
			if doc.MatchOneXPath(expr, el) {
				return expr
			}
		}
	}
	cur := el.Parent()
	for level := 0; cur != nil && level < 2; level++ {
		tag := cur.TagName()
		if tag == "label" || tag == "li" {
			if text := e.labelText(cur); text != "" {
				expr := fmt.Sprintf("//%s[contains(normalize-space(.), '%s')]//input[@type='%s']",
					tag, text, inputType)
				if doc.MatchOneXPath(expr, el) {
					return expr
				}
			}
		}
		cur = cur.Parent()
	}
	return ""
}

var labelLikeTags = map[string]bool{"label": true, "span": true, "div": true, "li": true}

func (e *Engine) labelText(el *snapshot.Element) string {
	if !labelLikeTags[el.TagName()] {
		return ""
	}
	text := el.Text()
	if text == "" || len(text) > e.cfg.MaxTextLength || containsQuote(text) {
		return ""
	}
	return text
}

// positionalXPath builds an absolute indexed path from the document root.
// A path through a template never resolves against the live page, whether
// the template is an inlined shadow root or inert content, so inside one it
// gives up and lets the engine fall back to the tag name.
func (e *Engine) positionalXPath(doc *snapshot.Document, el *snapshot.Element) string {
	var steps []string
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur.TagName() == "template" {
			return ""
		}
		steps = append([]string{xpathStep(cur)}, steps...)
	}
	return "/" + strings.Join(steps, "/")
}

// xpathStep renders one path step, indexed only when the element has
// same-tag siblings to disambiguate from.
func xpathStep(el *snapshot.Element) string {
	if sameTagSiblings(el) < 2 {
		return el.TagName()
	}
	return fmt.Sprintf("%s[%d]", el.TagName(), el.NthOfType())
}

// adjacentSibling returns the element offset positions away among its
// parent's child elements, or nil when out of range.
func adjacentSibling(el *snapshot.Element, offset int) *snapshot.Element {
	parent := el.Parent()
	if parent == nil {
		return nil
	}
	siblings := parent.Children()
	for i, s := range siblings {
		if s.Same(el) {
			j := i + offset
			if j < 0 || j >= len(siblings) {
				return nil
			}
			return siblings[j]
		}
	}
	return nil
}
