// Package selector computes the best stable locator for a DOM element by
// walking an ordered chain of strategies, validating every candidate for
// uniqueness against the snapshot before accepting it. The ordering is tuned
// for durability under markup churn: a test attribute survives a CSS refactor,
// a positional path does not.
package selector

import (
	"fmt"
	"log"
	"strings"

	"uirecorder/internal/models"
	"uirecorder/internal/snapshot"
)

// Config tunes the strategy chain. Zero values are replaced with defaults.
type Config struct {
	MaxTextLength   int // longest text accepted by the visible-text strategy
	CSSPathMaxDepth int // ancestor levels the structural CSS path may climb
}

const (
	defaultMaxTextLength   = 50
	defaultCSSPathMaxDepth = 4
)

func (c Config) withDefaults() Config {
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = defaultMaxTextLength
	}
	if c.CSSPathMaxDepth <= 0 {
		c.CSSPathMaxDepth = defaultCSSPathMaxDepth
	}
	return c
}

// testAttrs are the test-automation attributes tried first, in order. The
// recorder's own tracking attribute is deliberately absent.
var testAttrs = []string{"data-testid", "data-test-id", "data-test", "data-qa"}

// textBearingTags are the tags the visible-text strategy applies to.
var textBearingTags = map[string]bool{
	"button": true, "a": true, "label": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "span": true, "div": true, "td": true, "th": true,
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Locate returns the best locator for el. It never fails: when every strategy
// is exhausted (or anything panics mid-computation) it degrades to the bare
// tag name, which is explicitly allowed to be non-unique.
func (e *Engine) Locate(doc *snapshot.Document, el *snapshot.Element) (loc models.Locator) {
	fallback := models.Locator{Kind: models.LocatorTagName, Value: "*"}
	if el != nil {
		fallback.Value = el.TagName()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Selector computation recovered from panic: %v", r)
			loc = fallback
		}
	}()
	if doc == nil || el == nil {
		return fallback
	}

	strategies := []func(*snapshot.Document, *snapshot.Element) *models.Locator{
		e.byTestAttr,
		e.byID,
		e.byName,
		e.byText,
		e.byAria,
		e.byPlaceholder,
		e.byClass,
		e.byCSSPath,
		e.byXPath,
	}
	for _, strategy := range strategies {
		if found := strategy(doc, el); found != nil {
			return *found
		}
	}
	return fallback
}

func (e *Engine) byTestAttr(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	for _, attr := range testAttrs {
		v := el.Attr(attr)
		if v == "" || containsQuote(v) {
			continue
		}
		sel := fmt.Sprintf(`[%s="%s"]`, attr, v)
		if doc.MatchOneCSS(sel, el) {
			return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
		}
	}
	return nil
}

// byID accepts an element id only after confirming it is unique in the
// document; pages routinely carry duplicated or dynamically suffixed ids.
func (e *Engine) byID(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	id := el.Attr("id")
	if id == "" || containsQuote(id) {
		return nil
	}
	if doc.MatchOneXPath(fmt.Sprintf("//*[@id='%s']", id), el) {
		return &models.Locator{Kind: models.LocatorID, Value: id}
	}
	return nil
}

func (e *Engine) byName(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	name := el.Attr("name")
	if name == "" || containsQuote(name) {
		return nil
	}
	if doc.MatchOneCSS(fmt.Sprintf(`[name="%s"]`, name), el) {
		return &models.Locator{Kind: models.LocatorName, Value: name}
	}
	return nil
}

// byText matches the element's normalized text exactly. Long text and text
// containing quote characters is rejected outright instead of escaped, so the
// produced query string is always valid.
func (e *Engine) byText(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	if !textBearingTags[el.TagName()] {
		return nil
	}
	text := el.Text()
	if text == "" || len(text) > e.cfg.MaxTextLength || containsQuote(text) {
		return nil
	}
	expr := fmt.Sprintf("//%s[normalize-space(.)='%s']", el.TagName(), text)
	if doc.MatchOneXPath(expr, el) {
		return &models.Locator{Kind: models.LocatorXPath, Value: expr}
	}
	return nil
}

func (e *Engine) byAria(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	label := el.Attr("aria-label")
	if label == "" || containsQuote(label) {
		return nil
	}
	sel := fmt.Sprintf(`[aria-label="%s"]`, label)
	if doc.MatchOneCSS(sel, el) {
		return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
	}
	role := el.Attr("role")
	if role == "" || containsQuote(role) {
		return nil
	}
	sel = fmt.Sprintf(`[role="%s"][aria-label="%s"]`, role, label)
	if doc.MatchOneCSS(sel, el) {
		return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
	}
	return nil
}

func (e *Engine) byPlaceholder(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	ph := el.Attr("placeholder")
	if ph == "" || containsQuote(ph) {
		return nil
	}
	sel := fmt.Sprintf(`[placeholder="%s"]`, ph)
	if doc.MatchOneCSS(sel, el) {
		return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
	}
	return nil
}

// byClass tries the first class that survives the utility-pattern filter,
// first alone, then qualified by tag name.
func (e *Engine) byClass(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	meaningful := MeaningfulClasses(el.Classes())
	if len(meaningful) == 0 {
		return nil
	}
	class := meaningful[0]
	if !safeCSSIdent(class) {
		return nil
	}
	sel := "." + class
	if doc.MatchOneCSS(sel, el) {
		return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
	}
	sel = el.TagName() + "." + class
	if doc.MatchOneCSS(sel, el) {
		return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
	}
	return nil
}

// IsGoodLocator reports whether a locator is trusted enough that wrapper
// resolution may skip searching for a nested control: Id, Name, XPath, or a
// simple class-based CSS selector without descendant combinators.
func IsGoodLocator(loc models.Locator) bool {
	switch loc.Kind {
	case models.LocatorID, models.LocatorName, models.LocatorXPath:
		return true
	case models.LocatorCSSSelector:
		return isSimpleClassSelector(loc.Value)
	}
	return false
}

func isSimpleClassSelector(sel string) bool {
	if strings.ContainsAny(sel, " >+~[") {
		return false
	}
	dot := strings.IndexByte(sel, '.')
	if dot < 0 {
		return false
	}
	for _, r := range sel[:dot] {
		if !isAlpha(r) {
			return false
		}
	}
	return true
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func containsQuote(s string) bool {
	return strings.ContainsAny(s, `'"`)
}

// safeCSSIdent reports whether s can be embedded bare in a selector without
// escaping. Anything else is rejected rather than escaped.
func safeCSSIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r == '-' && i > 0, r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
