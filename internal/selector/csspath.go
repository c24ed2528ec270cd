package selector

import (
	"fmt"
	"strings"

	"uirecorder/internal/models"
	"uirecorder/internal/snapshot"
)

// byCSSPath builds a structural CSS path by climbing from the element through
// a bounded number of ancestors, picking the strongest feature at each level.
// The path is re-validated for uniqueness after every level and accepted as
// soon as it pins down the element. Climbing stops at html, body, and at
// inlined shadow-root boundaries, which a CSS path cannot cross.
func (e *Engine) byCSSPath(doc *snapshot.Document, el *snapshot.Element) *models.Locator {
	var segments []string
	cur := el
	for depth := 0; cur != nil && depth < e.cfg.CSSPathMaxDepth; depth++ {
		tag := cur.TagName()
		if tag == "html" || tag == "body" || tag == "template" {
			break
		}
		seg, anchored := pathSegment(cur)
		segments = append([]string{seg}, segments...)
		sel := strings.Join(segments, " ")
		if doc.MatchOneCSS(sel, el) {
			return &models.Locator{Kind: models.LocatorCSSSelector, Value: sel}
		}
		if anchored {
			break
		}
		cur = cur.Parent()
	}
	return nil
}

// pathSegment picks the strongest stable feature for one path level:
// id, then meaningful class, then test attribute, then tag with a
// positional suffix. An id segment anchors the path, so climbing past
// it adds nothing.
func pathSegment(el *snapshot.Element) (seg string, anchored bool) {
	if id := el.Attr("id"); id != "" && safeCSSIdent(id) {
		return "#" + id, true
	}
	if classes := MeaningfulClasses(el.Classes()); len(classes) > 0 && safeCSSIdent(classes[0]) {
		return el.TagName() + "." + classes[0], false
	}
	for _, attr := range testAttrs {
		if v := el.Attr(attr); v != "" && !containsQuote(v) {
			return fmt.Sprintf(`%s[%s="%s"]`, el.TagName(), attr, v), false
		}
	}
	return el.TagName() + nthOfTypeSuffix(el), false
}

func nthOfTypeSuffix(el *snapshot.Element) string {
	if sameTagSiblings(el) < 2 {
		return ""
	}
	return fmt.Sprintf(":nth-of-type(%d)", el.NthOfType())
}

func sameTagSiblings(el *snapshot.Element) int {
	parent := el.Parent()
	if parent == nil {
		return 1
	}
	n := 0
	for _, c := range parent.Children() {
		if c.TagName() == el.TagName() {
			n++
		}
	}
	return n
}
