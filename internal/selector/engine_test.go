package selector

import (
	"strings"
	"testing"

	"uirecorder/internal/models"
	"uirecorder/internal/snapshot"
)

func mustDoc(t *testing.T, rawHTML string) *snapshot.Document {
	t.Helper()
	doc, err := snapshot.New(rawHTML, "http://app.local/", 1000, nil)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	return doc
}

// target returns the element tagged data-uirec-id="t" in the fixture.
func target(t *testing.T, doc *snapshot.Document) *snapshot.Element {
	t.Helper()
	el := doc.ByRecID("t")
	if el == nil {
		t.Fatal("fixture has no element tagged with rec id t")
	}
	return el
}

func TestEngineLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want models.Locator
	}{
		{
			name: "test attribute wins over unique id",
			html: `<button id="save-btn" data-testid="save" data-uirec-id="t">Save</button>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: `[data-testid="save"]`},
		},
		{
			name: "duplicated test attribute falls through to id",
			html: `<div data-testid="row" data-uirec-id="t" id="first-row"></div>` +
				`<div data-testid="row"></div>`,
			want: models.Locator{Kind: models.LocatorID, Value: "first-row"},
		},
		{
			name: "unique id",
			html: `<input id="email-field" type="email" data-uirec-id="t">`,
			want: models.Locator{Kind: models.LocatorID, Value: "email-field"},
		},
		{
			name: "duplicated id skipped in favor of name",
			html: `<input id="field" name="username" data-uirec-id="t"><input id="field">`,
			want: models.Locator{Kind: models.LocatorName, Value: "username"},
		},
		{
			name: "name attribute",
			html: `<input name="q" data-uirec-id="t">`,
			want: models.Locator{Kind: models.LocatorName, Value: "q"},
		},
		{
			name: "visible text on a button",
			html: `<button data-uirec-id="t">Save changes</button><button>Cancel</button>`,
			want: models.Locator{Kind: models.LocatorXPath, Value: "//button[normalize-space(.)='Save changes']"},
		},
		{
			name: "overlong text rejected, structural path used",
			html: `<button data-uirec-id="t">` + strings.Repeat("very long label ", 4) + `</button>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: "button"},
		},
		{
			name: "text with quote rejected, positional segment used",
			html: `<button data-uirec-id="t">Don't panic</button><button>OK</button>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: "button:nth-of-type(1)"},
		},
		{
			name: "aria label",
			html: `<input type="button" aria-label="Close dialog" data-uirec-id="t">`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: `[aria-label="Close dialog"]`},
		},
		{
			name: "role plus aria label when aria label alone is ambiguous",
			html: `<input type="button" aria-label="Close">` +
				`<input type="button" role="button" aria-label="Close" data-uirec-id="t">`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: `[role="button"][aria-label="Close"]`},
		},
		{
			name: "placeholder",
			html: `<input placeholder="Search products" data-uirec-id="t">`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: `[placeholder="Search products"]`},
		},
		{
			name: "meaningful class survives generated siblings",
			html: `<form class="atm_x7 css-1a2b x9 login-form" data-uirec-id="t"></form>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: ".login-form"},
		},
		{
			name: "class qualified by tag when bare class is ambiguous",
			html: `<div class="item"></div><span class="item" data-uirec-id="t"></span>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: "span.item"},
		},
		{
			name: "structural css path climbs to a classed ancestor",
			html: `<div class="products"><div><span>a</span><span data-uirec-id="t">b</span></div></div>` +
				`<div class="sidebar"><div><span>c</span><span>d</span></div></div>`,
			want: models.Locator{Kind: models.LocatorCSSSelector, Value: "div.products div span:nth-of-type(2)"},
		},
		{
			name: "xpath anchored on deep ancestor id",
			html: `<div id="login-panel"><div><div><div><div><input type="text" data-uirec-id="t"></div></div></div></div></div>` +
				`<div><div><div><div><div><input type="text"></div></div></div></div></div>`,
			want: models.Locator{Kind: models.LocatorXPath, Value: "//*[@id='login-panel']/div/div/div/div/input"},
		},
		{
			name: "checkbox located through trailing label text",
			html: `<div><section><div><p><input type="checkbox"><label>Subscribe to newsletter</label></p></div></section></div>` +
				`<div><section><div><p><input type="checkbox" data-uirec-id="t"><label>I agree to the terms</label></p></div></section></div>`,
			want: models.Locator{
				Kind:  models.LocatorXPath,
				Value: "//label[contains(normalize-space(.), 'I agree to the terms')]/preceding-sibling::input[@type='checkbox']",
			},
		},
		{
			name: "radio located through wrapping label text",
			html: `<div><div><div><label><input type="radio">Standard shipping</label></div></div></div>` +
				`<div><div><div><label><input type="radio" data-uirec-id="t">Express shipping</label></div></div></div>`,
			want: models.Locator{
				Kind:  models.LocatorXPath,
				Value: "//label[contains(normalize-space(.), 'Express shipping')]//input[@type='radio']",
			},
		},
		{
			name: "positional xpath when nothing shorter is unique",
			html: `<div><div><div><div><div><input type="text" data-uirec-id="t"></div></div></div></div></div>` +
				`<div><div><div><div><div><input type="text"></div></div></div></div></div>`,
			want: models.Locator{Kind: models.LocatorXPath, Value: "/html/body/div[1]/div/div/div/div/input"},
		},
		{
			name: "tag name fallback inside a shadow root",
			html: `<input type="text" name="light-input">` +
				`<div><template shadowrootmode="open"><input type="text" data-uirec-id="t"></template></div>`,
			want: models.Locator{Kind: models.LocatorTagName, Value: "input"},
		},
	}

	engine := New(Config{})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := mustDoc(t, tt.html)
			el := target(t, doc)

			got := engine.Locate(doc, el)
			if got != tt.want {
				t.Errorf("Locate() = {%s %q}, want {%s %q}", got.Kind, got.Value, tt.want.Kind, tt.want.Value)
			}
			if strings.Contains(got.Value, snapshot.RecIDAttr) {
				t.Errorf("locator %q leaks the recorder tracking attribute", got.Value)
			}
		})
	}
}

// TestLocateUniqueness checks the core contract: whenever the engine emits
// anything more specific than a bare tag name, the locator resolves to
// exactly the element it was computed for.
func TestLocateUniqueness(t *testing.T) {
	t.Parallel()

	const page = `
<header><nav><a href="/">Home</a><a href="/docs">Docs</a></nav></header>
<main>
  <form class="signup-form">
    <input type="email" name="email" placeholder="Email address">
    <input type="password" id="pw">
    <div><input type="checkbox"><label>Remember me</label></div>
    <div><input type="checkbox"><label>Subscribe</label></div>
    <button data-testid="submit">Sign up</button>
  </form>
  <ul class="links"><li><a href="/a">Alpha</a></li><li><a href="/b">Beta</a></li></ul>
</main>`

	doc := mustDoc(t, page)
	engine := New(Config{})

	doc.Walk(func(el *snapshot.Element) bool {
		tag := el.TagName()
		if tag == "html" || tag == "head" || tag == "body" || tag == "script" {
			return true
		}
		loc := engine.Locate(doc, el)
		if loc.Value == "" {
			t.Errorf("<%s>: empty locator value", tag)
			return true
		}
		switch loc.Kind {
		case models.LocatorID:
			if !doc.MatchOneXPath("//*[@id='"+loc.Value+"']", el) {
				t.Errorf("<%s>: id %q is not unique", tag, loc.Value)
			}
		case models.LocatorName:
			if !doc.MatchOneCSS(`[name="`+loc.Value+`"]`, el) {
				t.Errorf("<%s>: name %q is not unique", tag, loc.Value)
			}
		case models.LocatorCSSSelector:
			if !doc.MatchOneCSS(loc.Value, el) {
				t.Errorf("<%s>: css %q does not resolve to its element", tag, loc.Value)
			}
		case models.LocatorXPath:
			if !doc.MatchOneXPath(loc.Value, el) {
				t.Errorf("<%s>: xpath %q does not resolve to its element", tag, loc.Value)
			}
		case models.LocatorTagName:
			if loc.Value != tag {
				t.Errorf("<%s>: tag fallback reports %q", tag, loc.Value)
			}
		default:
			t.Errorf("<%s>: unexpected locator kind %s", tag, loc.Kind)
		}
		return true
	})
}

func TestLocateNeverFails(t *testing.T) {
	t.Parallel()

	engine := New(Config{})
	if got := engine.Locate(nil, nil); got.Kind != models.LocatorTagName || got.Value != "*" {
		t.Errorf("Locate(nil, nil) = {%s %q}, want tag fallback", got.Kind, got.Value)
	}

	doc := mustDoc(t, `<p data-uirec-id="t">hello</p>`)
	if got := engine.Locate(nil, target(t, doc)); got.Kind != models.LocatorTagName {
		t.Errorf("Locate(nil doc) kind = %s, want %s", got.Kind, models.LocatorTagName)
	}
}

func TestIsGoodLocator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		loc  models.Locator
		want bool
	}{
		{"id", models.Locator{Kind: models.LocatorID, Value: "pw"}, true},
		{"name", models.Locator{Kind: models.LocatorName, Value: "email"}, true},
		{"xpath", models.Locator{Kind: models.LocatorXPath, Value: "//button[normalize-space(.)='Go']"}, true},
		{"bare class css", models.Locator{Kind: models.LocatorCSSSelector, Value: ".login-form"}, true},
		{"tag qualified class css", models.Locator{Kind: models.LocatorCSSSelector, Value: "span.item"}, true},
		{"descendant css", models.Locator{Kind: models.LocatorCSSSelector, Value: "div.products div span"}, false},
		{"attribute css", models.Locator{Kind: models.LocatorCSSSelector, Value: `[data-testid="save"]`}, false},
		{"bare tag css", models.Locator{Kind: models.LocatorCSSSelector, Value: "button"}, false},
		{"tag name", models.Locator{Kind: models.LocatorTagName, Value: "input"}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsGoodLocator(tt.loc); got != tt.want {
				t.Errorf("IsGoodLocator(%s %q) = %v, want %v", tt.loc.Kind, tt.loc.Value, got, tt.want)
			}
		})
	}
}
