package recorder

import (
	"testing"

	"uirecorder/internal/models"
	"uirecorder/internal/snapshot"
)

// TestSearchThenConsentFlow drives the reducer through a realistic capture
// sequence the way the session poll loop does: type a query, submit it with
// Enter, then tick a consent checkbox. The raw stream contains focus clicks,
// incremental input events and a trailing blur; none of those may survive
// into the reduced log.
func TestSearchThenConsentFlow(t *testing.T) {
	t.Parallel()

	const page = `<div class="hero">` +
		`<input type="text" data-testid="text-input" data-uirec-id="i1">` +
		`</div>` +
		`<div><section><div><p>` +
		`<input type="checkbox" data-uirec-id="cb1"><label>Subscribe to the newsletter</label>` +
		`</p></div></section></div>` +
		`<div><section><div><p>` +
		`<input type="checkbox" data-uirec-id="cb2"><label>I agree to the terms</label>` +
		`</p></div></section></div>`

	r := newTestReducer()
	var recorded []models.Action
	collect := func(actions []models.Action) {
		recorded = append(recorded, actions...)
	}

	if nav := r.ObserveURL("https://app.local/signup", 1000); nav != nil {
		recorded = append(recorded, *nav)
	}

	doc1 := mustDoc(t, page, 1400, nil)
	collect(r.HandleEvent(RawEvent{Type: "click", Rid: "i1", X: 200, Y: 80, TS: 1500}, doc1))
	collect(r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "learn", TS: 1600}, doc1))
	collect(r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "learn to", TS: 1700}, doc1))
	collect(r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "learn to code", TS: 1800}, doc1))
	collect(r.HandleEvent(RawEvent{Type: "keydown", Key: "Enter", Rid: "i1", Value: "learn to code", TS: 1900}, doc1))
	collect(r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 2400}, doc1))

	doc2 := mustDoc(t, page, 2600, map[string]snapshot.State{"cb2": {Checked: true}})
	collect(r.HandleEvent(RawEvent{Type: "click", Rid: "cb2", X: 40, Y: 300, TS: 2500}, doc2))
	collect(r.HandleEvent(RawEvent{Type: "change", Rid: "cb2", Checked: true, TS: 2510}, doc2))

	// Session stop: settle deferred toggles, flush pending input, dedupe.
	collect(r.SettlePending(doc2))
	collect(r.FlushPending(doc2, 2700))
	got := Deduplicate(recorded)

	if len(got) != 3 {
		t.Fatalf("reduced log has %d actions (%+v), want 3", len(got), got)
	}

	if got[0].Type != models.ActionNavigate || got[0].URL != "https://app.local/signup" {
		t.Errorf("action 0 = %+v, want Navigate to the signup page", got[0])
	}

	enter := got[1]
	if enter.Type != models.ActionSendKeysEnter {
		t.Fatalf("action 1 = %+v, want SendKeysEnter", enter)
	}
	if enter.Selector != models.LocatorCSSSelector || enter.SelectorValue != `[data-testid="text-input"]` {
		t.Errorf("SendKeysEnter locator = %s %q, want the test attribute selector", enter.Selector, enter.SelectorValue)
	}
	if enter.Value != "learn to code" || enter.Key != "Enter" {
		t.Errorf("SendKeysEnter value/key = %q/%q, want full query and Enter", enter.Value, enter.Key)
	}

	box := got[2]
	if box.Type != models.ActionCheckbox || !box.Checked || box.Value != "check" {
		t.Fatalf("action 2 = %+v, want a checked Checkbox", box)
	}
	wantXPath := `//label[contains(normalize-space(.), 'I agree to the terms')]/preceding-sibling::input[@type='checkbox']`
	if box.Selector != models.LocatorXPath || box.SelectorValue != wantXPath {
		t.Errorf("Checkbox locator = %s %q, want %q", box.Selector, box.SelectorValue, wantXPath)
	}
}
