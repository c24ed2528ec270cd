package recorder

import (
	"testing"

	"uirecorder/internal/models"
	"uirecorder/internal/selector"
	"uirecorder/internal/snapshot"
)

func newTestReducer() *Reducer {
	return NewReducer(DefaultConfig(), selector.New(selector.Config{}))
}

func mustDoc(t *testing.T, rawHTML string, ts int64, states map[string]snapshot.State) *snapshot.Document {
	t.Helper()
	doc, err := snapshot.New(rawHTML, "http://app.local/", ts, states)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	return doc
}

func TestTypingCommitsOnceOnBlur(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<form><input type="text" name="q" data-uirec-id="i1"></form>`, 1000, nil)

	if got := r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "hello", TS: 1100}, doc); len(got) != 0 {
		t.Fatalf("input emitted %d actions, want 0", len(got))
	}
	got := r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1200}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeys {
		t.Fatalf("blur emitted %+v, want one SendKeys", got)
	}
	if got[0].Value != "hello" || got[0].Selector != models.LocatorName || got[0].SelectorValue != "q" {
		t.Errorf("SendKeys = %+v, want value hello via name q", got[0])
	}

	// Re-typing the identical value must not commit again.
	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "hello", TS: 1300}, doc)
	if got := r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1400}, doc); len(got) != 0 {
		t.Fatalf("unchanged value re-committed: %+v", got)
	}

	// A genuinely new value commits.
	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "hello!", TS: 1500}, doc)
	got = r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1600}, doc)
	if len(got) != 1 || got[0].Value != "hello!" {
		t.Fatalf("changed value emitted %+v, want SendKeys hello!", got)
	}
}

func TestBlurWithoutMeaningfulValue(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="text" name="q" data-uirec-id="i1">`, 1000, nil)

	if got := r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1100}, doc); len(got) != 0 {
		t.Errorf("blur without typing emitted %+v", got)
	}

	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "", TS: 1200}, doc)
	if got := r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1300}, doc); len(got) != 0 {
		t.Errorf("blur with empty value emitted %+v", got)
	}
}

func TestEnterSupersedesBlur(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="text" name="q" data-uirec-id="i1">`, 1000, nil)

	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "learn to code", TS: 1100}, doc)
	got := r.HandleEvent(RawEvent{Type: "keydown", Key: "Enter", Rid: "i1", Value: "learn to code", TS: 1200}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeysEnter {
		t.Fatalf("Enter emitted %+v, want one SendKeysEnter", got)
	}
	if got[0].Value != "learn to code" || got[0].Key != "Enter" {
		t.Errorf("SendKeysEnter = %+v, want full typed value and Enter key", got[0])
	}

	// The blur that follows focus loss must not double-commit.
	if got := r.HandleEvent(RawEvent{Type: "blur", Rid: "i1", TS: 1250}, doc); len(got) != 0 {
		t.Fatalf("blur after Enter emitted %+v", got)
	}
}

func TestEnterAlwaysEmits(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	states := map[string]snapshot.State{"i1": {Value: "golang"}}
	doc := mustDoc(t, `<input type="text" name="q" data-uirec-id="i1">`, 1000, states)

	// No pending value: re-submitting an unchanged search box still counts.
	got := r.HandleEvent(RawEvent{Type: "keydown", Key: "Enter", Rid: "i1", Value: "golang", TS: 2000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeysEnter || got[0].Value != "golang" {
		t.Fatalf("Enter without pending emitted %+v, want SendKeysEnter golang", got)
	}
	got = r.HandleEvent(RawEvent{Type: "keydown", Key: "Enter", Rid: "i1", Value: "golang", TS: 3000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeysEnter {
		t.Fatalf("repeat Enter emitted %+v, want SendKeysEnter", got)
	}
}

func TestEnterInTextareaIsTyping(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<textarea name="notes" data-uirec-id="t1"></textarea>`, 1000, nil)

	r.HandleEvent(RawEvent{Type: "input", Rid: "t1", Value: "line one", TS: 1100}, doc)
	if got := r.HandleEvent(RawEvent{Type: "keydown", Key: "Enter", Rid: "t1", Value: "line one", TS: 1200}, doc); len(got) != 0 {
		t.Fatalf("Enter in textarea emitted %+v", got)
	}
	r.HandleEvent(RawEvent{Type: "input", Rid: "t1", Value: "line one\nline two", TS: 1300}, doc)
	got := r.HandleEvent(RawEvent{Type: "blur", Rid: "t1", TS: 1400}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeys || got[0].Value != "line one\nline two" {
		t.Fatalf("textarea blur emitted %+v, want multiline SendKeys", got)
	}
}

func TestClickEchoSuppression(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<button id="go" data-uirec-id="b1">Go</button>`, 1000, nil)

	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1000}, doc); len(got) != 1 || got[0].Type != models.ActionClick {
		t.Fatalf("first click emitted %+v, want one Click", got)
	}
	// 100ms later: same element, same physical interaction echoed.
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1100}, doc); len(got) != 0 {
		t.Fatalf("echoed click emitted %+v", got)
	}
	// 600ms later: a deliberate second click.
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1700}, doc); len(got) != 1 {
		t.Fatalf("deliberate second click emitted %+v, want one Click", got)
	}
}

func TestSubmitClickFlushesTypedValue(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<form><input type="text" name="q" data-uirec-id="i1">`+
		`<button type="submit" data-uirec-id="b1">Search</button></form>`, 1000, nil)

	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "golang", TS: 1000}, doc)
	got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1100}, doc)
	if len(got) != 2 {
		t.Fatalf("submit click emitted %d actions (%+v), want SendKeys then Click", len(got), got)
	}
	if got[0].Type != models.ActionSendKeys || got[0].Value != "golang" {
		t.Errorf("flush = %+v, want SendKeys golang", got[0])
	}
	if got[1].Type != models.ActionClick || got[1].TagName != "button" {
		t.Errorf("click = %+v, want Click on button", got[1])
	}
}

func TestSubmitClickFlushesScriptedFill(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	// The page filled the email field without trusted input events; the coupon
	// field still holds its server-rendered default.
	states := map[string]snapshot.State{
		"i1": {Value: "user@example.com"},
		"i2": {Value: "WELCOME"},
	}
	doc := mustDoc(t, `<form><input type="email" name="email" data-uirec-id="i1">`+
		`<input type="text" name="coupon" value="WELCOME" data-uirec-id="i2">`+
		`<button type="submit" data-uirec-id="b1">Join</button></form>`, 1000, states)

	got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1100}, doc)
	if len(got) != 2 {
		t.Fatalf("submit click emitted %d actions (%+v), want SendKeys then Click", len(got), got)
	}
	if got[0].Type != models.ActionSendKeys || got[0].Value != "user@example.com" {
		t.Errorf("flush = %+v, want the scripted fill committed", got[0])
	}

	// A later submit click must not recommit the unchanged value.
	got = r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1700}, doc)
	if len(got) != 1 || got[0].Type != models.ActionClick {
		t.Fatalf("second submit click emitted %+v, want only the Click", got)
	}
}

func TestFocusClicksAreNoise(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="text" name="q" data-uirec-id="i1">`+
		`<select name="c" data-uirec-id="s1"><option value="a">A</option></select>`, 1000, nil)

	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "i1", TS: 1000}, doc); len(got) != 0 {
		t.Errorf("click on text input emitted %+v", got)
	}
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "s1", TS: 1100}, doc); len(got) != 0 {
		t.Errorf("click on select emitted %+v", got)
	}
}

func TestClickCarriesPendingValue(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<div id="combo" data-uirec-id="w1">`+
		`<input type="text" name="city" data-uirec-id="i1"></div>`, 1000, nil)

	// Combobox widgets swallow mousedown to keep focus in the filter input,
	// so no blur ever commits the text; the click itself must carry it.
	r.HandleEvent(RawEvent{Type: "input", Rid: "i1", Value: "ber", Path: []string{"w1"}, TS: 1000}, doc)
	got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", TS: 1100}, doc)
	if len(got) != 1 || got[0].Type != models.ActionClick {
		t.Fatalf("wrapper click emitted %+v, want one Click", got)
	}
	if got[0].Value != "ber" {
		t.Errorf("click value = %q, want the pending filter text", got[0].Value)
	}
}

func TestCheckboxSettleDelay(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	const page = `<div><input type="checkbox" id="subscribe" data-uirec-id="c1"><label>Subscribe</label></div>`

	// Snapshot taken 20ms after the click: checked state may not have
	// settled, the toggle must wait.
	early := mustDoc(t, page, 1020, map[string]snapshot.State{"c1": {Checked: false}})
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 1000}, early); len(got) != 0 {
		t.Fatalf("unsettled toggle emitted %+v", got)
	}
	if !r.HasDeferred() {
		t.Fatal("toggle was not deferred")
	}
	if got := r.SettlePending(early); len(got) != 0 {
		t.Fatalf("settle on the early snapshot emitted %+v", got)
	}

	// 100ms after the click the state is settled.
	settled := mustDoc(t, page, 1100, map[string]snapshot.State{"c1": {Checked: true}})
	got := r.SettlePending(settled)
	if len(got) != 1 || got[0].Type != models.ActionCheckbox {
		t.Fatalf("settled toggle emitted %+v, want one Checkbox", got)
	}
	if !got[0].Checked || got[0].Value != "check" {
		t.Errorf("settled Checkbox = checked %t value %q, want true/check", got[0].Checked, got[0].Value)
	}
	if got[0].Selector != models.LocatorID || got[0].SelectorValue != "subscribe" {
		t.Errorf("Checkbox locator = %s %q, want id subscribe", got[0].Selector, got[0].SelectorValue)
	}
	if got[0].Timestamp != 1000 {
		t.Errorf("Checkbox timestamp = %d, want the click time 1000", got[0].Timestamp)
	}
	if r.HasDeferred() {
		t.Error("deferred queue not drained after settling")
	}
}

func TestCheckboxImmediateWhenSnapshotSettled(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="checkbox" id="news" data-uirec-id="c1">`, 1100,
		map[string]snapshot.State{"c1": {Checked: true}})

	got := r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 1000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionCheckbox || !got[0].Checked {
		t.Fatalf("settled click emitted %+v, want checked Checkbox", got)
	}
}

func TestSwallowedToggleClickSuppressed(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	const page = `<input type="checkbox" id="tos" data-uirec-id="c1">`

	on := mustDoc(t, page, 1100, map[string]snapshot.State{"c1": {Checked: true}})
	got := r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 1000}, on)
	if len(got) != 1 || !got[0].Checked || got[0].Value != "check" {
		t.Fatalf("first toggle emitted %+v, want checked Checkbox with value check", got)
	}

	// A later click the page swallowed: the settled state never changed, so
	// recording it would replay a toggle the user never achieved.
	still := mustDoc(t, page, 1700, map[string]snapshot.State{"c1": {Checked: true}})
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 1600}, still); len(got) != 0 {
		t.Fatalf("swallowed toggle click emitted %+v", got)
	}

	// A click that genuinely toggles back off still records.
	off := mustDoc(t, page, 2400, map[string]snapshot.State{"c1": {Checked: false}})
	got = r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 2300}, off)
	if len(got) != 1 || got[0].Checked || got[0].Value != "uncheck" {
		t.Fatalf("toggle-off emitted %+v, want unchecked Checkbox with value uncheck", got)
	}
}

func TestLabelForRedirect(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	const page = `<input type="checkbox" id="news" data-uirec-id="c1"><label for="news" data-uirec-id="l1">News</label>`
	doc := mustDoc(t, page, 1100, map[string]snapshot.State{"c1": {Checked: true}})

	got := r.HandleEvent(RawEvent{Type: "click", Rid: "l1", TS: 1000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionCheckbox {
		t.Fatalf("label click emitted %+v, want one Checkbox", got)
	}
	if got[0].Selector != models.LocatorID || got[0].SelectorValue != "news" {
		t.Errorf("Checkbox locator = %s %q, want the redirected control id", got[0].Selector, got[0].SelectorValue)
	}

	// The browser fires a second trusted click on the control itself;
	// recording it would toggle the box twice at replay.
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "c1", TS: 1005}, doc); len(got) != 0 {
		t.Fatalf("echoed control click emitted %+v", got)
	}
	// And the change event from the same toggle is also covered.
	if got := r.HandleEvent(RawEvent{Type: "change", Rid: "c1", Checked: true, TS: 1006}, doc); len(got) != 0 {
		t.Fatalf("change after recorded toggle emitted %+v", got)
	}
}

func TestWrapperToggleDistanceGate(t *testing.T) {
	t.Parallel()

	const page = `<div data-uirec-id="w1"><input type="checkbox" name="sub" data-uirec-id="c1"></div>`
	states := map[string]snapshot.State{
		"c1": {Rect: snapshot.Rect{X: 100, Y: 100, W: 10, H: 20}, Checked: true}, // center (105, 110)
	}

	t.Run("toggle within gate resolves", func(t *testing.T) {
		t.Parallel()
		r := newTestReducer()
		doc := mustDoc(t, page, 1100, states)
		got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", X: 110, Y: 120, TS: 1000}, doc)
		if len(got) != 1 || got[0].Type != models.ActionCheckbox {
			t.Fatalf("near wrapper click emitted %+v, want one Checkbox", got)
		}
		if got[0].Selector != models.LocatorName || got[0].SelectorValue != "sub" {
			t.Errorf("Checkbox locator = %s %q, want the nested control", got[0].Selector, got[0].SelectorValue)
		}
	})

	t.Run("toggle beyond gate is dropped", func(t *testing.T) {
		t.Parallel()
		r := newTestReducer()
		doc := mustDoc(t, page, 1100, states)
		if got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", X: 400, Y: 120, TS: 1000}, doc); len(got) != 0 {
			t.Fatalf("far wrapper click emitted %+v, want nothing", got)
		}
	})

	t.Run("gating disabled resolves regardless of distance", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.GateByDistance = false
		r := NewReducer(cfg, selector.New(selector.Config{}))
		doc := mustDoc(t, page, 1100, states)
		got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", X: 400, Y: 120, TS: 1000}, doc)
		if len(got) != 1 || got[0].Type != models.ActionCheckbox {
			t.Fatalf("ungated wrapper click emitted %+v, want one Checkbox", got)
		}
	})
}

func TestWrapperWithStableLocatorClicksThrough(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<div class="consent-row" data-uirec-id="w1"><input type="checkbox" data-uirec-id="c1"></div>`,
		1100, map[string]snapshot.State{"c1": {Rect: snapshot.Rect{X: 10, Y: 10, W: 10, H: 10}}})

	got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", X: 12, Y: 12, TS: 1000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionClick {
		t.Fatalf("stable wrapper click emitted %+v, want one Click", got)
	}
	if got[0].Selector != models.LocatorCSSSelector || got[0].SelectorValue != ".consent-row" {
		t.Errorf("Click locator = %s %q, want the wrapper class", got[0].Selector, got[0].SelectorValue)
	}
}

func TestShadowToggleResolution(t *testing.T) {
	t.Parallel()

	const page = `<div data-uirec-id="w1"><template shadowrootmode="open"><input type="checkbox" data-uirec-id="c1"></template></div>`

	t.Run("shadow traversal on", func(t *testing.T) {
		t.Parallel()
		r := newTestReducer()
		doc := mustDoc(t, page, 1100, map[string]snapshot.State{"c1": {Checked: true}})
		got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", TS: 1000}, doc)
		if len(got) != 1 || got[0].Type != models.ActionCheckbox {
			t.Fatalf("shadow wrapper click emitted %+v, want one Checkbox", got)
		}
	})

	t.Run("shadow traversal off", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.TraverseShadowDOM = false
		r := NewReducer(cfg, selector.New(selector.Config{}))
		doc := mustDoc(t, page, 1100, map[string]snapshot.State{"c1": {Checked: true}})
		if got := r.HandleEvent(RawEvent{Type: "click", Rid: "w1", TS: 1000}, doc); len(got) != 0 {
			t.Fatalf("shadow-off wrapper click emitted %+v, want nothing", got)
		}
	})
}

func TestKeyboardToggleViaChange(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="checkbox" id="opt" data-uirec-id="c1">`, 1100, nil)

	// A change with no click nearby is a keyboard toggle; the event itself
	// carries the settled state.
	got := r.HandleEvent(RawEvent{Type: "change", Rid: "c1", Checked: true, TS: 1000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionCheckbox || !got[0].Checked {
		t.Fatalf("keyboard toggle emitted %+v, want checked Checkbox", got)
	}
}

func TestSelectChange(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<select name="country" data-uirec-id="s1">`+
		`<option value="us">United States</option><option value="de">Germany</option></select>`, 1000, nil)

	got := r.HandleEvent(RawEvent{Type: "change", Rid: "s1", Value: "de", TS: 1100}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSelectOption {
		t.Fatalf("select change emitted %+v, want one SelectOption", got)
	}
	a := got[0]
	if a.Value != "de" || a.Label != "Germany" {
		t.Errorf("SelectOption value/label = %q/%q, want de/Germany", a.Value, a.Label)
	}
	if a.Selector != models.LocatorName || a.SelectorValue != "country" {
		t.Errorf("SelectOption locator = %s %q, want name country", a.Selector, a.SelectorValue)
	}
}

func TestDateInputCommitsOnChange(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<input type="date" name="departure" data-uirec-id="d1">`, 1000, nil)

	got := r.HandleEvent(RawEvent{Type: "change", Rid: "d1", Value: "2024-03-01", TS: 1100}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSendKeys || got[0].Value != "2024-03-01" {
		t.Fatalf("date change emitted %+v, want one SendKeys", got)
	}
	if got[0].ElementType != "date" {
		t.Errorf("element type = %q, want date", got[0].ElementType)
	}
	// Re-picking the same date is not a new action.
	if got := r.HandleEvent(RawEvent{Type: "change", Rid: "d1", Value: "2024-03-01", TS: 1400}, doc); len(got) != 0 {
		t.Fatalf("unchanged date re-emitted %+v", got)
	}
}

func TestSubmitOnlyWhenUncaused(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<form id="checkout" data-uirec-id="f1"><button data-uirec-id="b1">Pay</button></form>`, 1000, nil)

	// A submit right after a recorded click replays through that click.
	r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1000}, doc)
	if got := r.HandleEvent(RawEvent{Type: "submit", Rid: "f1", TS: 1050}, doc); len(got) != 0 {
		t.Fatalf("submit after click emitted %+v", got)
	}

	// A script-driven submit with no recorded cause is recorded itself.
	got := r.HandleEvent(RawEvent{Type: "submit", Rid: "f1", TS: 5000}, doc)
	if len(got) != 1 || got[0].Type != models.ActionSubmit {
		t.Fatalf("standalone submit emitted %+v, want one Submit", got)
	}
	if got[0].Selector != models.LocatorID || got[0].SelectorValue != "checkout" {
		t.Errorf("Submit locator = %s %q, want the form id", got[0].Selector, got[0].SelectorValue)
	}
}

func TestNavigateObservation(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	if nav := r.ObserveURL("http://app.local/", 1000); nav == nil || nav.Type != models.ActionNavigate {
		t.Fatalf("first observation = %+v, want Navigate", nav)
	}
	if nav := r.ObserveURL("http://app.local/", 1100); nav != nil {
		t.Fatalf("unchanged URL observation = %+v, want nil", nav)
	}
	nav := r.ObserveURL("http://app.local/results", 2000)
	if nav == nil || nav.URL != "http://app.local/results" {
		t.Fatalf("changed URL observation = %+v, want Navigate to results", nav)
	}
}

func TestReductionSurvivesBadInput(t *testing.T) {
	t.Parallel()

	r := newTestReducer()
	doc := mustDoc(t, `<button data-uirec-id="b1">Go</button>`, 1000, nil)

	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "missing", TS: 1000}, doc); len(got) != 0 {
		t.Errorf("click on unknown rid emitted %+v", got)
	}
	if got := r.HandleEvent(RawEvent{Type: "mystery", Rid: "b1", TS: 1000}, doc); len(got) != 0 {
		t.Errorf("unknown event type emitted %+v", got)
	}
	if got := r.HandleEvent(RawEvent{Type: "click", Rid: "b1", TS: 1000}, nil); len(got) != 0 {
		t.Errorf("nil snapshot emitted %+v", got)
	}
}
