package recorder

import (
	"log"
	"math"
	"time"

	"uirecorder/internal/models"
	"uirecorder/internal/selector"
	"uirecorder/internal/snapshot"
)

// Config tunes event reduction. DefaultConfig enables every optional
// behavior; zero durations and limits are replaced with defaults by
// NewReducer, the boolean switches are taken as given.
type Config struct {
	SettleDelay         time.Duration // wait before reading toggled checkbox state
	ClickDedupWindow    time.Duration // window for suppressing repeated clicks on one element
	DistanceGatePx      float64       // max distance between click point and a resolved toggle
	WrapperParentLevels int           // ancestor levels searched during wrapper resolution
	ShadowDepthLimit    int           // max shadow-root nesting searched during wrapper resolution
	TraverseShadowDOM   bool
	GateByDistance      bool
}

func DefaultConfig() Config {
	return Config{
		SettleDelay:         50 * time.Millisecond,
		ClickDedupWindow:    500 * time.Millisecond,
		DistanceGatePx:      100,
		WrapperParentLevels: 2,
		ShadowDepthLimit:    5,
		TraverseShadowDOM:   true,
		GateByDistance:      true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.ClickDedupWindow <= 0 {
		c.ClickDedupWindow = d.ClickDedupWindow
	}
	if c.DistanceGatePx <= 0 {
		c.DistanceGatePx = d.DistanceGatePx
	}
	if c.WrapperParentLevels <= 0 {
		c.WrapperParentLevels = d.WrapperParentLevels
	}
	if c.ShadowDepthLimit <= 0 {
		c.ShadowDepthLimit = d.ShadowDepthLimit
	}
	return c
}

// pendingValue is an uncommitted typed value. It is stored under the rid of
// the control itself and of every composed ancestor, so a blur or Enter that
// surfaces on a shadow host still finds it; owner always names the control.
type pendingValue struct {
	owner string
	value string
}

// deferredToggle is a checkbox or radio click waiting out the settle delay
// before its checked state is read from a snapshot.
type deferredToggle struct {
	rid string
	ts  int64
}

// Reducer folds raw browser events into replayable actions. All of its
// caches are keyed by the session-scoped tracking ids, never by locators, so
// selector churn cannot corrupt them. A Reducer is confined to one recording
// session and is not safe for concurrent use.
type Reducer struct {
	cfg    Config
	engine *selector.Engine

	pending      map[string]pendingValue
	pendingOrder []string
	lastRecorded map[string]string
	checkedState map[string]bool
	deferred     []deferredToggle
	lastClickRid string
	lastClickTS  int64
	lastEnterTS  int64
	currentURL   string
}

func NewReducer(cfg Config, engine *selector.Engine) *Reducer {
	return &Reducer{
		cfg:          cfg.withDefaults(),
		engine:       engine,
		pending:      make(map[string]pendingValue),
		lastRecorded: make(map[string]string),
		checkedState: make(map[string]bool),
	}
}

// ObserveURL emits a navigation action when the page URL changed since the
// last observation, including the very first one of the session.
func (r *Reducer) ObserveURL(url string, ts int64) *models.Action {
	if url == "" || url == r.currentURL {
		return nil
	}
	r.currentURL = url
	return &models.Action{Type: models.ActionNavigate, URL: url, Timestamp: ts}
}

// HandleEvent folds one raw event into zero or more actions, reading element
// state from doc. It never panics: a failure inside reduction drops the event
// and leaves the session recording.
func (r *Reducer) HandleEvent(ev RawEvent, doc *snapshot.Document) (out []models.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("⚠️ Event reduction recovered from panic: %v", rec)
			out = nil
		}
	}()
	if doc == nil {
		return nil
	}
	if r.currentURL == "" {
		r.currentURL = doc.URL()
	}
	switch ev.Type {
	case evInput:
		r.handleInput(ev, doc)
		return nil
	case evClick:
		return r.handleClick(ev, doc)
	case evChange:
		return r.handleChange(ev, doc)
	case evBlur:
		return r.handleBlur(ev, doc)
	case evKeydown:
		return r.handleKeydown(ev, doc)
	case evSubmit:
		return r.handleSubmit(ev, doc)
	}
	return nil
}

// SettlePending emits deferred checkbox and radio actions whose settle delay
// has elapsed by the time doc was captured, reading their final state.
func (r *Reducer) SettlePending(doc *snapshot.Document) (out []models.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("⚠️ Toggle settling recovered from panic: %v", rec)
			out = nil
		}
	}()
	if doc == nil || len(r.deferred) == 0 {
		return nil
	}
	settleMS := r.cfg.SettleDelay.Milliseconds()
	var keep []deferredToggle
	for _, d := range r.deferred {
		if doc.CapturedAt()-d.ts < settleMS {
			keep = append(keep, d)
			continue
		}
		el := doc.ByRecID(d.rid)
		if el == nil {
			log.Printf("⚠️ Deferred toggle target disappeared before settling")
			continue
		}
		out = append(out, r.settleToggle(doc, el, el.Checked(), d.ts)...)
	}
	r.deferred = keep
	return out
}

// HasDeferred reports whether any toggle is still waiting out its settle
// delay, which tells the session a fresh snapshot is worth fetching even
// when no new events arrived.
func (r *Reducer) HasDeferred() bool {
	return len(r.deferred) > 0
}

// FlushPending commits every uncommitted typed value as SendKeys, in typing
// order, then scans the page's remaining text inputs for values that changed
// without trusted input events (autofill, scripted fills). The recording
// session calls it on stop so trailing input is not lost; clicks on
// submit-style elements trigger it too.
func (r *Reducer) FlushPending(doc *snapshot.Document, ts int64) []models.Action {
	if doc == nil {
		return nil
	}
	var out []models.Action
	flushed := make(map[string]bool)
	owners := append([]string(nil), r.pendingOrder...)
	for _, owner := range owners {
		entry, ok := r.pending[owner]
		if !ok || entry.owner != owner {
			continue
		}
		value := entry.value
		r.clearPending(owner)
		flushed[owner] = true
		if value == "" || r.lastRecorded[owner] == value {
			continue
		}
		el := doc.ByRecID(owner)
		if el == nil {
			log.Printf("⚠️ Pending value target disappeared, dropping typed text")
			continue
		}
		r.lastRecorded[owner] = value
		out = append(out, r.textAction(models.ActionSendKeys, doc, el, value, "", ts))
	}
	for _, el := range doc.TextInputs() {
		rid := el.RecID()
		if rid == "" || flushed[rid] {
			continue
		}
		st, ok := el.State()
		if !ok {
			continue
		}
		// A live value equal to the markup's own value attribute is a
		// render-time default, not something the session changed.
		value := st.Value
		if value == "" || value == el.Attr("value") || r.lastRecorded[rid] == value {
			continue
		}
		r.lastRecorded[rid] = value
		out = append(out, r.textAction(models.ActionSendKeys, doc, el, value, "", ts))
	}
	return out
}

func (r *Reducer) handleInput(ev RawEvent, doc *snapshot.Document) {
	el := doc.ByRecID(ev.Rid)
	if el == nil || !el.IsTextInput() {
		return
	}
	// Propagation stops below the document body: a body-level click must not
	// inherit a descendant's typed text.
	path := make([]string, 0, len(ev.Path))
	for _, rid := range ev.Path {
		anc := doc.ByRecID(rid)
		if anc == nil {
			continue
		}
		if tag := anc.TagName(); tag == "body" || tag == "html" {
			continue
		}
		path = append(path, rid)
	}
	r.rememberPending(ev.Rid, ev.Value, path)
}

func (r *Reducer) handleBlur(ev RawEvent, doc *snapshot.Document) []models.Action {
	entry, ok := r.pending[ev.Rid]
	if !ok {
		return nil
	}
	value := entry.value
	owner := entry.owner
	r.clearPending(owner)
	if value == "" || r.lastRecorded[owner] == value {
		return nil
	}
	el := doc.ByRecID(owner)
	if el == nil {
		log.Printf("⚠️ Blurred control disappeared, dropping typed text")
		return nil
	}
	r.lastRecorded[owner] = value
	return []models.Action{r.textAction(models.ActionSendKeys, doc, el, value, "", ev.TS)}
}

// handleKeydown turns Enter presses inside single-line inputs into
// SendKeysEnter, committing the pending value. Unlike blur, Enter always
// emits: re-submitting an unchanged search box is a real user action.
func (r *Reducer) handleKeydown(ev RawEvent, doc *snapshot.Document) []models.Action {
	if ev.Key != "Enter" {
		return nil
	}
	owner := ev.Rid
	value := ev.Value
	if entry, ok := r.pending[ev.Rid]; ok {
		owner, value = entry.owner, entry.value
	}
	el := doc.ByRecID(owner)
	if el == nil || !el.IsTextInput() {
		return nil
	}
	if el.TagName() == "textarea" {
		// Enter in a textarea is a newline, not a submit; the value stays
		// pending until it commits through blur or a flush.
		return nil
	}
	if value == "" {
		value = el.Value()
	}
	r.clearPending(owner)
	r.lastRecorded[owner] = value
	r.lastEnterTS = ev.TS
	return []models.Action{r.textAction(models.ActionSendKeysEnter, doc, el, value, "Enter", ev.TS)}
}

func (r *Reducer) handleClick(ev RawEvent, doc *snapshot.Document) []models.Action {
	el := doc.ByRecID(ev.Rid)
	if el == nil {
		log.Printf("⚠️ Click target not present in snapshot, dropping click")
		return nil
	}

	target := el
	if target.TagName() == "label" {
		if forID := target.Attr("for"); forID != "" {
			if ctrl := doc.ByID(forID); ctrl != nil {
				target = ctrl
			}
		}
	}

	if target.IsCheckboxOrRadio() {
		return r.toggleClick(doc, target, ev)
	}

	if wrapperTags[target.TagName()] {
		loc := r.engine.Locate(doc, target)
		if !selector.IsGoodLocator(loc) {
			if cand := r.nearbyToggle(doc, target, ev); cand != nil {
				return r.toggleClick(doc, cand, ev)
			}
			log.Printf("⚠️ Dropping wrapper click without a stable locator or nearby toggle")
			return nil
		}
	}

	return r.genericClick(doc, target, ev)
}

func (r *Reducer) genericClick(doc *snapshot.Document, target *snapshot.Element, ev RawEvent) []models.Action {
	tag := target.TagName()
	// Clicks that only focus a text control or open a select dropdown are
	// noise: typing and option changes carry the intent.
	if target.IsTextInput() || tag == "select" || tag == "option" {
		return nil
	}
	rid := target.RecID()
	if r.clickSuppressed(rid, ev.TS) {
		return nil
	}
	r.noteClick(rid, ev.TS)

	var out []models.Action
	if submitLike(target) {
		out = r.FlushPending(doc, ev.TS)
	}
	loc := r.engine.Locate(doc, target)
	a := models.Action{
		Type:          models.ActionClick,
		Selector:      loc.Kind,
		SelectorValue: loc.Value,
		TagName:       tag,
		URL:           r.currentURL,
		Timestamp:     ev.TS,
	}
	// A click on a wrapper whose descendant input holds uncommitted text
	// carries that text along; the flush above already emptied it for
	// submit-like targets.
	if entry, ok := r.pending[rid]; ok {
		a.Value = entry.value
	}
	if tag == "input" {
		a.ElementType = target.InputType()
	}
	return append(out, a)
}

func (r *Reducer) toggleClick(doc *snapshot.Document, target *snapshot.Element, ev RawEvent) []models.Action {
	rid := target.RecID()
	if r.clickSuppressed(rid, ev.TS) {
		return nil
	}
	r.noteClick(rid, ev.TS)
	if doc.CapturedAt()-ev.TS < r.cfg.SettleDelay.Milliseconds() {
		r.deferred = append(r.deferred, deferredToggle{rid: rid, ts: ev.TS})
		return nil
	}
	return r.settleToggle(doc, target, target.Checked(), ev.TS)
}

func (r *Reducer) handleChange(ev RawEvent, doc *snapshot.Document) []models.Action {
	el := doc.ByRecID(ev.Rid)
	if el == nil {
		return nil
	}
	if el.TagName() == "select" {
		return r.selectChange(doc, el, ev)
	}
	if el.IsCheckboxOrRadio() {
		// A change right after a recorded click is the same toggle; one
		// arriving alone means a keyboard toggle and carries settled state.
		if r.clickSuppressed(ev.Rid, ev.TS) {
			return nil
		}
		r.noteClick(ev.Rid, ev.TS)
		return r.settleToggle(doc, el, ev.Checked, ev.TS)
	}

	// Controls that never go through the typing path (date, range, color,
	// custom elements) commit through change. Text inputs reaching here are
	// already covered by the committed-value cache, so nothing double-emits.
	value := ev.Value
	if value == "" {
		value = el.Value()
	}
	if value == "" || r.lastRecorded[ev.Rid] == value {
		return nil
	}
	r.clearPending(ev.Rid)
	r.lastRecorded[ev.Rid] = value
	return []models.Action{r.textAction(models.ActionSendKeys, doc, el, value, "", ev.TS)}
}

func (r *Reducer) selectChange(doc *snapshot.Document, el *snapshot.Element, ev RawEvent) []models.Action {
	loc := r.engine.Locate(doc, el)
	a := models.Action{
		Type:          models.ActionSelectOption,
		Selector:      loc.Kind,
		SelectorValue: loc.Value,
		Value:         ev.Value,
		Label:         optionLabel(el, ev.Value),
		TagName:       "select",
		URL:           r.currentURL,
		Timestamp:     ev.TS,
	}
	return []models.Action{a}
}

// handleSubmit records form submissions that no recorded click or Enter
// already causes at replay, such as javascript-driven submits.
func (r *Reducer) handleSubmit(ev RawEvent, doc *snapshot.Document) []models.Action {
	win := r.cfg.ClickDedupWindow.Milliseconds()
	if ev.TS-r.lastClickTS < win || ev.TS-r.lastEnterTS < win {
		return nil
	}
	el := doc.ByRecID(ev.Rid)
	if el == nil {
		return nil
	}
	out := r.FlushPending(doc, ev.TS)
	loc := r.engine.Locate(doc, el)
	return append(out, models.Action{
		Type:          models.ActionSubmit,
		Selector:      loc.Kind,
		SelectorValue: loc.Value,
		TagName:       el.TagName(),
		URL:           r.currentURL,
		Timestamp:     ev.TS,
	})
}

func (r *Reducer) textAction(typ models.ActionType, doc *snapshot.Document, el *snapshot.Element, value, key string, ts int64) models.Action {
	loc := r.engine.Locate(doc, el)
	a := models.Action{
		Type:          typ,
		Selector:      loc.Kind,
		SelectorValue: loc.Value,
		Value:         value,
		Key:           key,
		TagName:       el.TagName(),
		URL:           r.currentURL,
		Timestamp:     ts,
	}
	if el.TagName() == "input" {
		a.ElementType = el.InputType()
	}
	return a
}

// settleToggle emits a toggle action only when the settled state differs from
// the last one observed for the element, so a click the page swallowed does
// not record a phantom toggle. A first observation always emits.
func (r *Reducer) settleToggle(doc *snapshot.Document, el *snapshot.Element, checked bool, ts int64) []models.Action {
	if rid := el.RecID(); rid != "" {
		if prev, seen := r.checkedState[rid]; seen && prev == checked {
			return nil
		}
		r.checkedState[rid] = checked
	}
	return []models.Action{r.toggleAction(doc, el, checked, ts)}
}

func (r *Reducer) toggleAction(doc *snapshot.Document, el *snapshot.Element, checked bool, ts int64) models.Action {
	typ := models.ActionCheckbox
	if el.InputType() == "radio" {
		typ = models.ActionRadio
	}
	value := "uncheck"
	if checked {
		value = "check"
	}
	loc := r.engine.Locate(doc, el)
	return models.Action{
		Type:          typ,
		Selector:      loc.Kind,
		SelectorValue: loc.Value,
		Value:         value,
		TagName:       el.TagName(),
		ElementType:   el.InputType(),
		Checked:       checked,
		URL:           r.currentURL,
		Timestamp:     ts,
	}
}

// nearbyToggle searches the wrapper's surroundings for the checkbox or radio
// the click was really meant for: the subtree of the wrapper and of a bounded
// number of its ancestors, descending into open shadow roots up to the
// configured depth. With distance gating on, the nearest candidate within the
// gate wins; without coordinates or gating, the first one found does.
func (r *Reducer) nearbyToggle(doc *snapshot.Document, el *snapshot.Element, ev RawEvent) *snapshot.Element {
	root := el
	for i := 0; i < r.cfg.WrapperParentLevels; i++ {
		p := root.Parent()
		if p == nil || p.TagName() == "body" || p.TagName() == "html" {
			break
		}
		root = p
	}
	var candidates []*snapshot.Element
	r.collectToggles(root, 0, &candidates)
	if len(candidates) == 0 {
		return nil
	}
	if !r.cfg.GateByDistance || (ev.X == 0 && ev.Y == 0) {
		return candidates[0]
	}
	var best *snapshot.Element
	bestDist := r.cfg.DistanceGatePx
	for _, c := range candidates {
		cx, cy, ok := c.Center()
		if !ok {
			continue
		}
		dist := math.Hypot(cx-ev.X, cy-ev.Y)
		if dist <= bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}

func (r *Reducer) collectToggles(el *snapshot.Element, shadowDepth int, out *[]*snapshot.Element) {
	if el.IsCheckboxOrRadio() {
		*out = append(*out, el)
	}
	if r.cfg.TraverseShadowDOM && shadowDepth < r.cfg.ShadowDepthLimit {
		for _, root := range el.ShadowRoots() {
			r.collectToggles(root, shadowDepth+1, out)
		}
	}
	for _, c := range el.Children() {
		if c.TagName() == "template" {
			continue
		}
		r.collectToggles(c, shadowDepth, out)
	}
}

func (r *Reducer) rememberPending(owner, value string, path []string) {
	entry := pendingValue{owner: owner, value: value}
	if !containsString(r.pendingOrder, owner) {
		r.pendingOrder = append(r.pendingOrder, owner)
	}
	r.pending[owner] = entry
	for _, rid := range path {
		r.pending[rid] = entry
	}
}

func (r *Reducer) clearPending(owner string) {
	for k, v := range r.pending {
		if v.owner == owner {
			delete(r.pending, k)
		}
	}
	for i, o := range r.pendingOrder {
		if o == owner {
			r.pendingOrder = append(r.pendingOrder[:i], r.pendingOrder[i+1:]...)
			break
		}
	}
}

func (r *Reducer) clickSuppressed(rid string, ts int64) bool {
	return rid != "" && rid == r.lastClickRid && ts-r.lastClickTS < r.cfg.ClickDedupWindow.Milliseconds()
}

func (r *Reducer) noteClick(rid string, ts int64) {
	r.lastClickRid = rid
	r.lastClickTS = ts
}

var wrapperTags = map[string]bool{
	"div": true, "span": true, "label": true, "li": true, "p": true, "td": true,
}

func submitLike(el *snapshot.Element) bool {
	switch el.TagName() {
	case "button", "a":
		return true
	case "input":
		switch el.InputType() {
		case "submit", "button", "image", "reset":
			return true
		}
	}
	return false
}

func optionLabel(sel *snapshot.Element, value string) string {
	var label string
	var walk func(*snapshot.Element)
	walk = func(el *snapshot.Element) {
		for _, c := range el.Children() {
			if c.TagName() == "option" {
				v := c.Attr("value")
				text := c.Text()
				if v == value || (v == "" && text == value) {
					label = text
					return
				}
			}
			walk(c)
			if label != "" {
				return
			}
		}
	}
	walk(sel)
	return label
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
