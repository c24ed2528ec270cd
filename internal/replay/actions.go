package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"uirecorder/internal/models"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const locatorWaitTimeout = 10 * time.Second

// locator is a resolved chromedp query for an action's selector. css marks
// queries that run through querySelector and may need the DOM.performSearch
// fallback to reach elements inside open shadow roots.
type locator struct {
	sel string
	opt chromedp.QueryOption
	css bool
}

// locatorQuery maps a recorded locator kind onto the chromedp query that
// re-finds the element at replay time.
func locatorQuery(a models.Action) (*locator, error) {
	v := a.SelectorValue
	switch a.Selector {
	case models.LocatorID:
		return &locator{sel: "#" + v, opt: chromedp.ByQuery, css: true}, nil
	case models.LocatorName:
		return &locator{sel: fmt.Sprintf(`[name=%s]`, cssString(v)), opt: chromedp.ByQuery, css: true}, nil
	case models.LocatorClassName:
		return &locator{sel: "." + strings.Join(strings.Fields(v), "."), opt: chromedp.ByQuery, css: true}, nil
	case models.LocatorCSSSelector:
		return &locator{sel: v, opt: chromedp.ByQuery, css: true}, nil
	case models.LocatorXPath:
		return &locator{sel: v, opt: chromedp.BySearch}, nil
	case models.LocatorLinkText:
		return &locator{sel: fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathString(v)), opt: chromedp.BySearch}, nil
	case models.LocatorPartialLinkText:
		return &locator{sel: fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, xpathString(v)), opt: chromedp.BySearch}, nil
	case models.LocatorTagName:
		return &locator{sel: v, opt: chromedp.ByQuery, css: true}, nil
	case "":
		return nil, fmt.Errorf("action %s has no locator", a.Type)
	default:
		// Unknown kinds from externally authored flows still replay when the
		// value reads attr=value
		if name, val, ok := strings.Cut(v, "="); ok && name != "" {
			return &locator{sel: fmt.Sprintf(`[%s=%s]`, name, cssString(val)), opt: chromedp.ByQuery, css: true}, nil
		}
		return nil, fmt.Errorf("unsupported locator kind %q", a.Selector)
	}
}

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// cssString quotes v as a CSS attribute-selector string literal.
func cssString(v string) string {
	return `"` + cssEscaper.Replace(v) + `"`
}

// xpathString quotes v as an XPath string literal, falling back to concat()
// when the value mixes both quote styles.
func xpathString(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range strings.Split(v, "'") {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + part + "'")
	}
	b.WriteString(")")
	return b.String()
}

// jsString quotes v as a JavaScript string literal.
func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// await blocks until the locator resolves to a visible element.
func await(ctx context.Context, loc *locator) error {
	return awaitWith(ctx, loc, chromedp.WaitVisible)
}

// awaitPresent blocks until the locator resolves to an attached element,
// visible or not. Toggle targets are routinely inputs hidden behind styled
// wrappers.
func awaitPresent(ctx context.Context, loc *locator) error {
	return awaitWith(ctx, loc, chromedp.WaitReady)
}

func awaitWith(ctx context.Context, loc *locator, wait func(interface{}, ...chromedp.QueryOption) chromedp.QueryAction) error {
	wctx, cancel := context.WithTimeout(ctx, locatorWaitTimeout)
	err := chromedp.Run(wctx, wait(loc.sel, loc.opt))
	cancel()
	if err == nil {
		return nil
	}
	if !loc.css {
		return fmt.Errorf("element %s not found: %v", loc.sel, err)
	}

	// querySelector cannot see into shadow roots; DOM.performSearch can.
	sctx, cancel2 := context.WithTimeout(ctx, locatorWaitTimeout)
	defer cancel2()
	if serr := chromedp.Run(sctx, wait(loc.sel, chromedp.BySearch)); serr != nil {
		return fmt.Errorf("element %s not found: %v", loc.sel, err)
	}
	loc.opt = chromedp.BySearch
	loc.css = false
	return nil
}

func (e *Executor) executeAction(ctx context.Context, action models.Action) error {
	switch action.Type {
	case models.ActionNavigate:
		return e.executeNavigate(ctx, action)
	case models.ActionClick:
		return e.executeClick(ctx, action)
	case models.ActionSendKeys:
		return e.executeSendKeys(ctx, action)
	case models.ActionSendKeysEnter:
		return e.executeSendKeysEnter(ctx, action)
	case models.ActionSelectOption:
		return e.executeSelectOption(ctx, action)
	case models.ActionCheckbox, models.ActionRadio:
		return e.executeToggle(ctx, action)
	case models.ActionSubmit:
		return e.executeSubmit(ctx, action)
	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *Executor) executeNavigate(ctx context.Context, action models.Action) error {
	url := action.URL
	if url == "" {
		url = action.Value
	}
	if url == "" {
		return fmt.Errorf("navigate action has no URL")
	}

	// The entry page is loaded at Chrome startup, skip redundant navigations
	var current string
	if err := chromedp.Run(ctx, chromedp.Location(&current)); err == nil && current == url {
		return nil
	}

	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	)
}

func (e *Executor) executeClick(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := await(ctx, loc); err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, locatorWaitTimeout)
	err = chromedp.Run(wctx, chromedp.WaitEnabled(loc.sel, loc.opt))
	cancel()
	if err != nil {
		return fmt.Errorf("failed to wait for element %s to be enabled: %v", loc.sel, err)
	}

	// Let dynamic content settle before clicking
	time.Sleep(500 * time.Millisecond)

	maxRetries := 3
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = chromedp.Run(ctx,
			chromedp.Click(loc.sel, loc.opt),
			chromedp.Sleep(200*time.Millisecond),
		)
		if err == nil {
			return nil
		}
		if attempt < maxRetries {
			log.Printf("Click attempt %d failed for element %s: %v, retrying...", attempt, loc.sel, err)
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	return fmt.Errorf("failed to click element %s after %d attempts: %v", loc.sel, maxRetries, err)
}

func (e *Executor) executeSendKeys(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := await(ctx, loc); err != nil {
		return err
	}

	return chromedp.Run(ctx,
		chromedp.Clear(loc.sel, loc.opt),
		chromedp.SendKeys(loc.sel, action.Value, loc.opt),
		chromedp.Sleep(200*time.Millisecond),
	)
}

func (e *Executor) executeSendKeysEnter(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := await(ctx, loc); err != nil {
		return err
	}

	// Enter usually triggers a search or submit, give the page a moment
	return chromedp.Run(ctx,
		chromedp.Clear(loc.sel, loc.opt),
		chromedp.SendKeys(loc.sel, action.Value+kb.Enter, loc.opt),
		chromedp.Sleep(1*time.Second),
	)
}

// executeSelectOption drives a <select> to the recorded option, matching by
// option value first and visible label second, and fires the input/change
// events the page's listeners expect.
func (e *Executor) executeSelectOption(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := await(ctx, loc); err != nil {
		return err
	}

	label := action.Label
	if label == "" {
		label = action.Value
	}
	fn := fmt.Sprintf(`function() {
		for (let i = 0; i < this.options.length; i++) {
			const opt = this.options[i];
			if (opt.value === %s || opt.text.trim() === %s) {
				this.selectedIndex = i;
				this.dispatchEvent(new Event('input', { bubbles: true }));
				this.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	}`, jsString(action.Value), jsString(label))

	var matched bool
	if err := chromedp.Run(ctx, callOnNode(loc.sel, fn, &matched, loc.opt)); err != nil {
		return fmt.Errorf("failed to drive select %s: %v", loc.sel, err)
	}
	if !matched {
		return fmt.Errorf("option %q not found in select %s", action.Value, loc.sel)
	}

	return chromedp.Run(ctx, chromedp.Sleep(200*time.Millisecond))
}

// executeToggle re-applies a recorded checkbox or radio state. The input is
// clicked through the DOM rather than the mouse so inputs hidden behind
// styled wrappers still toggle, and only when the live state differs from the
// recorded one.
func (e *Executor) executeToggle(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := awaitPresent(ctx, loc); err != nil {
		return err
	}

	want := action.Checked
	if action.Type == models.ActionRadio {
		want = true
	}

	fn := fmt.Sprintf(`function() {
		if (this.checked === %t) {
			return false;
		}
		this.click();
		return true;
	}`, want)

	var toggled bool
	if err := chromedp.Run(ctx, callOnNode(loc.sel, fn, &toggled, loc.opt)); err != nil {
		return fmt.Errorf("failed to toggle %s: %v", loc.sel, err)
	}
	if !toggled {
		log.Printf("Element %s already in desired state (checked=%t)", loc.sel, want)
	}

	return chromedp.Run(ctx, chromedp.Sleep(200*time.Millisecond))
}

func (e *Executor) executeSubmit(ctx context.Context, action models.Action) error {
	loc, err := locatorQuery(action)
	if err != nil {
		return err
	}
	if err := awaitPresent(ctx, loc); err != nil {
		return err
	}

	return chromedp.Run(ctx,
		chromedp.Submit(loc.sel, loc.opt),
		chromedp.Sleep(1*time.Second),
	)
}

// callOnNode runs fn with `this` bound to the first node matching sel and
// stores the boolean return value in res.
func callOnNode(sel string, fn string, res *bool, opts ...chromedp.QueryOption) chromedp.QueryAction {
	return chromedp.QueryAfter(sel, func(ctx context.Context, execCtx runtime.ExecutionContextID, nodes ...*cdp.Node) error {
		if len(nodes) == 0 {
			return fmt.Errorf("no nodes matched %q", sel)
		}

		obj, err := dom.ResolveNode().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return err
		}

		remote, exp, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return exp
		}
		if res != nil && remote != nil && remote.Value != nil {
			return json.Unmarshal(remote.Value, res)
		}
		return nil
	}, opts...)
}
