package models

// LocatorKind names the query mechanism a locator value must be interpreted
// with. The recorder only ever emits Id, Name, CssSelector, XPath and TagName;
// the remaining kinds are accepted on replay for compatibility with externally
// authored flows.
type LocatorKind string

const (
	LocatorID              LocatorKind = "Id"
	LocatorName            LocatorKind = "Name"
	LocatorClassName       LocatorKind = "ClassName"
	LocatorCSSSelector     LocatorKind = "CssSelector"
	LocatorXPath           LocatorKind = "XPath"
	LocatorLinkText        LocatorKind = "LinkText"
	LocatorPartialLinkText LocatorKind = "PartialLinkText"
	LocatorTagName         LocatorKind = "TagName"
)

// Locator is a (kind, value) pair sufficient to re-find a DOM element.
type Locator struct {
	Kind  LocatorKind `json:"kind"`
	Value string      `json:"value"`
}

// ActionType is the fixed vocabulary of recordable user intents.
type ActionType string

const (
	ActionNavigate      ActionType = "Navigate"
	ActionClick         ActionType = "Click"
	ActionSendKeys      ActionType = "SendKeys"
	ActionSendKeysEnter ActionType = "SendKeysEnter"
	ActionSelectOption  ActionType = "SelectOption"
	ActionCheckbox      ActionType = "Checkbox"
	ActionRadio         ActionType = "Radio"
	ActionSubmit        ActionType = "Submit"
)

// Action is one reduced, semantically meaningful user action, immutable once
// appended to a session log. The JSON shape doubles as the outbound message
// pushed to websocket consumers while a recording runs.
type Action struct {
	Type          ActionType  `json:"type"`
	Selector      LocatorKind `json:"selector,omitempty"` // empty for Navigate
	SelectorValue string      `json:"selectorValue,omitempty"`
	Value         string      `json:"value,omitempty"` // typed text, option value, URL, "check"/"uncheck"
	Label         string      `json:"label,omitempty"` // human-readable option label (SelectOption)
	Key           string      `json:"key,omitempty"`   // "Enter" for SendKeysEnter
	TagName       string      `json:"tagName,omitempty"`
	ElementType   string      `json:"elementType,omitempty"` // input subtype, e.g. "checkbox"
	Checked       bool        `json:"checked,omitempty"`
	URL           string      `json:"url,omitempty"` // page URL at capture time
	Timestamp     int64       `json:"timestamp"`     // milliseconds since epoch
}

// Locator returns the action's locator, or nil for actions that have none.
func (a *Action) Locator() *Locator {
	if a.Selector == "" {
		return nil
	}
	return &Locator{Kind: a.Selector, Value: a.SelectorValue}
}

// SameLocator reports whether two actions target the same element locator.
func (a *Action) SameLocator(b *Action) bool {
	return a.Selector == b.Selector && a.SelectorValue == b.SelectorValue
}
