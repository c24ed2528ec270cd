package replay

import (
	"testing"
	"uirecorder/internal/models"
)

func TestLocatorQuery(t *testing.T) {
	tests := []struct {
		name    string
		action  models.Action
		wantSel string
		wantCSS bool
		wantErr bool
	}{
		{
			name:    "id",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorID, SelectorValue: "search-box"},
			wantSel: "#search-box",
			wantCSS: true,
		},
		{
			name:    "name",
			action:  models.Action{Type: models.ActionSendKeys, Selector: models.LocatorName, SelectorValue: "q"},
			wantSel: `[name="q"]`,
			wantCSS: true,
		},
		{
			name:    "name with quote",
			action:  models.Action{Type: models.ActionSendKeys, Selector: models.LocatorName, SelectorValue: `a"b`},
			wantSel: `[name="a\"b"]`,
			wantCSS: true,
		},
		{
			name:    "class name",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorClassName, SelectorValue: "btn primary"},
			wantSel: ".btn.primary",
			wantCSS: true,
		},
		{
			name:    "css selector passthrough",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorCSSSelector, SelectorValue: `[data-testid="submit"]`},
			wantSel: `[data-testid="submit"]`,
			wantCSS: true,
		},
		{
			name:    "xpath passthrough",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorXPath, SelectorValue: "//button[normalize-space(.)='Search']"},
			wantSel: "//button[normalize-space(.)='Search']",
			wantCSS: false,
		},
		{
			name:    "link text",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorLinkText, SelectorValue: "Sign in"},
			wantSel: "//a[normalize-space(.)='Sign in']",
			wantCSS: false,
		},
		{
			name:    "partial link text",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorPartialLinkText, SelectorValue: "Sign"},
			wantSel: "//a[contains(normalize-space(.), 'Sign')]",
			wantCSS: false,
		},
		{
			name:    "tag name",
			action:  models.Action{Type: models.ActionClick, Selector: models.LocatorTagName, SelectorValue: "button"},
			wantSel: "button",
			wantCSS: true,
		},
		{
			name:    "attribute fallback for unknown kind",
			action:  models.Action{Type: models.ActionClick, Selector: "Attribute", SelectorValue: "data-role=menu"},
			wantSel: `[data-role="menu"]`,
			wantCSS: true,
		},
		{
			name:    "missing locator",
			action:  models.Action{Type: models.ActionClick},
			wantErr: true,
		},
		{
			name:    "unknown kind without attribute form",
			action:  models.Action{Type: models.ActionClick, Selector: "Bogus", SelectorValue: "whatever"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := locatorQuery(tt.action)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("locatorQuery(%+v) expected error, got %+v", tt.action, loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("locatorQuery(%+v) returned error: %v", tt.action, err)
			}
			if loc.sel != tt.wantSel {
				t.Errorf("sel = %q, want %q", loc.sel, tt.wantSel)
			}
			if loc.css != tt.wantCSS {
				t.Errorf("css = %v, want %v", loc.css, tt.wantCSS)
			}
		})
	}
}

func TestXPathString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "'hello'"},
		{"apostrophe", "it's", `"it's"`},
		{"double quote", `say "hi"`, `'say "hi"'`},
		{"both quote styles", `he said "it's"`, `concat('he said "it', "'", 's"')`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := xpathString(tt.in); got != tt.want {
				t.Errorf("xpathString(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartURL(t *testing.T) {
	actions := []models.Action{
		{Type: models.ActionNavigate, URL: "https://app.local/signup", Timestamp: 1000},
		{Type: models.ActionClick, Selector: models.LocatorID, SelectorValue: "go", Timestamp: 2000},
	}

	flow := &models.Flow{StartURL: "https://app.local/entry"}
	if got := startURL(flow, actions); got != "https://app.local/entry" {
		t.Errorf("startURL with explicit entry = %q, want the flow's StartURL", got)
	}

	flow = &models.Flow{}
	if got := startURL(flow, actions); got != "https://app.local/signup" {
		t.Errorf("startURL = %q, want first navigation target", got)
	}

	flow = &models.Flow{Environment: models.Environment{BaseURL: "https://app.local/"}}
	if got := startURL(flow, actions[1:]); got != "https://app.local/" {
		t.Errorf("startURL without navigations = %q, want environment base URL", got)
	}
}

func TestShouldCapture(t *testing.T) {
	capturing := []models.ActionType{
		models.ActionClick, models.ActionSendKeysEnter, models.ActionSelectOption,
		models.ActionCheckbox, models.ActionRadio, models.ActionSubmit,
	}
	for _, at := range capturing {
		if !shouldCapture(models.Action{Type: at}) {
			t.Errorf("shouldCapture(%s) = false, want true", at)
		}
	}
	for _, at := range []models.ActionType{models.ActionNavigate, models.ActionSendKeys} {
		if shouldCapture(models.Action{Type: at}) {
			t.Errorf("shouldCapture(%s) = true, want false", at)
		}
	}
}
