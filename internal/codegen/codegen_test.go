package codegen

import (
	"strings"
	"testing"
	"uirecorder/internal/models"
)

func sampleFlow() (*models.Flow, []models.Action) {
	flow := &models.Flow{
		Name: "Login Flow",
		Device: models.Device{
			Width:  1920,
			Height: 1080,
		},
	}
	actions := []models.Action{
		{Type: models.ActionNavigate, URL: "https://app.local/login"},
		{Type: models.ActionSendKeys, Selector: models.LocatorName, SelectorValue: "username", Value: "admin"},
		{Type: models.ActionSendKeysEnter, Selector: models.LocatorName, SelectorValue: "password", Value: "secret123"},
		{Type: models.ActionSelectOption, Selector: models.LocatorID, SelectorValue: "city", Label: "北京"},
		{Type: models.ActionCheckbox, Selector: models.LocatorID, SelectorValue: "agree", Checked: true},
		{Type: models.ActionSubmit, Selector: models.LocatorXPath, SelectorValue: "//form[1]"},
	}
	return flow, actions
}

func TestChromedpScript(t *testing.T) {
	flow, actions := sampleFlow()

	script, err := ChromedpScript(flow, actions)
	if err != nil {
		t.Fatalf("ChromedpScript returned error: %v", err)
	}

	wantFragments := []string{
		"func TestLoginFlow(t *testing.T)",
		"chromedp.EmulateViewport(1920, 1080)",
		"chromedp.Navigate(\"https://app.local/login\")",
		"chromedp.Clear(`[name=\"username\"]`, chromedp.ByQuery)",
		"chromedp.SendKeys(`[name=\"username\"]`, \"admin\", chromedp.ByQuery)",
		"chromedp.SendKeys(`[name=\"password\"]`, \"secret123\"+kb.Enter, chromedp.ByQuery)",
		"\"github.com/chromedp/chromedp/kb\"",
		"chromedp.SendKeys(`#city`, \"北京\", chromedp.ByQuery)",
		"chromedp.Click(`#agree`, chromedp.ByQuery)",
		"chromedp.Submit(`//form[1]`, chromedp.BySearch)",
	}
	for _, want := range wantFragments {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\n%s", want, script)
		}
	}

	// The leading Navigate action doubles as the start URL, the script must
	// not open the page twice
	if got := strings.Count(script, "chromedp.Navigate("); got != 1 {
		t.Errorf("script navigates %d times, want 1", got)
	}
}

func TestChromedpScriptSameInputSameOutput(t *testing.T) {
	flow, actions := sampleFlow()

	first, err := ChromedpScript(flow, actions)
	if err != nil {
		t.Fatalf("ChromedpScript returned error: %v", err)
	}
	second, err := ChromedpScript(flow, actions)
	if err != nil {
		t.Fatalf("ChromedpScript returned error: %v", err)
	}
	if first != second {
		t.Error("generation is not deterministic")
	}
}

func TestChromedpScriptSkipsKeyboardImportWhenUnused(t *testing.T) {
	flow := &models.Flow{Name: "Click Only"}
	actions := []models.Action{
		{Type: models.ActionNavigate, URL: "https://app.local/"},
		{Type: models.ActionClick, Selector: models.LocatorID, SelectorValue: "go"},
	}

	script, err := ChromedpScript(flow, actions)
	if err != nil {
		t.Fatalf("ChromedpScript returned error: %v", err)
	}
	if strings.Contains(script, "chromedp/kb") {
		t.Error("script imports chromedp/kb without any Enter key step")
	}
	if strings.Contains(script, "EmulateViewport") {
		t.Error("script emulates a viewport without device dimensions")
	}
}

func TestPlaywrightScript(t *testing.T) {
	flow, actions := sampleFlow()
	flow.Device.Touch = true

	script, err := PlaywrightScript(flow, actions)
	if err != nil {
		t.Fatalf("PlaywrightScript returned error: %v", err)
	}

	wantFragments := []string{
		"test('Login Flow', async ({ page }) => {",
		"viewport: { width: 1920, height: 1080 }",
		"hasTouch: true",
		"await page.goto('https://app.local/login');",
		"await page.locator('[name=\"username\"]').fill('admin');",
		"await page.locator('[name=\"password\"]').fill('secret123');",
		"await page.locator('[name=\"password\"]').press('Enter');",
		"await page.locator('#city').selectOption({ label: '北京' });",
		"await page.locator('#agree').setChecked(true);",
		"await page.locator('xpath=//form[1]').evaluate((form: HTMLFormElement) => form.submit());",
	}
	for _, want := range wantFragments {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q\n%s", want, script)
		}
	}

	if got := strings.Count(script, "page.goto("); got != 1 {
		t.Errorf("script navigates %d times, want 1", got)
	}
}

func TestPlaywrightLocator(t *testing.T) {
	tests := []struct {
		name    string
		action  models.Action
		want    string
		wantErr bool
	}{
		{
			name:   "plain id",
			action: models.Action{Selector: models.LocatorID, SelectorValue: "search-box"},
			want:   "page.locator('#search-box')",
		},
		{
			name:   "id needing attribute form",
			action: models.Action{Selector: models.LocatorID, SelectorValue: "step:2"},
			want:   `page.locator('[id="step:2"]')`,
		},
		{
			name:   "class name",
			action: models.Action{Selector: models.LocatorClassName, SelectorValue: "btn primary"},
			want:   "page.locator('.btn.primary')",
		},
		{
			name:   "xpath",
			action: models.Action{Selector: models.LocatorXPath, SelectorValue: "//button[2]"},
			want:   "page.locator('xpath=//button[2]')",
		},
		{
			name:   "link text",
			action: models.Action{Selector: models.LocatorLinkText, SelectorValue: "Sign in"},
			want:   "page.getByRole('link', { name: 'Sign in', exact: true })",
		},
		{
			name:   "partial link text",
			action: models.Action{Selector: models.LocatorPartialLinkText, SelectorValue: "Sign"},
			want:   "page.getByRole('link', { name: 'Sign' })",
		},
		{
			name:   "attribute fallback",
			action: models.Action{Selector: "Attribute", SelectorValue: "data-role=menu"},
			want:   `page.locator('[data-role="menu"]')`,
		},
		{
			name:    "missing locator",
			action:  models.Action{Type: models.ActionClick},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := playwrightLocator(tt.action)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("playwrightLocator(%+v) expected error, got %q", tt.action, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("playwrightLocator(%+v) returned error: %v", tt.action, err)
			}
			if got != tt.want {
				t.Errorf("locator = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	flow, actions := sampleFlow()

	_, filename, err := Generate(LanguageGo, flow, actions)
	if err != nil {
		t.Fatalf("Generate(go) returned error: %v", err)
	}
	if filename != "login_flow_test.go" {
		t.Errorf("go filename = %q, want login_flow_test.go", filename)
	}

	_, filename, err = Generate(LanguagePlaywright, flow, actions)
	if err != nil {
		t.Fatalf("Generate(playwright) returned error: %v", err)
	}
	if filename != "login_flow.spec.ts" {
		t.Errorf("playwright filename = %q, want login_flow.spec.ts", filename)
	}

	if _, _, err := Generate("ruby", flow, actions); err == nil {
		t.Error("Generate with unsupported language did not fail")
	}
}

func TestTestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english words", "login flow", "TestLoginFlow"},
		{"punctuation", "checkout - step 2", "TestCheckoutStep2"},
		{"chinese falls back", "登录流程", "TestRecordedFlow"},
		{"leading digit", "2fa setup", "TestRecordedFlow2faSetup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testName(tt.in); got != tt.want {
				t.Errorf("testName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces", "Login Flow", "login_flow"},
		{"punctuation runs", "a -- b", "a_b"},
		{"chinese falls back", "登录流程", "recorded_flow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slugify(tt.in); got != tt.want {
				t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
