package codegen

import (
	"fmt"
	"strings"
	"uirecorder/internal/models"
)

// PlaywrightScript renders the flow as a Playwright TypeScript spec.
func PlaywrightScript(flow *models.Flow, actions []models.Action) (string, error) {
	var steps strings.Builder

	initial := startURL(flow, actions)
	if initial != "" {
		fmt.Fprintf(&steps, "  await page.goto(%s);\n", tsString(initial))
	}

	for i, action := range actions {
		if i == 0 && action.Type == models.ActionNavigate &&
			(action.URL == initial || action.Value == initial) {
			continue
		}

		if action.Type == models.ActionNavigate {
			url := action.URL
			if url == "" {
				url = action.Value
			}
			fmt.Fprintf(&steps, "  await page.goto(%s);\n", tsString(url))
			continue
		}

		loc, err := playwrightLocator(action)
		if err != nil {
			return "", fmt.Errorf("action %d: %w", i+1, err)
		}

		switch action.Type {
		case models.ActionClick:
			fmt.Fprintf(&steps, "  await %s.click();\n", loc)
		case models.ActionSendKeys:
			fmt.Fprintf(&steps, "  await %s.fill(%s);\n", loc, tsString(action.Value))
		case models.ActionSendKeysEnter:
			fmt.Fprintf(&steps, "  await %s.fill(%s);\n", loc, tsString(action.Value))
			fmt.Fprintf(&steps, "  await %s.press('Enter');\n", loc)
		case models.ActionSelectOption:
			if action.Value != "" {
				fmt.Fprintf(&steps, "  await %s.selectOption({ value: %s });\n", loc, tsString(action.Value))
			} else {
				fmt.Fprintf(&steps, "  await %s.selectOption({ label: %s });\n", loc, tsString(action.Label))
			}
		case models.ActionCheckbox:
			fmt.Fprintf(&steps, "  await %s.setChecked(%t);\n", loc, action.Checked)
		case models.ActionRadio:
			fmt.Fprintf(&steps, "  await %s.check();\n", loc)
		case models.ActionSubmit:
			fmt.Fprintf(&steps, "  await %s.evaluate((form: HTMLFormElement) => form.submit());\n", loc)
		default:
			return "", fmt.Errorf("action %d: unsupported type %q", i+1, action.Type)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Generated by uirecorder from flow %s. Do not edit.\n", tsString(flow.Name))
	b.WriteString("import { test } from '@playwright/test';\n\n")

	if flow.Device.Width > 0 {
		fmt.Fprintf(&b, "test.use({\n  viewport: { width: %d, height: %d },\n", flow.Device.Width, flow.Device.Height)
		if flow.Device.UserAgent != "" {
			fmt.Fprintf(&b, "  userAgent: %s,\n", tsString(flow.Device.UserAgent))
		}
		if flow.Device.Touch {
			b.WriteString("  hasTouch: true,\n")
		}
		b.WriteString("});\n\n")
	}

	fmt.Fprintf(&b, "test(%s, async ({ page }) => {\n", tsString(flow.Name))
	b.WriteString(steps.String())
	b.WriteString("});\n")

	return b.String(), nil
}

// playwrightLocator maps a recorded locator onto a Playwright locator
// expression rooted at page.
func playwrightLocator(a models.Action) (string, error) {
	v := a.SelectorValue
	switch a.Selector {
	case models.LocatorID:
		if isCSSIdentifier(v) {
			return "page.locator(" + tsString("#"+v) + ")", nil
		}
		return "page.locator(" + tsString(`[id="`+v+`"]`) + ")", nil
	case models.LocatorName:
		return "page.locator(" + tsString(`[name="`+v+`"]`) + ")", nil
	case models.LocatorClassName:
		return "page.locator(" + tsString("."+strings.Join(strings.Fields(v), ".")) + ")", nil
	case models.LocatorCSSSelector:
		return "page.locator(" + tsString(v) + ")", nil
	case models.LocatorXPath:
		return "page.locator(" + tsString("xpath="+v) + ")", nil
	case models.LocatorLinkText:
		return "page.getByRole('link', { name: " + tsString(v) + ", exact: true })", nil
	case models.LocatorPartialLinkText:
		return "page.getByRole('link', { name: " + tsString(v) + " })", nil
	case models.LocatorTagName:
		return "page.locator(" + tsString(v) + ")", nil
	case "":
		return "", fmt.Errorf("action %s has no locator", a.Type)
	default:
		if attr, val, ok := strings.Cut(v, "="); ok {
			return "page.locator(" + tsString("["+attr+`="`+val+`"]`) + ")", nil
		}
		return "", fmt.Errorf("unsupported locator kind %q", a.Selector)
	}
}

var tsEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

func tsString(v string) string {
	return "'" + tsEscaper.Replace(v) + "'"
}

// isCSSIdentifier reports whether v can follow a # in a selector without
// escaping.
func isCSSIdentifier(v string) bool {
	if v == "" {
		return false
	}
	for i, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
