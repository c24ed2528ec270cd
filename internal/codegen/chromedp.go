package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"uirecorder/internal/models"
)

// ChromedpScript renders the flow as a self-contained Go test driving
// chromedp, one query action per recorded step.
func ChromedpScript(flow *models.Flow, actions []models.Action) (string, error) {
	var steps strings.Builder
	needsKB := false

	initial := startURL(flow, actions)
	if initial != "" {
		steps.WriteString("\t\t// 打开页面\n")
		fmt.Fprintf(&steps, "\t\tchromedp.Navigate(%s),\n", goString(initial))
		steps.WriteString("\t\tchromedp.WaitReady(`body`, chromedp.ByQuery),\n")
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
			steps.WriteString("\t\t// 打开页面\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Navigate(%s),\n", goString(url))
			steps.WriteString("\t\tchromedp.WaitReady(`body`, chromedp.ByQuery),\n")
			continue
		}

		sel, opt, err := chromedpSelector(action)
		if err != nil {
			return "", fmt.Errorf("action %d: %w", i+1, err)
		}

		switch action.Type {
		case models.ActionClick:
			steps.WriteString("\t\t// 点击元素\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Click(%s, %s),\n", goSelector(sel), opt)
		case models.ActionSendKeys:
			steps.WriteString("\t\t// 输入文本\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Clear(%s, %s),\n", goSelector(sel), opt)
			fmt.Fprintf(&steps, "\t\tchromedp.SendKeys(%s, %s, %s),\n", goSelector(sel), goString(action.Value), opt)
		case models.ActionSendKeysEnter:
			needsKB = true
			steps.WriteString("\t\t// 输入文本并回车\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Clear(%s, %s),\n", goSelector(sel), opt)
			fmt.Fprintf(&steps, "\t\tchromedp.SendKeys(%s, %s+kb.Enter, %s),\n", goSelector(sel), goString(action.Value), opt)
		case models.ActionSelectOption:
			steps.WriteString("\t\t// 选择选项\n")
			if action.Value != "" {
				fmt.Fprintf(&steps, "\t\tchromedp.SetValue(%s, %s, %s),\n", goSelector(sel), goString(action.Value), opt)
			} else {
				fmt.Fprintf(&steps, "\t\tchromedp.SendKeys(%s, %s, %s),\n", goSelector(sel), goString(action.Label), opt)
			}
		case models.ActionCheckbox:
			if action.Checked {
				steps.WriteString("\t\t// 勾选复选框\n")
			} else {
				steps.WriteString("\t\t// 取消勾选复选框\n")
			}
			fmt.Fprintf(&steps, "\t\tchromedp.Click(%s, %s),\n", goSelector(sel), opt)
		case models.ActionRadio:
			steps.WriteString("\t\t// 选中单选按钮\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Click(%s, %s),\n", goSelector(sel), opt)
		case models.ActionSubmit:
			steps.WriteString("\t\t// 提交表单\n")
			fmt.Fprintf(&steps, "\t\tchromedp.Submit(%s, %s),\n", goSelector(sel), opt)
		default:
			return "", fmt.Errorf("action %d: unsupported type %q", i+1, action.Type)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by uirecorder from flow %q. DO NOT EDIT.\n", flow.Name)
	b.WriteString("package recorded\n\n")
	b.WriteString("import (\n")
	b.WriteString("\t\"context\"\n")
	b.WriteString("\t\"testing\"\n")
	b.WriteString("\t\"time\"\n\n")
	b.WriteString("\t\"github.com/chromedp/chromedp\"\n")
	if needsKB {
		b.WriteString("\t\"github.com/chromedp/chromedp/kb\"\n")
	}
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "func %s(t *testing.T) {\n", testName(flow.Name))
	b.WriteString("\tctx, cancel := chromedp.NewContext(context.Background())\n")
	b.WriteString("\tdefer cancel()\n\n")
	b.WriteString("\tctx, cancel = context.WithTimeout(ctx, 5*time.Minute)\n")
	b.WriteString("\tdefer cancel()\n\n")
	b.WriteString("\terr := chromedp.Run(ctx,\n")
	if flow.Device.Width > 0 {
		fmt.Fprintf(&b, "\t\tchromedp.EmulateViewport(%d, %d),\n", flow.Device.Width, flow.Device.Height)
	}
	b.WriteString(steps.String())
	b.WriteString("\t)\n")
	b.WriteString("\tif err != nil {\n")
	b.WriteString("\t\tt.Fatal(err)\n")
	b.WriteString("\t}\n")
	b.WriteString("}\n")

	return b.String(), nil
}

// chromedpSelector maps a recorded locator onto a chromedp selector string
// and the query option expression the generated code passes with it.
func chromedpSelector(a models.Action) (sel, opt string, err error) {
	v := a.SelectorValue
	switch a.Selector {
	case models.LocatorID:
		return "#" + v, "chromedp.ByQuery", nil
	case models.LocatorName:
		return "[name=" + cssQuoted(v) + "]", "chromedp.ByQuery", nil
	case models.LocatorClassName:
		return "." + strings.Join(strings.Fields(v), "."), "chromedp.ByQuery", nil
	case models.LocatorCSSSelector:
		return v, "chromedp.ByQuery", nil
	case models.LocatorXPath:
		return v, "chromedp.BySearch", nil
	case models.LocatorLinkText:
		return "//a[normalize-space(.)=" + xpathQuoted(v) + "]", "chromedp.BySearch", nil
	case models.LocatorPartialLinkText:
		return "//a[contains(normalize-space(.), " + xpathQuoted(v) + ")]", "chromedp.BySearch", nil
	case models.LocatorTagName:
		return v, "chromedp.ByQuery", nil
	case "":
		return "", "", fmt.Errorf("action %s has no locator", a.Type)
	default:
		if attr, val, ok := strings.Cut(v, "="); ok {
			return "[" + attr + "=" + cssQuoted(val) + "]", "chromedp.ByQuery", nil
		}
		return "", "", fmt.Errorf("unsupported locator kind %q", a.Selector)
	}
}

var cssQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func cssQuoted(v string) string {
	return `"` + cssQuoteEscaper.Replace(v) + `"`
}

// xpathQuoted renders v as an XPath 1.0 string literal. There is no escape
// syntax, so values holding both quote kinds become a concat() call.
func xpathQuoted(v string) string {
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

// goSelector prefers a raw string literal for readability, falling back to a
// quoted literal when the selector itself contains a backquote.
func goSelector(sel string) string {
	if strings.Contains(sel, "`") {
		return strconv.Quote(sel)
	}
	return "`" + sel + "`"
}

func goString(v string) string {
	return strconv.Quote(v)
}
