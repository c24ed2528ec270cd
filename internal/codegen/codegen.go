// Package codegen turns a recorded flow into runnable automation scripts.
// Generation is deterministic: the same flow always yields the same script.
package codegen

import (
	"fmt"
	"strings"
	"unicode"
	"uirecorder/internal/models"
)

// Language identifies a script generation target.
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePlaywright Language = "playwright"
)

// Generate renders the flow's actions as a script in the given language.
// Returns the script text and a suggested file name.
func Generate(lang Language, flow *models.Flow, actions []models.Action) (script, filename string, err error) {
	switch lang {
	case LanguageGo:
		script, err = ChromedpScript(flow, actions)
		filename = slugify(flow.Name) + "_test.go"
	case LanguagePlaywright:
		script, err = PlaywrightScript(flow, actions)
		filename = slugify(flow.Name) + ".spec.ts"
	default:
		err = fmt.Errorf("unsupported language %q", lang)
	}
	return script, filename, err
}

// startURL resolves where the generated script should begin: the flow's own
// start URL, else the first recorded navigation, else the environment base.
func startURL(flow *models.Flow, actions []models.Action) string {
	if flow.StartURL != "" {
		return flow.StartURL
	}
	for _, a := range actions {
		if a.Type == models.ActionNavigate {
			if a.URL != "" {
				return a.URL
			}
			return a.Value
		}
	}
	return flow.Environment.BaseURL
}

// testName derives an exported Go identifier from the flow name. Non-ASCII
// names (Chinese flow names are common) fall back to a generic one.
func testName(name string) string {
	var b strings.Builder
	capitalize := true
	for _, r := range name {
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
			capitalize = true
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "RecordedFlow" + id
	}
	return "Test" + id
}

func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "recorded_flow"
	}
	return slug
}
