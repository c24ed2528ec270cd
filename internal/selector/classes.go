package selector

import "strings"

// generatedClassPrefixes mark classes minted by CSS-in-JS tooling; their
// values change on every build and are useless as locators.
var generatedClassPrefixes = []string{"atm_", "css-", "style-"}

const (
	minClassLength = 3
	maxClassLength = 30
)

// MeaningfulClasses filters a class list down to the entries plausible as
// hand-written semantic names, preserving order.
func MeaningfulClasses(classes []string) []string {
	var out []string
	for _, c := range classes {
		if meaningfulClass(c) {
			out = append(out, c)
		}
	}
	return out
}

func meaningfulClass(c string) bool {
	if len(c) < minClassLength || len(c) > maxClassLength {
		return false
	}
	for _, prefix := range generatedClassPrefixes {
		if strings.HasPrefix(c, prefix) {
			return false
		}
	}
	if singleLetterAndDigits(c) {
		return false
	}
	return true
}

// singleLetterAndDigits matches minified names like "a11" or "x0".
func singleLetterAndDigits(c string) bool {
	if len(c) < 2 {
		return false
	}
	first := rune(c[0])
	if !isAlpha(first) {
		return false
	}
	for _, r := range c[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
